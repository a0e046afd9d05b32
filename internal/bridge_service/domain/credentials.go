package domain

import (
	"context"
	"fmt"
	"strconv"
)

// CarrierCredentials are read from the configuration collaborator for the
// duration of one call and never stored by the bridge.
type CarrierCredentials struct {
	ProviderKey string
	Fields      map[string]string
}

// Get returns the named field, or "" when it is not set.
func (c CarrierCredentials) Get(name string) string {
	if c.Fields == nil {
		return ""
	}
	return c.Fields[name]
}

type FieldType string

const (
	FieldString FieldType = "string"
	FieldSecret FieldType = "secret"
	FieldBool   FieldType = "bool"
	FieldInt    FieldType = "int"
)

// ConfigField describes one setting the configuration subsystem renders
// and validates for a provider.
type ConfigField struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Help        string    `json:"help"`
	Default     string    `json:"default"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
}

type ConfigSchema []ConfigField

// Defaults returns field name to default value for every field.
func (s ConfigSchema) Defaults() map[string]string {
	out := make(map[string]string, len(s))
	for _, f := range s {
		out[f.Name] = f.Default
	}
	return out
}

// Validate checks required fields are present and typed fields parse.
func (s ConfigSchema) Validate(values map[string]string) error {
	for _, f := range s {
		v := values[f.Name]
		if v == "" {
			if f.Required {
				return fmt.Errorf("required field %q is empty", f.Name)
			}
			continue
		}
		switch f.Type {
		case FieldBool:
			if _, err := strconv.ParseBool(v); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		case FieldInt:
			if _, err := strconv.Atoi(v); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	}
	return nil
}

// ConfigSource is the configuration collaborator.
type ConfigSource interface {
	GetConfig(ctx context.Context, providerKey string) (map[string]string, error)
}

// LoadCredentials fetches and validates credentials for one provider.
// Validation failures come back as *AuthError so operators see them as a
// configuration problem rather than a network one.
func LoadCredentials(ctx context.Context, src ConfigSource, providerKey string, schema ConfigSchema) (CarrierCredentials, error) {
	fields, err := src.GetConfig(ctx, providerKey)
	if err != nil {
		return CarrierCredentials{}, &AuthError{ProviderKey: providerKey, Err: err}
	}
	if err := schema.Validate(fields); err != nil {
		return CarrierCredentials{}, &AuthError{ProviderKey: providerKey, Err: err}
	}
	return CarrierCredentials{ProviderKey: providerKey, Fields: fields}, nil
}
