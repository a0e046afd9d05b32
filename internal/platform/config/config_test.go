package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
)

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("APP_PROVIDERS_BRCK_BEARER_TOKEN", "from-env")

	cfg, err := Load("bridge_service_test", ProviderDefaults{
		Key:    "brck",
		Fields: map[string]string{"bearer_token": "", "api_token": "", "api_secret": ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8085, cfg.BridgeServicePort)
	assert.Equal(t, "Smsconnector", cfg.InboundEventModule)
	require.Contains(t, cfg.Providers, "brck")
	assert.Equal(t, "from-env", cfg.Providers["brck"]["bearer_token"])
	assert.Equal(t, "", cfg.Providers["brck"]["api_secret"])
}

func TestProviderSource_GetConfig(t *testing.T) {
	src := NewProviderSource(&Config{Providers: map[string]map[string]string{
		"brck": {"bearer_token": "abc"},
	}})

	fields, err := src.GetConfig(context.Background(), "BRCK")
	require.NoError(t, err)
	assert.Equal(t, "abc", fields["bearer_token"])

	fields["bearer_token"] = "mutated"
	again, err := src.GetConfig(context.Background(), "brck")
	require.NoError(t, err)
	assert.Equal(t, "abc", again["bearer_token"], "callers must receive a copy")

	_, err = src.GetConfig(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderNotConfigured))
}

func TestProviderSource_Set(t *testing.T) {
	src := NewProviderSource(&Config{})
	src.Set("brck", map[string]string{"bearer_token": "new"})

	fields, err := src.GetConfig(context.Background(), "brck")
	require.NoError(t, err)
	assert.Equal(t, "new", fields["bearer_token"])
}
