// Package provider defines the capability set every carrier adapter
// implements and a registry the outer surfaces use to look adapters up.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Info is the carrier identity an adapter declares.
type Info struct {
	Name       string `json:"name"`
	Key        string `json:"key"`
	APIDocsURL string `json:"api_docs_url"`
	APIVersion string `json:"api_version"`
}

// Adapter is one carrier. Dispatch and webhook machinery never depend on a
// concrete adapter type, only on this interface.
type Adapter interface {
	Info() Info
	ConfigSchema() domain.ConfigSchema
	SendMessage(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryOutcome, error)
	SendMedia(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryOutcome, error)
	HandleWebhook(r *http.Request) (int, error)
}

// Registry maps provider keys to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its Info().Key. Keys are case-insensitive.
func (r *Registry) Register(a Adapter) error {
	key := strings.ToLower(a.Info().Key)
	if key == "" {
		return errors.New("adapter has an empty provider key")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[key]; exists {
		return fmt.Errorf("provider %q already registered", key)
	}
	r.adapters[key] = a
	return nil
}

func (r *Registry) Get(key string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, key)
	}
	return a, nil
}

// Infos lists registered carriers sorted by key.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Send picks SendMedia or SendMessage based on the message content.
func Send(ctx context.Context, a Adapter, msg domain.OutboundMessage) (domain.DeliveryOutcome, error) {
	if msg.HasMedia() {
		return a.SendMedia(ctx, msg)
	}
	return a.SendMessage(ctx, msg)
}
