package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
	"github.com/aradsms/smsbridge/internal/bridge_service/provider"
	httptransport "github.com/aradsms/smsbridge/internal/bridge_service/transport/http"
)

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Info() provider.Info {
	return provider.Info{Name: "Fake", Key: "fake", APIVersion: "v0"}
}

func (m *MockAdapter) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{{Name: "token", Type: domain.FieldSecret, Required: true}}
}

func (m *MockAdapter) SendMessage(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryOutcome, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(domain.DeliveryOutcome), args.Error(1)
}

func (m *MockAdapter) SendMedia(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryOutcome, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(domain.DeliveryOutcome), args.Error(1)
}

func (m *MockAdapter) HandleWebhook(r *http.Request) (int, error) {
	args := m.Called(r)
	return args.Int(0), args.Error(1)
}

func newTestServer(t *testing.T, adapter *MockAdapter) *httptest.Server {
	t.Helper()
	registry := provider.NewRegistry()
	require.NoError(t, registry.Register(adapter))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httptest.NewServer(httptransport.NewRouter(httptransport.NewWebhookRouter(registry, logger)))
	t.Cleanup(server.Close)
	return server
}

func TestWebhookRouter_DispatchesToAdapter(t *testing.T) {
	adapter := new(MockAdapter)
	server := newTestServer(t, adapter)
	adapter.On("HandleWebhook", mock.AnythingOfType("*http.Request")).Return(http.StatusAccepted, nil).Once()

	resp, err := http.Post(server.URL+"/webhooks/FAKE", "application/json", strings.NewReader(`[{}]`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	adapter.AssertExpectations(t)
}

func TestWebhookRouter_UnknownProvider(t *testing.T) {
	adapter := new(MockAdapter)
	server := newTestServer(t, adapter)

	resp, err := http.Post(server.URL+"/webhooks/nope", "application/json", strings.NewReader(`[]`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	adapter.AssertNotCalled(t, "HandleWebhook", mock.Anything)
}

func TestWebhookRouter_PassesAdapterStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
	}{
		{"MethodNotAllowed", http.StatusMethodNotAllowed, domain.ErrMethodNotAllowed},
		{"Malformed", http.StatusForbidden, &domain.MalformedPayloadError{Reason: "empty batch"}},
		{"IngestionFailure", http.StatusInternalServerError, &domain.IngestionError{ExternalMessageID: "x", Err: errors.New("db down")}},
		{"AcceptedWithMediaError", http.StatusAccepted, &domain.MediaError{MessageID: "1", Failed: []string{"u"}, Err: errors.New("404")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := new(MockAdapter)
			server := newTestServer(t, adapter)
			adapter.On("HandleWebhook", mock.Anything).Return(tt.status, tt.err).Once()

			req, err := http.NewRequest(http.MethodGet, server.URL+"/webhooks/fake", nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.NotContains(t, string(body), "db down")
			adapter.AssertExpectations(t)
		})
	}
}

func TestWebhookRouter_ListProvidersAndHealth(t *testing.T) {
	server := newTestServer(t, new(MockAdapter))

	resp, err := http.Get(server.URL + "/providers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var providers []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&providers))
	require.Len(t, providers, 1)
	assert.Equal(t, "fake", providers[0]["key"])
	assert.Len(t, providers[0]["config"], 1)

	health, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
