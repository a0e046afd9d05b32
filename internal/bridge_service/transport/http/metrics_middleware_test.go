package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newMetricsTestRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(PrometheusMetricsMiddleware)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.HandleFunc("/webhooks/{provider_name}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "provider_name") == "nope" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	return r
}

func TestPrometheusMetricsMiddleware_ProviderLabel(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		target       string
		path         string
		providerName string
		status       string
	}{
		{"WebhookByProvider", http.MethodPost, "/webhooks/acme", "/webhooks/{provider_name}", "acme", "202"},
		{"ProviderIsLowercased", http.MethodPost, "/webhooks/ACME", "/webhooks/{provider_name}", "acme", "202"},
		{"UnknownProviderCollapses", http.MethodPost, "/webhooks/nope", "/webhooks/{provider_name}", "unknown", "404"},
		{"NonWebhookRoute", http.MethodGet, "/health", "/health", "none", "200"},
	}
	router := newMetricsTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := httpRequestsTotal.WithLabelValues(tt.method, tt.path, tt.providerName, tt.status)
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestPrometheusMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "unknown", "none", "404")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	newMetricsTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
