package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
	"github.com/aradsms/smsbridge/internal/bridge_service/provider"
)

// WebhookRouter decides which adapter handles an inbound carrier request.
type WebhookRouter struct {
	registry *provider.Registry
	logger   *slog.Logger
}

func NewWebhookRouter(registry *provider.Registry, logger *slog.Logger) *WebhookRouter {
	return &WebhookRouter{
		registry: registry,
		logger:   logger.With("handler", "webhook_router"),
	}
}

// Routes mounts the webhook, provider listing and health endpoints.
func (h *WebhookRouter) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/providers", h.ListProviders)
	// Any method reaches the adapter so it can answer 405 itself.
	r.HandleFunc("/webhooks/{provider_name}", h.HandleWebhook)
}

func (h *WebhookRouter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	providerName := chi.URLParam(r, "provider_name")
	adapter, err := h.registry.Get(providerName)
	if err != nil {
		logger.WarnContext(ctx, "Webhook for unknown provider", "provider_name", providerName)
		http.Error(w, "Unknown provider", http.StatusNotFound)
		return
	}
	logger = logger.With("provider_name", providerName)

	status, err := adapter.HandleWebhook(r)
	if err != nil {
		var mediaErr *domain.MediaError
		switch {
		case errors.As(err, &mediaErr) && status < http.StatusBadRequest:
			logger.WarnContext(ctx, "Webhook accepted with missing media", "error", err, "status", status)
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, "Webhook processing failed", "error", err, "status", status)
		default:
			logger.WarnContext(ctx, "Webhook rejected", "error", err, "status", status)
		}
	}
	if status >= http.StatusBadRequest {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.WriteHeader(status)
}

type providerView struct {
	provider.Info
	Config domain.ConfigSchema `json:"config"`
}

// ListProviders renders every registered carrier with its config fields.
func (h *WebhookRouter) ListProviders(w http.ResponseWriter, r *http.Request) {
	infos := h.registry.Infos()
	out := make([]providerView, 0, len(infos))
	for _, info := range infos {
		adapter, err := h.registry.Get(info.Key)
		if err != nil {
			continue
		}
		out = append(out, providerView{Info: info, Config: adapter.ConfigSchema()})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *WebhookRouter) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// NewRouter builds the chi router used by the serve command.
func NewRouter(webhooks *WebhookRouter) chi.Router {
	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)
	webhooks.Routes(r)
	return r
}
