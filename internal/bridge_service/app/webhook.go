package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aradsms/smsbridge/internal/bridge_service/adapters/carrierhttp"
	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
	"github.com/aradsms/smsbridge/internal/platform/logger"
)

const MaxWebhookBodyBytes = 1 << 20 // 1 MB

// PayloadParser decodes one carrier webhook body. Shape problems must be
// reported as *domain.MalformedPayloadError.
type PayloadParser interface {
	Parse(body []byte) (domain.InboundEvent, error)
}

// PayloadParserFunc adapts a function to PayloadParser.
type PayloadParserFunc func(body []byte) (domain.InboundEvent, error)

func (f PayloadParserFunc) Parse(body []byte) (domain.InboundEvent, error) { return f(body) }

// MediaAuthFunc resolves attachment download credentials. It is only
// invoked for messages that actually carry media.
type MediaAuthFunc func(ctx context.Context) (carrierhttp.Auth, error)

// WebhookHandler drives one inbound webhook request through
// method check, parse, classify, ingest, media and emit.
type WebhookHandler struct {
	providerKey string
	module      string
	parser      PayloadParser
	store       domain.MessageStore
	media       *MediaFetcher
	logger      *slog.Logger
	now         func() time.Time
}

func NewWebhookHandler(
	providerKey string,
	module string,
	parser PayloadParser,
	store domain.MessageStore,
	media *MediaFetcher,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		providerKey: providerKey,
		module:      module,
		parser:      parser,
		store:       store,
		media:       media,
		logger:      logger.With("component", "webhook_handler", "provider", providerKey),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Handle returns the status code for the carrier and, when something went
// wrong, the error that explains it. A 202 may come with a *domain.MediaError:
// the message was ingested but some attachments were not.
func (h *WebhookHandler) Handle(r *http.Request, mediaAuth MediaAuthFunc) (int, error) {
	status, err := h.handle(r, mediaAuth)
	webhookRequestsCounter.WithLabelValues(h.providerKey, strconv.Itoa(status)).Inc()
	return status, err
}

func (h *WebhookHandler) handle(r *http.Request, mediaAuth MediaAuthFunc) (int, error) {
	ctx := r.Context()
	log := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	if r.Method != http.MethodPost {
		log.WarnContext(ctx, "Method not allowed for webhook", "method", r.Method)
		return http.StatusMethodNotAllowed, domain.ErrMethodNotAllowed
	}

	body, err := readBody(r)
	if err != nil {
		log.WarnContext(ctx, "Failed to read webhook body", "error", err)
		return http.StatusForbidden, err
	}
	log.InfoContext(ctx, fmt.Sprintf("Webhook (%s) in: %s", h.providerKey, body), logger.Persist)

	event, err := h.parser.Parse(body)
	if err != nil {
		var malformed *domain.MalformedPayloadError
		if !errors.As(err, &malformed) {
			err = &domain.MalformedPayloadError{Reason: "parse failed", Err: err}
		}
		log.WarnContext(ctx, "Rejecting webhook payload", "error", err)
		return http.StatusForbidden, err
	}

	switch ev := event.(type) {
	case domain.MessageReceived:
		webhookEventsCounter.WithLabelValues(h.providerKey, "message_received").Inc()
		return h.ingest(ctx, log, ev, mediaAuth)
	case domain.DeliveryStatus:
		// Acknowledged so the carrier stops retrying; status is not applied yet.
		webhookEventsCounter.WithLabelValues(h.providerKey, "delivery_status").Inc()
		log.InfoContext(ctx, "Incoming delivery status callback",
			"status", ev.StatusCode,
			"external_message_id", ev.ExternalMessageID,
			"error_code", ev.ErrorCode,
			"raw", string(ev.Raw),
		)
		return http.StatusAccepted, nil
	case domain.Unknown:
		webhookEventsCounter.WithLabelValues(h.providerKey, "unknown").Inc()
		if ev.RawType != "" {
			log.InfoContext(ctx, fmt.Sprintf("Incoming message of unknown type %s", ev.RawType), "raw", string(ev.Raw))
		}
		return http.StatusAccepted, nil
	default:
		webhookEventsCounter.WithLabelValues(h.providerKey, "unknown").Inc()
		log.ErrorContext(ctx, "Parser produced an unsupported event", "event_type", fmt.Sprintf("%T", event))
		return http.StatusAccepted, nil
	}
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, &domain.MalformedPayloadError{Reason: "empty body"}
	}
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBodyBytes+1))
	if err != nil {
		return nil, &domain.MalformedPayloadError{Reason: "read body", Err: err}
	}
	if len(body) > MaxWebhookBodyBytes {
		return nil, &domain.MalformedPayloadError{Reason: "body too large"}
	}
	return body, nil
}

func (h *WebhookHandler) ingest(ctx context.Context, log *slog.Logger, ev domain.MessageReceived, mediaAuth MediaAuthFunc) (int, error) {
	msg := domain.InboundMessage{
		ProviderKey:       h.providerKey,
		ExternalMessageID: ev.ExternalMessageID,
		To:                domain.NormalizeAddress(ev.To),
		From:              domain.NormalizeAddress(ev.From),
		Text:              ev.Text,
		ReceivedAt:        h.now(),
	}
	log = log.With("external_message_id", msg.ExternalMessageID)

	reg, err := h.store.RegisterMessage(ctx, msg)
	if err != nil {
		ingestErr := &domain.IngestionError{ExternalMessageID: msg.ExternalMessageID, Err: err}
		log.ErrorContext(ctx, "Failed to register inbound message", "error", ingestErr, logger.Persist)
		return http.StatusInternalServerError, ingestErr
	}
	log = log.With("message_id", reg.ID)
	switch {
	case reg.Resume:
		webhookEventsCounter.WithLabelValues(h.providerKey, "resumed").Inc()
		log.InfoContext(ctx, "Redelivery of a message that was never emitted, resuming ingestion")
	case reg.Duplicate:
		webhookEventsCounter.WithLabelValues(h.providerKey, "duplicate").Inc()
		log.InfoContext(ctx, "Duplicate webhook delivery, already registered")
		return http.StatusAccepted, nil
	}

	names, mediaErr := h.fetchMedia(ctx, reg.ID, ev.MediaURLs, mediaAuth)
	if mediaErr != nil {
		log.ErrorContext(ctx, "Inbound media incomplete", "error", mediaErr, logger.Persist)
	}

	evt := domain.InboundSMSEvent{
		MessageID:         reg.ID,
		ProviderKey:       h.providerKey,
		To:                msg.To,
		From:              msg.From,
		Text:              msg.Text,
		Module:            h.module,
		ExternalMessageID: msg.ExternalMessageID,
		MediaNames:        names,
		ReceivedAt:        msg.ReceivedAt,
	}
	if err := h.store.EmitInboundEvent(ctx, evt); err != nil {
		ingestErr := &domain.IngestionError{ExternalMessageID: msg.ExternalMessageID, Err: fmt.Errorf("emit inbound event: %w", err)}
		log.ErrorContext(ctx, "Failed to emit inbound event", "error", ingestErr, logger.Persist)
		return http.StatusInternalServerError, errors.Join(ingestErr, mediaErr)
	}

	log.InfoContext(ctx, "Inbound message ingested", "to", msg.To, "from", msg.From, "media_count", len(names))
	return http.StatusAccepted, mediaErr
}

// fetchMedia stores every attachment in order. Failures do not stop the
// remaining downloads; they are collected into one *domain.MediaError.
// A URL whose stored name repeats an earlier one is not fetched and is
// reported as failed.
func (h *WebhookHandler) fetchMedia(ctx context.Context, messageID string, urls []string, mediaAuth MediaAuthFunc) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if h.media == nil {
		return nil, &domain.MediaError{MessageID: messageID, Failed: urls, Err: errors.New("no media fetcher configured")}
	}
	var auth carrierhttp.Auth
	if mediaAuth != nil {
		var err error
		if auth, err = mediaAuth(ctx); err != nil {
			return nil, &domain.MediaError{MessageID: messageID, Failed: urls, Err: err}
		}
	}

	var (
		names  []string
		failed []string
		errs   []error
	)
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if name, err := MediaName(messageID, u); err == nil {
			if _, dup := seen[name]; dup {
				failed = append(failed, u)
				errs = append(errs, &domain.MediaFetchError{URL: u, Err: fmt.Errorf("%w: %s", domain.ErrDuplicateMediaName, name)})
				continue
			}
			seen[name] = struct{}{}
		}
		name, err := h.media.FetchAndStore(ctx, messageID, u, auth)
		if err != nil {
			failed = append(failed, u)
			errs = append(errs, err)
			continue
		}
		names = append(names, name)
	}
	if len(errs) > 0 {
		return names, &domain.MediaError{MessageID: messageID, Failed: failed, Err: errors.Join(errs...)}
	}
	return names, nil
}
