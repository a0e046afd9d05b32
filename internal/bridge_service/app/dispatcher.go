package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aradsms/smsbridge/internal/bridge_service/adapters/carrierhttp"
	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
	"github.com/aradsms/smsbridge/internal/platform/logger"
)

// LogBodyLimit caps how much of a carrier response body goes into a log line.
const LogBodyLimit = 512

// PayloadEncoder turns a normalized message into a carrier request body.
type PayloadEncoder func(msg domain.OutboundMessage) ([]byte, error)

// CredentialAuthorizer derives request authentication from credentials.
type CredentialAuthorizer func(creds domain.CarrierCredentials) (carrierhttp.Auth, error)

// OutboundTarget holds everything carrier-specific the dispatcher needs.
type OutboundTarget struct {
	ProviderKey string
	Endpoint    string
	Encode      PayloadEncoder
	Authorize   CredentialAuthorizer
}

// MessagingPayload is the JSON body shape {to:[..], from, text?, media?}.
type MessagingPayload struct {
	To    []string `json:"to"`
	From  string   `json:"from"`
	Text  string   `json:"text,omitempty"`
	Media []string `json:"media,omitempty"`
}

// JSONPayload encodes MessagingPayload. When allowMixed is false a message
// with both text and media is rejected with domain.ErrMixedPayload, since
// such carriers take exactly one of the two per request.
func JSONPayload(allowMixed bool) PayloadEncoder {
	return func(msg domain.OutboundMessage) ([]byte, error) {
		if msg.Text != "" && msg.HasMedia() && !allowMixed {
			return nil, domain.ErrMixedPayload
		}
		payload := MessagingPayload{
			To:    []string{msg.To},
			From:  msg.From,
			Text:  msg.Text,
			Media: msg.MediaRefs,
		}
		return json.Marshal(payload)
	}
}

// BearerFromField authenticates with the named credential field as a bearer token.
func BearerFromField(field string) CredentialAuthorizer {
	return func(creds domain.CarrierCredentials) (carrierhttp.Auth, error) {
		token := creds.Get(field)
		if token == "" {
			return nil, &domain.AuthError{
				ProviderKey: creds.ProviderKey,
				Err:         fmt.Errorf("credential field %q is empty", field),
			}
		}
		return carrierhttp.Bearer(token), nil
	}
}

// Dispatcher sends one outbound message to one carrier endpoint. It never
// retries and never touches message state; callers decide both.
type Dispatcher struct {
	target OutboundTarget
	client *carrierhttp.Client
	logger *slog.Logger
}

func NewDispatcher(target OutboundTarget, client *carrierhttp.Client, logger *slog.Logger) *Dispatcher {
	if target.Encode == nil {
		target.Encode = JSONPayload(false)
	}
	return &Dispatcher{
		target: target,
		client: client,
		logger: logger.With("component", "dispatcher", "provider", target.ProviderKey),
	}
}

// Dispatch performs exactly one HTTP exchange. A populated DeliveryOutcome is
// returned whenever the carrier answered, including alongside *AuthError
// and *CarrierError; a *TransportError comes with a zero outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.OutboundMessage, creds domain.CarrierCredentials) (domain.DeliveryOutcome, error) {
	log := d.logger.With("internal_message_id", msg.InternalID)

	if err := msg.Validate(); err != nil {
		outboundAttemptsCounter.WithLabelValues(d.target.ProviderKey, "rejected").Inc()
		return domain.DeliveryOutcome{}, err
	}
	body, err := d.target.Encode(msg)
	if err != nil {
		outboundAttemptsCounter.WithLabelValues(d.target.ProviderKey, "rejected").Inc()
		if errors.Is(err, domain.ErrMixedPayload) {
			return domain.DeliveryOutcome{}, err
		}
		return domain.DeliveryOutcome{}, fmt.Errorf("failed to encode request for %s: %w", d.target.ProviderKey, err)
	}
	auth, err := d.target.Authorize(creds)
	if err != nil {
		outboundAttemptsCounter.WithLabelValues(d.target.ProviderKey, "auth_error").Inc()
		log.ErrorContext(ctx, "Cannot authenticate outbound request", "error", err, logger.Persist)
		return domain.DeliveryOutcome{}, err
	}

	start := time.Now()
	resp, err := d.client.Do(ctx, carrierhttp.Request{
		Method:      http.MethodPost,
		URL:         d.target.Endpoint,
		ContentType: carrierhttp.ContentTypeJSON,
		Body:        body,
		Auth:        auth,
	})
	outboundRequestDurationHist.WithLabelValues(d.target.ProviderKey).Observe(time.Since(start).Seconds())
	if err != nil {
		outboundAttemptsCounter.WithLabelValues(d.target.ProviderKey, "transport_error").Inc()
		log.ErrorContext(ctx, fmt.Sprintf("%s request failed", d.target.ProviderKey), "error", err, logger.Persist)
		return domain.DeliveryOutcome{}, err
	}

	excerpt := resp.Excerpt(LogBodyLimit)
	log.InfoContext(ctx, fmt.Sprintf("%s responds: HTTP %d, %s", d.target.ProviderKey, resp.StatusCode, excerpt),
		"status_code", resp.StatusCode,
		logger.Persist,
	)

	outcome := domain.DeliveryOutcome{
		Success:     resp.Success(),
		HTTPStatus:  resp.StatusCode,
		BodyExcerpt: excerpt,
	}
	switch {
	case resp.Success():
		outboundAttemptsCounter.WithLabelValues(d.target.ProviderKey, "success").Inc()
		return outcome, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		outboundAttemptsCounter.WithLabelValues(d.target.ProviderKey, "auth_error").Inc()
		return outcome, &domain.AuthError{
			ProviderKey: d.target.ProviderKey,
			HTTPStatus:  resp.StatusCode,
			Body:        resp.BodyText(),
		}
	default:
		outboundAttemptsCounter.WithLabelValues(d.target.ProviderKey, "carrier_error").Inc()
		return outcome, &domain.CarrierError{
			ProviderKey: d.target.ProviderKey,
			HTTPStatus:  resp.StatusCode,
			Body:        resp.BodyText(),
		}
	}
}
