package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyMessage          = errors.New("outbound message has neither text nor media")
	ErrMixedPayload          = errors.New("carrier does not accept text and media in one request")
	ErrMethodNotAllowed      = errors.New("webhook method not allowed")
	ErrProviderNotConfigured = errors.New("provider is not configured")
	ErrMessageNotFound       = errors.New("message not found")
	ErrMediaTooLarge         = errors.New("media exceeds size limit")
	ErrDuplicateMediaName    = errors.New("media name already used by this message")
)

// TransportError is a DNS, connect, timeout or read failure. No HTTP status
// was observed from the carrier.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError means the carrier rejected our credentials, or the credentials
// needed to build the request are missing from configuration.
// HTTPStatus is zero in the latter case.
type AuthError struct {
	ProviderKey string
	HTTPStatus  int
	Body        string
	Err         error
}

func (e *AuthError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("%s credentials unusable: %v", e.ProviderKey, e.Err)
	}
	return fmt.Sprintf("%s rejected credentials: HTTP %d, %s", e.ProviderKey, e.HTTPStatus, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CarrierError is any other non-2xx answer. Body is kept verbatim up to the
// client's response limit; a longer body ends in "...(truncated)".
type CarrierError struct {
	ProviderKey string
	HTTPStatus  int
	Body        string
}

func (e *CarrierError) Error() string {
	return fmt.Sprintf("unable to send message: HTTP %d, %s", e.HTTPStatus, e.Body)
}

// MalformedPayloadError is returned when a webhook body cannot be decoded
// into a single-element batch.
type MalformedPayloadError struct {
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed webhook payload: %s: %v", e.Reason, e.Err)
	}
	return "malformed webhook payload: " + e.Reason
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// IngestionError wraps a message store failure while registering or
// announcing an inbound message.
type IngestionError struct {
	ExternalMessageID string
	Err               error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("unable to get message %s: %v", e.ExternalMessageID, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// MediaFetchError is a failed download of one attachment.
type MediaFetchError struct {
	URL        string
	HTTPStatus int
	Err        error
}

func (e *MediaFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to fetch media %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("unable to fetch media %s: HTTP %d", e.URL, e.HTTPStatus)
}

func (e *MediaFetchError) Unwrap() error { return e.Err }

// MediaError reports attachments of an already registered message that
// could not be fetched or stored.
type MediaError struct {
	MessageID string
	Failed    []string
	Err       error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("unable to store MMS media for message %s (%d failed): %v", e.MessageID, len(e.Failed), e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

// Retryable reports whether a failed outbound attempt may succeed if the
// caller tries again later. Credential and payload problems never do.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) {
		return carrierErr.HTTPStatus >= http.StatusInternalServerError ||
			carrierErr.HTTPStatus == http.StatusTooManyRequests
	}
	return false
}
