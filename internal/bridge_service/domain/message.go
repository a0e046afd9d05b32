package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// OutboundMessage is one send attempt handed to a provider adapter.
// Construct it with NewOutboundMessage; the zero value is not valid.
type OutboundMessage struct {
	InternalID string   `json:"internal_id" validate:"required"`
	To         string   `json:"to" validate:"required"`
	From       string   `json:"from" validate:"required"`
	Text       string   `json:"text,omitempty"`
	MediaRefs  []string `json:"media_refs,omitempty" validate:"dive,url"`
}

// NewOutboundMessage normalizes both addresses and checks that the message
// carries text, media, or both.
func NewOutboundMessage(internalID, to, from, text string, mediaRefs ...string) (OutboundMessage, error) {
	refs := make([]string, 0, len(mediaRefs))
	for _, ref := range mediaRefs {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	msg := OutboundMessage{
		InternalID: internalID,
		To:         NormalizeAddress(to),
		From:       NormalizeAddress(from),
		Text:       text,
		MediaRefs:  refs,
	}
	if err := msg.Validate(); err != nil {
		return OutboundMessage{}, err
	}
	return msg, nil
}

// Validate reports ErrEmptyMessage when there is nothing to send and a
// wrapped validator error for missing identifiers or malformed media URLs.
func (m OutboundMessage) Validate() error {
	if m.Text == "" && len(m.MediaRefs) == 0 {
		return ErrEmptyMessage
	}
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid outbound message: %w", err)
	}
	return nil
}

// HasMedia reports whether the message references at least one attachment.
func (m OutboundMessage) HasMedia() bool { return len(m.MediaRefs) > 0 }

// DeliveryOutcome is the result of exactly one HTTP exchange with a carrier.
type DeliveryOutcome struct {
	Success     bool   `json:"success"`
	HTTPStatus  int    `json:"http_status"`
	BodyExcerpt string `json:"body_excerpt"`
}

// InboundMessage is what the webhook handler registers with the message store.
// Addresses are already normalized.
type InboundMessage struct {
	ProviderKey       string
	ExternalMessageID string
	To                string
	From              string
	Subject           string
	Text              string
	ReceivedAt        time.Time
}

// Registration is the store's answer to an idempotent insert keyed on
// (ProviderKey, ExternalMessageID).
//
// Resume is only set together with Duplicate: the message exists but its
// inbound event was never emitted and no other delivery currently owns the
// emit. The caller then finishes media and emit as for a new message.
type Registration struct {
	ID        string
	Duplicate bool
	Resume    bool
}

// InboundSMSEvent is the application event emitted after ingestion.
type InboundSMSEvent struct {
	MessageID         string    `json:"message_id"`
	ProviderKey       string    `json:"provider_key"`
	To                string    `json:"to"`
	From              string    `json:"from"`
	Subject           string    `json:"subject,omitempty"`
	Text              string    `json:"text"`
	Module            string    `json:"module"`
	ExternalMessageID string    `json:"external_message_id"`
	MediaNames        []string  `json:"media_names,omitempty"`
	ReceivedAt        time.Time `json:"received_at"`
}

// NormalizeAddress strips leading '+' characters and surrounding whitespace.
func NormalizeAddress(addr string) string {
	return strings.TrimLeft(strings.TrimSpace(addr), "+")
}
