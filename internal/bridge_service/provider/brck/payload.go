package brck

import (
	"bytes"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
)

// Webhook event types. Everything except message-received is a status
// callback about a message we sent.
const (
	TypeMessageReceived  = "message-received"
	TypeMessageSending   = "message-sending"
	TypeMessageDelivered = "message-delivered"
	TypeMessageFailed    = "message-failed"
)

var validate = validator.New()

// webhookEvent is one element of the JSON array BRCK posts.
type webhookEvent struct {
	Type        string          `json:"type"`
	To          string          `json:"to"`
	Time        string          `json:"time,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"errorCode,omitempty"`
	Message     *webhookMessage `json:"message"`
}

// webhookMessage.to is not decoded: it is an array of every
// participant and only matters for group messaging.
type webhookMessage struct {
	ID    string   `json:"id" validate:"required"`
	From  string   `json:"from" validate:"required"`
	Text  string   `json:"text"`
	Media []string `json:"media"`
}

type receivedMessage struct {
	To      string          `validate:"required"`
	Message *webhookMessage `validate:"required"`
}

// ParseWebhook decodes a BRCK webhook body: a JSON array whose first element
// is the event.
func ParseWebhook(body []byte) (domain.InboundEvent, error) {
	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, &domain.MalformedPayloadError{Reason: "body is not a JSON array", Err: err}
	}
	if len(batch) == 0 {
		return nil, &domain.MalformedPayloadError{Reason: "empty batch"}
	}
	first := bytes.TrimSpace(batch[0])
	if len(first) == 0 || bytes.Equal(first, []byte("null")) {
		return nil, &domain.MalformedPayloadError{Reason: "first element is empty"}
	}

	var ev webhookEvent
	if err := json.Unmarshal(first, &ev); err != nil {
		return nil, &domain.MalformedPayloadError{Reason: "decode event", Err: err}
	}

	switch ev.Type {
	case TypeMessageReceived:
		if err := validate.Struct(receivedMessage{To: ev.To, Message: ev.Message}); err != nil {
			return nil, &domain.MalformedPayloadError{Reason: "incomplete message-received event", Err: err}
		}
		return domain.MessageReceived{
			Type:              ev.Type,
			From:              ev.Message.From,
			To:                ev.To,
			Text:              ev.Message.Text,
			ExternalMessageID: ev.Message.ID,
			MediaURLs:         ev.Message.Media,
		}, nil
	case TypeMessageSending, TypeMessageDelivered, TypeMessageFailed:
		status := domain.DeliveryStatus{
			StatusCode: ev.Type,
			ErrorCode:  ev.ErrorCode,
			Raw:        json.RawMessage(first),
		}
		if ev.Message != nil {
			status.ExternalMessageID = ev.Message.ID
		}
		return status, nil
	default:
		return domain.Unknown{RawType: ev.Type, Raw: json.RawMessage(first)}, nil
	}
}
