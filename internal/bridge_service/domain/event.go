package domain

import "encoding/json"

// InboundEvent is the parsed form of one carrier webhook. The set of
// implementations is closed: MessageReceived, DeliveryStatus and Unknown.
type InboundEvent interface {
	EventType() string
	inboundEvent()
}

// MessageReceived is an SMS or MMS delivered to one of our numbers.
// Addresses are as the carrier sent them; the webhook handler normalizes.
type MessageReceived struct {
	Type              string
	From              string
	To                string
	Text              string
	ExternalMessageID string
	MediaURLs         []string
}

// DeliveryStatus is a carrier callback about a message we sent earlier.
type DeliveryStatus struct {
	StatusCode        string
	ExternalMessageID string
	ErrorCode         int
	Raw               json.RawMessage
}

// Unknown covers empty or unrecognized event types. It is acknowledged
// without side effects.
type Unknown struct {
	RawType string
	Raw     json.RawMessage
}

func (e MessageReceived) EventType() string { return e.Type }
func (e DeliveryStatus) EventType() string  { return e.StatusCode }
func (e Unknown) EventType() string         { return e.RawType }

func (MessageReceived) inboundEvent() {}
func (DeliveryStatus) inboundEvent()  {}
func (Unknown) inboundEvent()         {}
