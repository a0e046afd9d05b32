package domain

import "context"

// MediaStore receives attachment bytes for a registered message.
type MediaStore interface {
	AddMedia(ctx context.Context, messageID, name string, data []byte) error
}

// MessageStore is the internal message pipeline the bridge feeds.
//
// RegisterMessage must be idempotent on (ProviderKey, ExternalMessageID):
// a second call for the same key returns the first ID with Duplicate set.
// Concurrent calls for the same key must not create two messages.
//
// A new registration owns the emit for its message. EmitInboundEvent
// records the message as emitted on success and gives up ownership on
// failure, so a later RegisterMessage for the same key returns Resume.
type MessageStore interface {
	MediaStore
	RegisterMessage(ctx context.Context, msg InboundMessage) (Registration, error)
	SetDelivered(ctx context.Context, messageID string) error
	EmitInboundEvent(ctx context.Context, evt InboundSMSEvent) error
}
