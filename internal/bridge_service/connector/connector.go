// Package connector is the message store the bridge feeds: it persists
// inbound messages and media through the repository and announces ingested
// messages on the message broker.
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
	"github.com/aradsms/smsbridge/internal/platform/messagebroker"
)

// InboundSubjectPrefix is followed by the provider key, e.g. "sms.inbound.brck".
const InboundSubjectPrefix = "sms.inbound."

// MessageRepository is the persistence the connector needs.
type MessageRepository interface {
	RegisterInbound(ctx context.Context, msg domain.InboundMessage) (domain.Registration, error)
	AddMedia(ctx context.Context, messageID, name string, data []byte) error
	MarkDelivered(ctx context.Context, id string) error
	MarkEmitted(ctx context.Context, id string) error
	ReleaseEmitClaim(ctx context.Context, id string) error
}

type Connector struct {
	repo      MessageRepository
	publisher messagebroker.Publisher
	logger    *slog.Logger
}

var _ domain.MessageStore = (*Connector)(nil)

func New(repo MessageRepository, publisher messagebroker.Publisher, logger *slog.Logger) *Connector {
	return &Connector{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("component", "connector"),
	}
}

func (c *Connector) RegisterMessage(ctx context.Context, msg domain.InboundMessage) (domain.Registration, error) {
	return c.repo.RegisterInbound(ctx, msg)
}

func (c *Connector) AddMedia(ctx context.Context, messageID, name string, data []byte) error {
	return c.repo.AddMedia(ctx, messageID, name, data)
}

func (c *Connector) SetDelivered(ctx context.Context, messageID string) error {
	return c.repo.MarkDelivered(ctx, messageID)
}

// EmitInboundEvent publishes evt and records the message as emitted. When
// publishing fails the emit claim taken at registration is released.
func (c *Connector) EmitInboundEvent(ctx context.Context, evt domain.InboundSMSEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal inbound event: %w", err)
	}
	subject := InboundSubjectPrefix + evt.ProviderKey
	if err := c.publisher.Publish(ctx, subject, data); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish inbound event", "subject", subject, "message_id", evt.MessageID, "error", err)
		if relErr := c.repo.ReleaseEmitClaim(ctx, evt.MessageID); relErr != nil {
			c.logger.ErrorContext(ctx, "Failed to release emit claim", "message_id", evt.MessageID, "error", relErr)
		}
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	c.logger.InfoContext(ctx, "Published inbound event", "subject", subject, "message_id", evt.MessageID, "module", evt.Module)
	if err := c.repo.MarkEmitted(ctx, evt.MessageID); err != nil {
		c.logger.ErrorContext(ctx, "Published inbound event not recorded as emitted", "message_id", evt.MessageID, "error", err)
		return fmt.Errorf("record inbound event emitted: %w", err)
	}
	return nil
}
