package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
)

//go:embed schema.sql
var schemaSQL string

// EmitClaimLease bounds how long a delivery that registered a message may
// hold its emit before a redelivery is allowed to take over.
const EmitClaimLease = 2 * time.Minute

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	InsertInboundQuery = `INSERT INTO bridge_messages (id, direction, provider_key, external_message_id, to_number, from_number, subject, text_content, status, created_at, emit_claimed_at)
		VALUES ($1, 'inbound', $2, $3, $4, $5, $6, $7, 'received', $8, $9)
		ON CONFLICT (provider_key, external_message_id) DO NOTHING
		RETURNING id`

	ClaimEmitQuery = `UPDATE bridge_messages SET emit_claimed_at = $3
		WHERE provider_key = $1 AND external_message_id = $2
		AND emitted_at IS NULL
		AND (emit_claimed_at IS NULL OR emit_claimed_at < $4)
		RETURNING id`

	SelectByExternalIDQuery = `SELECT id FROM bridge_messages WHERE provider_key = $1 AND external_message_id = $2`

	MarkEmittedQuery = `UPDATE bridge_messages SET emitted_at = $2, emit_claimed_at = NULL WHERE id = $1`

	ReleaseEmitClaimQuery = `UPDATE bridge_messages SET emit_claimed_at = NULL WHERE id = $1 AND emitted_at IS NULL`

	InsertOutboundQuery = `INSERT INTO bridge_messages (id, direction, provider_key, to_number, from_number, text_content, status, created_at)
		VALUES ($1, 'outbound', $2, $3, $4, $5, 'queued', $6)`

	MarkDeliveredQuery = `UPDATE bridge_messages SET status = 'delivered', delivered_at = $2 WHERE id = $1`

	InsertMediaQuery = `INSERT INTO bridge_message_media (message_id, name, content_type, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id, name) DO NOTHING`
)

type PgMessageRepository struct {
	db     DBTX
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewPgMessageRepository(db DBTX, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{
		db:     db,
		logger: logger.With("component", "message_repository_pg"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// EnsureSchema creates the bridge tables if they do not exist.
func (r *PgMessageRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply bridge schema: %w", err)
	}
	return nil
}

// RegisterInbound inserts an inbound message once per
// (provider_key, external_message_id). Concurrent deliveries race on the
// unique constraint; the loser reads back the winner's id. A loser may take
// over the emit of a message that was never emitted once no other delivery
// holds it within EmitClaimLease.
func (r *PgMessageRepository) RegisterInbound(ctx context.Context, msg domain.InboundMessage) (domain.Registration, error) {
	now := r.now()
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	newID := r.newID()

	var id string
	err := r.db.QueryRow(ctx, InsertInboundQuery,
		newID,
		msg.ProviderKey,
		msg.ExternalMessageID,
		msg.To,
		msg.From,
		msg.Subject,
		msg.Text,
		receivedAt,
		now,
	).Scan(&id)
	if err == nil {
		r.logger.InfoContext(ctx, "Registered inbound message", "id", id, "provider_key", msg.ProviderKey, "external_message_id", msg.ExternalMessageID)
		return domain.Registration{ID: id}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.ErrorContext(ctx, "Error inserting inbound message", "error", err, "external_message_id", msg.ExternalMessageID)
		return domain.Registration{}, fmt.Errorf("insert inbound message: %w", err)
	}

	err = r.db.QueryRow(ctx, ClaimEmitQuery, msg.ProviderKey, msg.ExternalMessageID, now, now.Add(-EmitClaimLease)).Scan(&id)
	if err == nil {
		r.logger.InfoContext(ctx, "Claimed emit of registered inbound message", "id", id, "external_message_id", msg.ExternalMessageID)
		return domain.Registration{ID: id, Duplicate: true, Resume: true}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.ErrorContext(ctx, "Error claiming emit of inbound message", "error", err, "external_message_id", msg.ExternalMessageID)
		return domain.Registration{}, fmt.Errorf("claim inbound emit: %w", err)
	}

	if err := r.db.QueryRow(ctx, SelectByExternalIDQuery, msg.ProviderKey, msg.ExternalMessageID).Scan(&id); err != nil {
		r.logger.ErrorContext(ctx, "Error reading existing inbound message", "error", err, "external_message_id", msg.ExternalMessageID)
		return domain.Registration{}, fmt.Errorf("lookup existing inbound message: %w", err)
	}
	r.logger.InfoContext(ctx, "Inbound message already registered", "id", id, "external_message_id", msg.ExternalMessageID)
	return domain.Registration{ID: id, Duplicate: true}, nil
}

// CreateOutbound records a message about to be sent under its InternalID.
func (r *PgMessageRepository) CreateOutbound(ctx context.Context, providerKey string, msg domain.OutboundMessage) error {
	if _, err := r.db.Exec(ctx, InsertOutboundQuery, msg.InternalID, providerKey, msg.To, msg.From, msg.Text, r.now()); err != nil {
		return fmt.Errorf("insert outbound message: %w", err)
	}
	return nil
}

func (r *PgMessageRepository) MarkDelivered(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, MarkDeliveredQuery, id, r.now())
	if err != nil {
		return fmt.Errorf("mark message delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, id)
	}
	return nil
}

// MarkEmitted records that the inbound event of the message went out.
func (r *PgMessageRepository) MarkEmitted(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, MarkEmittedQuery, id, r.now())
	if err != nil {
		return fmt.Errorf("mark message emitted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, id)
	}
	return nil
}

// ReleaseEmitClaim lets the next delivery of a message that was not emitted
// resume it without waiting for EmitClaimLease.
func (r *PgMessageRepository) ReleaseEmitClaim(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, ReleaseEmitClaimQuery, id); err != nil {
		return fmt.Errorf("release emit claim: %w", err)
	}
	return nil
}

// AddMedia stores one attachment. Re-adding the same name is a no-op.
func (r *PgMessageRepository) AddMedia(ctx context.Context, messageID, name string, data []byte) error {
	contentType := http.DetectContentType(data)
	if _, err := r.db.Exec(ctx, InsertMediaQuery, messageID, name, contentType, data, r.now()); err != nil {
		r.logger.ErrorContext(ctx, "Error inserting media", "error", err, "message_id", messageID, "name", name)
		return fmt.Errorf("insert media %s: %w", name, err)
	}
	return nil
}
