// Package store is the Postgres persistence adapter for messages, calls,
// conversation contexts, and the pending-human-response queue.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/frontdesk/pkg/models"
)

// Store wraps the database handle. All write failures are logged here and
// returned to the caller; only conversation reads degrade silently.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (used by tests).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the gateway tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sms_messages (
			id BIGSERIAL PRIMARY KEY,
			message_sid TEXT NOT NULL,
			from_number TEXT NOT NULL,
			to_number TEXT NOT NULL,
			direction TEXT NOT NULL,
			status TEXT NOT NULL,
			body TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sms_messages_from ON sms_messages (from_number)`,
		`CREATE TABLE IF NOT EXISTS phone_calls (
			id BIGSERIAL PRIMARY KEY,
			call_sid TEXT NOT NULL UNIQUE,
			from_number TEXT NOT NULL,
			to_number TEXT NOT NULL,
			direction TEXT NOT NULL,
			status TEXT NOT NULL,
			disposition TEXT NOT NULL DEFAULT '',
			duration_seconds INT NOT NULL DEFAULT 0,
			cost NUMERIC(10,4) NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sms_conversations (
			phone_number TEXT PRIMARY KEY,
			patient_name TEXT NOT NULL DEFAULT '',
			last_message TEXT NOT NULL DEFAULT '',
			last_intent TEXT NOT NULL DEFAULT '',
			last_response TEXT NOT NULL DEFAULT '',
			message_count INT NOT NULL DEFAULT 0,
			has_active_conversation BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sms_pending (
			id BIGSERIAL PRIMARY KEY,
			phone_number TEXT NOT NULL,
			body TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			priority TEXT NOT NULL DEFAULT 'normal',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// StoreMessage inserts a message row. An empty ExternalID gets a generated
// one so the record is still addressable.
func (s *Store) StoreMessage(ctx context.Context, record *models.MessageRecord) error {
	if record.ExternalID == "" {
		record.ExternalID = "voipms_" + uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	metadata := record.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encoding message metadata: %w", err)
	}

	query := `
		INSERT INTO sms_messages (message_sid, from_number, to_number, direction, status, body, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = s.db.QueryRowContext(
		ctx, query,
		record.ExternalID,
		record.FromNumber,
		record.ToNumber,
		record.Direction,
		record.Status,
		record.Body,
		metaJSON,
		record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		log.Error().Err(err).
			Str("message_sid", record.ExternalID).
			Str("from", record.FromNumber).
			Msg("Failed to store SMS message")
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

// UpdateMessageStatus advances a message through its status lifecycle.
func (s *Store) UpdateMessageStatus(ctx context.Context, externalID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sms_messages SET status = $2 WHERE message_sid = $1`,
		externalID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}

// StoreCall upserts a call keyed by its provider id, so repeated webhook
// deliveries for the same call converge on one row with the latest status.
func (s *Store) StoreCall(ctx context.Context, record *models.CallRecord) error {
	if record.ExternalID == "" {
		record.ExternalID = "voipms_" + uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO phone_calls (call_sid, from_number, to_number, direction, status, disposition, duration_seconds, cost, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (call_sid) DO UPDATE SET
			status = EXCLUDED.status,
			disposition = EXCLUDED.disposition,
			duration_seconds = EXCLUDED.duration_seconds,
			cost = EXCLUDED.cost
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx, query,
		record.ExternalID,
		record.FromNumber,
		record.ToNumber,
		record.Direction,
		record.Status,
		record.Disposition,
		record.DurationSeconds,
		record.Cost,
		nullableTime(record.StartedAt),
		record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		log.Error().Err(err).
			Str("call_sid", record.ExternalID).
			Msg("Failed to store call record")
		return fmt.Errorf("failed to store call: %w", err)
	}
	return nil
}

// GetConversation returns the conversation context for phoneNumber. A missing
// row is not an error: callers get a zero context keyed by the number. Read
// failures also degrade to the zero context so inbound processing is never
// blocked by a transient read problem.
func (s *Store) GetConversation(ctx context.Context, phoneNumber string) models.ConversationContext {
	conv := models.ConversationContext{PhoneNumber: phoneNumber}

	query := `
		SELECT phone_number, patient_name, last_message, last_intent, last_response,
		       message_count, has_active_conversation, updated_at
		FROM sms_conversations
		WHERE phone_number = $1
	`
	err := s.db.QueryRowContext(ctx, query, phoneNumber).Scan(
		&conv.PhoneNumber,
		&conv.PatientName,
		&conv.LastMessage,
		&conv.LastIntent,
		&conv.LastResponse,
		&conv.MessageCount,
		&conv.HasActiveConversation,
		&conv.UpdatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Warn().Err(err).
				Str("phone", phoneNumber).
				Msg("Conversation read failed, using empty context")
		}
		return models.ConversationContext{PhoneNumber: phoneNumber}
	}
	return conv
}

// UpdateConversation upserts the context row for phoneNumber. Two concurrent
// inbound messages from the same number race here; last writer wins.
func (s *Store) UpdateConversation(ctx context.Context, phoneNumber string, patch models.ConversationPatch) error {
	query := `
		INSERT INTO sms_conversations (phone_number, last_message, last_intent, last_response, message_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (phone_number) DO UPDATE SET
			last_message = EXCLUDED.last_message,
			last_intent = EXCLUDED.last_intent,
			last_response = EXCLUDED.last_response,
			message_count = EXCLUDED.message_count,
			updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, query,
		phoneNumber,
		patch.LastMessage,
		patch.LastIntent,
		patch.LastResponse,
		patch.MessageCount,
	)
	if err != nil {
		log.Error().Err(err).
			Str("phone", phoneNumber).
			Msg("Failed to update conversation context")
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

// SetConversationActive flags whether a human thread is open for the number.
func (s *Store) SetConversationActive(ctx context.Context, phoneNumber string, active bool) error {
	query := `
		INSERT INTO sms_conversations (phone_number, has_active_conversation, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (phone_number) DO UPDATE SET
			has_active_conversation = EXCLUDED.has_active_conversation,
			updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, phoneNumber, active); err != nil {
		return fmt.Errorf("failed to set conversation active flag: %w", err)
	}
	return nil
}

// EnqueueHumanResponse adds a message to the pending-human-response queue.
func (s *Store) EnqueueHumanResponse(ctx context.Context, pending *models.PendingMessage) error {
	if pending.Status == "" {
		pending.Status = "pending"
	}
	if pending.Priority == "" {
		pending.Priority = "normal"
	}
	query := `
		INSERT INTO sms_pending (phone_number, body, category, priority, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		pending.PhoneNumber,
		pending.Body,
		pending.Category,
		pending.Priority,
		pending.Status,
	).Scan(&pending.ID, &pending.CreatedAt)
	if err != nil {
		log.Error().Err(err).
			Str("phone", pending.PhoneNumber).
			Msg("Failed to enqueue message for human response")
		return fmt.Errorf("failed to enqueue pending message: %w", err)
	}
	return nil
}

// ListPending returns queued messages awaiting a human reply, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]models.PendingMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, phone_number, body, category, priority, status, created_at
		FROM sms_pending
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	defer rows.Close()

	var pending []models.PendingMessage
	for rows.Next() {
		var p models.PendingMessage
		if err := rows.Scan(&p.ID, &p.PhoneNumber, &p.Body, &p.Category, &p.Priority, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending message: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
