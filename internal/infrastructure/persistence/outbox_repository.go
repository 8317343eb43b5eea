package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/pkg/constants"
	"github.com/orbitapp/backend/pkg/utils"
)

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue writes a domain event into the outbox. Services call this inside
// the same transaction as the state change so the event is exactly as durable
// as the change itself.
func (r *OutboxRepository) Enqueue(ctx context.Context, exec Execer, eventType events.EventType, payload events.Payload) error {
	if exec == nil {
		exec = r.db
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, event_type, payload, status, attempts, created_at)
		VALUES (?, ?, ?, ?, 0, NOW())`,
		constants.TableOutbox)
	_, err = exec.ExecContext(ctx, query, utils.GenerateID(), string(eventType), data, events.OutboxPending)
	return err
}

// FetchPending claims up to limit pending events, oldest first.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]*events.OutboxEvent, error) {
	if limit <= 0 {
		limit = constants.OutboxFetchBatch
	}
	query := fmt.Sprintf(`
		SELECT id, event_type, payload, status, attempts
		FROM %s WHERE status = ? AND attempts < ?
		ORDER BY created_at ASC LIMIT %d`,
		constants.TableOutbox, limit)

	rows, err := r.db.QueryContext(ctx, query, events.OutboxPending, constants.OutboxMaxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make([]*events.OutboxEvent, 0)
	for rows.Next() {
		var e events.OutboxEvent
		var eventType string
		var raw []byte
		if err := rows.Scan(&e.ID, &eventType, &raw, &e.Status, &e.Attempts); err != nil {
			return nil, err
		}
		e.Type = events.EventType(eventType)
		if err := json.Unmarshal(raw, &e.Payload); err != nil {
			// A row that cannot be decoded will never succeed; park it.
			_ = r.MarkFailed(ctx, e.ID, "undecodable payload: "+err.Error())
			continue
		}
		pending = append(pending, &e)
	}
	return pending, rows.Err()
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, eventID string) error {
	query := fmt.Sprintf("UPDATE %s SET status = ?, processed_at = NOW() WHERE id = ?", constants.TableOutbox)
	_, err := r.db.ExecContext(ctx, query, events.OutboxProcessed, eventID)
	return err
}

// RecordFailure bumps the attempt counter; rows that exhaust their attempts
// flip to failed so the poller stops retrying them.
func (r *OutboxRepository) RecordFailure(ctx context.Context, eventID, errMsg string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET attempts = attempts + 1, last_error = ?,
			status = IF(attempts + 1 >= ?, ?, status)
		WHERE id = ?`,
		constants.TableOutbox)
	_, err := r.db.ExecContext(ctx, query, errMsg, constants.OutboxMaxAttempts, events.OutboxFailed, eventID)
	return err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, eventID, errMsg string) error {
	query := fmt.Sprintf("UPDATE %s SET status = ?, last_error = ? WHERE id = ?", constants.TableOutbox)
	_, err := r.db.ExecContext(ctx, query, events.OutboxFailed, errMsg, eventID)
	return err
}
