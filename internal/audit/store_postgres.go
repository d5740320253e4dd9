package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PostgresStore persists events in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	id, err := eventID(event.ID)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_events (id, action, actor, subject, contract, tx_hash, reason, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		id,
		string(event.Action),
		strings.ToLower(event.Actor),
		strings.ToLower(event.Subject),
		event.Contract,
		event.TxHash,
		event.Reason,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectEvents = `
	SELECT id, action, actor, subject, contract, tx_hash, reason, request_id, created_at
	FROM audit_events
`

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	return s.list(ctx, selectEvents+`WHERE subject = $1 ORDER BY created_at, id`, strings.ToLower(subject))
}

func (s *PostgresStore) ListByTx(ctx context.Context, txHash string) ([]Event, error) {
	return s.list(ctx, selectEvents+`WHERE tx_hash = $1 ORDER BY created_at, id`, txHash)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e      Event
			id     uuid.UUID
			action string
		)
		if err := rows.Scan(&id, &action, &e.Actor, &e.Subject, &e.Contract, &e.TxHash, &e.Reason, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id.String()
		e.Action = Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func eventID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("audit event id %q: %w", raw, err)
	}
	return id, nil
}
