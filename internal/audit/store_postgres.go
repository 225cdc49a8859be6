package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists audit events in PostgreSQL. The trail is append-only;
// there is no update or delete path.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	if event.Metadata == nil {
		metadata = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, action, actor_id, subject_id, occurred_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, string(event.Action), event.ActorID, event.SubjectID, event.Timestamp, metadata)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, actor_id, subject_id, occurred_at, metadata
		FROM audit_events
		WHERE subject_id = $1
		ORDER BY occurred_at
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var eventID uuid.UUID
		var action string
		var metadata []byte
		if err := rows.Scan(&eventID, &action, &event.ActorID, &event.SubjectID, &event.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ID = eventID
		event.Action = Action(action)
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
