package audit

import "context"

// Store is an append-only sink for audit events. Implementations fan out to
// memory (tests), PostgreSQL, or Kafka.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID string) ([]Event, error)
}
