package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"vigorlog/internal/consent/models"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists dual-consent requests in PostgreSQL. The required
// consent types are stored as a JSONB array since they are only ever read
// back whole.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed request store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgUniqueViolation = "23505"

func (s *PostgresStore) Save(ctx context.Context, request *models.DualConsentRequest) error {
	if request == nil {
		return fmt.Errorf("request is required")
	}
	required, err := json.Marshal(request.RequiredConsents)
	if err != nil {
		return fmt.Errorf("marshal required consents: %w", err)
	}
	query := `
		INSERT INTO dual_consent_requests (id, athlete_id, parent_id, required_consents, status,
			created_at, expires_at, notifications_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(request.ID),
		uuid.UUID(request.AthleteID),
		uuid.UUID(request.ParentID),
		required,
		string(request.Status),
		request.CreatedAt,
		request.ExpiresAt,
		request.NotificationsSent,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save dual-consent request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.DualConsentRequest, error) {
	request, err := scanRequest(s.db.QueryRowContext(ctx, requestSelect+` WHERE id = $1`, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find dual-consent request: %w", err)
	}
	return request, nil
}

func (s *PostgresStore) Update(ctx context.Context, request *models.DualConsentRequest) error {
	if request == nil {
		return fmt.Errorf("request is required")
	}
	query := `
		UPDATE dual_consent_requests
		SET status = $2, notifications_sent = $3
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(request.ID),
		string(request.Status),
		request.NotificationsSent,
	)
	if err != nil {
		return fmt.Errorf("update dual-consent request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dual-consent request rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByAthlete(ctx context.Context, athleteID id.AthleteID) ([]*models.DualConsentRequest, error) {
	return s.list(ctx, requestSelect+` WHERE athlete_id = $1 ORDER BY created_at`, uuid.UUID(athleteID))
}

func (s *PostgresStore) ListPendingByParent(ctx context.Context, parentID id.ParentID) ([]*models.DualConsentRequest, error) {
	return s.list(ctx, requestSelect+` WHERE parent_id = $1 AND status = 'pending' ORDER BY created_at`, uuid.UUID(parentID))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.DualConsentRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dual-consent requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.DualConsentRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dual-consent request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dual-consent requests: %w", err)
	}
	return requests, nil
}

const requestSelect = `
	SELECT id, athlete_id, parent_id, required_consents, status, created_at, expires_at, notifications_sent
	FROM dual_consent_requests`

type requestRow interface {
	Scan(dest ...any) error
}

func scanRequest(row requestRow) (*models.DualConsentRequest, error) {
	var request models.DualConsentRequest
	var requestID, athleteID, parentID uuid.UUID
	var required []byte
	var status string
	if err := row.Scan(
		&requestID,
		&athleteID,
		&parentID,
		&required,
		&status,
		&request.CreatedAt,
		&request.ExpiresAt,
		&request.NotificationsSent,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(required, &request.RequiredConsents); err != nil {
		return nil, fmt.Errorf("unmarshal required consents: %w", err)
	}
	request.ID = id.RequestID(requestID)
	request.AthleteID = id.AthleteID(athleteID)
	request.ParentID = id.ParentID(parentID)
	request.Status = models.RequestStatus(status)
	return &request, nil
}
