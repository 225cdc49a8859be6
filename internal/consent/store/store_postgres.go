package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vigorlog/internal/consent/models"
	"vigorlog/internal/consent/policy"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists consent records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed consent record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed consent record store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const pgUniqueViolation = "23505"

func (s *PostgresStore) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("consent record is required")
	}
	query := `
		INSERT INTO consents (id, subject_id, parent_id, consent_type, granted, granted_at,
			document_version, is_for_minor, minor_age, legal_basis, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var parentID any
	if record.ParentID != nil {
		parentID = uuid.UUID(*record.ParentID)
	}
	_, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.SubjectID),
		parentID,
		string(record.Type),
		record.Granted,
		record.GrantedAt,
		record.DocumentVersion,
		record.IsForMinor,
		record.MinorAge,
		string(record.LegalBasis),
		record.RevokedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, consentID id.ConsentID) (*models.Record, error) {
	record, err := scanConsent(s.execer().QueryRowContext(ctx, consentSelect+` WHERE id = $1`, uuid.UUID(consentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID id.AthleteID) ([]*models.Record, error) {
	rows, err := s.execer().QueryContext(ctx,
		consentSelect+` WHERE subject_id = $1 ORDER BY granted_at`, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

// Revoke stamps RevokedAt on an active record. The WHERE clause makes revoking
// an already revoked record a not-found, so revocation is idempotent-safe at
// the caller's discretion.
func (s *PostgresStore) Revoke(ctx context.Context, consentID id.ConsentID, revokedAt time.Time) (*models.Record, error) {
	query := `
		UPDATE consents
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	res, err := s.execer().ExecContext(ctx, query, uuid.UUID(consentID), revokedAt)
	if err != nil {
		return nil, fmt.Errorf("revoke consent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("revoke consent rows: %w", err)
	}
	if rows == 0 {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, consentID)
}

func (s *PostgresStore) DeleteBySubject(ctx context.Context, subjectID id.AthleteID) error {
	_, err := s.execer().ExecContext(ctx, `DELETE FROM consents WHERE subject_id = $1`, uuid.UUID(subjectID))
	if err != nil {
		return fmt.Errorf("delete consents by subject: %w", err)
	}
	return nil
}

const consentSelect = `
	SELECT id, subject_id, parent_id, consent_type, granted, granted_at,
		document_version, is_for_minor, minor_age, legal_basis, revoked_at
	FROM consents`

type consentRow interface {
	Scan(dest ...any) error
}

func scanConsent(row consentRow) (*models.Record, error) {
	var record models.Record
	var consentID, subjectID uuid.UUID
	var parentID uuid.NullUUID
	var consentType, legalBasis string
	var revokedAt sql.NullTime
	if err := row.Scan(
		&consentID,
		&subjectID,
		&parentID,
		&consentType,
		&record.Granted,
		&record.GrantedAt,
		&record.DocumentVersion,
		&record.IsForMinor,
		&record.MinorAge,
		&legalBasis,
		&revokedAt,
	); err != nil {
		return nil, err
	}
	record.ID = id.ConsentID(consentID)
	record.SubjectID = id.AthleteID(subjectID)
	if parentID.Valid {
		pid := id.ParentID(parentID.UUID)
		record.ParentID = &pid
	}
	record.Type = models.Type(consentType)
	record.LegalBasis = policy.LegalBasis(legalBasis)
	if revokedAt.Valid {
		record.RevokedAt = &revokedAt.Time
	}
	return &record, nil
}
