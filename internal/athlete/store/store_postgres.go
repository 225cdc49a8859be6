package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vigorlog/internal/athlete/models"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists athlete and parent accounts in PostgreSQL.
//
// Parent links live in the athlete_parents join table rather than array
// columns, so both directions of the relationship stay queryable.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed account store bound to a transaction.
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *PostgresStore) SaveAthlete(ctx context.Context, athlete *models.Athlete) error {
	if athlete == nil {
		return fmt.Errorf("athlete is required")
	}
	query := `
		INSERT INTO athletes (id, first_name, last_name, email, password_hash, birth_date, sport, team_id,
			needs_parental_consent, has_parental_consent, parental_consent_date, parental_consent_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	var consentBy any
	if athlete.ParentalConsentBy != nil {
		consentBy = uuid.UUID(*athlete.ParentalConsentBy)
	}
	_, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(athlete.ID),
		athlete.FirstName,
		athlete.LastName,
		athlete.Email,
		athlete.PasswordHash,
		athlete.BirthDate,
		athlete.Sport,
		athlete.TeamID,
		athlete.NeedsParentalConsent,
		athlete.HasParentalConsent,
		athlete.ParentalConsentDate,
		consentBy,
		athlete.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("athlete email already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("save athlete: %w", err)
	}
	return s.replaceParentLinks(ctx, athlete.ID, athlete.ParentIDs)
}

func (s *PostgresStore) SaveParent(ctx context.Context, parent *models.Parent) error {
	if parent == nil {
		return fmt.Errorf("parent is required")
	}
	query := `
		INSERT INTO parents (id, first_name, last_name, email, phone, password_hash,
			has_data_consent, has_medical_consent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(parent.ID),
		parent.FirstName,
		parent.LastName,
		parent.Email,
		parent.Phone,
		parent.PasswordHash,
		parent.HasDataConsent,
		parent.HasMedicalConsent,
		parent.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("parent email already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("save parent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAthleteByID(ctx context.Context, athleteID id.AthleteID) (*models.Athlete, error) {
	query := athleteSelect + ` WHERE id = $1`
	athlete, err := scanAthlete(s.execer().QueryRowContext(ctx, query, uuid.UUID(athleteID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find athlete: %w", err)
	}
	if err := s.loadParentLinks(ctx, athlete); err != nil {
		return nil, err
	}
	return athlete, nil
}

func (s *PostgresStore) FindAthleteByEmail(ctx context.Context, email string) (*models.Athlete, error) {
	query := athleteSelect + ` WHERE email = $1`
	athlete, err := scanAthlete(s.execer().QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find athlete by email: %w", err)
	}
	if err := s.loadParentLinks(ctx, athlete); err != nil {
		return nil, err
	}
	return athlete, nil
}

func (s *PostgresStore) FindParentByID(ctx context.Context, parentID id.ParentID) (*models.Parent, error) {
	query := parentSelect + ` WHERE id = $1`
	parent, err := scanParent(s.execer().QueryRowContext(ctx, query, uuid.UUID(parentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find parent: %w", err)
	}
	if err := s.loadChildLinks(ctx, parent); err != nil {
		return nil, err
	}
	return parent, nil
}

func (s *PostgresStore) FindParentByEmail(ctx context.Context, email string) (*models.Parent, error) {
	query := parentSelect + ` WHERE email = $1`
	parent, err := scanParent(s.execer().QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find parent by email: %w", err)
	}
	if err := s.loadChildLinks(ctx, parent); err != nil {
		return nil, err
	}
	return parent, nil
}

func (s *PostgresStore) UpdateAthlete(ctx context.Context, athlete *models.Athlete) error {
	if athlete == nil {
		return fmt.Errorf("athlete is required")
	}
	query := `
		UPDATE athletes
		SET first_name = $2, last_name = $3, email = $4, password_hash = $5, sport = $6, team_id = $7,
			needs_parental_consent = $8, has_parental_consent = $9, parental_consent_date = $10, parental_consent_by = $11
		WHERE id = $1
	`
	var consentBy any
	if athlete.ParentalConsentBy != nil {
		consentBy = uuid.UUID(*athlete.ParentalConsentBy)
	}
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(athlete.ID),
		athlete.FirstName,
		athlete.LastName,
		athlete.Email,
		athlete.PasswordHash,
		athlete.Sport,
		athlete.TeamID,
		athlete.NeedsParentalConsent,
		athlete.HasParentalConsent,
		athlete.ParentalConsentDate,
		consentBy,
	)
	if err != nil {
		return fmt.Errorf("update athlete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update athlete rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return s.replaceParentLinks(ctx, athlete.ID, athlete.ParentIDs)
}

func (s *PostgresStore) UpdateParent(ctx context.Context, parent *models.Parent) error {
	if parent == nil {
		return fmt.Errorf("parent is required")
	}
	query := `
		UPDATE parents
		SET first_name = $2, last_name = $3, email = $4, phone = $5, password_hash = $6,
			has_data_consent = $7, has_medical_consent = $8
		WHERE id = $1
	`
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(parent.ID),
		parent.FirstName,
		parent.LastName,
		parent.Email,
		parent.Phone,
		parent.PasswordHash,
		parent.HasDataConsent,
		parent.HasMedicalConsent,
	)
	if err != nil {
		return fmt.Errorf("update parent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update parent rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAthlete(ctx context.Context, athleteID id.AthleteID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM athletes WHERE id = $1`, uuid.UUID(athleteID))
	if err != nil {
		return fmt.Errorf("delete athlete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete athlete rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteParent(ctx context.Context, parentID id.ParentID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM parents WHERE id = $1`, uuid.UUID(parentID))
	if err != nil {
		return fmt.Errorf("delete parent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete parent rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAthletes(ctx context.Context) ([]*models.Athlete, error) {
	rows, err := s.execer().QueryContext(ctx, athleteSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list athletes: %w", err)
	}
	defer rows.Close()

	var athletes []*models.Athlete
	for rows.Next() {
		athlete, err := scanAthlete(rows)
		if err != nil {
			return nil, fmt.Errorf("scan athlete: %w", err)
		}
		athletes = append(athletes, athlete)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate athletes: %w", err)
	}
	for _, athlete := range athletes {
		if err := s.loadParentLinks(ctx, athlete); err != nil {
			return nil, err
		}
	}
	return athletes, nil
}

func (s *PostgresStore) replaceParentLinks(ctx context.Context, athleteID id.AthleteID, parentIDs []id.ParentID) error {
	exec := s.execer()
	if _, err := exec.ExecContext(ctx, `DELETE FROM athlete_parents WHERE athlete_id = $1`, uuid.UUID(athleteID)); err != nil {
		return fmt.Errorf("clear parent links: %w", err)
	}
	for _, parentID := range parentIDs {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO athlete_parents (athlete_id, parent_id) VALUES ($1, $2)`,
			uuid.UUID(athleteID), uuid.UUID(parentID))
		if err != nil {
			return fmt.Errorf("link parent: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) loadParentLinks(ctx context.Context, athlete *models.Athlete) error {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT parent_id FROM athlete_parents WHERE athlete_id = $1`, uuid.UUID(athlete.ID))
	if err != nil {
		return fmt.Errorf("load parent links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var parentID uuid.UUID
		if err := rows.Scan(&parentID); err != nil {
			return fmt.Errorf("scan parent link: %w", err)
		}
		athlete.ParentIDs = append(athlete.ParentIDs, id.ParentID(parentID))
	}
	return rows.Err()
}

func (s *PostgresStore) loadChildLinks(ctx context.Context, parent *models.Parent) error {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT athlete_id FROM athlete_parents WHERE parent_id = $1`, uuid.UUID(parent.ID))
	if err != nil {
		return fmt.Errorf("load child links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var athleteID uuid.UUID
		if err := rows.Scan(&athleteID); err != nil {
			return fmt.Errorf("scan child link: %w", err)
		}
		parent.ChildrenIDs = append(parent.ChildrenIDs, id.AthleteID(athleteID))
		parent.CanGiveConsentFor = append(parent.CanGiveConsentFor, id.AthleteID(athleteID))
	}
	return rows.Err()
}

const athleteSelect = `
	SELECT id, first_name, last_name, email, password_hash, birth_date, sport, team_id,
		needs_parental_consent, has_parental_consent, parental_consent_date, parental_consent_by, created_at
	FROM athletes`

const parentSelect = `
	SELECT id, first_name, last_name, email, phone, password_hash,
		has_data_consent, has_medical_consent, created_at
	FROM parents`

type dbRow interface {
	Scan(dest ...any) error
}

func scanAthlete(row dbRow) (*models.Athlete, error) {
	var athlete models.Athlete
	var athleteID uuid.UUID
	var consentDate sql.NullTime
	var consentBy uuid.NullUUID
	if err := row.Scan(
		&athleteID,
		&athlete.FirstName,
		&athlete.LastName,
		&athlete.Email,
		&athlete.PasswordHash,
		&athlete.BirthDate,
		&athlete.Sport,
		&athlete.TeamID,
		&athlete.NeedsParentalConsent,
		&athlete.HasParentalConsent,
		&consentDate,
		&consentBy,
		&athlete.CreatedAt,
	); err != nil {
		return nil, err
	}
	athlete.ID = id.AthleteID(athleteID)
	if consentDate.Valid {
		athlete.ParentalConsentDate = &consentDate.Time
	}
	if consentBy.Valid {
		parentID := id.ParentID(consentBy.UUID)
		athlete.ParentalConsentBy = &parentID
	}
	return &athlete, nil
}

func scanParent(row dbRow) (*models.Parent, error) {
	var parent models.Parent
	var parentID uuid.UUID
	if err := row.Scan(
		&parentID,
		&parent.FirstName,
		&parent.LastName,
		&parent.Email,
		&parent.Phone,
		&parent.PasswordHash,
		&parent.HasDataConsent,
		&parent.HasMedicalConsent,
		&parent.CreatedAt,
	); err != nil {
		return nil, err
	}
	parent.ID = id.ParentID(parentID)
	return &parent, nil
}
