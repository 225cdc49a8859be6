//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"vigorlog/migrations"
	id "vigorlog/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("vigorlog_test"),
		postgres.WithUsername("vigorlog"),
		postgres.WithPassword("vigorlog_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}

	if err := pc.runMigrations(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Note: no t.Cleanup here because the container is managed by the singleton
	// Manager and shared across test suites. Ryuk (testcontainers' cleanup
	// sidecar) removes the container when the test process exits.

	return pc
}

// runMigrations executes all *.up.sql migrations from the embedded migrations.FS.
func (p *PostgresContainer) runMigrations(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		if _, err := p.DB.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}

	return nil
}

// TruncateTables clears all data from the specified tables.
// Use between tests to ensure isolation without restarting the container.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		if err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateModuleTables truncates all module tables for full integration test
// isolation. CASCADE handles foreign key dependencies.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	tables := []string{
		"audit_events",
		"dual_consent_requests",
		"consents",
		"athlete_parents",
		"athletes",
		"parents",
	}
	return p.TruncateTables(ctx, tables...)
}

// Exec runs a SQL statement and returns the result.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// Query runs a SQL query and returns rows.
func (p *PostgresContainer) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.DB.QueryContext(ctx, query, args...)
}

// QueryRow runs a SQL query expected to return a single row.
func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTestParent inserts a parent row and returns its ID.
// Fails the test if insertion fails.
func (p *PostgresContainer) CreateTestParent(ctx context.Context, t testing.TB) id.ParentID {
	t.Helper()
	parentID := id.NewParentID()
	_, err := p.Exec(ctx, `
		INSERT INTO parents (id, first_name, last_name, email, phone, password_hash,
			has_data_consent, has_medical_consent, created_at)
		VALUES ($1, 'Test', 'Parent', $2, '+49 151 0000000', 'hash', true, true, NOW())
	`, uuid.UUID(parentID), "parent-"+uuid.NewString()+"@example.com")
	if err != nil {
		t.Fatalf("CreateTestParent: %v", err)
	}
	return parentID
}

// CreateTestAthlete inserts a minor athlete row and returns its ID.
// Fails the test if insertion fails.
func (p *PostgresContainer) CreateTestAthlete(ctx context.Context, t testing.TB, birthDate time.Time) id.AthleteID {
	t.Helper()
	athleteID := id.NewAthleteID()
	_, err := p.Exec(ctx, `
		INSERT INTO athletes (id, first_name, last_name, email, password_hash, birth_date, sport, team_id,
			needs_parental_consent, has_parental_consent, created_at)
		VALUES ($1, 'Test', 'Athlete', $2, 'hash', $3, 'football', '', true, false, NOW())
	`, uuid.UUID(athleteID), "athlete-"+uuid.NewString()+"@example.com", birthDate)
	if err != nil {
		t.Fatalf("CreateTestAthlete: %v", err)
	}
	return athleteID
}
