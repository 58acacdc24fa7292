// Package testutil provides testing utilities for the school health backend.
// It includes testcontainers for PostgreSQL, mock factories, and common
// test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "schoolmed_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "schoolmed_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateSchema creates the inventory and incident tables
func (c *PostgresContainer) CreateSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS stock_items (
			id UUID PRIMARY KEY,
			kind VARCHAR(20) NOT NULL,
			name VARCHAR(200) NOT NULL,
			description TEXT,
			unit VARCHAR(50) NOT NULL,
			minimum_stock INT NOT NULL DEFAULT 0,
			current_stock INT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			deleted_at TIMESTAMPTZ,
			deleted_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT kind_valid CHECK (kind IN ('medication', 'supply'))
		);

		CREATE TABLE IF NOT EXISTS lots (
			id UUID PRIMARY KEY,
			item_id UUID NOT NULL REFERENCES stock_items(id),
			lot_number VARCHAR(100) NOT NULL,
			manufacture_date TIMESTAMPTZ NOT NULL,
			expiration_date TIMESTAMPTZ NOT NULL,
			quantity INT NOT NULL DEFAULT 0,
			deleted_at TIMESTAMPTZ,
			deleted_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT quantity_non_negative CHECK (quantity >= 0),
			CONSTRAINT dates_ordered CHECK (manufacture_date <= expiration_date)
		);

		CREATE INDEX IF NOT EXISTS idx_lots_item_id ON lots(item_id);
		CREATE INDEX IF NOT EXISTS idx_lots_expiration ON lots(expiration_date) WHERE deleted_at IS NULL;

		CREATE TABLE IF NOT EXISTS health_incidents (
			id UUID PRIMARY KEY,
			student_id UUID NOT NULL,
			type VARCHAR(20) NOT NULL,
			severity VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			description TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			recorded_by UUID NOT NULL,
			resolved_at TIMESTAMPTZ,
			resolved_by UUID,
			resolution TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT severity_valid CHECK (severity IN ('low', 'medium', 'high', 'critical'))
		);

		CREATE INDEX IF NOT EXISTS idx_incidents_student ON health_incidents(student_id);

		CREATE TABLE IF NOT EXISTS medication_administrations (
			id UUID PRIMARY KEY,
			incident_id UUID NOT NULL REFERENCES health_incidents(id),
			item_id UUID NOT NULL REFERENCES stock_items(id),
			lot_id UUID NOT NULL REFERENCES lots(id),
			dose NUMERIC(10, 3) NOT NULL,
			dose_unit VARCHAR(50) NOT NULL,
			quantity INT NOT NULL DEFAULT 1,
			notes TEXT,
			administered_by UUID NOT NULL,
			administered_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
