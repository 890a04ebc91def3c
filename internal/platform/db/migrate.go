package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

// MigrationStatus describes one embedded migration.
type MigrationStatus struct {
	Version int64
	Name    string
	Applied bool
}

// Migrator applies the embedded SQL migrations with goose.
type Migrator struct {
	dsn string
}

func NewMigrator(databaseURL string) *Migrator {
	return &Migrator{dsn: databaseURL}
}

func (m *Migrator) open() (*sql.DB, error) {
	db, err := sql.Open("pgx", m.dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetTableName(migrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	return db, nil
}

// Up applies all pending migrations and returns the resulting schema version.
func (m *Migrator) Up(ctx context.Context) (int64, error) {
	db, err := m.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Status lists every embedded migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	db, err := m.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	migrations, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		statuses = append(statuses, MigrationStatus{
			Version: mig.Version,
			Name:    mig.Source,
			Applied: mig.Version <= current,
		})
	}
	return statuses, nil
}
