// Package pgtest starts a disposable postgres for adapter integration suites.
package pgtest

import (
	"context"
	"time"

	"dispatch/internal/adapters/out/postgres"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// Database is a migrated postgres running in a container.
type Database struct {
	URL       string
	DB        *gorm.DB
	container *tcpostgres.PostgresContainer
}

// Start runs a postgres container, applies the migrations and opens a traced gorm
// connection to it.
func Start(ctx context.Context) (*Database, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	d := &Database{container: container}
	d.URL, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = d.Terminate(ctx)
		return nil, err
	}

	if err := postgres.Migrate(d.URL); err != nil {
		_ = d.Terminate(ctx)
		return nil, err
	}

	d.DB, err = postgres.OpenPostgres(d.URL, true)
	if err != nil {
		_ = d.Terminate(ctx)
		return nil, err
	}
	return d, nil
}

// Truncate empties the given tables.
func (d *Database) Truncate(tables ...string) error {
	for _, table := range tables {
		if err := d.DB.Exec("TRUNCATE TABLE " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

// Terminate closes the connection and stops the container.
func (d *Database) Terminate(ctx context.Context) error {
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return d.container.Terminate(ctx)
}
