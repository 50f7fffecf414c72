// Package mpostgres owns the primary/replica Postgres connection and runs
// schema migrations at boot.
package mpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/walletledger/service/pkg/mlog"
)

// Connection is a hub that deals with postgres connections and migrations.
// The replica DSN may equal the primary DSN when no read replica is
// configured; dbresolver still load-balances across the resulting pool.
type Connection struct {
	PrimaryDSN    string
	ReplicaDSN    string
	DatabaseName  string
	MigrationsDir string
	Logger        mlog.Logger

	ConnectionDB dbresolver.DB
	Connected    bool
}

// Connect opens the primary and replica pools, runs pending migrations
// against the primary, and pings the resolved pool.
func (c *Connection) Connect() error {
	c.Logger.Info("connecting to primary and replica databases")

	primary, err := sql.Open("pgx", c.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("mpostgres: failed to open primary connection: %w", err)
	}

	replica, err := sql.Open("pgx", c.ReplicaDSN)
	if err != nil {
		return fmt.Errorf("mpostgres: failed to open replica connection: %w", err)
	}

	connectionDB := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	if err := c.migrate(primary); err != nil {
		return err
	}

	if err := connectionDB.Ping(); err != nil {
		return fmt.Errorf("mpostgres: ping failed: %w", err)
	}

	c.ConnectionDB = connectionDB
	c.Connected = true

	c.Logger.Info("connected to postgres")

	return nil
}

func (c *Connection) migrate(primary *sql.DB) error {
	migrationsPath, err := filepath.Abs(c.MigrationsDir)
	if err != nil {
		return fmt.Errorf("mpostgres: failed to resolve migrations path: %w", err)
	}

	driver, err := postgres.WithInstance(primary, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.DatabaseName,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("mpostgres: failed to build migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(migrationsPath), c.DatabaseName, driver)
	if err != nil {
		return fmt.Errorf("mpostgres: failed to load migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("mpostgres: migration failed: %w", err)
	}

	return nil
}

// GetDB returns the resolved connection pool, connecting lazily if needed.
func (c *Connection) GetDB(ctx context.Context) (dbresolver.DB, error) {
	if !c.Connected {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	return c.ConnectionDB, nil
}
