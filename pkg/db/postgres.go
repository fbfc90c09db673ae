package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	pgDB   *sqlx.DB
	pgOnce sync.Once
	pgMu   sync.RWMutex
	pgErr  error
)

// InitPostgres opens the shared PostgreSQL connection pool. Later calls
// return the result of the first.
func InitPostgres(ctx context.Context, uri string) error {
	pgOnce.Do(func() {
		if uri == "" {
			pgErr = fmt.Errorf("POSTGRES_URI is required")
			return
		}

		conn, err := sqlx.ConnectContext(ctx, "postgres", uri)
		if err != nil {
			pgErr = fmt.Errorf("failed to connect to PostgreSQL: %w", err)
			return
		}
		configurePool(conn)

		pgMu.Lock()
		pgDB = conn
		pgMu.Unlock()
	})
	return pgErr
}

// configurePool applies the service's connection pool limits
func configurePool(conn *sqlx.DB) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(1 * time.Minute)
}

// PostgresEnabled returns whether Postgres is available
func PostgresEnabled() bool {
	return GetPostgres() != nil
}

// GetPostgres returns the PostgreSQL database instance, or nil before a
// successful InitPostgres
func GetPostgres() *sqlx.DB {
	pgMu.RLock()
	defer pgMu.RUnlock()
	return pgDB
}

// Ping checks connectivity of the shared pool
func Ping(ctx context.Context) error {
	conn := GetPostgres()
	if conn == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return conn.PingContext(ctx)
}

// ClosePostgres closes the PostgreSQL database connection
func ClosePostgres() error {
	pgMu.Lock()
	defer pgMu.Unlock()
	if pgDB != nil {
		err := pgDB.Close()
		pgDB = nil
		return err
	}
	return nil
}
