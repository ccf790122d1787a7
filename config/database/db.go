package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"voxnote/pkg/logger"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Connect opens the Postgres pool and pings it with a few retries, since the
// hosted database is sometimes briefly unreachable at boot.
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return db, nil
		}
		logger.Sugar.Infof("Database connection failed, retrying in 2s... (%v)", err)
		time.Sleep(2 * time.Second)
	}
	db.Close()
	return nil, fmt.Errorf("could not connect to database after retries: %w", err)
}

// Migrate creates the voice_notes and documents tables if they are missing.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
