// Package sqlite stores run history in a SQLite database.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/postrelay/internal/migrations"
	"github.com/jdholdren/postrelay/internal/relay"
)

// Ensure Repo implements the RunLog interface
var _ relay.RunLog = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

// Open connects to the database file at path and migrates it.
func Open(path string) (*sqlx.DB, error) {
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %s", err)
	}

	// Run all migrations
	if err := migrations.Run(dbx); err != nil {
		dbx.Close()
		return nil, fmt.Errorf("error running migrations: %s", err)
	}

	return dbx, nil
}
