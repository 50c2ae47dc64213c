// Package store persists users and contacts in MySQL. All statements that
// are executed on every request are prepared once at start-up.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no record matches the given key.
var ErrNotFound = errors.New("not found")

// Stores bundles the stores that share one database handle.
type Stores struct {
	db       *sqlx.DB
	Users    *UserStore
	Contacts *ContactStore
}

// CreateDatabase opens a MySQL connection pool for the given DSN. No
// connection is established until the pool is first used.
func CreateDatabase(dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return sqlDB, nil
}

// SetupDatabaseWrapper initializes the sqlx database wrapper with the specified sql database. It
// then prepares all statements. The database argument can be a real database for production use
// or a mock database within unit tests.
func SetupDatabaseWrapper(sqlDB *sql.DB) (*Stores, error) {
	db := sqlx.NewDb(sqlDB, "mysql")
	users, err := newUserStore(db)
	if err != nil {
		return nil, err
	}
	contacts, err := newContactStore(db)
	if err != nil {
		return nil, err
	}
	return &Stores{db: db, Users: users, Contacts: contacts}, nil
}

// Ping checks that the database is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the prepared statements and the connection pool.
func (s *Stores) Close() error {
	return errors.Join(s.Users.close(), s.Contacts.close(), s.db.Close())
}
