package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contactbook/internal/model"
)

// ErrDuplicateEmail is returned when an account with the same email exists.
var ErrDuplicateEmail = errors.New("email already taken")

// mysqlDuplicateEntry is the MySQL error number for a violated unique key.
const mysqlDuplicateEntry = 1062

// UserStore reads and creates accounts.
type UserStore struct {
	insert           *sqlx.NamedStmt
	selectWhereToken *sqlx.Stmt
	selectWhereEmail *sqlx.Stmt
	selectWhereId    *sqlx.Stmt
}

func newUserStore(db *sqlx.DB) (*UserStore, error) {
	var s UserStore
	var err error
	s.insert, err = db.PrepareNamed(`
		INSERT INTO users (name, email, password, api_token)
		VALUES (:name, :email, :password, :api_token)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare user insert: %w", err)
	}
	s.selectWhereToken, err = db.Preparex(`
		SELECT id, name, email, password, api_token FROM users WHERE api_token = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare user select by token: %w", err)
	}
	s.selectWhereEmail, err = db.Preparex(`
		SELECT id, name, email, password, api_token FROM users WHERE email = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare user select by email: %w", err)
	}
	s.selectWhereId, err = db.Preparex(`
		SELECT id, name, email, password, api_token FROM users WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare user select by id: %w", err)
	}
	return &s, nil
}

// Create stores a new account. The password must already be hashed.
func (s *UserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	result, err := s.insert.ExecContext(ctx, &user)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	user.Id = id
	return user, nil
}

// FindByToken returns the account that owns the API token.
func (s *UserStore) FindByToken(ctx context.Context, token string) (model.User, error) {
	return s.get(ctx, s.selectWhereToken, token)
}

// FindByEmail returns the account registered with the email address.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return s.get(ctx, s.selectWhereEmail, email)
}

// Get returns the account with the id.
func (s *UserStore) Get(ctx context.Context, id int64) (model.User, error) {
	return s.get(ctx, s.selectWhereId, id)
}

func (s *UserStore) get(ctx context.Context, stmt *sqlx.Stmt, arg any) (model.User, error) {
	var user model.User
	err := stmt.GetContext(ctx, &user, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (s *UserStore) close() error {
	return errors.Join(s.insert.Close(), s.selectWhereToken.Close(), s.selectWhereEmail.Close(), s.selectWhereId.Close())
}
