package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contactbook/internal/model"
)

// OrderColumns are the columns a contact list can be sorted by.
var OrderColumns = []string{"id", "name", "email", "phone", "birthday", "company"}

// ErrInvalidOrder is returned when a list is to be sorted by an unknown column.
var ErrInvalidOrder = errors.New("invalid order column")

// contactColumns is the select list for a full contact row.
const contactColumns = "id, user_id, name, email, phone, birthday, company"

// ListOptions narrow down and sort the result of ContactStore.List.
type ListOptions struct {
	// OrderBy is one of OrderColumns. Empty means "id".
	OrderBy    string
	Descending bool
	// NamePrefix restricts the result to names starting with it.
	NamePrefix string
}

// ContactStore reads and writes contacts.
type ContactStore struct {
	db            *sqlx.DB
	insert        *sqlx.NamedStmt
	selectWhereId *sqlx.Stmt
	deleteWhereId *sqlx.Stmt
}

func newContactStore(db *sqlx.DB) (*ContactStore, error) {
	s := ContactStore{db: db}
	var err error
	s.insert, err = db.PrepareNamed(`
		INSERT INTO contacts (user_id, name, email, phone, birthday, company)
		VALUES (:user_id, :name, :email, :phone, :birthday, :company)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare contact insert: %w", err)
	}
	s.selectWhereId, err = db.Preparex(`
		SELECT ` + contactColumns + ` FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare contact select: %w", err)
	}
	s.deleteWhereId, err = db.Preparex(`
		DELETE FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare contact delete: %w", err)
	}
	return &s, nil
}

// List returns the contacts owned by the user. The result is never nil.
func (s *ContactStore) List(ctx context.Context, ownerId int64, opts ListOptions) ([]model.Contact, error) {
	orderby := opts.OrderBy
	if orderby == "" {
		orderby = "id"
	}
	if !slices.Contains(OrderColumns, orderby) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, orderby)
	}
	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}

	query := "SELECT " + contactColumns + " FROM contacts WHERE user_id = ?"
	args := []any{ownerId}
	if opts.NamePrefix != "" {
		query += ` AND name LIKE ?`
		args = append(args, escapeLike(opts.NamePrefix)+"%")
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderby, direction)

	contacts := []model.Contact{}
	if err := s.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	return contacts, nil
}

// Create inserts a contact owned by the user and returns it with its new id.
func (s *ContactStore) Create(ctx context.Context, ownerId int64, fields model.ContactFields) (model.Contact, error) {
	contact := model.Contact{
		UserId:   ownerId,
		Name:     fields.Name,
		Email:    fields.Email,
		Phone:    fields.Phone,
		Birthday: fields.Birthday,
		Company:  fields.Company,
	}
	result, err := s.insert.ExecContext(ctx, &contact)
	if err != nil {
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	contact.Id = id
	return contact, nil
}

// Get returns the contact with the id, regardless of its owner.
func (s *ContactStore) Get(ctx context.Context, id int64) (model.Contact, error) {
	var contact model.Contact
	err := s.selectWhereId.GetContext(ctx, &contact, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("select contact: %w", err)
	}
	return contact, nil
}

// Update writes the values present in the patch with a single statement and
// returns the contact as stored afterwards. The owner is never changed.
func (s *ContactStore) Update(ctx context.Context, id int64, patch model.ContactPatch) (model.Contact, error) {
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *patch.Phone)
	}
	if patch.Birthday != nil {
		sets = append(sets, "birthday = ?")
		args = append(args, *patch.Birthday)
	}
	if patch.Company != nil {
		sets = append(sets, "company = ?")
		args = append(args, *patch.Company)
	}
	args = append(args, id)

	query := "UPDATE contacts SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	if rowsAffected == 0 {
		return model.Contact{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes the contact permanently.
func (s *ContactStore) Delete(ctx context.Context, id int64) error {
	result, err := s.deleteWhereId.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ContactStore) close() error {
	return errors.Join(s.insert.Close(), s.selectWhereId.Close(), s.deleteWhereId.Close())
}

// escapeLike masks the wildcard characters of a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
