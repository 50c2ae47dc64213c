package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contactbook/internal/model"
)

// contactRowColumns are the columns of a full contact row.
var contactRowColumns = []string{"id", "user_id", "name", "email", "phone", "birthday", "company"}

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}

// expectPreparedStatements instructs the mock object to expect that all statements are being
// prepared.
func expectPreparedStatements(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare("INSERT INTO users")
	mock.ExpectPrepare("SELECT (.+) FROM users WHERE api_token = \\?")
	mock.ExpectPrepare("SELECT (.+) FROM users WHERE email = \\?")
	mock.ExpectPrepare("SELECT (.+) FROM users WHERE id = \\?")
	mock.ExpectPrepare("INSERT INTO contacts")
	mock.ExpectPrepare("SELECT (.+) FROM contacts WHERE id = \\?")
	mock.ExpectPrepare("DELETE FROM contacts WHERE id = \\?")
}

// setupStores prepares the statements on the mock database.
func setupStores(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *Stores {
	expectPreparedStatements(mock)
	stores, err := SetupDatabaseWrapper(db)
	require.NoError(t, err)
	return stores
}

// verifyExpectations fails the test if an expected SQL call did not happen.
func verifyExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestListOwnContacts expects that only the contacts of the given owner are selected.
func TestListOwnContacts(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	rows := mock.NewRows(contactRowColumns).
		AddRow(1, 7, "Aaron", "aaron@example.com", "+420 111", time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), "ACME").
		AddRow(2, 7, "Berta", "berta@example.com", "+420 222", time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC), "ACME")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, name, email, phone, birthday, company FROM contacts WHERE user_id = ? ORDER BY id ASC")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	contacts, err := stores.Contacts.List(context.Background(), 7, ListOptions{})
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Aaron", contacts[0].Name)
	assert.Equal(t, int64(7), contacts[0].UserId)
	assert.Equal(t, model.NewDate(1980, time.January, 1), contacts[1].Birthday)
	verifyExpectations(t, mock)
}

// TestListEmpty expects an empty, non-nil list when the owner has no contacts.
func TestListEmpty(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE user_id = \\?").
		WithArgs(int64(3)).
		WillReturnRows(mock.NewRows(contactRowColumns))

	contacts, err := stores.Contacts.List(context.Background(), 3, ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
	verifyExpectations(t, mock)
}

// TestListFilteredAndSorted expects the name prefix and the sort order in the statement.
func TestListFilteredAndSorted(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND name LIKE ? ORDER BY birthday DESC")).
		WithArgs(int64(7), `Am\%i\_%`).
		WillReturnRows(mock.NewRows(contactRowColumns))

	_, err := stores.Contacts.List(context.Background(), 7, ListOptions{OrderBy: "birthday", Descending: true, NamePrefix: "Am%i_"})
	require.NoError(t, err)
	verifyExpectations(t, mock)
}

// TestListInvalidOrder expects that an unknown column never reaches the database.
func TestListInvalidOrder(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	_, err := stores.Contacts.List(context.Background(), 7, ListOptions{OrderBy: "user_id; DROP TABLE contacts"})
	assert.ErrorIs(t, err, ErrInvalidOrder)
	verifyExpectations(t, mock)
}

// TestCreateContact expects the owner to be taken from the argument and the id from the database.
func TestCreateContact(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(int64(7), "Amit Joshi", "amit@amitlara.com", "123456789", time.Date(1977, time.December, 13, 0, 0, 0, 0, time.UTC), "AmitLara.com").
		WillReturnResult(sqlmock.NewResult(56, 1))

	contact, err := stores.Contacts.Create(context.Background(), 7, model.ContactFields{
		Name:     "Amit Joshi",
		Email:    "amit@amitlara.com",
		Phone:    "123456789",
		Birthday: model.NewDate(1977, time.December, 13),
		Company:  "AmitLara.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(56), contact.Id)
	assert.Equal(t, int64(7), contact.UserId)
	assert.Equal(t, "/contacts/56", contact.Path())
	verifyExpectations(t, mock)
}

// TestGetContact expects the selected row to be returned.
func TestGetContact(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	rows := mock.NewRows(contactRowColumns).
		AddRow(29, 7, "Erika Mustermann", "erika@example.com", "+49 0815 4711", time.Date(1969, time.March, 2, 0, 0, 0, 0, time.UTC), "Beispiel AG")
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\?").
		WithArgs(int64(29)).
		WillReturnRows(rows)

	contact, err := stores.Contacts.Get(context.Background(), 29)
	require.NoError(t, err)
	assert.Equal(t, model.Contact{
		Id:       29,
		UserId:   7,
		Name:     "Erika Mustermann",
		Email:    "erika@example.com",
		Phone:    "+49 0815 4711",
		Birthday: model.NewDate(1969, time.March, 2),
		Company:  "Beispiel AG",
	}, contact)
	verifyExpectations(t, mock)
}

// TestGetContactNotFound expects ErrNotFound for an id without a row.
func TestGetContactNotFound(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\?").
		WithArgs(int64(1234)).
		WillReturnRows(mock.NewRows(contactRowColumns))

	_, err := stores.Contacts.Get(context.Background(), 1234)
	assert.ErrorIs(t, err, ErrNotFound)
	verifyExpectations(t, mock)
}

// TestUpdateContact expects one statement for all present fields, followed by a fresh read.
func TestUpdateContact(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	phone := "81970"
	birthday := model.NewDate(1972, time.June, 6)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contacts SET phone = ?, birthday = ? WHERE id = ?")).
		WithArgs("81970", time.Date(1972, time.June, 6, 0, 0, 0, 0, time.UTC), int64(56)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\?").
		WithArgs(int64(56)).
		WillReturnRows(mock.NewRows(contactRowColumns).
			AddRow(56, 7, "Amit Joshi", "amit@amitlara.com", "81970", time.Date(1972, time.June, 6, 0, 0, 0, 0, time.UTC), "AmitLara.com"))

	contact, err := stores.Contacts.Update(context.Background(), 56, model.ContactPatch{Phone: &phone, Birthday: &birthday})
	require.NoError(t, err)
	assert.Equal(t, "81970", contact.Phone)
	assert.Equal(t, birthday, contact.Birthday)
	assert.Equal(t, "Amit Joshi", contact.Name)
	verifyExpectations(t, mock)
}

// TestUpdateContactNotFound expects ErrNotFound when no row was changed.
func TestUpdateContactNotFound(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	name := "Nobody"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contacts SET name = ? WHERE id = ?")).
		WithArgs("Nobody", int64(1234)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := stores.Contacts.Update(context.Background(), 1234, model.ContactPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
	verifyExpectations(t, mock)
}

// TestUpdateContactEmptyPatch expects no UPDATE statement at all.
func TestUpdateContactEmptyPatch(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\?").
		WithArgs(int64(56)).
		WillReturnRows(mock.NewRows(contactRowColumns).
			AddRow(56, 7, "Amit Joshi", "amit@amitlara.com", "123456789", time.Date(1977, time.December, 13, 0, 0, 0, 0, time.UTC), "AmitLara.com"))

	contact, err := stores.Contacts.Update(context.Background(), 56, model.ContactPatch{})
	require.NoError(t, err)
	assert.Equal(t, int64(56), contact.Id)
	verifyExpectations(t, mock)
}

// TestDeleteContact expects one affected row to be a success and none to be ErrNotFound.
func TestDeleteContact(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectExec("DELETE FROM contacts WHERE id = \\?").
		WithArgs(int64(56)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM contacts WHERE id = \\?").
		WithArgs(int64(56)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, stores.Contacts.Delete(context.Background(), 56))
	assert.ErrorIs(t, stores.Contacts.Delete(context.Background(), 56), ErrNotFound)
	verifyExpectations(t, mock)
}

// TestFindUserByToken expects the account behind the token.
func TestFindUserByToken(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE api_token = \\?").
		WithArgs("secret-token").
		WillReturnRows(mock.NewRows([]string{"id", "name", "email", "password", "api_token"}).
			AddRow(7, "Amit Joshi", "amit@amitlara.com", "$2a$10$hash", "secret-token"))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE api_token = \\?").
		WithArgs("unknown").
		WillReturnRows(mock.NewRows([]string{"id", "name", "email", "password", "api_token"}))

	user, err := stores.Users.FindByToken(context.Background(), "secret-token")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.Id)
	assert.Equal(t, "Amit Joshi", user.Name)

	_, err = stores.Users.FindByToken(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
	verifyExpectations(t, mock)
}

// TestCreateUser expects the new id to be taken over and a duplicate email to be reported.
func TestCreateUser(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("Amit Joshi", "amit@amitlara.com", "$2a$10$hash", "token").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO users").
		WithArgs("Amit Joshi", "amit@amitlara.com", "$2a$10$hash", "token").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	newUser := model.User{Name: "Amit Joshi", Email: "amit@amitlara.com", Password: "$2a$10$hash", ApiToken: "token"}
	user, err := stores.Users.Create(context.Background(), newUser)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.Id)

	_, err = stores.Users.Create(context.Background(), newUser)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	verifyExpectations(t, mock)
}

// TestPing expects the health check to reach the database.
func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	stores := setupStores(t, db, mock)

	mock.ExpectPing()
	assert.NoError(t, stores.Ping(context.Background()))
	verifyExpectations(t, mock)
}
