package model

import "fmt"

// Contact is the data structure for a person that a user knows. Every contact
// belongs to exactly one user.
type Contact struct {
	Id       int64  `json:"id"       db:"id"`
	UserId   int64  `json:"-"        db:"user_id"`
	Name     string `json:"name"     db:"name"`
	Email    string `json:"email"    db:"email"`
	Phone    string `json:"phone"    db:"phone"`
	Birthday Date   `json:"birthday" db:"birthday"`
	Company  string `json:"company"  db:"company"`
}

// Path returns the canonical URL path of the contact.
func (c Contact) Path() string {
	return fmt.Sprintf("/contacts/%d", c.Id)
}

// ContactFields are the client-settable values of a new contact.
type ContactFields struct {
	Name     string
	Email    string
	Phone    string
	Birthday Date
	Company  string
}

// ContactPatch holds the values of a partial update. Nil fields are left
// untouched.
type ContactPatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Birthday *Date
	Company  *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ContactPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Birthday == nil && p.Company == nil
}

// User is an account that owns contacts. The password hash and the API token
// are never serialized.
type User struct {
	Id       int64  `json:"id"    db:"id"`
	Name     string `json:"name"  db:"name"`
	Email    string `json:"email" db:"email"`
	Password string `json:"-"     db:"password"`
	ApiToken string `json:"-"     db:"api_token"`
}
