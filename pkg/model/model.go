// Package model holds the JSON representation of the contacts API for
// clients of the service.
package model

// Contact is a contact as the API sends it. Birthday is formatted as
// YYYY-MM-DD. Path is the canonical URL path of the contact.
type Contact struct {
	Id       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Birthday string `json:"birthday"`
	Company  string `json:"company"`
	Path     string `json:"path"`
}

// Error is the body of a failed API call. Errors is only set when the
// submitted data was invalid and maps each field to its messages.
type Error struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}
