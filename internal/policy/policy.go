// Package policy decides which user may do what with a contact. Every
// instance action is reserved to the owner of the contact.
package policy

import (
	"errors"

	"gitlab.com/dirk.krummacker/contactbook/internal/model"
)

// Action is an operation a user wants to perform on contacts.
type Action int

const (
	ViewAny Action = iota
	Create
	View
	Update
	Delete
)

// ErrUnauthorized is returned when a user may not perform an action.
var ErrUnauthorized = errors.New("action not permitted")

func (a Action) String() string {
	switch a {
	case ViewAny:
		return "viewAny"
	case Create:
		return "create"
	case View:
		return "view"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// needsTarget reports whether the action refers to one particular contact.
func (a Action) needsTarget() bool {
	return a == View || a == Update || a == Delete
}

// Authorize returns nil if the requester may perform the action. Target is
// nil for ViewAny and Create.
func Authorize(requester model.User, action Action, target *model.Contact) error {
	switch action {
	case ViewAny, Create:
		return nil
	}
	if !action.needsTarget() || target == nil {
		return ErrUnauthorized
	}
	if target.UserId != requester.Id {
		return ErrUnauthorized
	}
	return nil
}
