package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/dirk.krummacker/contactbook/internal/model"
)

var owner = model.User{Id: 1, Name: "Amit Joshi", Email: "amit@amitlara.com"}

var stranger = model.User{Id: 2, Name: "Lara Croft", Email: "lara@amitlara.com"}

// TestCollectionActions verifies that any authenticated user may list and create contacts.
func TestCollectionActions(t *testing.T) {
	for _, user := range []model.User{owner, stranger} {
		assert.NoError(t, Authorize(user, ViewAny, nil))
		assert.NoError(t, Authorize(user, Create, nil))
	}
}

// TestInstanceActionsOwner verifies that the owner may view, update and delete own contacts.
func TestInstanceActionsOwner(t *testing.T) {
	contact := &model.Contact{Id: 56, UserId: owner.Id}
	for _, action := range []Action{View, Update, Delete} {
		assert.NoError(t, Authorize(owner, action, contact), "action: "+action.String())
	}
}

// TestInstanceActionsStranger verifies that nobody else may touch a contact.
func TestInstanceActionsStranger(t *testing.T) {
	contact := &model.Contact{Id: 56, UserId: owner.Id}
	for _, action := range []Action{View, Update, Delete} {
		assert.ErrorIs(t, Authorize(stranger, action, contact), ErrUnauthorized, "action: "+action.String())
	}
}

// TestInstanceActionsWithoutTarget verifies that an instance action without a contact is denied.
func TestInstanceActionsWithoutTarget(t *testing.T) {
	for _, action := range []Action{View, Update, Delete} {
		assert.ErrorIs(t, Authorize(owner, action, nil), ErrUnauthorized, "action: "+action.String())
	}
	assert.ErrorIs(t, Authorize(owner, Action(42), &model.Contact{UserId: owner.Id}), ErrUnauthorized)
}
