package service

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contactbook/internal/model"
	"gitlab.com/dirk.krummacker/contactbook/internal/policy"
	"gitlab.com/dirk.krummacker/contactbook/internal/store"
	apimodel "gitlab.com/dirk.krummacker/contactbook/pkg/model"
)

// allowedAscending are the allowed values for the 'ascending' URL parameter.
var allowedAscending = []string{"true", "false"}

// newContactResource converts a stored contact to its JSON representation. The owner is not part
// of it.
func newContactResource(contact model.Contact) apimodel.Contact {
	return apimodel.Contact{
		Id:       contact.Id,
		Name:     contact.Name,
		Email:    contact.Email,
		Phone:    contact.Phone,
		Birthday: contact.Birthday.String(),
		Company:  contact.Company,
		Path:     contact.Path(),
	}
}

// findContacts responds with the list of contacts of the authenticated user as JSON. An empty
// list is a valid answer.
//
// The URL parameter 'name' is interpreted as the beginning of the name of the contact.
//
// The URL parameter 'orderby' specifies the contact property by which the results shall be sorted.
// Valid values are 'id', 'name', 'email', 'phone', 'birthday' and 'company'. If this URL parameter
// is not specified, the contacts will be sorted by id.
//
// If the URL parameter 'ascending' is set to 'false' then the sort order is reversed, starting
// with the 'highest' value. If it is set to 'true', or if this URL parameter is omitted, the
// result starts with the lowest value.
//
// REST API calls:
//
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts"
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts?name=Am"
//	> curl -H "Authorization: Bearer $TOKEN" "http://localhost:8080/api/contacts?orderby=birthday&ascending=false"
func (s *Service) findContacts(c *gin.Context) {
	user := requester(c)
	if err := policy.Authorize(user, policy.ViewAny, nil); err != nil {
		s.respondError(c, err)
		return
	}
	opts, success := parseListOptions(c)
	if !success {
		return
	}
	contacts, err := s.stores.Contacts.List(c.Request.Context(), user.Id, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	resources := make([]apimodel.Contact, 0, len(contacts))
	for _, contact := range contacts {
		resources = append(resources, newContactResource(contact))
	}
	c.IndentedJSON(http.StatusOK, resources)
}

// parseListOptions inspects the URL parameters and determines the filter and the sort order of
// the result set.
func parseListOptions(c *gin.Context) (opts store.ListOptions, success bool) {
	opts.NamePrefix = c.Query("name")
	opts.OrderBy = c.Query("orderby")
	ascending := c.Query("ascending")
	if ascending == "" {
		ascending = "true"
	}
	if !slices.Contains(allowedAscending, ascending) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid ascending parameter"})
		return opts, false
	}
	opts.Descending = ascending == "false"
	return opts, true
}

// createContact validates the contact specified in the request's JSON and stores it for the
// authenticated user. Owner fields in the JSON are ignored. It responds with the full contact data
// including the newly assigned id.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts --request "POST" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"name": "Amit Joshi", "email": "amit@amitlara.com", "phone": "123456789", "birthday": "1977-12-13", "company": "AmitLara.com"}'
func (s *Service) createContact(c *gin.Context) {
	user := requester(c)
	if err := policy.Authorize(user, policy.Create, nil); err != nil {
		s.respondError(c, err)
		return
	}
	body, err := readBody(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	fields, err := s.validator.ContactForCreate(body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	contact, err := s.stores.Contacts.Create(c.Request.Context(), user.Id, fields)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Location", "/api/contact/"+strconv.FormatInt(contact.Id, 10))
	c.IndentedJSON(http.StatusCreated, newContactResource(contact))
}

// contactFor loads the contact addressed by the id parameter of the request URL and checks that
// the authenticated user may perform the action on it. If not, the request is answered and ok is
// false.
func (s *Service) contactFor(c *gin.Context, action policy.Action) (contact model.Contact, ok bool) {
	id, errConv := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if errConv != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return model.Contact{}, false
	}
	contact, err := s.stores.Contacts.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return model.Contact{}, false
	}
	if err := policy.Authorize(requester(c), action, &contact); err != nil {
		s.respondError(c, err)
		return model.Contact{}, false
	}
	return contact, true
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact as a response.
//
// Example REST API call:
//
//	> curl -H "Authorization: Bearer $TOKEN" http://localhost:8080/api/contact/56
func (s *Service) findContactByID(c *gin.Context) {
	contact, ok := s.contactFor(c, policy.View)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, newContactResource(contact))
}

// updateContactByID updates the contact whose ID value matches the id parameter of the request
// URL, updates the values specified in the JSON (and only those), and finally responds with the
// new version of the contact. A JSON without contact fields changes nothing.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/api/contact/56 --request "PATCH" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"phone": "81970"}'
//	> curl http://localhost:8080/api/contact/56 --request "PATCH" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"birthday": "1972-06-06"}'
func (s *Service) updateContactByID(c *gin.Context) {
	contact, ok := s.contactFor(c, policy.Update)
	if !ok {
		return
	}
	body, err := readBody(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	patch, err := s.validator.ContactForUpdate(body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	updated, err := s.stores.Contacts.Update(c.Request.Context(), contact.Id, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, newContactResource(updated))
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the request URL
// from the database. The response has no body.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contact/56 --request "DELETE" --header "Authorization: Bearer $TOKEN"
func (s *Service) deleteContactByID(c *gin.Context) {
	contact, ok := s.contactFor(c, policy.Delete)
	if !ok {
		return
	}
	if err := s.stores.Contacts.Delete(c.Request.Context(), contact.Id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
