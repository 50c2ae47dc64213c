// Package validation checks client payloads before they reach a store. It
// decodes request bodies against an explicit allow-list of fields, so any
// other key a client sends (user_id, api_token, id, ...) is dropped.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/contactbook/internal/model"
)

// ErrMalformedBody is returned when a request body is not a JSON object.
var ErrMalformedBody = errors.New("invalid JSON")

// The years a birthday may fall in.
const (
	minYear = 1000
	maxYear = 9999
)

// ValidationErrors maps the JSON name of each failing field to its messages.
type ValidationErrors struct {
	Fields map[string][]string
}

func (e *ValidationErrors) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether the field failed validation.
func (e *ValidationErrors) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// contactRules carries the rules for the client-settable contact fields.
type contactRules struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email,email_domain,max=255"`
	Phone    string `json:"phone"    validate:"required,max=255"`
	Birthday string `json:"birthday" validate:"required,calendar_date"`
	Company  string `json:"company"  validate:"required,max=255"`
}

// contactFields is the allow-list of keys a client may set on a contact. It
// maps the JSON name to the field name of contactRules.
var contactFields = map[string]string{
	"name":     "Name",
	"email":    "Email",
	"phone":    "Phone",
	"birthday": "Birthday",
	"company":  "Company",
}

// RegisterForm is the payload of the registration page.
type RegisterForm struct {
	Name                 string `form:"name"                  json:"name"                  validate:"required,max=255"`
	Email                string `form:"email"                 json:"email"                 validate:"required,email,email_domain,max=255"`
	Password             string `form:"password"              json:"password"              validate:"required,min=8"`
	PasswordConfirmation string `form:"password_confirmation" json:"password_confirmation" validate:"eqfield=Password"`
}

// LoginForm is the payload of the login page.
type LoginForm struct {
	Email    string `form:"email"    json:"email"    validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

// Validator validates contact payloads and account forms.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	mustRegister(v, "email_domain", isDottedDomain)
	mustRegister(v, "calendar_date", isCalendarDate)

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// isDottedDomain requires the domain of an address to contain a dot and the
// whole address to be free of whitespace.
func isDottedDomain(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return false
	}
	domain := s[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

// isCalendarDate requires a parseable date in the range of a MySQL DATE column.
func isCalendarDate(fl validator.FieldLevel) bool {
	date, err := model.ParseDate(fl.Field().String())
	if err != nil {
		return false
	}
	return date.Year() >= minYear && date.Year() <= maxYear
}

// ContactForCreate decodes and validates the body of a create request. All
// contact fields are required. Every failing field is reported.
func (v *Validator) ContactForCreate(body []byte) (model.ContactFields, error) {
	rules, _, err := decodeContact(body)
	if err != nil {
		return model.ContactFields{}, err
	}
	if err := v.check(v.validate.Struct(rules)); err != nil {
		return model.ContactFields{}, err
	}
	birthday, err := model.ParseDate(rules.Birthday)
	if err != nil {
		return model.ContactFields{}, err
	}
	return model.ContactFields{
		Name:     rules.Name,
		Email:    rules.Email,
		Phone:    rules.Phone,
		Birthday: birthday,
		Company:  rules.Company,
	}, nil
}

// ContactForUpdate decodes and validates the body of a partial update. Only
// the fields present in the body are validated and returned.
func (v *Validator) ContactForUpdate(body []byte) (model.ContactPatch, error) {
	rules, present, err := decodeContact(body)
	if err != nil {
		return model.ContactPatch{}, err
	}
	if len(present) == 0 {
		return model.ContactPatch{}, nil
	}
	if err := v.check(v.validate.StructPartial(rules, present...)); err != nil {
		return model.ContactPatch{}, err
	}

	var patch model.ContactPatch
	for _, field := range present {
		switch field {
		case "Name":
			patch.Name = &rules.Name
		case "Email":
			patch.Email = &rules.Email
		case "Phone":
			patch.Phone = &rules.Phone
		case "Birthday":
			birthday, err := model.ParseDate(rules.Birthday)
			if err != nil {
				return model.ContactPatch{}, err
			}
			patch.Birthday = &birthday
		case "Company":
			patch.Company = &rules.Company
		}
	}
	return patch, nil
}

// Struct validates a form such as RegisterForm or LoginForm.
func (v *Validator) Struct(form any) error {
	return v.check(v.validate.Struct(form))
}

// check converts the errors of the validator library to ValidationErrors.
func (v *Validator) check(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	result := &ValidationErrors{Fields: make(map[string][]string)}
	for _, fe := range fieldErrors {
		result.Fields[fe.Field()] = append(result.Fields[fe.Field()], message(fe))
	}
	return result
}

// message generates the user facing text for a failed rule.
func message(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email", "email_domain":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "calendar_date":
		return fmt.Sprintf("The %s is not a valid date.", field)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", field, fe.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
	case "eqfield":
		return "The password confirmation does not match."
	default:
		return fmt.Sprintf("The %s is invalid.", field)
	}
}

// decodeContact reads the allow-listed fields of a JSON object. It returns the
// rule struct and the names of the rule fields that were present in the body.
// An empty body counts as an empty object.
func decodeContact(body []byte) (contactRules, []string, error) {
	var rules contactRules
	if len(bytes.TrimSpace(body)) == 0 {
		return rules, nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return rules, nil, ErrMalformedBody
	}
	var present []string
	target := reflect.ValueOf(&rules).Elem()
	for key, value := range raw {
		field, allowed := contactFields[key]
		if !allowed {
			continue
		}
		target.FieldByName(field).SetString(text(value))
		present = append(present, field)
	}
	sort.Strings(present)
	return rules, present, nil
}

// text returns the string content of a JSON value without surrounding
// whitespace. Numbers and booleans are taken literally, null and containers
// count as empty.
func text(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return strings.TrimSpace(s)
	}
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "null" || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return ""
	}
	return trimmed
}
