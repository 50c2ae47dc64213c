package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contactbook/internal/model"
	"gitlab.com/dirk.krummacker/contactbook/internal/store"
	"gitlab.com/dirk.krummacker/contactbook/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Session keys.
const (
	sessionUserID = "user_id"
	sessionCSRF   = "_token"
)

// statusPageExpired is answered when a form was posted with a stale CSRF token.
const statusPageExpired = 419

// passwordCost is the bcrypt cost for new passwords.
var passwordCost = bcrypt.DefaultCost

// csrfToken returns the CSRF token of the session and creates one if there is none yet.
func csrfToken(c *gin.Context) string {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionCSRF).(string); ok && token != "" {
		return token
	}
	token := uuid.NewString()
	session.Set(sessionCSRF, token)
	_ = session.Save()
	return token
}

// verifyCSRF rejects form posts whose _token does not match the session.
func verifyCSRF(c *gin.Context) {
	expected, _ := sessions.Default(c).Get(sessionCSRF).(string)
	submitted := c.PostForm("_token")
	if submitted == "" {
		submitted = c.GetHeader("X-CSRF-TOKEN")
	}
	if expected == "" || submitted != expected {
		c.String(statusPageExpired, "Page Expired")
		c.Abort()
		return
	}
	c.Next()
}

// startSession logs the user in and renews the CSRF token.
func startSession(c *gin.Context, user model.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserID, user.Id)
	session.Set(sessionCSRF, uuid.NewString())
	return session.Save()
}

// newAPIToken generates a random token of 64 hex characters.
func newAPIToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// sessionUser returns the user that is logged in with the browser session.
func (s *Service) sessionUser(c *gin.Context) (model.User, bool) {
	id, ok := sessions.Default(c).Get(sessionUserID).(int64)
	if !ok {
		return model.User{}, false
	}
	user, err := s.stores.Users.Get(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error("loading session user failed", zap.Error(err), zap.Int64("user_id", id))
		}
		return model.User{}, false
	}
	return user, true
}

// showApp renders the shell of the single page application. The page hands the API token of the
// logged-in user to the browser.
func (s *Service) showApp(c *gin.Context) {
	user, ok := s.sessionUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.HTML(http.StatusOK, "app.html", gin.H{
		"user":     user,
		"apiToken": user.ApiToken,
		"csrf":     csrfToken(c),
	})
}

// showLogin renders the login form.
func (s *Service) showLogin(c *gin.Context) {
	if _, ok := s.sessionUser(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{"csrf": csrfToken(c), "email": ""})
}

// login checks the submitted credentials and starts a session.
func (s *Service) login(c *gin.Context) {
	var form validation.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderForm(c, "login.html", form.Email, map[string][]string{"email": {"The request could not be read."}})
		return
	}
	if err := s.validator.Struct(form); err != nil {
		s.renderFormError(c, "login.html", form.Email, err)
		return
	}

	user, err := s.stores.Users.FindByEmail(c.Request.Context(), form.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.renderFormError(c, "login.html", form.Email, err)
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)) != nil {
		s.renderForm(c, "login.html", form.Email, map[string][]string{"email": {"These credentials do not match our records."}})
		return
	}

	if err := startSession(c, user); err != nil {
		s.renderFormError(c, "login.html", form.Email, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// showRegister renders the registration form.
func (s *Service) showRegister(c *gin.Context) {
	if _, ok := s.sessionUser(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "register.html", gin.H{"csrf": csrfToken(c), "email": ""})
}

// register creates an account with a fresh API token and starts a session.
func (s *Service) register(c *gin.Context) {
	var form validation.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderForm(c, "register.html", form.Email, map[string][]string{"email": {"The request could not be read."}})
		return
	}
	if err := s.validator.Struct(form); err != nil {
		s.renderFormError(c, "register.html", form.Email, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), passwordCost)
	if err != nil {
		s.renderFormError(c, "register.html", form.Email, err)
		return
	}
	token, err := newAPIToken()
	if err != nil {
		s.renderFormError(c, "register.html", form.Email, err)
		return
	}
	user, err := s.stores.Users.Create(c.Request.Context(), model.User{
		Name:     form.Name,
		Email:    form.Email,
		Password: string(hash),
		ApiToken: token,
	})
	if errors.Is(err, store.ErrDuplicateEmail) {
		s.renderForm(c, "register.html", form.Email, map[string][]string{"email": {"The email has already been taken."}})
		return
	}
	if err != nil {
		s.renderFormError(c, "register.html", form.Email, err)
		return
	}

	if err := startSession(c, user); err != nil {
		s.renderFormError(c, "register.html", form.Email, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// logout ends the session.
func (s *Service) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		s.log.Error("ending session failed", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/login")
}

// renderForm shows a form again together with the messages of the failing fields.
func (s *Service) renderForm(c *gin.Context, name string, email string, fieldErrors map[string][]string) {
	c.HTML(http.StatusUnprocessableEntity, name, gin.H{
		"csrf":   csrfToken(c),
		"email":  email,
		"errors": fieldErrors,
	})
}

// renderFormError shows a form again for a validation error, or answers 500 for any other error.
func (s *Service) renderFormError(c *gin.Context, name string, email string, err error) {
	var fieldErrors *validation.ValidationErrors
	if errors.As(err, &fieldErrors) {
		s.renderForm(c, name, email, fieldErrors.Fields)
		return
	}
	s.log.Error("form submission failed", zap.Error(err), zap.String("form", name))
	c.HTML(http.StatusInternalServerError, name, gin.H{
		"csrf":   csrfToken(c),
		"email":  email,
		"errors": map[string][]string{"email": {"Something went wrong. Please try again."}},
	})
}
