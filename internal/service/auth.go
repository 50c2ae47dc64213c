package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contactbook/internal/logger"
	"gitlab.com/dirk.krummacker/contactbook/internal/model"
	"gitlab.com/dirk.krummacker/contactbook/internal/store"
	"gitlab.com/dirk.krummacker/contactbook/internal/validation"
)

// requesterKey is the gin context key of the authenticated user.
const requesterKey = "requester"

// maxBodyBytes limits the size of request bodies that are read into memory.
const maxBodyBytes = 1 << 20

// authenticate resolves the API token of the request to a user. The token is taken from the
// Authorization header, the api_token URL parameter or an api_token field in a JSON body, in this
// order. Requests without a valid token do not reach the handlers.
func (s *Service) authenticate(c *gin.Context) {
	token, err := apiToken(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if token == "" {
		unauthenticated(c)
		return
	}
	user, err := s.stores.Users.FindByToken(c.Request.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		unauthenticated(c)
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Set(requesterKey, user)
	c.Set(logger.UserIDKey, user.Id)
	c.Next()
}

// requester returns the user that was resolved by authenticate.
func requester(c *gin.Context) model.User {
	return c.MustGet(requesterKey).(model.User)
}

// unauthenticated sends browsers to the login page and answers all other clients with 401.
func unauthenticated(c *gin.Context) {
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
}

// apiToken extracts the API token from the request. A body that is read for this purpose is put
// back for the handler.
func apiToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):]), nil
	}
	if token := c.Query("api_token"); token != "" {
		return token, nil
	}
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return "", nil
	}

	body, err := readBody(c)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	var payload struct {
		ApiToken string `json:"api_token"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	return payload.ApiToken, nil
}

// readBody reads the request body up to maxBodyBytes. A larger body yields an *http.MaxBytesError,
// any other read failure counts as a malformed body.
func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err == nil {
		return body, nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", validation.ErrMalformedBody, err)
}
