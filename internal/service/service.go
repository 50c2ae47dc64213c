// Package service provides the HTTP surface of the contact book: the JSON API
// under /api, the login and registration pages, and the application shell.
package service

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contactbook/internal/config"
	"gitlab.com/dirk.krummacker/contactbook/internal/logger"
	"gitlab.com/dirk.krummacker/contactbook/internal/policy"
	"gitlab.com/dirk.krummacker/contactbook/internal/store"
	"gitlab.com/dirk.krummacker/contactbook/internal/validation"
	apimodel "gitlab.com/dirk.krummacker/contactbook/pkg/model"
	"go.uber.org/zap"
)

// sessionCookie is the name of the cookie that carries the browser session.
const sessionCookie = "contactbook_session"

//go:embed templates/*.html
var templateFS embed.FS

// Service holds what the handlers need to answer requests.
type Service struct {
	log       *zap.Logger
	stores    *store.Stores
	validator *validation.Validator
}

// SetupHttpRouter initializes the router and registers all endpoints.
func SetupHttpRouter(cfg config.Config, log *zap.Logger, stores *store.Stores) *gin.Engine {
	s := &Service{
		log:       log,
		stores:    stores,
		validator: validation.New(),
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(s.recoverPanic))
	if cfg.RequestLogging {
		router.Use(logger.RequestLogger(log))
	} else {
		log.Info("Turning off HTTP request logging.")
	}
	if len(cfg.CorsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CorsOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", logger.RequestIDHeader},
			ExposeHeaders:    []string{logger.RequestIDHeader, "Location"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	router.GET("/health", s.health)

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((2 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	web := router.Group("/", sessions.Sessions(sessionCookie, sessionStore))
	web.GET("/", s.showApp)
	web.GET("/login", s.showLogin)
	web.POST("/login", verifyCSRF, s.login)
	web.GET("/register", s.showRegister)
	web.POST("/register", verifyCSRF, s.register)
	web.POST("/logout", verifyCSRF, s.logout)

	api := router.Group("/api", s.authenticate)
	api.GET("/contacts", s.findContacts)
	api.POST("/contacts", s.createContact)
	api.GET("/contact/:id", s.findContactByID)
	api.PATCH("/contact/:id", s.updateContactByID)
	api.DELETE("/contact/:id", s.deleteContactByID)

	return router
}

// health reports whether the database can be reached.
//
// Example REST API call:
//
//	> curl http://localhost:8080/health
func (s *Service) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.stores.Ping(ctx); err != nil {
		s.log.Warn("database not reachable", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError answers the request with the status code that belongs to err. Errors without a
// known meaning are logged and answered with 500.
func (s *Service) respondError(c *gin.Context, err error) {
	var fieldErrors *validation.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &fieldErrors):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, apimodel.Error{
			Message: "The given data was invalid.",
			Errors:  fieldErrors.Fields,
		})
	case errors.As(err, &tooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": "request body too large"})
	case errors.Is(err, validation.ErrMalformedBody):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
	case errors.Is(err, policy.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "This action is unauthorized."})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
	case errors.Is(err, store.ErrInvalidOrder):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid orderby parameter"})
	default:
		_ = c.Error(err)
		s.log.Error("request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}

// recoverPanic turns a panic in a handler into a logged 500 response.
func (s *Service) recoverPanic(c *gin.Context, recovered any) {
	s.log.Error("panic while handling request", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}
