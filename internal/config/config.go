// Package config reads the settings of the contacts service from the
// environment. A .env file in the working directory is loaded first if present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds the settings of the contacts service.
type Config struct {
	Port string `validate:"required,numeric"`

	DBHost     string `validate:"required"`
	DBUser     string `validate:"required"`
	DBPassword string
	DBName     string `validate:"required"`

	SessionSecret string   `validate:"required,min=32"`
	CorsOrigins   []string `validate:"dive,url"`

	// RequestLogging is false when GIN_LOGGING is "off".
	RequestLogging bool
	LogFile        string
	LogDev         bool
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	return FromEnv(os.Getenv)
}

// LoadDatabase is like Load but only requires the database settings.
func LoadDatabase() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	return DatabaseFromEnv(os.Getenv)
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// FromEnv builds and validates the configuration from the given lookup
// function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := read(getenv)
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DatabaseFromEnv builds the configuration and validates the database
// settings only.
func DatabaseFromEnv(getenv func(string) string) (Config, error) {
	cfg := read(getenv)
	if err := validator.New().StructPartial(cfg, "DBHost", "DBUser", "DBName"); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func read(getenv func(string) string) Config {
	cfg := Config{
		Port:           getenv("PORT"),
		DBHost:         getenv("DBHOST"),
		DBUser:         getenv("DBUSER"),
		DBPassword:     getenv("DBPWD"),
		DBName:         getenv("DBNAME"),
		SessionSecret:  getenv("SESSION_SECRET"),
		CorsOrigins:    splitList(getenv("CORS_ORIGINS")),
		RequestLogging: !strings.EqualFold(getenv("GIN_LOGGING"), "off"),
		LogFile:        getenv("LOG_FILE"),
		LogDev:         isTrue(getenv("LOG_DEV")),
	}
	if cfg.DBName == "" {
		cfg.DBName = "contacts"
	}
	return cfg
}

// Addr returns the listen address of the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// DSN returns the data source name for connecting to the MySQL database.
// Updates report matched rather than changed rows, so an update that leaves
// all values as they are still finds its row.
func (c Config) DSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.DBUser
	dsn.Passwd = c.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = c.DBHost
	dsn.DBName = c.DBName
	dsn.ParseTime = true
	dsn.ClientFoundRows = true
	return dsn.FormatDSN()
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
