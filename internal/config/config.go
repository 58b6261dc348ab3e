// Package config loads the service's environment configuration. All
// keys are optional, per SPEC_FULL.md §6; defaults keep a local
// developer unblocked without a .env file.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// App is the full set of recognised environment keys, prefixed
// TALLER_ (e.g. TALLER_DB_HOST).
type App struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME" default:"taller_mendoza"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Workers sets the worker thread count: the max number of open DB
	// connections, one per concurrently in-flight request at most.
	Workers int `envconfig:"WORKERS" default:"10"`

	// RequestDeadline is read from the environment but is not applied
	// anywhere: cmd/server sets no per-request deadline from it.
	RequestDeadline time.Duration `envconfig:"REQUEST_DEADLINE" default:"5s"`

	// RedisURL is optional; when empty, the Redis notifier is not
	// wired and only the in-memory notifier runs.
	RedisURL       string `envconfig:"REDIS_URL"`
	NotifierStream string `envconfig:"NOTIFIER_STREAM" default:"turnos.stream"`
}

// DSN builds a libpq-style connection string from the DB fields.
func (a App) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		a.DBHost, a.DBPort, a.DBName, a.DBUser, a.DBPassword, a.DBSSLMode)
}

// Load reads and validates the App config from the environment, under
// the TALLER_ prefix.
func Load() (App, error) {
	var c App
	if err := envconfig.Process("taller", &c); err != nil {
		return App{}, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}
