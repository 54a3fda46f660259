package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// LogConfig selects the log handler installed for every command.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
}

// StoreConfig locates the Neo4j database models are saved in.
type StoreConfig struct {
	URI      string `envconfig:"NEO4J_URI" validate:"required,uri"`
	Username string `envconfig:"NEO4J_USERNAME"`
	Password string `envconfig:"NEO4J_PASSWORD"`
	Database string `envconfig:"NEO4J_DATABASE" default:"neo4j" validate:"required"`
}

// ServeConfig names the pubsub endpoints of the solver pipeline. Values are
// gocloud.dev URLs, such as "mem://calibrations" or "kafka://group?topic=x".
type ServeConfig struct {
	// Calibration lists to solve for.
	Calibrations string `envconfig:"CALIBRATIONS_URL" validate:"required"`
	// Per-sensor results.
	Results string `envconfig:"RESULTS_URL" validate:"required"`
	// Requests to, and replies from, the remote solver.
	SolverRequests string `envconfig:"SOLVER_REQUESTS_URL" validate:"required"`
	SolverReplies  string `envconfig:"SOLVER_REPLIES_URL" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// loadConfig populates cfg from the environment and validates it. A .env file
// is loaded once by main before any command runs.
func loadConfig(cfg any) error {
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}
	return nil
}

func newLogger(cfg LogConfig) *slog.Logger {
	var level slog.Level
	// Validated already, so the error is impossible.
	_ = level.UnmarshalText([]byte(strings.ToUpper(cfg.Level)))
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
