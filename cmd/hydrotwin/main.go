// Command hydrotwin compiles, decomposes and calibrates hydraulic network
// models.
//
// Usage:
//
//	hydrotwin compile -model network.json > network.inp
//	hydrotwin compile -model network.json -submodel H42
//	hydrotwin submodels -model network.json
//	hydrotwin extract -model network.json -id H42 > h42.json
//	hydrotwin align -model network.json -steps 96
//	hydrotwin import -model network.json -name north
//	hydrotwin serve -network north
//	hydrotwin watch -network north
//
// Commands reading a model accept either -model, a JSON file ("-" for
// stdin), or -network, the name of a model saved in Neo4j.
//
// Configuration is read from the environment, or a .env file in the working
// directory. LOG_LEVEL and LOG_FORMAT apply to every command; NEO4J_URI,
// NEO4J_USERNAME, NEO4J_PASSWORD and NEO4J_DATABASE to the commands touching
// the store; serve additionally needs CALIBRATIONS_URL, RESULTS_URL,
// SOLVER_REQUESTS_URL and SOLVER_REPLIES_URL, and watch needs RESULTS_URL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielorbach/go-component"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func main() {
	// A missing .env file is fine; the environment may be set already.
	_ = godotenv.Load()

	var logCfg LogConfig
	if err := loadConfig(&logCfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := newLogger(logCfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = component.InjectLogger(ctx, logger)

	root := &ffcli.Command{
		ShortUsage: "hydrotwin <command> [flags]",
		Subcommands: []*ffcli.Command{
			compileCommand(),
			subModelsCommand(),
			extractCommand(),
			alignCommand(),
			importCommand(),
			serveCommand(),
			watchCommand(),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
			os.Exit(2)
		}
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
