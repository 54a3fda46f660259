package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/danielorbach/go-component"
	"github.com/peterbourgon/ff/v3/ffcli"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"

	"github.com/go-digitaltwin/hydrotwin/session"
	"github.com/go-digitaltwin/hydrotwin/solver"
)

func serveCommand() *ffcli.Command {
	fs := flag.NewFlagSet("hydrotwin serve", flag.ExitOnError)
	var model modelFlags
	model.register(fs)
	subModel := fs.String("submodel", "", "calibrate the sub-model rooted at `id` instead of the whole network")
	steps := fs.Int("steps", 0, "number of canonical timesteps (default: the model's)")

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "hydrotwin serve [-submodel id] (-model file | -network name)",
		ShortHelp:  "Solve the model for every calibration list received, publishing the sensor results",
		LongHelp: "Serve compiles the model with each calibration list received from CALIBRATIONS_URL\n" +
			"and has it solved by the remote solver behind SOLVER_REQUESTS_URL and SOLVER_REPLIES_URL.\n" +
			"One solve runs at a time; of the lists received meanwhile only the latest is solved next.\n" +
			"The simulated pressure of every sensor is published to RESULTS_URL.",
		FlagSet: fs,
		Exec: func(ctx context.Context, _ []string) error {
			var cfg ServeConfig
			if err := loadConfig(&cfg); err != nil {
				return err
			}
			m, err := model.load(ctx)
			if err != nil {
				return err
			}
			s, err := session.New(m)
			if err != nil {
				return err
			}
			if *steps > 0 {
				if err := s.SetSteps(*steps); err != nil {
					return err
				}
			}
			if *subModel != "" {
				if err := s.SelectSubModel(ctx, *subModel); err != nil {
					return err
				}
			}
			if err := s.Warm(ctx); err != nil {
				return err
			}
			return serve(ctx, cfg, s)
		},
	}
}

// serve runs the solver pipeline of s until the process is interrupted.
func serve(ctx context.Context, cfg ServeConfig, s *session.Session) error {
	component.Logger(ctx).Info("Serving",
		"model", s.Fingerprint().String(),
		"steps", s.Steps(),
		"calibrations", len(s.Calibrations()),
	)
	component.RunProc(func(l *component.L) {
		logger := component.Logger(l.Context())

		logger.Debug("Opening calibrations subscription...", slog.String("url", cfg.Calibrations))
		calibrations, err := pubsub.OpenSubscription(l.GraceContext(), cfg.Calibrations)
		if err != nil {
			l.Fatalf("open calibrations subscription: %v", err)
		}
		l.CleanupBackground(calibrations.Shutdown)

		logger.Debug("Opening results topic...", slog.String("url", cfg.Results))
		results, err := pubsub.OpenTopic(l.GraceContext(), cfg.Results)
		if err != nil {
			l.Fatalf("open results topic: %v", err)
		}
		l.CleanupContext(results.Shutdown)

		logger.Debug("Opening solver topics...", slog.String("requests", cfg.SolverRequests), slog.String("replies", cfg.SolverReplies))
		requests, err := pubsub.OpenTopic(l.GraceContext(), cfg.SolverRequests)
		if err != nil {
			l.Fatalf("open solver requests topic: %v", err)
		}
		l.CleanupContext(requests.Shutdown)
		replies, err := pubsub.OpenSubscription(l.GraceContext(), cfg.SolverReplies)
		if err != nil {
			l.Fatalf("open solver replies subscription: %v", err)
		}
		l.CleanupBackground(replies.Shutdown)
		logger.Info("Solver pipeline opened successfully")

		runner := solver.NewRunner(
			solver.NewRemote(requests, replies),
			solver.NewPublisher(results).Handler(),
		)
		// Solve once with the calibrations saved alongside the model, so results
		// are available before the first list arrives.
		runner.Submit(l.Context(), s.Request(l.Context()))

		l.Fork("runner", runner.Proc())
		l.Fork("calibrations", solver.Stream(calibrations, s.Recalibrate, runner))
	})
	return nil
}
