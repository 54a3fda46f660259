package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"os"
	"slices"
	"time"

	"github.com/danielorbach/go-component"
	"github.com/peterbourgon/ff/v3/ffcli"
	"gocloud.dev/pubsub"

	"github.com/go-digitaltwin/hydrotwin/session"
	"github.com/go-digitaltwin/hydrotwin/solver"
)

// WatchConfig names the topic serve publishes results to.
type WatchConfig struct {
	Results string `envconfig:"RESULTS_URL" validate:"required"`
}

func watchCommand() *ffcli.Command {
	fs := flag.NewFlagSet("hydrotwin watch", flag.ExitOnError)
	var model modelFlags
	model.register(fs)
	subModel := fs.String("submodel", "", "compare against the sub-model rooted at `id`")
	steps := fs.Int("steps", 0, "number of canonical timesteps (default: the model's)")
	every := fs.Duration("every", 5*time.Second, "how often to check for new results")

	return &ffcli.Command{
		Name:       "watch",
		ShortUsage: "hydrotwin watch [-every 5s] (-model file | -network name)",
		ShortHelp:  "Report how far the published results are from the live data",
		LongHelp: "Watch follows the results published to RESULTS_URL and, for every new solve,\n" +
			"prints the root-mean-square difference between the simulated and the aligned\n" +
			"live-data pressure of each sensor.",
		FlagSet: fs,
		Exec: func(ctx context.Context, _ []string) error {
			var cfg WatchConfig
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
			a, err := s.Alignment(ctx)
			if err != nil {
				return err
			}
			watch(cfg, a.Series, *every)
			return nil
		},
	}
}

// watch tracks published results until the process is interrupted, reporting
// the residuals of each new request against observed.
func watch(cfg WatchConfig, observed map[string][]float64, every time.Duration) {
	var results solver.ResultMap
	component.RunProc(func(l *component.L) {
		logger := component.Logger(l.Context())
		logger.Debug("Opening results subscription...", slog.String("url", cfg.Results))
		source, err := pubsub.OpenSubscription(l.GraceContext(), cfg.Results)
		if err != nil {
			l.Fatalf("open results subscription: %v", err)
		}
		l.CleanupBackground(source.Shutdown)

		l.Fork("track results", results.Track(source))
		l.Go("report residuals", func(l *component.L) {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			var reported string
			for l.Continue() {
				select {
				case <-l.Context().Done():
					return
				case <-ticker.C:
				}
				id, failure := results.Request()
				if id == "" || id == reported {
					continue
				}
				reported = id
				writeResiduals(os.Stdout, id, failure, results.Residuals(observed))
			}
		})
	})
}

// writeResiduals prints one line per sensor, sorted by sensor id.
func writeResiduals(w io.Writer, request, failure string, residuals map[string][]float64) {
	if failure != "" {
		fmt.Fprintf(w, "%s: failed: %s\n", request, failure)
		return
	}
	for _, id := range slices.Sorted(maps.Keys(residuals)) {
		rms, n := rootMeanSquare(residuals[id])
		if n == 0 {
			fmt.Fprintf(w, "%s: %s: no overlapping readings\n", request, id)
			continue
		}
		fmt.Fprintf(w, "%s: %s: rms %.3f over %d steps\n", request, id, rms, n)
	}
}

// rootMeanSquare ignores NaN entries and reports how many values it used.
func rootMeanSquare(values []float64) (float64, int) {
	var sum float64
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v * v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return math.Sqrt(sum / float64(n)), n
}
