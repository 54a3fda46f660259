package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/danielorbach/go-component"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/go-digitaltwin/hydrotwin"
	"github.com/go-digitaltwin/hydrotwin/neo4jstore"
	"github.com/go-digitaltwin/hydrotwin/session"
)

// modelFlags are shared by every command reading a model.
type modelFlags struct {
	path    string
	network string
}

func (f *modelFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "model", "", "read the model from a JSON `file` (- for stdin)")
	fs.StringVar(&f.network, "network", "", "load the model saved under `name` in neo4j")
}

func (f *modelFlags) load(ctx context.Context) (*hydrotwin.Model, error) {
	switch {
	case f.path != "" && f.network != "":
		return nil, errors.New("-model and -network are mutually exclusive")
	case f.network != "":
		store, closeStore, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer closeStore()
		return store.LoadModel(ctx, f.network)
	case f.path == "-":
		return hydrotwin.ReadModel(os.Stdin)
	case f.path != "":
		file, err := os.Open(f.path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return hydrotwin.ReadModel(file)
	default:
		return nil, errors.New("one of -model or -network is required")
	}
}

// openStore connects to the configured Neo4j database. The returned function
// closes the connection.
func openStore(ctx context.Context) (*neo4jstore.Store, func(), error) {
	var cfg StoreConfig
	if err := loadConfig(&cfg); err != nil {
		return nil, nil, err
	}
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, nil, fmt.Errorf("open neo4j driver: %w", err)
	}
	closeDriver := func() {
		if err := driver.Close(context.WithoutCancel(ctx)); err != nil {
			component.Logger(ctx).Error("Failed to close neo4j driver", "error", err)
		}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		closeDriver()
		return nil, nil, fmt.Errorf("connect to neo4j: %w", err)
	}
	if err := neo4jstore.BootstrapDatabase(ctx, driver, cfg.Database); err != nil {
		closeDriver()
		return nil, nil, fmt.Errorf("bootstrap %q: %w", cfg.Database, err)
	}
	return neo4jstore.NewStore(driver, cfg.Database), closeDriver, nil
}

// output returns the named file, or stdout for "" and "-".
func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func compileCommand() *ffcli.Command {
	fs := flag.NewFlagSet("hydrotwin compile", flag.ExitOnError)
	var model modelFlags
	model.register(fs)
	subModel := fs.String("submodel", "", "compile the sub-model rooted at `id` instead of the whole network")
	out := fs.String("o", "", "write the solver input to `file` instead of stdout")

	return &ffcli.Command{
		Name:       "compile",
		ShortUsage: "hydrotwin compile [-submodel id] [-o file] -model file",
		ShortHelp:  "Compile a model, with its saved calibrations, into solver input",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			m, err := model.load(ctx)
			if err != nil {
				return err
			}
			s, err := session.New(m)
			if err != nil {
				return err
			}
			if *subModel != "" {
				if err := s.SelectSubModel(ctx, *subModel); err != nil {
					return err
				}
			}
			w, err := output(*out)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, s.Compile(ctx)); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		},
	}
}

func subModelsCommand() *ffcli.Command {
	fs := flag.NewFlagSet("hydrotwin submodels", flag.ExitOnError)
	var model modelFlags
	model.register(fs)
	tree := fs.Bool("tree", false, "print the whole trace tree as JSON")

	return &ffcli.Command{
		Name:       "submodels",
		ShortUsage: "hydrotwin submodels [-tree] -model file",
		ShortHelp:  "List the virtual heads a model decomposes into",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			m, err := model.load(ctx)
			if err != nil {
				return err
			}
			s, err := session.New(m)
			if err != nil {
				return err
			}
			if *tree {
				t, err := s.Tree(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(t)
			}
			ids, err := s.SubModels(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func extractCommand() *ffcli.Command {
	fs := flag.NewFlagSet("hydrotwin extract", flag.ExitOnError)
	var model modelFlags
	model.register(fs)
	id := fs.String("id", "", "the virtual head `id` to root the sub-model at")
	out := fs.String("o", "", "write the sub-model to `file` instead of stdout")

	return &ffcli.Command{
		Name:       "extract",
		ShortUsage: "hydrotwin extract -id id [-o file] -model file",
		ShortHelp:  "Extract the sub-model rooted at a virtual head",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			if *id == "" {
				return errors.New("-id is required")
			}
			m, err := model.load(ctx)
			if err != nil {
				return err
			}
			s, err := session.New(m)
			if err != nil {
				return err
			}
			if err := s.SelectSubModel(ctx, *id); err != nil {
				return err
			}
			w, err := output(*out)
			if err != nil {
				return err
			}
			if err := s.Export().WriteJSON(w); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		},
	}
}

// alignedSeries is the printed form of one aligned sensor, NaN entries being
// written as null.
type alignedSeries struct {
	SensorID string     `json:"sensor_id"`
	Values   []*float64 `json:"values,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func alignCommand() *ffcli.Command {
	fs := flag.NewFlagSet("hydrotwin align", flag.ExitOnError)
	var model modelFlags
	model.register(fs)
	steps := fs.Int("steps", hydrotwin.DefaultSteps, "number of canonical timesteps")

	return &ffcli.Command{
		Name:       "align",
		ShortUsage: "hydrotwin align [-steps n] -model file",
		ShortHelp:  "Align the live data of a model onto the canonical timeline",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			m, err := model.load(ctx)
			if err != nil {
				return err
			}
			s, err := session.New(m)
			if err != nil {
				return err
			}
			if err := s.SetSteps(*steps); err != nil {
				return err
			}
			a, err := s.Alignment(ctx)
			if err != nil {
				return err
			}

			sensors := make([]alignedSeries, 0, len(a.Series)+len(a.Failures))
			for id, series := range a.Series {
				values := make([]*float64, len(series))
				for i, v := range series {
					if !math.IsNaN(v) {
						values[i] = &v
					}
				}
				sensors = append(sensors, alignedSeries{SensorID: id, Values: values})
			}
			for _, f := range a.Failures {
				sensors = append(sensors, alignedSeries{SensorID: f.SensorID, Error: f.Err.Error()})
			}
			slices.SortFunc(sensors, func(x, y alignedSeries) int {
				return strings.Compare(x.SensorID, y.SensorID)
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Start    time.Time       `json:"start"`
				Interval string          `json:"interval"`
				Sensors  []alignedSeries `json:"sensors"`
			}{a.Start, hydrotwin.StepInterval.String(), sensors})
		},
	}
}

func importCommand() *ffcli.Command {
	fs := flag.NewFlagSet("hydrotwin import", flag.ExitOnError)
	path := fs.String("model", "", "read the model from a JSON `file` (- for stdin)")
	name := fs.String("name", "", "save the model under `name`")
	remove := fs.Bool("delete", false, "delete the model saved under -name instead")

	return &ffcli.Command{
		Name:       "import",
		ShortUsage: "hydrotwin import -name name (-model file | -delete)",
		ShortHelp:  "Save a model in neo4j, replacing any saved under the same name",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			if *name == "" {
				return errors.New("-name is required")
			}
			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			if *remove {
				return store.DeleteModel(ctx, *name)
			}
			m, err := (&modelFlags{path: *path}).load(ctx)
			if err != nil {
				return err
			}
			if err := store.SaveModel(ctx, *name, m); err != nil {
				return err
			}
			component.Logger(ctx).Info("Model imported",
				"network", *name,
				"features", len(m.Features),
				"model", hydrotwin.MustFingerprint(m).String(),
			)
			return nil
		},
	}
}
