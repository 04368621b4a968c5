package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/timmy/eulergen/internal/api"
	"github.com/timmy/eulergen/internal/app"
	"github.com/timmy/eulergen/internal/config"
	"github.com/timmy/eulergen/internal/logger"
	"github.com/timmy/eulergen/internal/metrics"
)

// Globals are shared by every subcommand.
type Globals struct {
	Config      string `short:"c" help:"Configuration file path" env:"CONFIG_PATH"`
	Destination string `short:"d" help:"Override generator.destination"`
	MetricsAddr string `help:"Serve /metrics on this address while generating (e.g. :9090)"`
	SnapshotDir string `help:"Read saved pages from this directory instead of the live site"`
	Record      bool   `help:"Save fetched pages into --snapshot-dir"`
	Verbose     bool   `short:"v" help:"Enable debug logging"`
}

// CLI definition
type CLI struct {
	Globals

	All AllCmd `cmd:"" help:"Generate stubs for every problem until the source runs out"`
	One OneCmd `cmd:"" help:"Generate the stub of a single problem"`
}

// AllCmd walks all problems in batches.
type AllCmd struct{}

// OneCmd generates a single problem.
type OneCmd struct {
	ID        int  `required:"" help:"Problem number"`
	Overwrite bool `help:"Replace an existing stub"`
}

type session struct {
	ctx   context.Context
	log   *logger.Logger
	comps *app.Components
}

func (g *Globals) setup(ctx context.Context) (*session, func(), error) {
	envCfg := logger.LoadFromEnv()
	if g.Verbose {
		envCfg.Level = "debug"
	}
	envCfg.ServiceName = "eulergen-generate"
	log := logger.NewFromEnv(envCfg)
	logger.SetDefaultLogger(log)

	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.Destination != "" {
		cfg.Generator.Destination = g.Destination
	}
	if g.MetricsAddr != "" {
		cfg.Metrics.Addr = g.MetricsAddr
	}
	if g.SnapshotDir != "" {
		cfg.Source.SnapshotDir = g.SnapshotDir
		cfg.Source.Record = g.Record
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var pr *metrics.PrometheusRecorder
	if cfg.Metrics.Addr != "" {
		pr = metrics.NewPrometheusRecorder(nil)
		recorder = pr
	}

	comps, err := app.Build(ctx, cfg, log, recorder)
	if err != nil {
		return nil, nil, err
	}

	var srv *http.Server
	if pr != nil {
		srv = serveMetrics(cfg.Metrics.Addr, pr, log)
	}

	cleanup := func() {
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
		if err := comps.Close(); err != nil {
			log.WithError(err).Warn("Failed to close run ledger")
		}
	}
	return &session{ctx: log.WithContext(ctx), log: log, comps: comps}, cleanup, nil
}

// serveMetrics exposes /metrics on addr until the returned server is shut down.
func serveMetrics(addr string, pr *metrics.PrometheusRecorder, log *logger.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.SetupRouter(api.RouterConfig{Mode: "release", Logger: log, Metrics: pr.Handler()}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics listener stopped")
		}
	}()
	return srv
}

// Run executes the batch generation.
func (c *AllCmd) Run(g *Globals, ctx context.Context) error {
	rt, cleanup, err := g.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := rt.comps.Generator.GenerateAll(rt.ctx)
	if err != nil {
		return err
	}
	if stats.Canceled {
		rt.log.WithField("last_generated", stats.HighWater).Warn("Generation interrupted")
	}
	return nil
}

// Run generates one problem.
func (c *OneCmd) Run(g *Globals, ctx context.Context) error {
	if c.ID < 1 {
		return fmt.Errorf("problem number must be positive, got %d", c.ID)
	}
	rt, cleanup, err := g.setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := rt.comps.Generator.Generate(rt.ctx, c.ID, c.Overwrite)
	if err != nil {
		return err
	}
	entry := rt.log.WithFields(logger.Fields{
		logger.FieldProblemID: outcome.ID,
		logger.FieldStatus:    outcome.Status(),
		logger.FieldPath:      outcome.Path,
	})
	if !outcome.Continue {
		if outcome.Err != nil {
			return fmt.Errorf("problem %d: %w", c.ID, outcome.Err)
		}
		return fmt.Errorf("problem %d was not generated: page %s", c.ID, outcome.Class)
	}
	entry.Info("Problem generated")
	return nil
}

func main() {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("eulergen"),
		kong.Description("Generate Go solution stubs for Project Euler problems."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&cli.Globals)
	if err != nil {
		logger.GetDefault().WithError(err).Error("Generation failed")
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}
