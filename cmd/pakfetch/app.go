package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/adamwoolhether/pakfetch"
	"github.com/adamwoolhether/pakfetch/batch"
	"github.com/adamwoolhether/pakfetch/client"
	"github.com/adamwoolhether/pakfetch/config"
	"github.com/adamwoolhether/pakfetch/manifest"
	"github.com/adamwoolhether/pakfetch/progress"
	"github.com/adamwoolhether/pakfetch/web/server"
	"github.com/adamwoolhether/pakfetch/web/status"
)

const (
	doneMessage = "All the resources are downloaded!"
	pausePrompt = "Press any key to continue..."
)

type app struct {
	in  io.Reader
	out io.Writer

	cfg        config.Config
	configFile string
	envFiles   []string
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{
		in:  in,
		out: out,
		cfg: config.Default(),
	}
}

func (a *app) run(ctx context.Context, flags *pflag.FlagSet) error {
	if err := a.cfg.Load(config.Sources{
		File:     a.configFile,
		EnvFiles: a.envFiles,
		Flags:    flags,
	}); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := a.cfg

	mode, err := progress.ParseMode(cfg.Progress)
	if err != nil {
		return err
	}

	// The log renderer reads the logger lazily; it is built below once the
	// aggregator's writer exists.
	logger := slog.Default()
	agg, err := progress.New(a.out, mode, progress.WithLogger(func() *slog.Logger { return logger }))
	if err != nil {
		return fmt.Errorf("building progress: %w", err)
	}

	logOut := agg.Writer()
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger = cfg.NewLogger(logOut)

	m, err := manifest.Load(cfg.Manifest, manifest.Options{
		Variant: manifest.Variant(cfg.Variant),
		DestDir: cfg.DestDir,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		logger.Error("loading manifest", "path", cfg.Manifest, "error", err)
		return err
	}
	logger.Debug("manifest loaded", "path", cfg.Manifest, "entries", m.Len(), "total_bytes", m.TotalSize())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, err := pakfetch.New(
		pakfetch.WithConcurrency(cfg.Concurrency),
		pakfetch.WithPollInterval(cfg.PollInterval),
		pakfetch.WithHash(cfg.Hash),
		pakfetch.WithAttemptTimeout(cfg.AttemptTimeout),
		pakfetch.WithClientOptions(client.WithUserAgent(cfg.UserAgent)),
		pakfetch.WithProgress(agg),
		pakfetch.WithRegisterer(reg),
		pakfetch.WithLogger(logger),
	)
	if err != nil {
		logger.Error("building engine", "error", err)
		return err
	}

	report, err := a.runBatch(ctx, logger, engine, agg, reg, m)
	if err != nil {
		logger.Error("batch failed", "error", err)
		return err
	}
	logger.Debug("batch report", "run_id", report.RunID, "downloaded", report.Downloaded, "attempts", report.Attempts)

	fmt.Fprintln(a.out, doneMessage)

	if a.shouldPause() {
		if err := progress.WaitForKey(a.in, a.out, pausePrompt); err != nil {
			return err
		}
	}

	return nil
}

// runBatch runs the batch with progress rendering and, when configured,
// the status server alongside it. A server that cannot listen cancels the
// batch.
func (a *app) runBatch(ctx context.Context, logger *slog.Logger, engine *pakfetch.Engine, agg *progress.Aggregator, reg *prometheus.Registry, m *manifest.Manifest) (batch.Report, error) {
	g, gctx := errgroup.WithContext(ctx)
	srvCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	if a.cfg.Listen != "" {
		srv := server.New(status.NewRouter(status.Config{
			Source:   engine,
			Gatherer: reg,
			Logger:   logger,
		}),
			server.WithHost(a.cfg.Listen),
			server.WithLogger(logger),
		)
		g.Go(func() error {
			return srv.Run(srvCtx)
		})
	}

	var report batch.Report
	g.Go(func() error {
		defer stopServer()

		agg.Start(gctx)
		defer agg.Stop()

		var err error
		report, err = engine.Run(gctx, m)
		return err
	})

	return report, g.Wait()
}

func (a *app) shouldPause() bool {
	switch a.cfg.Pause {
	case "always":
		return true
	case "never":
		return false
	default:
		return progress.IsTTY(a.in)
	}
}
