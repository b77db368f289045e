package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fleet/config"
	"github.com/rustyeddy/fleet/instance"
	"github.com/rustyeddy/fleet/journal"
	"github.com/rustyeddy/fleet/manager"
	"github.com/rustyeddy/fleet/portfolio"
	"github.com/rustyeddy/fleet/proc"
	"github.com/rustyeddy/fleet/strategy"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Manage a fleet of trading-strategy processes",
	Long: `Fleet runs registered trading strategies as independent OS processes and
aggregates their on-disk run logs into portfolio analytics.

It provides tools for:
  - Registering strategy instances and starting/stopping them individually or in bulk
  - Surviving manager restarts via PID-based reconciliation
  - Parsing each run's value/trade/order/data logs into typed series
  - Portfolio-wide overview, positions, trades, equity curve and allocation
  - Archiving completed runs to SQLite and compressing old log directories`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./fleet.yaml)")
}

// app wires the full dependency graph once per invocation. Everything is
// passed explicitly; there is no global manager singleton.
type app struct {
	cfg     *config.Config
	catalog *strategy.DirCatalog
	mgr     *manager.Manager
	jrnl    *journal.SQLite
}

func newApp() (*app, error) {
	cfg := config.Default()
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("fleet.yaml"); err == nil {
			path = "fleet.yaml"
		}
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	setupLogger(cfg.Logging)

	catalog := strategy.NewDirCatalog(cfg.Strategies.Root, cfg.Strategies.EntryPoint)
	store := instance.NewStore(cfg.State.File)

	var jrnl *journal.SQLite
	var rec journal.Recorder
	if cfg.Journal.DBPath != "" {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, err
		}
		jrnl = j
		rec = j
	}

	stopTimeout, err := cfg.ParseStopTimeout()
	if err != nil {
		return nil, err
	}

	mgr := manager.New(store, proc.NewSupervisor(), catalog, manager.Options{
		StopTimeout: stopTimeout,
		Interpreter: cfg.Strategies.Interpreter,
		Journal:     rec,
	})

	return &app{cfg: cfg, catalog: catalog, mgr: mgr, jrnl: jrnl}, nil
}

func (a *app) Close() {
	if a.jrnl != nil {
		_ = a.jrnl.Close()
	}
}

func (a *app) aggregator() *portfolio.Aggregator {
	return portfolio.New(a.mgr, a.catalog)
}

// setupLogger configures the default slog handler from config.
func setupLogger(lc config.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToUpper(lc.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
