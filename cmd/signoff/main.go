package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alexanderramin/signoff/internal/cli"
	"github.com/alexanderramin/signoff/internal/cli/formatter"
	"github.com/alexanderramin/signoff/internal/config"
	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/repository"
	"github.com/alexanderramin/signoff/internal/service"
	"github.com/alexanderramin/signoff/internal/tracing"
	"github.com/alexanderramin/signoff/internal/workflow"
	"github.com/mattn/go-isatty"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(os.Getenv("SIGNOFF_CONFIG"))
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	// Plain output when piped.
	formatter.SetPlain(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()))

	if cfg.DB.Driver == "sqlite" && cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	database, dialect, err := db.Open(ctx, db.Options{
		Dialect: db.Dialect(cfg.DB.Driver),
		Path:    cfg.DB.Path,
		DSN:     cfg.DB.DSN,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	conn := db.Wrap(database, dialect)

	observers := []service.UseCaseObserver{service.NewSlogUseCaseObserver(logger)}
	engineOpts := []workflow.Option{workflow.WithLogger(logger)}
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(cfg.Service.Name, version, cfg.Tracing.Output)
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
		engineOpts = append(engineOpts, workflow.WithTracer(tracing.Tracer()))

		meters := tracing.NewMeters()
		meters.Install()
		metricsObs, err := service.NewMetricsUseCaseObserver(meters.Meter())
		if err != nil {
			return fmt.Errorf("initializing metrics: %w", err)
		}
		observers = append(observers, metricsObs)
		defer func() { _ = meters.Flush(context.Background(), logger) }()
	}

	engine := workflow.NewEngine(db.NewUnitOfWork(database, dialect), engineOpts...)
	stores := repository.NewStores(conn)

	app := &cli.App{
		Tasks:     service.NewTaskService(engine, conn, observers...),
		Flows:     service.NewFlowService(engine, conn, observers...),
		Directory: service.NewDirectoryService(stores.Principals, engine.Clock(), observers...),
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
