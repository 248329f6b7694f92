package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"vinatravel/internal/config"
	"vinatravel/internal/infra"
	"vinatravel/internal/models/db_models"
	"vinatravel/internal/repositories"
	"vinatravel/internal/services"
	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

// env carries what every command needs.
type env struct {
	ctx  context.Context
	sync services.SyncServiceInterface
	out  io.Writer
}

type statsCmd struct{}

func (statsCmd) Run(e *env) error {
	stats, err := e.sync.GetSyncStats(e.ctx)
	if err != nil {
		return err
	}
	return printJSON(e.out, stats)
}

type retryCmd struct{}

func (retryCmd) Run(e *env) error {
	summary, err := e.sync.RetryFailed(e.ctx)
	if err != nil {
		return err
	}
	return printJSON(e.out, summary)
}

type reconcileCmd struct{}

func (reconcileCmd) Run(e *env) error {
	summary, err := e.sync.Reconcile(e.ctx)
	if err != nil {
		return err
	}
	return printJSON(e.out, summary)
}

type syncOneCmd struct {
	ID string `help:"Partner place id." required:""`
}

func (c syncOneCmd) Run(e *env) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", c.ID, err)
	}
	if err := e.sync.SyncByID(e.ctx, id); err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.out, "synced %s as %s\n", id, db_models.IndexIDFor(id))
	return err
}

var cli struct {
	Timeout time.Duration `help:"Overall command timeout." default:"5m"`
	Verbose bool          `help:"Log to stdout and the log file." short:"v"`

	Stats     statsCmd     `cmd:"" help:"Show sync counts and sync rate."`
	Retry     retryCmd     `cmd:"" help:"Run one sync batch over pending and retryable places."`
	Reconcile reconcileCmd `cmd:"" help:"Remove orphaned index entries and re-queue missing ones."`
	SyncOne   syncOneCmd   `cmd:"" name:"sync-one" help:"Sync a single place now, ignoring the retry ceiling."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("synctl"),
		kong.Description("Operate the partner place vector index sync."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cli.Timeout)
	defer cancel()

	cfg := config.Load()
	var log logger.ILogger = logger.NewNop()
	if cli.Verbose {
		log = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	}

	db, err := infra.InitPostgresql(cfg)
	kctx.FatalIfErrorf(err)
	defer infra.ClosePostgresql(db)

	embedder, err := utils.NewEmbeddingClient(ctx, cfg.Embedding.Provider, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	kctx.FatalIfErrorf(err)
	if closer, ok := embedder.(io.Closer); ok {
		defer closer.Close()
	}

	sync := services.NewSyncService(
		repositories.NewPartnerPlaceRepository(db),
		repositories.NewVectorIndexRepository(db),
		embedder,
		log,
		cfg.Sync.BatchSize,
		cfg.Sync.MaxRetries,
	)

	err = kctx.Run(&env{ctx: ctx, sync: sync, out: os.Stdout})
	kctx.FatalIfErrorf(err)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
