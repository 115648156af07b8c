package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/feed"
	"github.com/alanyoungcy/fpmm-indexer/internal/indexer"
	"github.com/alanyoungcy/fpmm-indexer/internal/pipeline"
	"github.com/alanyoungcy/fpmm-indexer/internal/platform/goldsky"
)

// newHandler builds the event handler over the wired stores. Every mode that
// consumes events shares this construction.
func (a *App) newHandler(deps *Dependencies) *indexer.Handler {
	return indexer.NewHandler(indexer.Deps{
		Markets:    deps.Markets,
		Conditions: deps.Conditions,
		Trades:     deps.Trades,
		Fundings:   deps.Fundings,
		Transfers:  deps.Transfers,
		Registry:   deps.Registry,
		Ledger:     deps.Ledger,
		Global:     deps.Global,
		Scaler:     deps.Scaler,
		Logger:     a.logger,
	})
}

// PollMode drains the Goldsky subgraph on an interval, resuming from the
// Redis checkpoint, and runs the archival cron alongside when enabled.
func (a *App) PollMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting poll mode",
		slog.Duration("interval", a.cfg.Pipeline.PollInterval.Duration),
		slog.Int("batch_size", a.cfg.Pipeline.BatchSize),
	)

	source := goldsky.NewClient(a.cfg.Goldsky.URL, a.cfg.Goldsky.APIKey)
	handler := a.newHandler(deps)
	poller := pipeline.NewPoller(source, handler, deps.Cursor, a.cfg.Pipeline.BatchSize, a.logger)

	var archiver *pipeline.Archiver
	archiveCron := ""
	if a.cfg.Pipeline.ArchiveEnabled && deps.Archiver != nil {
		archiver = pipeline.NewArchiver(deps.Archiver, a.cfg.Pipeline.ArchiveRetentionDays, a.logger)
		archiveCron = a.cfg.Pipeline.ArchiveCron
	}

	orch := pipeline.NewOrchestrator(poller, archiver, a.cfg.Pipeline.PollInterval.Duration, archiveCron, a.logger)
	return orch.Run(ctx)
}

// StreamMode consumes the websocket event feed and applies each event as it
// arrives. The cursor is advanced per event so a crashed stream consumer can
// fall back to poll mode without replaying from genesis.
func (a *App) StreamMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting stream mode", slog.String("ws_url", a.cfg.Feed.WsURL))

	handler := a.newHandler(deps)
	stream := feed.NewStream(a.cfg.Feed.WsURL, func(ctx context.Context, ev domain.Event) error {
		if err := handler.Handle(ctx, ev); err != nil {
			return err
		}
		if err := deps.Cursor.Set(ctx, ev.BlockNumber, ev.LogIndex); err != nil {
			return fmt.Errorf("app: saving cursor: %w", err)
		}
		return nil
	}, a.logger)

	return stream.Run(ctx)
}

// ArchiveMode runs a single cold-storage archive pass and exits. It backs
// scheduled one-shot jobs where the cron lives outside the process.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Int("retention_days", a.cfg.Pipeline.ArchiveRetentionDays),
	)

	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires s3 configuration")
	}
	archiver := pipeline.NewArchiver(deps.Archiver, a.cfg.Pipeline.ArchiveRetentionDays, a.logger)
	return archiver.Run(ctx)
}

// MigrateMode applies database migrations and exits. Wire already ran them
// when postgres.run_migrations is on; this mode exists so deployments can
// migrate explicitly with run_migrations off elsewhere.
func (a *App) MigrateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "migrations applied")
	return nil
}
