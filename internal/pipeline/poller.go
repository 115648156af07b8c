package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// EventSource fetches ordered on-chain events after a stream position.
// It is implemented by the Goldsky subgraph client.
type EventSource interface {
	FetchEvents(ctx context.Context, afterBlock uint64, afterLogIndex uint, first int) ([]domain.Event, error)
}

// EventHandler applies one event to market state.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// Poller drains an EventSource in (blockNumber, logIndex) order and feeds
// each event into the handler, checkpointing the cursor after every applied
// event so a restart resumes without reprocessing.
type Poller struct {
	source    EventSource
	handler   EventHandler
	cursor    domain.CursorStore
	batchSize int
	logger    *slog.Logger
}

// NewPoller creates a new Poller. batchSize bounds a single subgraph page.
func NewPoller(source EventSource, handler EventHandler, cursor domain.CursorStore, batchSize int, logger *slog.Logger) *Poller {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Poller{
		source:    source,
		handler:   handler,
		cursor:    cursor,
		batchSize: batchSize,
		logger:    logger,
	}
}

// RunLoop polls on a fixed interval until the context is cancelled. The first
// poll happens immediately. A failed poll is logged and retried on the next
// tick rather than stopping the loop.
func (p *Poller) RunLoop(ctx context.Context, interval time.Duration) error {
	p.logger.Info("event poller started", slog.Duration("interval", interval))

	if n, err := p.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Error("poll failed", slog.String("error", err.Error()))
	} else if n > 0 {
		p.logger.Info("poll complete", slog.Int("events", n))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event poller stopped")
			return ctx.Err()
		case <-ticker.C:
			n, err := p.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Error("poll failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				p.logger.Info("poll complete", slog.Int("events", n))
			}
		}
	}
}

// RunOnce drains the source from the last checkpoint to the head, applying
// events in order. It returns the number of events applied. The cursor is
// advanced after each event, so a mid-batch failure resumes exactly where it
// stopped.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	block, logIndex, err := p.cursor.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("pipeline: loading cursor: %w", err)
	}

	applied := 0
	for {
		events, err := p.source.FetchEvents(ctx, block, logIndex, p.batchSize)
		if err != nil {
			return applied, fmt.Errorf("pipeline: fetching events after %d:%d: %w", block, logIndex, err)
		}
		if len(events) == 0 {
			return applied, nil
		}

		for _, ev := range events {
			if err := p.handler.Handle(ctx, ev); err != nil {
				return applied, fmt.Errorf("pipeline: handling event %s: %w", ev.ID(), err)
			}
			if err := p.cursor.Set(ctx, ev.BlockNumber, ev.LogIndex); err != nil {
				return applied, fmt.Errorf("pipeline: saving cursor at %d:%d: %w", ev.BlockNumber, ev.LogIndex, err)
			}
			block, logIndex = ev.BlockNumber, ev.LogIndex
			applied++
		}

		if len(events) < p.batchSize {
			return applied, nil
		}
	}
}
