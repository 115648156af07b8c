package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// ArchiveImpl implements domain.Archiver: aged trade rows are serialized to
// JSONL, uploaded to S3, and then deleted from the primary store. The upload
// happens before the delete so a failed run never loses data. Keys carry a
// part suffix when the month's base object already exists, so a later run in
// the same month never clobbers rows archived by an earlier one.
type ArchiveImpl struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	trades domain.TradeStore
	logger *slog.Logger
}

// NewArchiver creates an ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, trades domain.TradeStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		reader: reader,
		trades: trades,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// tradeRecord is the archived JSON shape. Amounts are decimal strings so the
// archive round-trips 256-bit values exactly.
type tradeRecord struct {
	ID                  string    `json:"id"`
	Kind                string    `json:"kind"`
	MarketID            string    `json:"marketId"`
	User                string    `json:"user"`
	TradeAmount         string    `json:"tradeAmount"`
	FeeAmount           string    `json:"feeAmount"`
	NetTradeAmount      string    `json:"netTradeAmount"`
	OutcomeIndex        int       `json:"outcomeIndex"`
	OutcomeTokensAmount string    `json:"outcomeTokensAmount"`
	Timestamp           time.Time `json:"timestamp"`
	TxHash              string    `json:"txHash"`
	LogIndex            uint      `json:"logIndex"`
}

// ArchiveTrades uploads all trades older than the cutoff to
// archive/trades/YYYY-MM.jsonl and deletes them from the store. It returns
// the number of archived rows.
func (a *ArchiveImpl) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	records := make([]tradeRecord, len(trades))
	for i, t := range trades {
		records[i] = tradeRecord{
			ID:                  t.ID,
			Kind:                string(t.Kind),
			MarketID:            t.MarketID,
			User:                t.User,
			TradeAmount:         bigString(t.TradeAmount),
			FeeAmount:           bigString(t.FeeAmount),
			NetTradeAmount:      bigString(t.NetTradeAmount),
			OutcomeIndex:        t.OutcomeIndex,
			OutcomeTokensAmount: bigString(t.OutcomeTokensAmount),
			Timestamp:           t.Timestamp,
			TxHash:              t.TxHash,
			LogIndex:            t.LogIndex,
		}
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path, err := a.freePath(ctx, "trades", before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades key: %w", err)
	}
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades delete: %w", err)
	}

	a.logger.Info("trades archived",
		slog.String("path", path),
		slog.Int("uploaded", len(trades)),
		slog.Int64("deleted", deleted),
	)
	return int64(len(trades)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2025-01.jsonl
//	archive/trades/2025-01-2.jsonl  (second run in the same month)
func archivePath(kind string, before time.Time, part int) string {
	if part > 1 {
		return fmt.Sprintf("archive/%s/%s-%d.jsonl", kind, before.Format("2006-01"), part)
	}
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// freePath returns the first unoccupied archive key for the month.
func (a *ArchiveImpl) freePath(ctx context.Context, kind string, before time.Time) (string, error) {
	for part := 1; ; part++ {
		path := archivePath(kind, before, part)
		exists, err := a.reader.Exists(ctx, path)
		if err != nil {
			return "", err
		}
		if !exists {
			return path, nil
		}
	}
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

var _ domain.Archiver = (*ArchiveImpl)(nil)
