package s3blob_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	s3blob "github.com/alanyoungcy/fpmm-indexer/internal/blob/s3"
	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/store/memory"
)

type captureWriter struct {
	path string
	data []byte
}

func (w *captureWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	w.path = path
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.data = b
	return nil
}

// fakeReader reports a fixed set of occupied keys.
type fakeReader struct {
	occupied map[string]bool
}

func (r *fakeReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (r *fakeReader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	return nil, nil
}

func (r *fakeReader) Exists(ctx context.Context, path string) (bool, error) {
	return r.occupied[path], nil
}

func TestArchiveTradesUploadsThenDeletes(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	old := domain.Trade{
		ID:                  "0xaaa-0-buy",
		Kind:                domain.TradeKindBuy,
		MarketID:            "0x00000000000000000000000000000000000000bb",
		User:                "0x00000000000000000000000000000000000000dd",
		TradeAmount:         big.NewInt(10),
		FeeAmount:           big.NewInt(1),
		NetTradeAmount:      big.NewInt(9),
		OutcomeTokensAmount: big.NewInt(6),
		Timestamp:           cutoff.Add(-24 * time.Hour),
		TxHash:              "0xaaa",
	}
	recent := old.Clone()
	recent.ID = "0xbbb-0-buy"
	recent.TxHash = "0xbbb"
	recent.Timestamp = cutoff.Add(24 * time.Hour)

	if err := st.Trades().Insert(ctx, old); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if err := st.Trades().Insert(ctx, recent); err != nil {
		t.Fatalf("insert recent: %v", err)
	}

	writer := &captureWriter{}
	archiver := s3blob.NewArchiver(writer, &fakeReader{}, st.Trades(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}
	if n != 1 {
		t.Errorf("archived count = %d, want 1", n)
	}
	if got, want := writer.path, "archive/trades/2025-06.jsonl"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}

	// One JSONL line with string amounts.
	scanner := bufio.NewScanner(bytes.NewReader(writer.data))
	var lines int
	for scanner.Scan() {
		lines++
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line %d: %v", lines, err)
		}
		if rec["tradeAmount"] != "10" {
			t.Errorf("tradeAmount = %v, want \"10\"", rec["tradeAmount"])
		}
	}
	if lines != 1 {
		t.Errorf("jsonl lines = %d, want 1", lines)
	}

	// The old row is gone, the recent one stays.
	if _, err := st.Trades().Get(ctx, old.ID); err == nil {
		t.Error("archived trade still in store")
	}
	if _, err := st.Trades().Get(ctx, recent.ID); err != nil {
		t.Errorf("recent trade missing: %v", err)
	}
}

func TestArchiveTradesSkipsOccupiedKeys(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	cutoff := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tr := domain.Trade{
		ID:          "0xccc-0-sell",
		Kind:        domain.TradeKindSell,
		MarketID:    "0x00000000000000000000000000000000000000bb",
		User:        "0x00000000000000000000000000000000000000dd",
		TradeAmount: big.NewInt(5),
		Timestamp:   cutoff.Add(-time.Hour),
		TxHash:      "0xccc",
	}
	if err := st.Trades().Insert(ctx, tr); err != nil {
		t.Fatalf("insert: %v", err)
	}

	writer := &captureWriter{}
	reader := &fakeReader{occupied: map[string]bool{
		"archive/trades/2025-06.jsonl":   true,
		"archive/trades/2025-06-2.jsonl": true,
	}}
	archiver := s3blob.NewArchiver(writer, reader, st.Trades(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := archiver.ArchiveTrades(ctx, cutoff); err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}
	if got, want := writer.path, "archive/trades/2025-06-3.jsonl"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestArchiveTradesEmpty(t *testing.T) {
	st := memory.New()
	writer := &captureWriter{}
	archiver := s3blob.NewArchiver(writer, &fakeReader{}, st.Trades(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := archiver.ArchiveTrades(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
	if writer.path != "" {
		t.Errorf("upload happened for empty set: %q", writer.path)
	}
}
