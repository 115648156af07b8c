package collateral_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/alanyoungcy/fpmm-indexer/internal/collateral"
	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

const usdc = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"

func TestStaticScaler(t *testing.T) {
	s := collateral.NewStaticScaler(map[string]uint8{usdc: 6})

	scale, err := s.ScaleOf(context.Background(), usdc)
	if err != nil {
		t.Fatalf("ScaleOf: %v", err)
	}
	if got, want := scale.Int64(), int64(1_000_000); got != want {
		t.Errorf("scale = %d, want %d", got, want)
	}

	// Case-insensitive per address normalization.
	if _, err := s.ScaleOf(context.Background(), "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"); err != nil {
		t.Errorf("checksummed lookup: %v", err)
	}

	if _, err := s.ScaleOf(context.Background(), "0x00000000000000000000000000000000000000ff"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown token error = %v, want ErrNotFound", err)
	}
}

type countingScaler struct {
	calls int
	scale *big.Int
}

func (c *countingScaler) ScaleOf(ctx context.Context, token string) (*big.Int, error) {
	c.calls++
	return new(big.Int).Set(c.scale), nil
}

func TestMemoResolvesOnce(t *testing.T) {
	inner := &countingScaler{scale: big.NewInt(1_000_000)}
	m := collateral.NewMemo(inner)

	for i := 0; i < 3; i++ {
		scale, err := m.ScaleOf(context.Background(), usdc)
		if err != nil {
			t.Fatalf("ScaleOf: %v", err)
		}
		if got, want := scale.Int64(), int64(1_000_000); got != want {
			t.Fatalf("scale = %d, want %d", got, want)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner resolver calls = %d, want 1", inner.calls)
	}
}

func TestFallback(t *testing.T) {
	static := collateral.NewStaticScaler(map[string]uint8{usdc: 6})
	secondary := &countingScaler{scale: big.NewInt(1_000_000_000_000_000_000)}
	f := collateral.NewFallback(static, secondary)

	scale, err := f.ScaleOf(context.Background(), usdc)
	if err != nil {
		t.Fatalf("ScaleOf: %v", err)
	}
	if got, want := scale.Int64(), int64(1_000_000); got != want {
		t.Errorf("scale = %d, want %d", got, want)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary consulted for a static token %d times", secondary.calls)
	}

	other := "0x00000000000000000000000000000000000000ff"
	scale, err = f.ScaleOf(context.Background(), other)
	if err != nil {
		t.Fatalf("ScaleOf fallback: %v", err)
	}
	if scale.Cmp(secondary.scale) != 0 {
		t.Errorf("fallback scale = %s, want %s", scale, secondary.scale)
	}
	if secondary.calls != 1 {
		t.Errorf("secondary calls = %d, want 1", secondary.calls)
	}
}
