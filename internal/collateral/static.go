package collateral

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// StaticScaler serves scales from a fixed table. It backs dry-run mode and
// tests, and doubles as the config-supplied override for chains where the
// collateral set is known up front.
type StaticScaler struct {
	scales map[string]*big.Int
}

// NewStaticScaler builds a StaticScaler from a token -> decimals table.
func NewStaticScaler(decimals map[string]uint8) *StaticScaler {
	scales := make(map[string]*big.Int, len(decimals))
	for token, d := range decimals {
		scales[domain.NormalizeAddress(token)] = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil)
	}
	return &StaticScaler{scales: scales}
}

// ScaleOf returns the configured scale or ErrNotFound.
func (s *StaticScaler) ScaleOf(ctx context.Context, token string) (*big.Int, error) {
	scale, ok := s.scales[domain.NormalizeAddress(token)]
	if !ok {
		return nil, fmt.Errorf("collateral: no configured scale for %s: %w", token, domain.ErrNotFound)
	}
	return new(big.Int).Set(scale), nil
}

// Memo wraps a scaler with an in-process cache. Token decimals never change,
// so entries live for the process lifetime.
type Memo struct {
	inner domain.CollateralScaler

	mu     sync.RWMutex
	scales map[string]*big.Int
}

// NewMemo creates a memoizing wrapper around inner.
func NewMemo(inner domain.CollateralScaler) *Memo {
	return &Memo{inner: inner, scales: make(map[string]*big.Int)}
}

// ScaleOf returns the cached scale, resolving through the inner scaler on
// first sight of a token.
func (m *Memo) ScaleOf(ctx context.Context, token string) (*big.Int, error) {
	token = domain.NormalizeAddress(token)

	m.mu.RLock()
	scale, ok := m.scales[token]
	m.mu.RUnlock()
	if ok {
		return new(big.Int).Set(scale), nil
	}

	scale, err := m.inner.ScaleOf(ctx, token)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.scales[token] = new(big.Int).Set(scale)
	m.mu.Unlock()
	return new(big.Int).Set(scale), nil
}

// Fallback tries the primary scaler and, when it reports ErrNotFound, falls
// through to the secondary. Any other error from the primary is final.
type Fallback struct {
	primary   domain.CollateralScaler
	secondary domain.CollateralScaler
}

// NewFallback chains two scalers, typically a configured static table in
// front of the on-chain resolver.
func NewFallback(primary, secondary domain.CollateralScaler) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// ScaleOf resolves via the primary, then the secondary on a miss.
func (f *Fallback) ScaleOf(ctx context.Context, token string) (*big.Int, error) {
	scale, err := f.primary.ScaleOf(ctx, token)
	if err == nil {
		return scale, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return f.secondary.ScaleOf(ctx, token)
}

var (
	_ domain.CollateralScaler = (*StaticScaler)(nil)
	_ domain.CollateralScaler = (*Memo)(nil)
	_ domain.CollateralScaler = (*Fallback)(nil)
)
