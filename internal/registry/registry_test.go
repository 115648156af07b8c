package registry_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/registry"
	"github.com/alanyoungcy/fpmm-indexer/internal/store/memory"
)

const testAccount = "0x00000000000000000000000000000000000000aa"

var (
	t0 = time.Unix(1_700_000_000, 0).UTC()
	t1 = t0.Add(time.Hour)
)

func newRegistry() (*registry.Registry, *memory.Store) {
	st := memory.New()
	return registry.New(st.Accounts()), st
}

func TestRequireIsIdempotent(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()

	first, err := r.Require(ctx, testAccount, t0)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if !first.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen = %v, want %v", first.FirstSeen, t0)
	}

	// A later Require must not reset the first-seen timestamp.
	again, err := r.Require(ctx, testAccount, t1)
	if err != nil {
		t.Fatalf("Require again: %v", err)
	}
	if !again.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen after second Require = %v, want %v", again.FirstSeen, t0)
	}
}

func TestRequireNormalizesAddress(t *testing.T) {
	r, st := newRegistry()
	ctx := context.Background()

	upper := "0x00000000000000000000000000000000000000AA"
	if _, err := r.Require(ctx, upper, t0); err != nil {
		t.Fatalf("Require: %v", err)
	}
	if _, err := st.Accounts().Get(ctx, testAccount); err != nil {
		t.Errorf("mixed-case address stored under separate id: %v", err)
	}
}

func TestMarkSeenForwardOnly(t *testing.T) {
	r, st := newRegistry()
	ctx := context.Background()

	if err := r.MarkSeen(ctx, testAccount, t1); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := r.MarkSeen(ctx, testAccount, t0); err != nil {
		t.Fatalf("MarkSeen older: %v", err)
	}

	account, _ := st.Accounts().Get(ctx, testAccount)
	if !account.LastSeen.Equal(t1) {
		t.Errorf("LastSeen = %v, want %v", account.LastSeen, t1)
	}
}

func TestIncrementTrades(t *testing.T) {
	r, st := newRegistry()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.IncrementTrades(ctx, testAccount, t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("IncrementTrades: %v", err)
		}
	}
	account, _ := st.Accounts().Get(ctx, testAccount)
	if got, want := account.TradesQuantity, int64(3); got != want {
		t.Errorf("TradesQuantity = %d, want %d", got, want)
	}
}

func TestRecordVolumeAccumulates(t *testing.T) {
	r, st := newRegistry()
	ctx := context.Background()
	scale := big.NewInt(1_000_000)

	if err := r.RecordVolume(ctx, testAccount, big.NewInt(2_000_000), scale, t0); err != nil {
		t.Fatalf("RecordVolume: %v", err)
	}
	if err := r.RecordVolume(ctx, testAccount, big.NewInt(500_000), scale, t0); err != nil {
		t.Fatalf("RecordVolume: %v", err)
	}

	account, _ := st.Accounts().Get(ctx, testAccount)
	if got, want := account.CollateralVolume.Int64(), int64(2_500_000); got != want {
		t.Errorf("CollateralVolume = %d, want %d", got, want)
	}
	if got, want := account.ScaledCollateralVolume, 2.5; got != want {
		t.Errorf("ScaledCollateralVolume = %v, want %v", got, want)
	}
}

func TestApplyInvestmentSignedLedger(t *testing.T) {
	r, st := newRegistry()
	ctx := context.Background()

	if _, err := r.Require(ctx, testAccount, t0); err != nil {
		t.Fatalf("Require: %v", err)
	}

	// Buy 100 gross with a 5 fee: +95.
	if err := r.ApplyInvestment(ctx, testAccount, big.NewInt(100), big.NewInt(5), domain.TradeKindBuy); err != nil {
		t.Fatalf("buy investment: %v", err)
	}
	// Sell 200 gross with a 5 fee: -205. Net goes negative.
	if err := r.ApplyInvestment(ctx, testAccount, big.NewInt(200), big.NewInt(5), domain.TradeKindSell); err != nil {
		t.Fatalf("sell investment: %v", err)
	}

	account, _ := st.Accounts().Get(ctx, testAccount)
	if got, want := account.InvestmentAmount.Int64(), int64(-110); got != want {
		t.Errorf("InvestmentAmount = %d, want %d", got, want)
	}
}

func TestApplyInvestmentRequiresExistingAccount(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()

	err := r.ApplyInvestment(ctx, testAccount, big.NewInt(100), big.NewInt(5), domain.TradeKindBuy)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("investment on unknown account error = %v, want ErrNotFound", err)
	}
}
