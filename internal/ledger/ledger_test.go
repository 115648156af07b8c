package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/ledger"
	"github.com/alanyoungcy/fpmm-indexer/internal/store/memory"
)

const (
	testAccount = "0x00000000000000000000000000000000000000aa"
	testMarket  = "0x00000000000000000000000000000000000000bb"
	testOther   = "0x00000000000000000000000000000000000000cc"
)

var testQuestion = domain.NormalizeHash("0x01")

func newLedger() (*ledger.Ledger, *memory.Store) {
	st := memory.New()
	return ledger.New(st.Positions(), st.Memberships()), st
}

func big64(v int64) *big.Int { return big.NewInt(v) }

func TestApplyTradeBuyCreatesBothRows(t *testing.T) {
	l, st := newLedger()
	ctx := context.Background()

	err := l.ApplyTrade(ctx, testAccount, testMarket, testQuestion, 1, big64(95), big64(40), domain.TradeKindBuy)
	if err != nil {
		t.Fatalf("ApplyTrade: %v", err)
	}

	holding, err := st.Positions().GetHolding(ctx, testAccount, testMarket)
	if err != nil {
		t.Fatalf("GetHolding: %v", err)
	}
	if got, want := holding.Tokens.Int64(), int64(40); got != want {
		t.Errorf("holding tokens = %d, want %d", got, want)
	}
	if holding.QuestionID != testQuestion {
		t.Errorf("holding question = %q, want %q", holding.QuestionID, testQuestion)
	}

	pos, err := st.Positions().GetOutcomePosition(ctx, testAccount, testMarket, 1)
	if err != nil {
		t.Fatalf("GetOutcomePosition: %v", err)
	}
	if got, want := pos.Tokens.Int64(), int64(40); got != want {
		t.Errorf("position tokens = %d, want %d", got, want)
	}
	if got, want := pos.InvestmentAmount.Int64(), int64(95); got != want {
		t.Errorf("position investment = %d, want %d", got, want)
	}
}

func TestApplyTradeSellReducesBothRows(t *testing.T) {
	l, st := newLedger()
	ctx := context.Background()

	if err := l.ApplyTrade(ctx, testAccount, testMarket, testQuestion, 0, big64(100), big64(50), domain.TradeKindBuy); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := l.ApplyTrade(ctx, testAccount, testMarket, testQuestion, 0, big64(30), big64(20), domain.TradeKindSell); err != nil {
		t.Fatalf("sell: %v", err)
	}

	holding, _ := st.Positions().GetHolding(ctx, testAccount, testMarket)
	if got, want := holding.Tokens.Int64(), int64(30); got != want {
		t.Errorf("holding tokens = %d, want %d", got, want)
	}
	pos, _ := st.Positions().GetOutcomePosition(ctx, testAccount, testMarket, 0)
	if got, want := pos.Tokens.Int64(), int64(30); got != want {
		t.Errorf("position tokens = %d, want %d", got, want)
	}
	if got, want := pos.InvestmentAmount.Int64(), int64(70); got != want {
		t.Errorf("position investment = %d, want %d", got, want)
	}
}

func TestApplyTradeOversellRejectedAtomically(t *testing.T) {
	l, st := newLedger()
	ctx := context.Background()

	if err := l.ApplyTrade(ctx, testAccount, testMarket, testQuestion, 0, big64(100), big64(50), domain.TradeKindBuy); err != nil {
		t.Fatalf("buy: %v", err)
	}

	err := l.ApplyTrade(ctx, testAccount, testMarket, testQuestion, 0, big64(200), big64(60), domain.TradeKindSell)
	if !errors.Is(err, domain.ErrNegativeBalance) {
		t.Fatalf("oversell error = %v, want ErrNegativeBalance", err)
	}

	// Neither row may have moved.
	holding, _ := st.Positions().GetHolding(ctx, testAccount, testMarket)
	if got, want := holding.Tokens.Int64(), int64(50); got != want {
		t.Errorf("holding tokens after rejected sell = %d, want %d", got, want)
	}
	pos, _ := st.Positions().GetOutcomePosition(ctx, testAccount, testMarket, 0)
	if got, want := pos.Tokens.Int64(), int64(50); got != want {
		t.Errorf("position tokens after rejected sell = %d, want %d", got, want)
	}
	if got, want := pos.InvestmentAmount.Int64(), int64(100); got != want {
		t.Errorf("position investment after rejected sell = %d, want %d", got, want)
	}
}

func TestApplyTradeOutcomesAreIndependent(t *testing.T) {
	l, st := newLedger()
	ctx := context.Background()

	if err := l.ApplyTrade(ctx, testAccount, testMarket, testQuestion, 0, big64(10), big64(5), domain.TradeKindBuy); err != nil {
		t.Fatalf("buy outcome 0: %v", err)
	}
	if err := l.ApplyTrade(ctx, testAccount, testMarket, testQuestion, 1, big64(20), big64(7), domain.TradeKindBuy); err != nil {
		t.Fatalf("buy outcome 1: %v", err)
	}

	// Selling more than outcome 0 holds must fail even though outcome 1
	// has tokens to spare.
	err := l.ApplyTrade(ctx, testAccount, testMarket, testQuestion, 0, big64(12), big64(6), domain.TradeKindSell)
	if !errors.Is(err, domain.ErrNegativeBalance) {
		t.Fatalf("cross-outcome sell error = %v, want ErrNegativeBalance", err)
	}

	holding, _ := st.Positions().GetHolding(ctx, testAccount, testMarket)
	if got, want := holding.Tokens.Int64(), int64(12); got != want {
		t.Errorf("holding tokens = %d, want %d", got, want)
	}
}

func TestTransferPoolShares(t *testing.T) {
	l, st := newLedger()
	ctx := context.Background()

	// Mint: zero-address source side is skipped.
	if err := l.TransferPoolShares(ctx, testMarket, domain.ZeroAddress, testAccount, big64(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	m, err := st.Memberships().Get(ctx, testMarket, testAccount)
	if err != nil {
		t.Fatalf("Get membership: %v", err)
	}
	if got, want := m.Amount.Int64(), int64(100); got != want {
		t.Errorf("minted amount = %d, want %d", got, want)
	}
	if _, err := st.Memberships().Get(ctx, testMarket, domain.ZeroAddress); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("zero-address membership exists after mint, err = %v", err)
	}

	// Peer transfer moves both sides.
	if err := l.TransferPoolShares(ctx, testMarket, testAccount, testOther, big64(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	from, _ := st.Memberships().Get(ctx, testMarket, testAccount)
	to, _ := st.Memberships().Get(ctx, testMarket, testOther)
	if got, want := from.Amount.Int64(), int64(60); got != want {
		t.Errorf("sender amount = %d, want %d", got, want)
	}
	if got, want := to.Amount.Int64(), int64(40); got != want {
		t.Errorf("receiver amount = %d, want %d", got, want)
	}

	// Burn: zero-address destination side is skipped.
	if err := l.TransferPoolShares(ctx, testMarket, testOther, domain.ZeroAddress, big64(40)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	burned, _ := st.Memberships().Get(ctx, testMarket, testOther)
	if got := burned.Amount.Sign(); got != 0 {
		t.Errorf("burned membership sign = %d, want 0", got)
	}
}
