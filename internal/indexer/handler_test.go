package indexer_test

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/aggregator"
	"github.com/alanyoungcy/fpmm-indexer/internal/collateral"
	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/indexer"
	"github.com/alanyoungcy/fpmm-indexer/internal/ledger"
	"github.com/alanyoungcy/fpmm-indexer/internal/registry"
	"github.com/alanyoungcy/fpmm-indexer/internal/store/memory"
)

const (
	marketAddr  = "0x00000000000000000000000000000000000000bb"
	creatorAddr = "0x00000000000000000000000000000000000000aa"
	funderAddr  = "0x00000000000000000000000000000000000000cc"
	traderAddr  = "0x00000000000000000000000000000000000000dd"
	usdcAddr    = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"
)

var (
	conditionID = domain.NormalizeHash("0x0c")
	questionID  = domain.NormalizeHash("0x01")
	baseTime    = time.Unix(1_700_000_000, 0).UTC()
)

type fixture struct {
	handler *indexer.Handler
	store   *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	h := indexer.NewHandler(indexer.Deps{
		Markets:    st,
		Conditions: st.Conditions(),
		Trades:     st.Trades(),
		Fundings:   st.Fundings(),
		Transfers:  st.Transfers(),
		Registry:   registry.New(st.Accounts()),
		Ledger:     ledger.New(st.Positions(), st.Memberships()),
		Global:     aggregator.NewGlobal(st.Volumes(), st.Prices()),
		Scaler:     collateral.NewStaticScaler(map[string]uint8{usdcAddr: 6}),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{handler: h, store: st}
}

func (f *fixture) prepareCondition(t *testing.T, slots int) {
	t.Helper()
	err := f.store.Conditions().Save(context.Background(), domain.Condition{
		ID:               conditionID,
		OutcomeSlotCount: slots,
	})
	if err != nil {
		t.Fatalf("save condition: %v", err)
	}
}

func (f *fixture) handle(t *testing.T, ev domain.Event) {
	t.Helper()
	if err := f.handler.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle %s: %v", ev.ID(), err)
	}
}

func creationEvent() domain.Event {
	return domain.Event{
		Kind:          domain.EventMarketCreated,
		MarketAddress: marketAddr,
		BlockNumber:   100,
		LogIndex:      0,
		TxHash:        "0xf000",
		Timestamp:     baseTime,
		Created: &domain.MarketCreated{
			ConditionID:      conditionID,
			QuestionID:       questionID,
			CollateralToken:  usdcAddr,
			Creator:          creatorAddr,
			Fee:              big.NewInt(0),
			OutcomeSlotCount: 2,
			TokenName:        "FPMM Shares",
			TokenSymbol:      "FPMM",
		},
	}
}

func fundingEvent(tx string, amounts []int64, minted int64) domain.Event {
	added := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		added[i] = big.NewInt(a)
	}
	return domain.Event{
		Kind:          domain.EventFundingAdded,
		MarketAddress: marketAddr,
		BlockNumber:   101,
		LogIndex:      1,
		TxHash:        tx,
		Timestamp:     baseTime.Add(time.Minute),
		FundingAdded: &domain.FundingAdded{
			Funder:       funderAddr,
			AmountsAdded: added,
			SharesMinted: big.NewInt(minted),
		},
	}
}

func buyEvent(tx string, logIndex uint, investment, fee, tokens int64, outcome int) domain.Event {
	return domain.Event{
		Kind:          domain.EventBuy,
		MarketAddress: marketAddr,
		BlockNumber:   102,
		LogIndex:      logIndex,
		TxHash:        tx,
		Timestamp:     baseTime.Add(2 * time.Minute),
		Buy: &domain.Buy{
			Buyer:               traderAddr,
			InvestmentAmount:    big.NewInt(investment),
			FeeAmount:           big.NewInt(fee),
			NetInvestmentAmount: big.NewInt(investment - fee),
			OutcomeIndex:        outcome,
			OutcomeTokensBought: big.NewInt(tokens),
			QuestionID:          questionID,
			TotalTradeVolume:    big.NewInt(investment),
		},
	}
}

func TestCreationRequiresPreparedCondition(t *testing.T) {
	f := newFixture(t)

	// No condition prepared: the event is dropped without creating state.
	f.handle(t, creationEvent())
	if _, err := f.store.Get(context.Background(), marketAddr); err == nil {
		t.Fatal("market created despite missing condition")
	}

	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())

	market, err := f.store.Get(context.Background(), marketAddr)
	if err != nil {
		t.Fatalf("Get market: %v", err)
	}
	if market.OutcomeSlotCount != 2 {
		t.Errorf("OutcomeSlotCount = %d, want 2", market.OutcomeSlotCount)
	}
	if got := len(market.OutcomeTokenAmounts); got != 2 {
		t.Errorf("reserve vector length = %d, want 2", got)
	}

	condition, err := f.store.Conditions().Get(context.Background(), conditionID)
	if err != nil {
		t.Fatalf("Get condition: %v", err)
	}
	if len(condition.MarketIDs) != 1 || condition.MarketIDs[0] != marketAddr {
		t.Errorf("condition market links = %v, want [%s]", condition.MarketIDs, marketAddr)
	}
}

func TestCreationSlotCountMismatchRejected(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 3)

	// Mismatch is a data fault: logged, swallowed, no market row.
	f.handle(t, creationEvent())
	if _, err := f.store.Get(context.Background(), marketAddr); err == nil {
		t.Fatal("market created despite slot count mismatch")
	}
}

func TestBootstrapFundingSetsPrices(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())
	f.handle(t, fundingEvent("0xf001", []int64{100, 100}, 100))

	market, _ := f.store.Get(context.Background(), marketAddr)
	half := big.NewRat(1, 2)
	for i, p := range market.OutcomeTokenPrices {
		if p.Cmp(half) != 0 {
			t.Errorf("price[%d] = %s, want 1/2", i, p.RatString())
		}
	}
	if got, want := market.LiquidityParameter.Int64(), int64(100); got != want {
		t.Errorf("liquidity parameter = %d, want %d", got, want)
	}
	if got, want := market.TotalSupply.Int64(), int64(100); got != want {
		t.Errorf("total supply = %d, want %d", got, want)
	}

	record, err := f.store.Fundings().GetAddition(context.Background(), "0xf001-1-funding_added")
	if err != nil {
		t.Fatalf("GetAddition: %v", err)
	}
	for i, r := range record.AmountsRefunded {
		if r.Sign() != 0 {
			t.Errorf("refund[%d] = %s, want 0 for balanced funding", i, r)
		}
	}
}

func TestBuyUpdatesAllViews(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())
	f.handle(t, fundingEvent("0xf001", []int64{100, 100}, 100))
	f.handle(t, buyEvent("0xf002", 3, 10, 0, 6, 1))

	ctx := context.Background()
	market, _ := f.store.Get(ctx, marketAddr)

	if got, want := market.OutcomeTokenAmounts[0].Int64(), int64(110); got != want {
		t.Errorf("reserve[0] = %d, want %d", got, want)
	}
	if got, want := market.OutcomeTokenAmounts[1].Int64(), int64(104); got != want {
		t.Errorf("reserve[1] = %d, want %d", got, want)
	}
	if got, want := market.TradesQuantity, int64(1); got != want {
		t.Errorf("TradesQuantity = %d, want %d", got, want)
	}
	if got, want := market.CollateralBuyVolume.Int64(), int64(10); got != want {
		t.Errorf("CollateralBuyVolume = %d, want %d", got, want)
	}

	trade, err := f.store.Trades().Get(ctx, "0xf002-3-buy")
	if err != nil {
		t.Fatalf("Get trade: %v", err)
	}
	if trade.Kind != domain.TradeKindBuy {
		t.Errorf("trade kind = %q, want buy", trade.Kind)
	}

	account, err := f.store.Accounts().Get(ctx, traderAddr)
	if err != nil {
		t.Fatalf("Get account: %v", err)
	}
	if got, want := account.TradesQuantity, int64(1); got != want {
		t.Errorf("account trades = %d, want %d", got, want)
	}
	if got, want := account.CollateralVolume.Int64(), int64(10); got != want {
		t.Errorf("account volume = %d, want %d", got, want)
	}
	if got, want := account.InvestmentAmount.Int64(), int64(10); got != want {
		t.Errorf("account investment = %d, want %d", got, want)
	}

	pos, err := f.store.Positions().GetOutcomePosition(ctx, traderAddr, marketAddr, 1)
	if err != nil {
		t.Fatalf("GetOutcomePosition: %v", err)
	}
	if got, want := pos.Tokens.Int64(), int64(6); got != want {
		t.Errorf("position tokens = %d, want %d", got, want)
	}

	global, err := f.store.Volumes().GetGlobal(ctx)
	if err != nil {
		t.Fatalf("GetGlobal: %v", err)
	}
	if got, want := global.TradesQuantity, int64(1); got != want {
		t.Errorf("global trades = %d, want %d", got, want)
	}

	pv, err := f.store.Volumes().GetPlayerVolume(ctx, questionID)
	if err != nil {
		t.Fatalf("GetPlayerVolume: %v", err)
	}
	if got, want := pv.TotalVolume.Int64(), int64(10); got != want {
		t.Errorf("player volume = %d, want %d", got, want)
	}
}

func TestDuplicateTradeIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())
	f.handle(t, fundingEvent("0xf001", []int64{100, 100}, 100))

	ev := buyEvent("0xf002", 3, 10, 0, 6, 1)
	f.handle(t, ev)
	f.handle(t, ev) // replay

	market, _ := f.store.Get(context.Background(), marketAddr)
	if got, want := market.TradesQuantity, int64(1); got != want {
		t.Errorf("TradesQuantity after replay = %d, want %d", got, want)
	}
	account, _ := f.store.Accounts().Get(context.Background(), traderAddr)
	if got, want := account.CollateralVolume.Int64(), int64(10); got != want {
		t.Errorf("account volume after replay = %d, want %d", got, want)
	}
}

func TestSameTxDistinctLogIndexBothApply(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())
	f.handle(t, fundingEvent("0xf001", []int64{1000, 1000}, 1000))

	f.handle(t, buyEvent("0xf002", 3, 10, 0, 6, 1))
	f.handle(t, buyEvent("0xf002", 7, 10, 0, 6, 1))

	market, _ := f.store.Get(context.Background(), marketAddr)
	if got, want := market.TradesQuantity, int64(2); got != want {
		t.Errorf("TradesQuantity = %d, want %d", got, want)
	}
}

func TestOversellRejectsWholeEvent(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())
	f.handle(t, fundingEvent("0xf001", []int64{100, 100}, 100))
	f.handle(t, buyEvent("0xf002", 3, 10, 0, 6, 1))

	ctx := context.Background()
	before, _ := f.store.Get(ctx, marketAddr)

	// Trader holds 6 tokens of outcome 1 and tries to sell 60.
	sell := domain.Event{
		Kind:          domain.EventSell,
		MarketAddress: marketAddr,
		BlockNumber:   103,
		LogIndex:      1,
		TxHash:        "0xf003",
		Timestamp:     baseTime.Add(3 * time.Minute),
		Sell: &domain.Sell{
			Seller:            traderAddr,
			ReturnAmount:      big.NewInt(50),
			FeeAmount:         big.NewInt(0),
			NetReturnAmount:   big.NewInt(50),
			OutcomeIndex:      1,
			OutcomeTokensSold: big.NewInt(60),
			QuestionID:        questionID,
			TotalTradeVolume:  big.NewInt(60),
		},
	}
	f.handle(t, sell)

	after, _ := f.store.Get(ctx, marketAddr)
	if after.TradesQuantity != before.TradesQuantity {
		t.Errorf("TradesQuantity moved on rejected sell: %d -> %d", before.TradesQuantity, after.TradesQuantity)
	}
	for i := range before.OutcomeTokenAmounts {
		if before.OutcomeTokenAmounts[i].Cmp(after.OutcomeTokenAmounts[i]) != 0 {
			t.Errorf("reserve[%d] moved on rejected sell", i)
		}
	}
	if _, err := f.store.Trades().Get(ctx, "0xf003-1-sell"); err == nil {
		t.Error("rejected sell left a trade record")
	}
	pos, _ := f.store.Positions().GetOutcomePosition(ctx, traderAddr, marketAddr, 1)
	if got, want := pos.Tokens.Int64(), int64(6); got != want {
		t.Errorf("position tokens after rejected sell = %d, want %d", got, want)
	}
}

func TestUnknownMarketEventSkipped(t *testing.T) {
	f := newFixture(t)

	// No creation happened; the buy must be dropped without error.
	f.handle(t, buyEvent("0xf002", 3, 10, 0, 6, 1))
	if _, err := f.store.Trades().Get(context.Background(), "0xf002-3-buy"); err == nil {
		t.Error("trade recorded for unknown market")
	}
}

func TestPoolShareTransferMovesMemberships(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())

	mint := domain.Event{
		Kind:          domain.EventPoolShareTransfer,
		MarketAddress: marketAddr,
		BlockNumber:   101,
		LogIndex:      2,
		TxHash:        "0xf001",
		Timestamp:     baseTime.Add(time.Minute),
		Transfer: &domain.PoolShareTransfer{
			From:   domain.ZeroAddress,
			To:     funderAddr,
			Amount: big.NewInt(100),
		},
	}
	f.handle(t, mint)

	m, err := f.store.Memberships().Get(context.Background(), marketAddr, funderAddr)
	if err != nil {
		t.Fatalf("Get membership: %v", err)
	}
	if got, want := m.Amount.Int64(), int64(100); got != want {
		t.Errorf("membership amount = %d, want %d", got, want)
	}

	// The funder account is registered as a side effect.
	if _, err := f.store.Accounts().Get(context.Background(), funderAddr); err != nil {
		t.Errorf("funder account not registered: %v", err)
	}
}

func TestDuplicatePoolShareTransferIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())

	mint := domain.Event{
		Kind:          domain.EventPoolShareTransfer,
		MarketAddress: marketAddr,
		BlockNumber:   101,
		LogIndex:      2,
		TxHash:        "0xf001",
		Timestamp:     baseTime.Add(time.Minute),
		Transfer: &domain.PoolShareTransfer{
			From:   domain.ZeroAddress,
			To:     funderAddr,
			Amount: big.NewInt(50),
		},
	}
	f.handle(t, mint)
	f.handle(t, mint) // replay

	m, err := f.store.Memberships().Get(context.Background(), marketAddr, funderAddr)
	if err != nil {
		t.Fatalf("Get membership: %v", err)
	}
	if got, want := m.Amount.Int64(), int64(50); got != want {
		t.Errorf("membership amount after replay = %d, want %d", got, want)
	}
}

func currentPriceEvent(tx string, long, short int64) domain.Event {
	return domain.Event{
		Kind:          domain.EventCurrentPrice,
		MarketAddress: marketAddr,
		BlockNumber:   102,
		LogIndex:      5,
		TxHash:        tx,
		Timestamp:     baseTime.Add(2 * time.Minute),
		Price: &domain.CurrentPrice{
			QuestionID: questionID,
			LongPrice:  big.NewInt(long),
			ShortPrice: big.NewInt(short),
		},
	}
}

func TestCurrentPriceUpdatesMarketPricePair(t *testing.T) {
	f := newFixture(t)
	f.prepareCondition(t, 2)
	f.handle(t, creationEvent())

	f.handle(t, currentPriceEvent("0xf004", 55, 45))
	f.handle(t, currentPriceEvent("0xf005", 62, 38))

	current, err := f.store.Prices().GetPlayerPrice(context.Background(), marketAddr)
	if err != nil {
		t.Fatalf("GetPlayerPrice: %v", err)
	}
	if got, want := current.LongPrice.Int64(), int64(62); got != want {
		t.Errorf("LongPrice = %d, want %d", got, want)
	}
	if got, want := current.ShortPrice.Int64(), int64(38); got != want {
		t.Errorf("ShortPrice = %d, want %d", got, want)
	}
	if got, want := current.QuestionID, questionID; got != want {
		t.Errorf("QuestionID = %s, want %s", got, want)
	}
}

func TestCurrentPriceUnknownMarketSkipped(t *testing.T) {
	f := newFixture(t)

	f.handle(t, currentPriceEvent("0xf004", 55, 45))

	if _, err := f.store.Prices().GetPlayerPrice(context.Background(), marketAddr); err == nil {
		t.Error("price recorded for unknown market")
	}
}
