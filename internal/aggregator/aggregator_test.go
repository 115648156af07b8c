package aggregator_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/aggregator"
	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/store/memory"
)

var (
	usdcScale = big.NewInt(1_000_000)
	tradeTime = time.Unix(1_700_000_000, 0).UTC()
)

func newMarket() *domain.Market {
	return &domain.Market{
		ID:                   "0x00000000000000000000000000000000000000bb",
		CollateralVolume:     new(big.Int),
		CollateralBuyVolume:  new(big.Int),
		CollateralSellVolume: new(big.Int),
		FeeVolume:            new(big.Int),
	}
}

func TestRecordVolumeSplitsByKind(t *testing.T) {
	m := newMarket()

	aggregator.RecordVolume(m, big.NewInt(3_000_000), domain.TradeKindBuy, usdcScale, tradeTime)
	aggregator.RecordVolume(m, big.NewInt(1_000_000), domain.TradeKindSell, usdcScale, tradeTime)

	if got, want := m.CollateralVolume.Int64(), int64(4_000_000); got != want {
		t.Errorf("CollateralVolume = %d, want %d", got, want)
	}
	if got, want := m.CollateralBuyVolume.Int64(), int64(3_000_000); got != want {
		t.Errorf("CollateralBuyVolume = %d, want %d", got, want)
	}
	if got, want := m.CollateralSellVolume.Int64(), int64(1_000_000); got != want {
		t.Errorf("CollateralSellVolume = %d, want %d", got, want)
	}
	if got, want := m.ScaledCollateralVolume, 4.0; got != want {
		t.Errorf("ScaledCollateralVolume = %v, want %v", got, want)
	}
}

func TestRecordVolumeDayForwardOnly(t *testing.T) {
	m := newMarket()
	later := tradeTime.Add(48 * time.Hour)

	aggregator.RecordVolume(m, big.NewInt(1), domain.TradeKindBuy, usdcScale, later)
	day := m.LastActiveDay
	aggregator.RecordVolume(m, big.NewInt(1), domain.TradeKindBuy, usdcScale, tradeTime)

	if m.LastActiveDay != day {
		t.Errorf("LastActiveDay regressed to %d, want %d", m.LastActiveDay, day)
	}
}

func TestRecordFee(t *testing.T) {
	m := newMarket()

	aggregator.RecordFee(m, big.NewInt(20_000), usdcScale)
	aggregator.RecordFee(m, big.NewInt(30_000), usdcScale)

	if got, want := m.FeeVolume.Int64(), int64(50_000); got != want {
		t.Errorf("FeeVolume = %d, want %d", got, want)
	}
	if got, want := m.ScaledFeeVolume, 0.05; got != want {
		t.Errorf("ScaledFeeVolume = %v, want %v", got, want)
	}
}

func TestGlobalRecordTradeLazyCreate(t *testing.T) {
	st := memory.New()
	g := aggregator.NewGlobal(st.Volumes(), st.Prices())
	ctx := context.Background()

	if err := g.RecordTrade(ctx, big.NewInt(2_000_000), big.NewInt(40_000), usdcScale, domain.TradeKindBuy, tradeTime); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if err := g.RecordTrade(ctx, big.NewInt(1_000_000), big.NewInt(20_000), usdcScale, domain.TradeKindSell, tradeTime.Add(time.Minute)); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	global, err := st.Volumes().GetGlobal(ctx)
	if err != nil {
		t.Fatalf("GetGlobal: %v", err)
	}
	if got, want := global.CollateralVolume.Int64(), int64(3_000_000); got != want {
		t.Errorf("CollateralVolume = %d, want %d", got, want)
	}
	if got, want := global.CollateralBuyVolume.Int64(), int64(2_000_000); got != want {
		t.Errorf("CollateralBuyVolume = %d, want %d", got, want)
	}
	if got, want := global.CollateralSellVolume.Int64(), int64(1_000_000); got != want {
		t.Errorf("CollateralSellVolume = %d, want %d", got, want)
	}
	if got, want := global.FeeVolume.Int64(), int64(60_000); got != want {
		t.Errorf("FeeVolume = %d, want %d", got, want)
	}
	if got, want := global.TradesQuantity, int64(2); got != want {
		t.Errorf("TradesQuantity = %d, want %d", got, want)
	}
}

func TestRecordPlayerVolumeRunningAndSnapshot(t *testing.T) {
	st := memory.New()
	g := aggregator.NewGlobal(st.Volumes(), st.Prices())
	ctx := context.Background()
	question := domain.NormalizeHash("0x01")

	// The chain reports the cumulative volume on each trade; the running
	// row tracks the latest value, not a sum.
	if err := g.RecordPlayerVolume(ctx, tradeTime, question, big.NewInt(5_000_000), "0xaaa1"); err != nil {
		t.Fatalf("RecordPlayerVolume: %v", err)
	}
	if err := g.RecordPlayerVolume(ctx, tradeTime.Add(time.Hour), question, big.NewInt(8_000_000), "0xaaa2"); err != nil {
		t.Fatalf("RecordPlayerVolume: %v", err)
	}

	pv, err := st.Volumes().GetPlayerVolume(ctx, question)
	if err != nil {
		t.Fatalf("GetPlayerVolume: %v", err)
	}
	if got, want := pv.TotalVolume.Int64(), int64(8_000_000); got != want {
		t.Errorf("TotalVolume = %d, want %d", got, want)
	}
	if got, want := pv.Day, domain.DayBucket(tradeTime); got != want {
		t.Errorf("Day = %d, want %d", got, want)
	}
}

func TestRecordCurrentPriceKeepsLatestAndSnapshots(t *testing.T) {
	st := memory.New()
	g := aggregator.NewGlobal(st.Volumes(), st.Prices())
	ctx := context.Background()
	marketID := "0x00000000000000000000000000000000000000bb"
	question := domain.NormalizeHash("0x01")

	first := domain.CurrentPrice{QuestionID: question, LongPrice: big.NewInt(55), ShortPrice: big.NewInt(45)}
	if err := g.RecordCurrentPrice(ctx, marketID, first, "0xaaa1", tradeTime); err != nil {
		t.Fatalf("RecordCurrentPrice: %v", err)
	}
	second := domain.CurrentPrice{QuestionID: question, LongPrice: big.NewInt(60), ShortPrice: big.NewInt(40)}
	if err := g.RecordCurrentPrice(ctx, marketID, second, "0xaaa2", tradeTime.Add(time.Hour)); err != nil {
		t.Fatalf("RecordCurrentPrice: %v", err)
	}

	current, err := st.Prices().GetPlayerPrice(ctx, marketID)
	if err != nil {
		t.Fatalf("GetPlayerPrice: %v", err)
	}
	if got, want := current.LongPrice.Int64(), int64(60); got != want {
		t.Errorf("LongPrice = %d, want %d", got, want)
	}
	if got, want := current.ShortPrice.Int64(), int64(40); got != want {
		t.Errorf("ShortPrice = %d, want %d", got, want)
	}
	if got, want := current.QuestionID, question; got != want {
		t.Errorf("QuestionID = %s, want %s", got, want)
	}
	if got, want := current.UpdatedAt, tradeTime.Add(time.Hour); !got.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", got, want)
	}
}
