// Package indexer routes the ordered on-chain event stream into the state
// engine: one handler per event kind, each loading the affected entities,
// applying the pure reducer transition, and persisting the results along
// with the derived trade, funding, account, and volume records.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/alanyoungcy/fpmm-indexer/internal/aggregator"
	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/ledger"
	"github.com/alanyoungcy/fpmm-indexer/internal/numeric"
	"github.com/alanyoungcy/fpmm-indexer/internal/reducer"
	"github.com/alanyoungcy/fpmm-indexer/internal/registry"
)

// Deps collects the collaborators a Handler needs.
type Deps struct {
	Markets    domain.MarketStore
	Conditions domain.ConditionStore
	Trades     domain.TradeStore
	Fundings   domain.FundingStore
	Transfers  domain.TransferStore
	Registry   *registry.Registry
	Ledger     *ledger.Ledger
	Global     *aggregator.Global
	Scaler     domain.CollateralScaler
	Logger     *slog.Logger
}

// Handler applies one event at a time. It must be driven by a single
// goroutine in stream order; it performs no internal locking.
type Handler struct {
	markets    domain.MarketStore
	conditions domain.ConditionStore
	trades     domain.TradeStore
	fundings   domain.FundingStore
	transfers  domain.TransferStore
	registry   *registry.Registry
	ledger     *ledger.Ledger
	global     *aggregator.Global
	scaler     domain.CollateralScaler
	logger     *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		markets:    d.Markets,
		conditions: d.Conditions,
		trades:     d.Trades,
		fundings:   d.Fundings,
		transfers:  d.Transfers,
		registry:   d.Registry,
		ledger:     d.Ledger,
		global:     d.Global,
		scaler:     d.Scaler,
		logger:     d.Logger,
	}
}

// Handle applies one event. Data faults (missing references, balance
// violations, malformed payloads) are logged and swallowed so the stream
// keeps moving; only infrastructure errors propagate and halt processing.
func (h *Handler) Handle(ctx context.Context, ev domain.Event) error {
	var err error
	switch ev.Kind {
	case domain.EventMarketCreated:
		err = h.handleCreated(ctx, ev)
	case domain.EventFundingAdded:
		err = h.handleFundingAdded(ctx, ev)
	case domain.EventFundingRemoved:
		err = h.handleFundingRemoved(ctx, ev)
	case domain.EventBuy:
		err = h.handleBuy(ctx, ev)
	case domain.EventSell:
		err = h.handleSell(ctx, ev)
	case domain.EventPoolShareTransfer:
		err = h.handleTransfer(ctx, ev)
	case domain.EventCurrentPrice:
		err = h.handleCurrentPrice(ctx, ev)
	default:
		err = fmt.Errorf("indexer: event %s kind %q: %w", ev.ID(), ev.Kind, domain.ErrUnknownEventKind)
	}

	if err != nil && isDataFault(err) {
		h.logger.Warn("event rejected",
			slog.String("event_id", ev.ID()),
			slog.String("kind", string(ev.Kind)),
			slog.String("market", ev.MarketAddress),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return err
}

// isDataFault reports whether the error is a property of the event data
// rather than of the infrastructure. Faulty events are skipped; the stream
// must not stall on them.
func isDataFault(err error) bool {
	return errors.Is(err, domain.ErrNegativeBalance) ||
		errors.Is(err, domain.ErrSlotCountMismatch) ||
		errors.Is(err, domain.ErrArithmeticDomain) ||
		errors.Is(err, domain.ErrUnknownEventKind)
}

func (h *Handler) handleCreated(ctx context.Context, ev domain.Event) error {
	created := ev.Created
	conditionID := domain.NormalizeHash(created.ConditionID)

	condition, err := h.conditions.Get(ctx, conditionID)
	if errors.Is(err, domain.ErrNotFound) {
		// The condition must have been prepared before a market can
		// reference it. Without it the market cannot resolve, so the
		// deployment is dropped rather than half-indexed.
		h.logger.Error("market creation references unknown condition",
			slog.String("market", ev.MarketAddress),
			slog.String("condition_id", conditionID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("indexer: load condition %s: %w", conditionID, err)
	}
	if condition.OutcomeSlotCount != created.OutcomeSlotCount {
		return fmt.Errorf("indexer: market %s declares %d outcomes but condition %s has %d: %w",
			ev.MarketAddress, created.OutcomeSlotCount, conditionID, condition.OutcomeSlotCount,
			domain.ErrSlotCountMismatch)
	}

	market := reducer.NewMarket(ev)
	if err := h.markets.Save(ctx, market); err != nil {
		return fmt.Errorf("indexer: save market %s: %w", market.ID, err)
	}

	linked := false
	for _, id := range condition.MarketIDs {
		if id == market.ID {
			linked = true
			break
		}
	}
	if !linked {
		condition.MarketIDs = append(condition.MarketIDs, market.ID)
		if err := h.conditions.Save(ctx, condition); err != nil {
			return fmt.Errorf("indexer: link market %s to condition %s: %w", market.ID, conditionID, err)
		}
	}

	if _, err := h.registry.Require(ctx, created.Creator, ev.Timestamp); err != nil {
		return err
	}

	h.logger.Info("market indexed",
		slog.String("market", market.ID),
		slog.String("condition_id", conditionID),
		slog.Int("outcomes", market.OutcomeSlotCount),
	)
	return nil
}

func (h *Handler) handleFundingAdded(ctx context.Context, ev domain.Event) error {
	funding := ev.FundingAdded

	if _, err := h.fundings.GetAddition(ctx, ev.ID()); err == nil {
		h.logger.Debug("duplicate funding addition ignored", slog.String("event_id", ev.ID()))
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("indexer: probe funding addition %s: %w", ev.ID(), err)
	}

	market, err := h.loadMarket(ctx, ev)
	if err != nil || market.ID == "" {
		return err
	}
	scale, err := h.scaler.ScaleOf(ctx, market.CollateralToken)
	if err != nil {
		return fmt.Errorf("indexer: resolve collateral scale for %s: %w", market.CollateralToken, err)
	}

	if err := reducer.ApplyFundingAdded(&market, funding, ev.Timestamp, scale); err != nil {
		return err
	}
	if err := h.markets.Save(ctx, market); err != nil {
		return fmt.Errorf("indexer: save market %s: %w", market.ID, err)
	}

	record := domain.FundingAddition{
		ID:              ev.ID(),
		MarketID:        market.ID,
		Funder:          domain.NormalizeAddress(funding.Funder),
		AmountsAdded:    funding.AmountsAdded,
		AmountsRefunded: refundedAmounts(funding.AmountsAdded),
		SharesMinted:    funding.SharesMinted,
		Timestamp:       ev.Timestamp,
	}
	if err := h.fundings.InsertAddition(ctx, record); err != nil {
		return fmt.Errorf("indexer: record funding addition %s: %w", record.ID, err)
	}

	if err := h.registry.MarkSeen(ctx, funding.Funder, ev.Timestamp); err != nil {
		return err
	}
	return nil
}

// refundedAmounts computes, per outcome, the tokens handed back to the
// funder. The pool absorbs each outcome only up to the smallest added
// balance, so the refund is the shortfall against the maximum.
func refundedAmounts(added []*big.Int) []*big.Int {
	max := numeric.Max(added)
	if max == nil {
		return nil
	}
	out := make([]*big.Int, len(added))
	for i, a := range added {
		out[i] = new(big.Int).Sub(max, a)
	}
	return out
}

func (h *Handler) handleFundingRemoved(ctx context.Context, ev domain.Event) error {
	funding := ev.FundingRemoved

	if _, err := h.fundings.GetRemoval(ctx, ev.ID()); err == nil {
		h.logger.Debug("duplicate funding removal ignored", slog.String("event_id", ev.ID()))
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("indexer: probe funding removal %s: %w", ev.ID(), err)
	}

	market, err := h.loadMarket(ctx, ev)
	if err != nil || market.ID == "" {
		return err
	}
	scale, err := h.scaler.ScaleOf(ctx, market.CollateralToken)
	if err != nil {
		return fmt.Errorf("indexer: resolve collateral scale for %s: %w", market.CollateralToken, err)
	}

	if err := reducer.ApplyFundingRemoved(&market, funding, ev.Timestamp, scale); err != nil {
		return err
	}
	if err := h.markets.Save(ctx, market); err != nil {
		return fmt.Errorf("indexer: save market %s: %w", market.ID, err)
	}

	record := domain.FundingRemoval{
		ID:                ev.ID(),
		MarketID:          market.ID,
		Funder:            domain.NormalizeAddress(funding.Funder),
		AmountsRemoved:    funding.AmountsRemoved,
		CollateralRemoved: funding.CollateralRemoved,
		SharesBurnt:       funding.SharesBurnt,
		Timestamp:         ev.Timestamp,
	}
	if err := h.fundings.InsertRemoval(ctx, record); err != nil {
		return fmt.Errorf("indexer: record funding removal %s: %w", record.ID, err)
	}

	if err := h.registry.MarkSeen(ctx, funding.Funder, ev.Timestamp); err != nil {
		return err
	}
	return nil
}

func (h *Handler) handleBuy(ctx context.Context, ev domain.Event) error {
	buy := ev.Buy
	return h.handleTrade(ctx, ev, tradeParams{
		kind:   domain.TradeKindBuy,
		user:   buy.Buyer,
		gross:  buy.InvestmentAmount,
		fee:    buy.FeeAmount,
		net:    buy.NetInvestmentAmount,
		index:  buy.OutcomeIndex,
		tokens: buy.OutcomeTokensBought,
		apply: func(m *domain.Market, scale *big.Int) error {
			return reducer.ApplyBuy(m, buy, ev.Timestamp, scale)
		},
		questionID:       buy.QuestionID,
		totalTradeVolume: buy.TotalTradeVolume,
	})
}

func (h *Handler) handleSell(ctx context.Context, ev domain.Event) error {
	sell := ev.Sell
	return h.handleTrade(ctx, ev, tradeParams{
		kind:   domain.TradeKindSell,
		user:   sell.Seller,
		gross:  sell.ReturnAmount,
		fee:    sell.FeeAmount,
		net:    sell.NetReturnAmount,
		index:  sell.OutcomeIndex,
		tokens: sell.OutcomeTokensSold,
		apply: func(m *domain.Market, scale *big.Int) error {
			return reducer.ApplySell(m, sell, ev.Timestamp, scale)
		},
		questionID:       sell.QuestionID,
		totalTradeVolume: sell.TotalTradeVolume,
	})
}

// tradeParams is the kind-independent shape of a buy or sell.
type tradeParams struct {
	kind             domain.TradeKind
	user             string
	gross            *big.Int
	fee              *big.Int
	net              *big.Int
	index            int
	tokens           *big.Int
	apply            func(m *domain.Market, scale *big.Int) error
	questionID       string
	totalTradeVolume *big.Int
}

// handleTrade is the shared buy/sell path. The position-ledger update runs
// before any persistence so that an oversell rejects the whole event with no
// state written.
func (h *Handler) handleTrade(ctx context.Context, ev domain.Event, p tradeParams) error {
	if _, err := h.trades.Get(ctx, ev.ID()); err == nil {
		h.logger.Debug("duplicate trade ignored", slog.String("event_id", ev.ID()))
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("indexer: probe trade %s: %w", ev.ID(), err)
	}

	market, err := h.loadMarket(ctx, ev)
	if err != nil || market.ID == "" {
		return err
	}
	scale, err := h.scaler.ScaleOf(ctx, market.CollateralToken)
	if err != nil {
		return fmt.Errorf("indexer: resolve collateral scale for %s: %w", market.CollateralToken, err)
	}

	user := domain.NormalizeAddress(p.user)
	if _, err := h.registry.Require(ctx, user, ev.Timestamp); err != nil {
		return err
	}

	// The reducer mutates only the local market copy, so it validates
	// first; the ledger carries the oversell guard and writes only on
	// success. A fault from either leaves nothing persisted.
	if err := p.apply(&market, scale); err != nil {
		return err
	}
	if err := h.ledger.ApplyTrade(ctx, user, market.ID, p.questionID, p.index, p.net, p.tokens, p.kind); err != nil {
		return err
	}

	aggregator.RecordVolume(&market, p.gross, p.kind, scale, ev.Timestamp)
	aggregator.RecordFee(&market, p.fee, scale)
	if err := h.markets.Save(ctx, market); err != nil {
		return fmt.Errorf("indexer: save market %s: %w", market.ID, err)
	}

	trade := domain.Trade{
		ID:                  ev.ID(),
		Kind:                p.kind,
		MarketID:            market.ID,
		User:                user,
		TradeAmount:         p.gross,
		FeeAmount:           p.fee,
		NetTradeAmount:      p.net,
		OutcomeIndex:        p.index,
		OutcomeTokensAmount: p.tokens,
		Timestamp:           ev.Timestamp,
		TxHash:              domain.NormalizeHash(ev.TxHash),
		LogIndex:            ev.LogIndex,
	}
	if err := h.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("indexer: record trade %s: %w", trade.ID, err)
	}

	if err := h.registry.RecordVolume(ctx, user, p.gross, scale, ev.Timestamp); err != nil {
		return err
	}
	if err := h.registry.MarkSeen(ctx, user, ev.Timestamp); err != nil {
		return err
	}
	if err := h.registry.IncrementTrades(ctx, user, ev.Timestamp); err != nil {
		return err
	}
	if err := h.registry.ApplyInvestment(ctx, user, p.gross, p.fee, p.kind); err != nil {
		return err
	}

	if p.totalTradeVolume != nil {
		if err := h.global.RecordPlayerVolume(ctx, ev.Timestamp, p.questionID, p.totalTradeVolume, ev.TxHash); err != nil {
			return err
		}
	}
	if err := h.global.RecordTrade(ctx, p.gross, p.fee, scale, p.kind, ev.Timestamp); err != nil {
		return err
	}

	h.logger.Debug("trade indexed",
		slog.String("event_id", ev.ID()),
		slog.String("market", market.ID),
		slog.String("kind", string(p.kind)),
	)
	return nil
}

func (h *Handler) handleTransfer(ctx context.Context, ev domain.Event) error {
	transfer := ev.Transfer

	if _, err := h.transfers.Get(ctx, ev.ID()); err == nil {
		h.logger.Debug("duplicate pool share transfer ignored", slog.String("event_id", ev.ID()))
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("indexer: probe pool share transfer %s: %w", ev.ID(), err)
	}

	from := domain.NormalizeAddress(transfer.From)
	to := domain.NormalizeAddress(transfer.To)
	if from != domain.ZeroAddress {
		if _, err := h.registry.Require(ctx, from, ev.Timestamp); err != nil {
			return err
		}
	}
	if to != domain.ZeroAddress {
		if _, err := h.registry.Require(ctx, to, ev.Timestamp); err != nil {
			return err
		}
	}

	marketID := domain.NormalizeAddress(ev.MarketAddress)
	if err := h.ledger.TransferPoolShares(ctx, marketID, from, to, transfer.Amount); err != nil {
		return err
	}

	record := domain.PoolShareTransferRecord{
		ID:        ev.ID(),
		MarketID:  marketID,
		From:      from,
		To:        to,
		Amount:    transfer.Amount,
		Timestamp: ev.Timestamp,
	}
	if err := h.transfers.Insert(ctx, record); err != nil {
		return fmt.Errorf("indexer: record pool share transfer %s: %w", record.ID, err)
	}
	return nil
}

// handleCurrentPrice records the reported long/short price pair against the
// emitting market. The writes are last-write-wins, so no idempotency record
// is needed.
func (h *Handler) handleCurrentPrice(ctx context.Context, ev domain.Event) error {
	market, err := h.loadMarket(ctx, ev)
	if err != nil || market.ID == "" {
		return err
	}
	return h.global.RecordCurrentPrice(ctx, market.ID, *ev.Price, ev.TxHash, ev.Timestamp)
}

// loadMarket fetches the event's market. An unknown market is a reference
// fault: it is logged and a zero Market signals the caller to skip.
func (h *Handler) loadMarket(ctx context.Context, ev domain.Event) (domain.Market, error) {
	id := domain.NormalizeAddress(ev.MarketAddress)
	market, err := h.markets.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		h.logger.Error("event references unknown market",
			slog.String("event_id", ev.ID()),
			slog.String("market", id),
		)
		return domain.Market{}, nil
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("indexer: load market %s: %w", id, err)
	}
	return market, nil
}
