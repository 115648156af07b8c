// Package feed subscribes to the live market event websocket and hands each
// decoded event to a handler in arrival order. One goroutine reads the
// connection, so the single-writer discipline of the engine is preserved.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// EventHandler is invoked for each inbound event. An error stops the feed.
type EventHandler func(ctx context.Context, ev domain.Event) error

// Stream connects to the event websocket and dispatches messages until its
// context is cancelled, reconnecting with backoff on disconnect.
type Stream struct {
	wsURL     string
	handler   EventHandler
	logger    *slog.Logger
	backoff   time.Duration
	closeOnce sync.Once
	done      chan struct{}
}

// NewStream creates a Stream feeding the given handler.
func NewStream(wsURL string, handler EventHandler, logger *slog.Logger) *Stream {
	return &Stream{
		wsURL:   wsURL,
		handler: handler,
		logger:  logger.With(slog.String("component", "event_stream")),
		backoff: 2 * time.Second,
		done:    make(chan struct{}),
	}
}

// Run connects and processes messages until ctx is cancelled or the handler
// fails. Transport drops trigger a reconnect; handler errors do not.
func (s *Stream) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		err := s.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isDisconnect(err) {
			return err
		}

		s.logger.Warn("event stream disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
}

func (s *Stream) runConnection(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w (%w)", s.wsURL, err, domain.ErrWSDisconnect)
	}
	defer conn.Close()

	s.logger.Info("event stream connected", slog.String("url", s.wsURL))

	// Close the socket when the context ends so ReadMessage unblocks.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-s.done:
			_ = conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-s.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w (%w)", err, domain.ErrWSDisconnect)
		}

		ev, err := decodeMessage(data)
		if err != nil {
			s.logger.Warn("malformed stream message dropped", slog.String("error", err.Error()))
			continue
		}
		if err := s.handler(ctx, ev); err != nil {
			return fmt.Errorf("feed: handle event %s: %w", ev.ID(), err)
		}
	}
}

// Close stops the feed.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func isDisconnect(err error) bool {
	return errors.Is(err, domain.ErrWSDisconnect)
}

// wireEvent is the websocket message envelope. Amount fields arrive as
// decimal strings.
type wireEvent struct {
	Kind          string   `json:"kind"`
	Market        string   `json:"market"`
	BlockNumber   uint64   `json:"blockNumber"`
	LogIndex      uint     `json:"logIndex"`
	TxHash        string   `json:"transactionHash"`
	Timestamp     int64    `json:"timestamp"`
	Account       string   `json:"account"`
	Counterparty  string   `json:"counterparty"`
	ConditionID   string   `json:"conditionId"`
	QuestionID    string   `json:"questionId"`
	Collateral    string   `json:"collateralToken"`
	Fee           string   `json:"fee"`
	SlotCount     int      `json:"outcomeSlotCount"`
	TokenName     string   `json:"tokenName"`
	TokenSymbol   string   `json:"tokenSymbol"`
	Amounts       []string `json:"amounts"`
	Shares        string   `json:"shares"`
	CollateralAmt string   `json:"collateralAmount"`
	GrossAmount   string   `json:"grossAmount"`
	FeeAmount     string   `json:"feeAmount"`
	NetAmount     string   `json:"netAmount"`
	OutcomeIndex  int      `json:"outcomeIndex"`
	OutcomeTokens string   `json:"outcomeTokens"`
	TotalVolume   string   `json:"totalTradeVolume"`
	LongPrice     string   `json:"currentLongPrice"`
	ShortPrice    string   `json:"currentShortPrice"`
}

func decodeMessage(data []byte) (domain.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Event{}, fmt.Errorf("decode envelope: %w", err)
	}

	ev := domain.Event{
		Kind:          domain.EventKind(w.Kind),
		MarketAddress: w.Market,
		BlockNumber:   w.BlockNumber,
		LogIndex:      w.LogIndex,
		TxHash:        w.TxHash,
		Timestamp:     time.Unix(w.Timestamp, 0).UTC(),
	}

	switch ev.Kind {
	case domain.EventMarketCreated:
		fee, err := wireBig(w.Fee)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Created = &domain.MarketCreated{
			ConditionID:      w.ConditionID,
			QuestionID:       w.QuestionID,
			CollateralToken:  w.Collateral,
			Creator:          w.Account,
			Fee:              fee,
			OutcomeSlotCount: w.SlotCount,
			TokenName:        w.TokenName,
			TokenSymbol:      w.TokenSymbol,
		}

	case domain.EventFundingAdded:
		amounts, err := wireBigs(w.Amounts)
		if err != nil {
			return domain.Event{}, err
		}
		shares, err := wireBig(w.Shares)
		if err != nil {
			return domain.Event{}, err
		}
		ev.FundingAdded = &domain.FundingAdded{
			Funder:       w.Account,
			AmountsAdded: amounts,
			SharesMinted: shares,
		}

	case domain.EventFundingRemoved:
		amounts, err := wireBigs(w.Amounts)
		if err != nil {
			return domain.Event{}, err
		}
		shares, err := wireBig(w.Shares)
		if err != nil {
			return domain.Event{}, err
		}
		collateral, err := wireBig(w.CollateralAmt)
		if err != nil {
			return domain.Event{}, err
		}
		ev.FundingRemoved = &domain.FundingRemoved{
			Funder:            w.Account,
			AmountsRemoved:    amounts,
			SharesBurnt:       shares,
			CollateralRemoved: collateral,
		}

	case domain.EventBuy:
		gross, fee, net, tokens, total, err := wireTradeAmounts(w)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Buy = &domain.Buy{
			Buyer:               w.Account,
			InvestmentAmount:    gross,
			FeeAmount:           fee,
			NetInvestmentAmount: net,
			OutcomeIndex:        w.OutcomeIndex,
			OutcomeTokensBought: tokens,
			QuestionID:          w.QuestionID,
			TotalTradeVolume:    total,
		}

	case domain.EventSell:
		gross, fee, net, tokens, total, err := wireTradeAmounts(w)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Sell = &domain.Sell{
			Seller:            w.Account,
			ReturnAmount:      gross,
			FeeAmount:         fee,
			NetReturnAmount:   net,
			OutcomeIndex:      w.OutcomeIndex,
			OutcomeTokensSold: tokens,
			QuestionID:        w.QuestionID,
			TotalTradeVolume:  total,
		}

	case domain.EventPoolShareTransfer:
		amount, err := wireBig(w.Shares)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Transfer = &domain.PoolShareTransfer{
			From:   w.Account,
			To:     w.Counterparty,
			Amount: amount,
		}

	case domain.EventCurrentPrice:
		long, err := wireBig(w.LongPrice)
		if err != nil {
			return domain.Event{}, err
		}
		short, err := wireBig(w.ShortPrice)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Price = &domain.CurrentPrice{
			QuestionID: w.QuestionID,
			LongPrice:  long,
			ShortPrice: short,
		}

	default:
		return domain.Event{}, fmt.Errorf("kind %q: %w", w.Kind, domain.ErrUnknownEventKind)
	}

	return ev, nil
}

func wireTradeAmounts(w wireEvent) (gross, fee, net, tokens, total *big.Int, err error) {
	if gross, err = wireBig(w.GrossAmount); err != nil {
		return
	}
	if fee, err = wireBig(w.FeeAmount); err != nil {
		return
	}
	if net, err = wireBig(w.NetAmount); err != nil {
		return
	}
	if tokens, err = wireBig(w.OutcomeTokens); err != nil {
		return
	}
	total, err = wireBig(w.TotalVolume)
	return
}

func wireBigs(ss []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		v, err := wireBig(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func wireBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return v, nil
}
