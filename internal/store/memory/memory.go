// Package memory implements the domain store interfaces with in-process
// maps. It backs the dry-run mode and the engine's tests; the postgres
// package is the production implementation of the same contracts.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// Store holds every entity map behind one mutex. Entities are cloned on the
// way in and out so callers can mutate freely, mirroring the row-copy
// semantics of the SQL stores.
type Store struct {
	mu sync.RWMutex

	markets         map[string]domain.Market
	conditions      map[string]domain.Condition
	trades          map[string]domain.Trade
	transfers       map[string]domain.PoolShareTransferRecord
	fundingAdds     map[string]domain.FundingAddition
	fundingRemovals map[string]domain.FundingRemoval
	accounts        map[string]domain.Account
	memberships     map[string]domain.PoolMembership
	holdings        map[string]domain.Holding
	positions       map[string]domain.OutcomePosition
	global          *domain.GlobalVolume
	playerVolumes   map[string]domain.PlayerVolume
	playerVolumeTx  map[string]domain.PlayerVolumeByTransaction
	playerPrices    map[string]domain.PlayerPrice
	tradePrices     map[string]domain.TradePrice

	cursorBlock    uint64
	cursorLogIndex uint
	cursorSet      bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		markets:         make(map[string]domain.Market),
		conditions:      make(map[string]domain.Condition),
		trades:          make(map[string]domain.Trade),
		transfers:       make(map[string]domain.PoolShareTransferRecord),
		fundingAdds:     make(map[string]domain.FundingAddition),
		fundingRemovals: make(map[string]domain.FundingRemoval),
		accounts:        make(map[string]domain.Account),
		memberships:     make(map[string]domain.PoolMembership),
		holdings:        make(map[string]domain.Holding),
		positions:       make(map[string]domain.OutcomePosition),
		playerVolumes:   make(map[string]domain.PlayerVolume),
		playerVolumeTx:  make(map[string]domain.PlayerVolumeByTransaction),
		playerPrices:    make(map[string]domain.PlayerPrice),
		tradePrices:     make(map[string]domain.TradePrice),
	}
}

// --- MarketStore ---

func (s *Store) Get(ctx context.Context, id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m.Clone(), nil
}

func (s *Store) Save(ctx context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.ID] = m.Clone()
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.markets)), nil
}

// Conditions returns a ConditionStore view of the store.
func (s *Store) Conditions() domain.ConditionStore { return (*conditionView)(s) }

type conditionView Store

func (v *conditionView) Get(ctx context.Context, id string) (domain.Condition, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.conditions[id]
	if !ok {
		return domain.Condition{}, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (v *conditionView) Save(ctx context.Context, c domain.Condition) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.conditions[c.ID] = c.Clone()
	return nil
}

// Trades returns a TradeStore view of the store.
func (s *Store) Trades() domain.TradeStore { return (*tradeView)(s) }

type tradeView Store

func (v *tradeView) Get(ctx context.Context, id string) (domain.Trade, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	t, ok := v.trades[id]
	if !ok {
		return domain.Trade{}, domain.ErrNotFound
	}
	return t.Clone(), nil
}

func (v *tradeView) Insert(ctx context.Context, t domain.Trade) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.trades[t.ID]; ok {
		return fmt.Errorf("memory: trade %s: %w", t.ID, domain.ErrAlreadyExists)
	}
	v.trades[t.ID] = t.Clone()
	return nil
}

func (v *tradeView) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []domain.Trade
	for _, t := range v.trades {
		if t.MarketID != marketID {
			continue
		}
		if opts.Since != nil && t.Timestamp.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && t.Timestamp.After(*opts.Until) {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if opts.Offset > 0 && opts.Offset < len(out) {
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (v *tradeView) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Trade, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []domain.Trade
	for _, t := range v.trades {
		if t.Timestamp.Before(before) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (v *tradeView) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var n int64
	for id, t := range v.trades {
		if t.Timestamp.Before(before) {
			delete(v.trades, id)
			n++
		}
	}
	return n, nil
}

// Transfers returns a TransferStore view of the store.
func (s *Store) Transfers() domain.TransferStore { return (*transferView)(s) }

type transferView Store

func (v *transferView) Get(ctx context.Context, id string) (domain.PoolShareTransferRecord, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	r, ok := v.transfers[id]
	if !ok {
		return domain.PoolShareTransferRecord{}, domain.ErrNotFound
	}
	return r.Clone(), nil
}

func (v *transferView) Insert(ctx context.Context, r domain.PoolShareTransferRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.transfers[r.ID]; ok {
		return fmt.Errorf("memory: pool share transfer %s: %w", r.ID, domain.ErrAlreadyExists)
	}
	v.transfers[r.ID] = r.Clone()
	return nil
}

// Fundings returns a FundingStore view of the store.
func (s *Store) Fundings() domain.FundingStore { return (*fundingView)(s) }

type fundingView Store

func (v *fundingView) GetAddition(ctx context.Context, id string) (domain.FundingAddition, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	f, ok := v.fundingAdds[id]
	if !ok {
		return domain.FundingAddition{}, domain.ErrNotFound
	}
	return f.Clone(), nil
}

func (v *fundingView) InsertAddition(ctx context.Context, f domain.FundingAddition) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.fundingAdds[f.ID]; ok {
		return fmt.Errorf("memory: funding addition %s: %w", f.ID, domain.ErrAlreadyExists)
	}
	v.fundingAdds[f.ID] = f.Clone()
	return nil
}

func (v *fundingView) GetRemoval(ctx context.Context, id string) (domain.FundingRemoval, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	f, ok := v.fundingRemovals[id]
	if !ok {
		return domain.FundingRemoval{}, domain.ErrNotFound
	}
	return f.Clone(), nil
}

func (v *fundingView) InsertRemoval(ctx context.Context, f domain.FundingRemoval) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.fundingRemovals[f.ID]; ok {
		return fmt.Errorf("memory: funding removal %s: %w", f.ID, domain.ErrAlreadyExists)
	}
	v.fundingRemovals[f.ID] = f.Clone()
	return nil
}

// Accounts returns an AccountStore view of the store.
func (s *Store) Accounts() domain.AccountStore { return (*accountView)(s) }

type accountView Store

func (v *accountView) Get(ctx context.Context, id string) (domain.Account, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	a, ok := v.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a.Clone(), nil
}

func (v *accountView) Save(ctx context.Context, a domain.Account) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.accounts[a.ID] = a.Clone()
	return nil
}

// Memberships returns a PoolMembershipStore view of the store.
func (s *Store) Memberships() domain.PoolMembershipStore { return (*membershipView)(s) }

type membershipView Store

func membershipKey(marketID, funder string) string { return marketID + "-" + funder }

func (v *membershipView) Get(ctx context.Context, marketID, funder string) (domain.PoolMembership, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	m, ok := v.memberships[membershipKey(marketID, funder)]
	if !ok {
		return domain.PoolMembership{}, domain.ErrNotFound
	}
	return m.Clone(), nil
}

func (v *membershipView) Save(ctx context.Context, m domain.PoolMembership) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.memberships[membershipKey(m.MarketID, m.Funder)] = m.Clone()
	return nil
}

// Positions returns a PositionStore view of the store.
func (s *Store) Positions() domain.PositionStore { return (*positionView)(s) }

type positionView Store

func holdingKey(accountID, marketID string) string { return accountID + "-" + marketID }

func positionKey(accountID, marketID string, outcomeIndex int) string {
	return fmt.Sprintf("%s-%s-%d", accountID, marketID, outcomeIndex)
}

func (v *positionView) GetHolding(ctx context.Context, accountID, marketID string) (domain.Holding, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	h, ok := v.holdings[holdingKey(accountID, marketID)]
	if !ok {
		return domain.Holding{}, domain.ErrNotFound
	}
	return h.Clone(), nil
}

func (v *positionView) SaveHolding(ctx context.Context, h domain.Holding) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.holdings[holdingKey(h.AccountID, h.MarketID)] = h.Clone()
	return nil
}

func (v *positionView) GetOutcomePosition(ctx context.Context, accountID, marketID string, outcomeIndex int) (domain.OutcomePosition, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.positions[positionKey(accountID, marketID, outcomeIndex)]
	if !ok {
		return domain.OutcomePosition{}, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (v *positionView) SaveOutcomePosition(ctx context.Context, p domain.OutcomePosition) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.positions[positionKey(p.AccountID, p.MarketID, p.OutcomeIndex)] = p.Clone()
	return nil
}

// Volumes returns a VolumeStore view of the store.
func (s *Store) Volumes() domain.VolumeStore { return (*volumeView)(s) }

type volumeView Store

func (v *volumeView) GetGlobal(ctx context.Context) (domain.GlobalVolume, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.global == nil {
		return domain.GlobalVolume{}, domain.ErrNotFound
	}
	return v.global.Clone(), nil
}

func (v *volumeView) SaveGlobal(ctx context.Context, g domain.GlobalVolume) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	clone := g.Clone()
	v.global = &clone
	return nil
}

func (v *volumeView) GetPlayerVolume(ctx context.Context, questionID string) (domain.PlayerVolume, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.playerVolumes[questionID]
	if !ok {
		return domain.PlayerVolume{}, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (v *volumeView) SavePlayerVolume(ctx context.Context, p domain.PlayerVolume) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playerVolumes[p.QuestionID] = p.Clone()
	return nil
}

func (v *volumeView) InsertPlayerVolumeByTransaction(ctx context.Context, p domain.PlayerVolumeByTransaction) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playerVolumeTx[p.ID] = p.Clone()
	return nil
}

// Prices returns a PriceStore view of the store.
func (s *Store) Prices() domain.PriceStore { return (*priceView)(s) }

type priceView Store

func (v *priceView) GetPlayerPrice(ctx context.Context, marketID string) (domain.PlayerPrice, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.playerPrices[marketID]
	if !ok {
		return domain.PlayerPrice{}, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (v *priceView) SavePlayerPrice(ctx context.Context, p domain.PlayerPrice) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playerPrices[p.MarketID] = p.Clone()
	return nil
}

func (v *priceView) InsertTradePrice(ctx context.Context, t domain.TradePrice) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tradePrices[t.TxHash] = t.Clone()
	return nil
}

// Cursor returns a CursorStore view of the store.
func (s *Store) Cursor() domain.CursorStore { return (*cursorView)(s) }

type cursorView Store

func (v *cursorView) Get(ctx context.Context) (uint64, uint, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.cursorSet {
		return 0, 0, domain.ErrNotFound
	}
	return v.cursorBlock, v.cursorLogIndex, nil
}

func (v *cursorView) Set(ctx context.Context, block uint64, logIndex uint) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cursorBlock = block
	v.cursorLogIndex = logIndex
	v.cursorSet = true
	return nil
}

// Compile-time interface checks.
var (
	_ domain.MarketStore         = (*Store)(nil)
	_ domain.ConditionStore      = (*conditionView)(nil)
	_ domain.TradeStore          = (*tradeView)(nil)
	_ domain.TransferStore       = (*transferView)(nil)
	_ domain.FundingStore        = (*fundingView)(nil)
	_ domain.AccountStore        = (*accountView)(nil)
	_ domain.PoolMembershipStore = (*membershipView)(nil)
	_ domain.PositionStore       = (*positionView)(nil)
	_ domain.VolumeStore         = (*volumeView)(nil)
	_ domain.PriceStore          = (*priceView)(nil)
	_ domain.CursorStore         = (*cursorView)(nil)
)
