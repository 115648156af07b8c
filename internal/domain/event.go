package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies the type of an inbound on-chain event.
type EventKind string

const (
	EventMarketCreated     EventKind = "market_created"
	EventFundingAdded      EventKind = "funding_added"
	EventFundingRemoved    EventKind = "funding_removed"
	EventBuy               EventKind = "buy"
	EventSell              EventKind = "sell"
	EventPoolShareTransfer EventKind = "pool_share_transfer"
	EventCurrentPrice      EventKind = "current_price"
)

// ZeroAddress is the null/burn address. Pool-share transfers touching it are
// mints or burns and do not move a membership row on that side.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress lowercases and checksums-strips a hex address so the same
// account always maps to the same entity ID.
func NormalizeAddress(s string) string {
	return strings.ToLower(common.HexToAddress(s).Hex())
}

// NormalizeHash lowercases a 32-byte hex hash (tx hashes, condition ids,
// question ids).
func NormalizeHash(s string) string {
	return strings.ToLower(common.HexToHash(s).Hex())
}

// Event is one element of the ordered inbound stream. Exactly one payload
// field is set, matching Kind. MarketAddress is the emitting FPMM contract.
type Event struct {
	Kind          EventKind
	MarketAddress string
	BlockNumber   uint64
	LogIndex      uint
	TxHash        string
	Timestamp     time.Time

	Created        *MarketCreated
	FundingAdded   *FundingAdded
	FundingRemoved *FundingRemoved
	Buy            *Buy
	Sell           *Sell
	Transfer       *PoolShareTransfer
	Price          *CurrentPrice
}

// ID returns the compound idempotency key for records derived from this
// event. The transaction hash alone collides when one transaction emits
// multiple same-kind events, so the log index and kind are folded in.
func (e Event) ID() string {
	return fmt.Sprintf("%s-%d-%s", e.TxHash, e.LogIndex, e.Kind)
}

// MarketCreated carries the parameters of a market maker deployment.
type MarketCreated struct {
	ConditionID      string
	QuestionID       string
	CollateralToken  string
	Creator          string
	Fee              *big.Int
	OutcomeSlotCount int
	TokenName        string
	TokenSymbol      string
}

// FundingAdded carries a liquidity addition. AmountsAdded is the per-outcome
// number of outcome tokens moved into the pool.
type FundingAdded struct {
	Funder       string
	AmountsAdded []*big.Int
	SharesMinted *big.Int
}

// FundingRemoved carries a liquidity removal.
type FundingRemoved struct {
	Funder            string
	AmountsRemoved    []*big.Int
	SharesBurnt       *big.Int
	CollateralRemoved *big.Int
}

// Buy carries one purchase of outcome tokens. NetInvestmentAmount is
// InvestmentAmount minus FeeAmount, precomputed on chain.
type Buy struct {
	Buyer               string
	InvestmentAmount    *big.Int
	FeeAmount           *big.Int
	NetInvestmentAmount *big.Int
	OutcomeIndex        int
	OutcomeTokensBought *big.Int
	QuestionID          string
	TotalTradeVolume    *big.Int
}

// Sell carries one sale of outcome tokens. NetReturnAmount is ReturnAmount
// plus FeeAmount.
type Sell struct {
	Seller            string
	ReturnAmount      *big.Int
	FeeAmount         *big.Int
	NetReturnAmount   *big.Int
	OutcomeIndex      int
	OutcomeTokensSold *big.Int
	QuestionID        string
	TotalTradeVolume  *big.Int
}

// PoolShareTransfer carries an ERC-20 transfer of LP shares.
type PoolShareTransfer struct {
	From   string
	To     string
	Amount *big.Int
}

// CurrentPrice carries the long/short token price pair the chain reports
// for a binary market after a trade settles.
type CurrentPrice struct {
	QuestionID string
	LongPrice  *big.Int
	ShortPrice *big.Int
}
