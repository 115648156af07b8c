// Package goldsky is a GraphQL client for the Goldsky-hosted market event
// subgraph. It fetches typed FPMM events in (block, logIndex) order so the
// pipeline can feed them to the engine without reordering.
package goldsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// Client is a GraphQL client for the market event subgraph.
type Client struct {
	graphqlURL string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client for the given subgraph endpoint.
func NewClient(graphqlURL, apiKey string) *Client {
	return &Client{
		graphqlURL: graphqlURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// rawEvent is the unified subgraph entity: one row per emitted log, with the
// kind discriminating which payload fields are populated.
type rawEvent struct {
	Kind          string   `json:"kind"`
	MarketAddress string   `json:"market"`
	BlockNumber   string   `json:"blockNumber"`
	LogIndex      string   `json:"logIndex"`
	TxHash        string   `json:"transactionHash"`
	Timestamp     string   `json:"timestamp"`
	Account       string   `json:"account"`
	Counterparty  string   `json:"counterparty"`
	ConditionID   string   `json:"conditionId"`
	QuestionID    string   `json:"questionId"`
	Collateral    string   `json:"collateralToken"`
	FeeBps        string   `json:"fee"`
	SlotCount     string   `json:"outcomeSlotCount"`
	TokenName     string   `json:"tokenName"`
	TokenSymbol   string   `json:"tokenSymbol"`
	Amounts       []string `json:"amounts"`
	Shares        string   `json:"shares"`
	Collateral2   string   `json:"collateralAmount"`
	GrossAmount   string   `json:"grossAmount"`
	FeeAmount     string   `json:"feeAmount"`
	NetAmount     string   `json:"netAmount"`
	OutcomeIndex  string   `json:"outcomeIndex"`
	OutcomeTokens string   `json:"outcomeTokens"`
	TotalVolume   string   `json:"totalTradeVolume"`
	LongPrice     string   `json:"currentLongPrice"`
	ShortPrice    string   `json:"currentShortPrice"`
}

// FetchEvents returns up to first events strictly after the (block,
// logIndex) cursor, ordered by block then log index.
func (c *Client) FetchEvents(ctx context.Context, afterBlock uint64, afterLogIndex uint, first int) ([]domain.Event, error) {
	query := `
		query MarketEvents($block: BigInt!, $logIndex: BigInt!, $first: Int!) {
			marketEvents(
				first: $first
				orderBy: blockNumber
				orderDirection: asc
				where: {
					or: [
						{ blockNumber_gt: $block }
						{ blockNumber: $block, logIndex_gt: $logIndex }
					]
				}
			) {
				kind
				market
				blockNumber
				logIndex
				transactionHash
				timestamp
				account
				counterparty
				conditionId
				questionId
				collateralToken
				fee
				outcomeSlotCount
				tokenName
				tokenSymbol
				amounts
				shares
				collateralAmount
				grossAmount
				feeAmount
				netAmount
				outcomeIndex
				outcomeTokens
				totalTradeVolume
				currentLongPrice
				currentShortPrice
			}
		}
	`

	variables := map[string]any{
		"block":    strconv.FormatUint(afterBlock, 10),
		"logIndex": strconv.FormatUint(uint64(afterLogIndex), 10),
		"first":    first,
	}

	respData, err := c.doQuery(ctx, query, variables)
	if err != nil {
		return nil, fmt.Errorf("goldsky: fetch market events: %w", err)
	}

	var result struct {
		MarketEvents []rawEvent `json:"marketEvents"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("goldsky: decode market events: %w", err)
	}

	events := make([]domain.Event, 0, len(result.MarketEvents))
	for _, raw := range result.MarketEvents {
		ev, err := decodeEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("goldsky: event at block %s log %s: %w", raw.BlockNumber, raw.LogIndex, err)
		}
		events = append(events, ev)
	}

	// The subgraph orders by blockNumber only; events within one block come
	// back in arbitrary order. The engine requires strict (block, logIndex)
	// order, so tiebreak here.
	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
	return events, nil
}

// FetchLatestBlock returns the latest block the subgraph has indexed, for
// lag monitoring.
func (c *Client) FetchLatestBlock(ctx context.Context) (int64, error) {
	query := `
		query LatestBlock {
			_meta {
				block {
					number
				}
			}
		}
	`

	respData, err := c.doQuery(ctx, query, nil)
	if err != nil {
		return 0, fmt.Errorf("goldsky: fetch latest block: %w", err)
	}

	var result struct {
		Meta struct {
			Block struct {
				Number int64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return 0, fmt.Errorf("goldsky: decode latest block: %w", err)
	}
	return result.Meta.Block.Number, nil
}

func decodeEvent(raw rawEvent) (domain.Event, error) {
	block, err := strconv.ParseUint(raw.BlockNumber, 10, 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("block number %q: %w", raw.BlockNumber, err)
	}
	logIndex, err := strconv.ParseUint(raw.LogIndex, 10, 32)
	if err != nil {
		return domain.Event{}, fmt.Errorf("log index %q: %w", raw.LogIndex, err)
	}
	tsUnix, err := strconv.ParseInt(raw.Timestamp, 10, 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("timestamp %q: %w", raw.Timestamp, err)
	}

	ev := domain.Event{
		Kind:          domain.EventKind(raw.Kind),
		MarketAddress: raw.MarketAddress,
		BlockNumber:   block,
		LogIndex:      uint(logIndex),
		TxHash:        raw.TxHash,
		Timestamp:     time.Unix(tsUnix, 0).UTC(),
	}

	switch ev.Kind {
	case domain.EventMarketCreated:
		slots, err := strconv.Atoi(raw.SlotCount)
		if err != nil {
			return domain.Event{}, fmt.Errorf("outcome slot count %q: %w", raw.SlotCount, err)
		}
		fee, err := parseBig(raw.FeeBps)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Created = &domain.MarketCreated{
			ConditionID:      raw.ConditionID,
			QuestionID:       raw.QuestionID,
			CollateralToken:  raw.Collateral,
			Creator:          raw.Account,
			Fee:              fee,
			OutcomeSlotCount: slots,
			TokenName:        raw.TokenName,
			TokenSymbol:      raw.TokenSymbol,
		}

	case domain.EventFundingAdded:
		amounts, err := parseBigs(raw.Amounts)
		if err != nil {
			return domain.Event{}, err
		}
		shares, err := parseBig(raw.Shares)
		if err != nil {
			return domain.Event{}, err
		}
		ev.FundingAdded = &domain.FundingAdded{
			Funder:       raw.Account,
			AmountsAdded: amounts,
			SharesMinted: shares,
		}

	case domain.EventFundingRemoved:
		amounts, err := parseBigs(raw.Amounts)
		if err != nil {
			return domain.Event{}, err
		}
		shares, err := parseBig(raw.Shares)
		if err != nil {
			return domain.Event{}, err
		}
		collateral, err := parseBig(raw.Collateral2)
		if err != nil {
			return domain.Event{}, err
		}
		ev.FundingRemoved = &domain.FundingRemoved{
			Funder:            raw.Account,
			AmountsRemoved:    amounts,
			SharesBurnt:       shares,
			CollateralRemoved: collateral,
		}

	case domain.EventBuy, domain.EventSell:
		gross, err := parseBig(raw.GrossAmount)
		if err != nil {
			return domain.Event{}, err
		}
		fee, err := parseBig(raw.FeeAmount)
		if err != nil {
			return domain.Event{}, err
		}
		net, err := parseBig(raw.NetAmount)
		if err != nil {
			return domain.Event{}, err
		}
		tokens, err := parseBig(raw.OutcomeTokens)
		if err != nil {
			return domain.Event{}, err
		}
		index, err := strconv.Atoi(raw.OutcomeIndex)
		if err != nil {
			return domain.Event{}, fmt.Errorf("outcome index %q: %w", raw.OutcomeIndex, err)
		}
		total, err := parseBig(raw.TotalVolume)
		if err != nil {
			return domain.Event{}, err
		}
		if ev.Kind == domain.EventBuy {
			ev.Buy = &domain.Buy{
				Buyer:               raw.Account,
				InvestmentAmount:    gross,
				FeeAmount:           fee,
				NetInvestmentAmount: net,
				OutcomeIndex:        index,
				OutcomeTokensBought: tokens,
				QuestionID:          raw.QuestionID,
				TotalTradeVolume:    total,
			}
		} else {
			ev.Sell = &domain.Sell{
				Seller:            raw.Account,
				ReturnAmount:      gross,
				FeeAmount:         fee,
				NetReturnAmount:   net,
				OutcomeIndex:      index,
				OutcomeTokensSold: tokens,
				QuestionID:        raw.QuestionID,
				TotalTradeVolume:  total,
			}
		}

	case domain.EventPoolShareTransfer:
		amount, err := parseBig(raw.Shares)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Transfer = &domain.PoolShareTransfer{
			From:   raw.Account,
			To:     raw.Counterparty,
			Amount: amount,
		}

	case domain.EventCurrentPrice:
		long, err := parseBig(raw.LongPrice)
		if err != nil {
			return domain.Event{}, err
		}
		short, err := parseBig(raw.ShortPrice)
		if err != nil {
			return domain.Event{}, err
		}
		ev.Price = &domain.CurrentPrice{
			QuestionID: raw.QuestionID,
			LongPrice:  long,
			ShortPrice: short,
		}

	default:
		return domain.Event{}, fmt.Errorf("kind %q: %w", raw.Kind, domain.ErrUnknownEventKind)
	}

	return ev, nil
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return v, nil
}

func parseBigs(ss []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		v, err := parseBig(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// doQuery executes a GraphQL query and returns the raw "data" field.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}
	return gqlResp.Data, nil
}
