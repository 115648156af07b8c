package feed

import (
	"errors"
	"testing"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

func TestDecodeMessageBuy(t *testing.T) {
	msg := []byte(`{
		"kind": "buy",
		"market": "0x00000000000000000000000000000000000000bb",
		"blockNumber": 102,
		"logIndex": 3,
		"transactionHash": "0xf002",
		"timestamp": 1700000120,
		"account": "0x00000000000000000000000000000000000000dd",
		"questionId": "0x01",
		"grossAmount": "10000000",
		"feeAmount": "200000",
		"netAmount": "9800000",
		"outcomeIndex": 1,
		"outcomeTokens": "6000000",
		"totalTradeVolume": "10000000"
	}`)

	ev, err := decodeMessage(msg)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if ev.Kind != domain.EventBuy {
		t.Errorf("kind = %q, want buy", ev.Kind)
	}
	if ev.Buy == nil {
		t.Fatal("Buy payload is nil")
	}
	if got, want := ev.Buy.InvestmentAmount.Int64(), int64(10_000_000); got != want {
		t.Errorf("investment = %d, want %d", got, want)
	}
	if got, want := ev.ID(), "0xf002-3-buy"; got != want {
		t.Errorf("id = %q, want %q", got, want)
	}
}

func TestDecodeMessageTransfer(t *testing.T) {
	msg := []byte(`{
		"kind": "pool_share_transfer",
		"market": "0x00000000000000000000000000000000000000bb",
		"blockNumber": 101,
		"logIndex": 2,
		"transactionHash": "0xf001",
		"timestamp": 1700000060,
		"account": "0x0000000000000000000000000000000000000000",
		"counterparty": "0x00000000000000000000000000000000000000cc",
		"shares": "100"
	}`)

	ev, err := decodeMessage(msg)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if ev.Transfer == nil {
		t.Fatal("Transfer payload is nil")
	}
	if got, want := ev.Transfer.Amount.Int64(), int64(100); got != want {
		t.Errorf("amount = %d, want %d", got, want)
	}
}

func TestDecodeMessageUnknownKind(t *testing.T) {
	_, err := decodeMessage([]byte(`{"kind":"liquidation","blockNumber":1}`))
	if !errors.Is(err, domain.ErrUnknownEventKind) {
		t.Fatalf("error = %v, want ErrUnknownEventKind", err)
	}
}

func TestDecodeMessageMalformedAmount(t *testing.T) {
	_, err := decodeMessage([]byte(`{"kind":"funding_added","amounts":["abc"],"shares":"1"}`))
	if err == nil {
		t.Fatal("expected error for malformed amount")
	}
}
