// Package collateral resolves ERC-20 collateral token decimal scales. Every
// scaled (human-readable) figure in the engine divides a raw amount by
// 10^decimals of the market's collateral token.
package collateral

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// decimalsSelector is the 4-byte function selector of ERC-20 decimals().
var decimalsSelector = []byte{0x31, 0x3c, 0xe5, 0x67}

// ChainResolver reads decimals() straight from the token contract via an
// Ethereum JSON-RPC endpoint.
type ChainResolver struct {
	client *ethclient.Client
}

// NewChainResolver creates a ChainResolver over a connected client.
func NewChainResolver(client *ethclient.Client) *ChainResolver {
	return &ChainResolver{client: client}
}

// ScaleOf returns 10^decimals for the token at the latest block.
func (r *ChainResolver) ScaleOf(ctx context.Context, token string) (*big.Int, error) {
	addr := common.HexToAddress(token)
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: decimalsSelector}, nil)
	if err != nil {
		return nil, fmt.Errorf("collateral: decimals() call on %s: %w", token, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("collateral: decimals() on %s returned no data: %w", token, domain.ErrNotFound)
	}

	decimals := new(big.Int).SetBytes(out)
	if decimals.Cmp(big.NewInt(77)) > 0 {
		// 10^78 overflows a uint256; anything above is a bogus contract.
		return nil, fmt.Errorf("collateral: token %s reports %s decimals: %w", token, decimals, domain.ErrArithmeticDomain)
	}
	return new(big.Int).Exp(big.NewInt(10), decimals, nil), nil
}

var _ domain.CollateralScaler = (*ChainResolver)(nil)
