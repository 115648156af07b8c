package postgres

import (
	"fmt"
	"math/big"
)

// Raw integer amounts are persisted as TEXT so values beyond int64 survive
// round trips exactly; price ratios are persisted as "num/denom" strings.

func encodeBig(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decodeBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: malformed integer %q", s)
	}
	return v, nil
}

func encodeBigs(vs []*big.Int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = encodeBig(v)
	}
	return out
}

func decodeBigs(ss []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		v, err := decodeBig(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func encodeRats(vs []*big.Rat) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		if v == nil {
			out[i] = "0/1"
			continue
		}
		out[i] = v.RatString()
	}
	return out
}

func decodeRats(ss []string) ([]*big.Rat, error) {
	out := make([]*big.Rat, len(ss))
	for i, s := range ss {
		v, ok := new(big.Rat).SetString(s)
		if !ok {
			return nil, fmt.Errorf("postgres: malformed ratio %q", s)
		}
		out[i] = v
	}
	return out, nil
}
