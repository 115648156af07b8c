package numeric_test

import (
	"math/big"
	"testing"

	"github.com/alanyoungcy/fpmm-indexer/internal/numeric"
)

func TestNthRoot_KnownValues(t *testing.T) {
	cases := []struct {
		value string
		n     int
		want  string
	}{
		{"0", 2, "0"},
		{"1", 2, "1"},
		{"4", 2, "2"},
		{"8", 3, "2"},
		{"9", 2, "3"},
		{"10", 2, "3"},
		{"11440", 2, "106"},
		{"1000000", 2, "1000"},
		{"1000000", 3, "100"},
		{"999999", 3, "99"},
		{"27", 3, "3"},
		{"26", 3, "2"},
		{"10000", 1, "10000"},
	}
	for _, tc := range cases {
		v, _ := new(big.Int).SetString(tc.value, 10)
		got := numeric.NthRoot(v, tc.n)
		if got.String() != tc.want {
			t.Errorf("NthRoot(%s, %d) = %s, want %s", tc.value, tc.n, got, tc.want)
		}
	}
}

// floor property: r^n <= x < (r+1)^n
func TestNthRoot_FloorProperty(t *testing.T) {
	values := []string{
		"2",
		"12345",
		"99999999999999999999",
		"340282366920938463463374607431768211456",                                        // 2^128
		"115792089237316195423570985008687907853269984665640564039457584007913129639935", // 2^256-1
	}
	for _, s := range values {
		x, _ := new(big.Int).SetString(s, 10)
		for n := 2; n <= 8; n++ {
			r := numeric.NthRoot(x, n)
			bigN := big.NewInt(int64(n))
			rn := new(big.Int).Exp(r, bigN, nil)
			if rn.Cmp(x) > 0 {
				t.Errorf("NthRoot(%s, %d)=%s: r^n > x", s, n, r)
			}
			r1n := new(big.Int).Exp(new(big.Int).Add(r, big.NewInt(1)), bigN, nil)
			if r1n.Cmp(x) <= 0 {
				t.Errorf("NthRoot(%s, %d)=%s: (r+1)^n <= x", s, n, r)
			}
		}
	}
}

func TestNthRoot_Deterministic(t *testing.T) {
	x, _ := new(big.Int).SetString("98765432109876543210987654321098765432109876543210", 10)
	a := numeric.NthRoot(x, 5)
	b := numeric.NthRoot(x, 5)
	if a.Cmp(b) != 0 {
		t.Errorf("NthRoot not deterministic: %s vs %s", a, b)
	}
}

func TestProd(t *testing.T) {
	got := numeric.Prod([]*big.Int{big.NewInt(104), big.NewInt(110)})
	if got.Int64() != 11440 {
		t.Errorf("Prod([104,110]) = %s, want 11440", got)
	}
	if numeric.Prod(nil).Int64() != 1 {
		t.Error("Prod(nil) should be 1")
	}
}

func TestMax(t *testing.T) {
	vs := []*big.Int{big.NewInt(5), big.NewInt(9), big.NewInt(9), big.NewInt(3)}
	got := numeric.Max(vs)
	if got.Int64() != 9 {
		t.Errorf("Max = %s, want 9", got)
	}
	if numeric.Max(nil) != nil {
		t.Error("Max(empty) should be nil")
	}
}
