package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// WeiPerAMB is the number of base units in one AMB.
var WeiPerAMB = big.NewInt(params.Ether)

// ToWei converts a decimal AMB amount entered by a user into wei.
// Non-numeric input and amounts <= 0 are rejected.
func ToWei(amount string) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" || strings.ContainsAny(s, "/ ") {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	r.Mul(r, new(big.Rat).SetInt(WeiPerAMB))
	wei := new(big.Int).Quo(r.Num(), r.Denom())
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	return wei, nil
}

// FromWei renders a wei amount as a decimal AMB string with trailing
// zeroes trimmed.
func FromWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(wei, WeiPerAMB)
	out := r.FloatString(18)
	out = strings.TrimRight(out, "0")
	out = strings.TrimRight(out, ".")
	if out == "" || out == "-" {
		return "0"
	}
	return out
}

// AMBToWei converts a whole number of AMB (e.g. the registration fee) to wei.
func AMBToWei(amb int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amb), WeiPerAMB)
}
