package chain

import (
	"math/big"
	"testing"
)

func TestToWei(t *testing.T) {
	cases := []struct {
		in   string
		want *big.Int
	}{
		{"1", AMBToWei(1)},
		{"5", AMBToWei(5)},
		{"0.5", big.NewInt(5e17)},
		{"0.000000000000000001", big.NewInt(1)},
		{" 2 ", AMBToWei(2)},
		{"2.5", new(big.Int).Add(AMBToWei(2), big.NewInt(5e17))},
	}
	for _, tc := range cases {
		got, err := ToWei(tc.in)
		if err != nil {
			t.Errorf("ToWei(%q) error: %v", tc.in, err)
			continue
		}
		if got.Cmp(tc.want) != 0 {
			t.Errorf("ToWei(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestToWeiRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "0", "-1", "-0.5", "1/2", "1 2", "1,5"} {
		if _, err := ToWei(in); err == nil {
			t.Errorf("ToWei(%q) accepted, want error", in)
		}
	}
}

func TestFromWei(t *testing.T) {
	cases := []struct {
		in   *big.Int
		want string
	}{
		{nil, "0"},
		{big.NewInt(0), "0"},
		{AMBToWei(1), "1"},
		{AMBToWei(5), "5"},
		{big.NewInt(5e17), "0.5"},
		{big.NewInt(1), "0.000000000000000001"},
		{new(big.Int).Add(AMBToWei(2), big.NewInt(5e17)), "2.5"},
	}
	for _, tc := range cases {
		if got := FromWei(tc.in); got != tc.want {
			t.Errorf("FromWei(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"1", "0.25", "100", "0.000000000000000001"} {
		wei, err := ToWei(s)
		if err != nil {
			t.Fatalf("ToWei(%q): %v", s, err)
		}
		if got := FromWei(wei); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestAMBToWei(t *testing.T) {
	want, _ := new(big.Int).SetString("2000000000000000000", 10)
	if got := AMBToWei(2); got.Cmp(want) != 0 {
		t.Errorf("AMBToWei(2) = %s, want %s", got, want)
	}
}
