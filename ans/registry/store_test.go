package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestMapInsertError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pq.Error{Code: "23505"}, ErrNameTaken},
		{"wrapped unique violation", fmt.Errorf("exec: %w", &pq.Error{Code: "23505"}), ErrNameTaken},
		{"other pq error", &pq.Error{Code: "42P01"}, nil},
		{"plain error", errors.New("connection reset"), nil},
	}
	for _, tc := range cases {
		if got := mapInsertError(tc.err); !errors.Is(got, tc.want) {
			t.Errorf("%s: mapInsertError = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Alice.AMB":   "alice.amb",
		"  bob.amb ":  "bob.amb",
		"charlie.amb": "charlie.amb",
	}
	for in, want := range cases {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
