// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package nmdc_test

import (
	"testing"

	. "github.com/sandia-minimega/modushub/pkg/nmdc"
)

func TestParseDurationSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"30", 30},
		{"30s", 30},
		{"5m", 300},
		{"2h", 7200},
		{"1d", 86400},
		{"1w", 604800},
		{"1y", 31536000},
		{"1S", 1},
		{"1D", 86400},
	}

	for _, c := range cases {
		got, err := ParseDurationSeconds(c.in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q: got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseDurationBad(t *testing.T) {
	for _, in := range []string{"", "abc", "d"} {
		if _, err := ParseDurationSeconds(in); err == nil {
			t.Errorf("%q: expected an error", in)
		}
	}
}
