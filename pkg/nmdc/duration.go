// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package nmdc

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// durationUnits maps a (lowercased) suffix letter to a seconds multiplier.
var durationUnits = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 604800,
	'y': 31536000,
}

// ParseDurationSeconds parses a punishment-duration string into a count of
// seconds. A bare integer is seconds; a trailing unit letter (s/m/h/d/w/y,
// case-insensitive) scales it. "30" -> 30, "30s" -> 30, "5m" -> 300,
// "2h" -> 7200, "1d" -> 86400, "1w" -> 604800, "1y" -> 31536000.
func ParseDurationSeconds(s string) (int64, error) {
	if s == "" {
		return 0, errors.Wrap(ErrBadArgument, "empty duration")
	}

	last := s[len(s)-1]
	unit, hasUnit := durationUnits[byte(strings.ToLower(string(last))[0])]
	numPart := s
	if hasUnit {
		numPart = s[:len(s)-1]
	} else {
		unit = 1
	}

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrBadArgument, "duration %q is not parseable", s)
	}

	return n * unit, nil
}
