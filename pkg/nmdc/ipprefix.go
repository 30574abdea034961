// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package nmdc

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseIPPrefix validates a punishment entry of the form "12.34.56." or
// "12.34.56.78" or a partial prefix with trailing dots allowed: up to four
// dotted octets, each in [0,255]. It returns the entry unchanged (it is used
// verbatim as a lexical prefix, see MatchIPPrefix) or ErrBadArgument.
func ParseIPPrefix(entry string) (string, error) {
	parts := strings.Split(entry, ".")
	if len(parts) > 4 {
		return "", errors.Wrapf(ErrBadArgument, "bad IP format %q: too many octets", entry)
	}

	for _, part := range parts {
		if part == "" {
			// trailing dot, or a run of dots, is allowed
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return "", errors.Wrapf(ErrBadArgument, "bad IP format %q: %q is not numeric", entry, part)
		}
		if n < 0 || n > 255 {
			return "", errors.Wrapf(ErrBadArgument, "bad IP format %q: octet %d out of range", entry, n)
		}
	}

	return entry, nil
}

// MatchIPPrefix reports whether ip lexically starts with prefix, the
// matching rule used by the ban/silence/stupidify IP-range entries.
func MatchIPPrefix(ip, prefix string) bool {
	return strings.HasPrefix(ip, prefix)
}
