// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import (
	"math/rand"
	"strings"
)

// Garble deterministically-from-rng transforms a stupidified user's chat
// message (§4.3). factor is the configured stupidfactor; higher values
// make the effect milder. rng is injected so tests can fix the seed.
func Garble(rng *rand.Rand, factor int, message string) string {
	if factor <= 0 {
		factor = 1
	}

	message = strings.ReplaceAll(message, " you ", " u ")
	message = strings.ReplaceAll(message, " are ", " r ")

	transpositions := 0
	if len(message) > 0 {
		transpositions = (rng.Intn(len(message)) + 1) / factor
	}
	for i := 0; i < transpositions && len(message) >= 5; i++ {
		idx := 2 + rng.Intn(len(message)-4) // idx in [2, len-3]
		b := []byte(message)
		b[idx], b[idx+1] = b[idx+1], b[idx]
		message = string(b)
	}

	bangs := 0
	if len(message) > 0 {
		bangs = (rng.Intn(len(message)) + 1) / factor
	}
	message += strings.Repeat("!", bangs)

	if rng.Float64() < 0.1 {
		message = swapCase(message)
	}

	return message
}

func swapCase(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - ('a' - 'A')
		case c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
