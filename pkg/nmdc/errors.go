// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package nmdc implements the wire-level pieces of the Neo-Modus Direct
// Connect protocol: frame splitting, the hub escape table, and the small
// parsers (duration, IP prefix) shared by several administrative verbs.
package nmdc

import "github.com/pkg/errors"

// Sentinel errors returned by this package. Callers compare with
// errors.Is; wrapping with additional context is expected.
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrVerbTooLong    = errors.New("verb exceeds maximum length")
	ErrMissingArgs    = errors.New("missing required arguments")
	ErrBadArgument    = errors.New("bad argument")
)
