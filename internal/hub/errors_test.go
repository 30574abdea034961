// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub_test

import (
	"fmt"
	"testing"

	. "github.com/sandia-minimega/modushub/internal/hub"
)

func TestAsErrorUnwrapsWrappedError(t *testing.T) {
	base := NewError(BannedNick, "nick is banned")
	wrapped := fmt.Errorf("validating nick: %w", base)

	got, ok := AsError(wrapped)
	if !ok {
		t.Fatal("expected AsError to find the wrapped *Error")
	}
	if got.Kind != BannedNick {
		t.Fatalf("expected Kind BannedNick, got %v", got.Kind)
	}
}

func TestAsErrorRejectsPlainError(t *testing.T) {
	if _, ok := AsError(fmt.Errorf("plain")); ok {
		t.Fatal("expected AsError to reject a non-*Error")
	}
}

func TestErrorKindString(t *testing.T) {
	if BannedIP.String() == "" {
		t.Fatal("expected a non-empty Kind string")
	}
}
