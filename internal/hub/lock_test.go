// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub_test

import (
	"strings"
	"testing"

	. "github.com/sandia-minimega/modushub/internal/hub"
)

func TestGenerateLockShape(t *testing.T) {
	lock, err := GenerateLock()
	if err != nil {
		t.Fatalf("GenerateLock: %v", err)
	}
	if !strings.HasPrefix(lock, "EXTENDEDPROTOCOL") {
		t.Fatalf("lock %q missing EXTENDEDPROTOCOL prefix", lock)
	}
}

func TestComputeKeyRoundTrip(t *testing.T) {
	lock, err := GenerateLock()
	if err != nil {
		t.Fatalf("GenerateLock: %v", err)
	}

	key := ComputeKey(lock)
	if key == "" {
		t.Fatal("expected a non-empty key")
	}
	if !VerifyKey(lock, key) {
		t.Fatalf("VerifyKey rejected the key ComputeKey produced for lock %q", lock)
	}
}

func TestVerifyKeyRejectsWrongKey(t *testing.T) {
	lock, err := GenerateLock()
	if err != nil {
		t.Fatalf("GenerateLock: %v", err)
	}
	if VerifyKey(lock, "garbage") {
		t.Fatal("expected VerifyKey to reject an unrelated key")
	}
}

func TestComputeKeyNeverLeaksRawSpecialBytes(t *testing.T) {
	for i := 0; i < 100; i++ {
		lock, err := GenerateLock()
		if err != nil {
			t.Fatalf("GenerateLock: %v", err)
		}
		key := ComputeKey(lock)
		for _, b := range []byte(key) {
			if b == 0 || b == 5 || b == 36 || b == 96 || b == 124 || b == 126 {
				t.Fatalf("key %q contains raw special byte %d unescaped", key, b)
			}
		}
	}
}
