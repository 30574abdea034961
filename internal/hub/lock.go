// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const lockAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateLock produces a random string satisfying the NMDC lock grammar:
// printable ASCII, long enough that the derived key isn't trivially
// guessable, free of the bytes the escape table treats specially.
func GenerateLock() (string, error) {
	const n = 24
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(lockAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = lockAlphabet[idx.Int64()]
	}
	return "EXTENDEDPROTOCOL" + string(buf), nil
}

// escapedKeyByte is the set of raw byte values the NMDC key encoding must
// represent with a "/%DCNnnn%/" escape instead of the literal byte.
var escapedKeyByte = map[byte]bool{0: true, 5: true, 36: true, 96: true, 124: true, 126: true}

// ComputeKey derives the expected $Key reply for lock via the well-known
// NMDC lock->key transform: an XOR chain against the lock's own bytes
// followed by a 4-bit rotation of each resulting byte.
func ComputeKey(lock string) string {
	l := []byte(lock)
	n := len(l)
	if n == 0 {
		return ""
	}

	key := make([]byte, n)
	key[0] = l[0] ^ lastByte(l, 1) ^ lastByte(l, 2) ^ 5
	for i := 1; i < n; i++ {
		key[i] = l[i] ^ l[i-1]
	}
	for i := range key {
		key[i] = (key[i] << 4) | (key[i] >> 4)
	}

	var out []byte
	for _, b := range key {
		if escapedKeyByte[b] {
			out = append(out, []byte(fmt.Sprintf("/%%DCN%03d%%/", b))...)
		} else {
			out = append(out, b)
		}
	}
	return string(out)
}

// lastByte returns l[len(l)-n], the original algorithm's wraparound
// reference to the lock's final bytes.
func lastByte(l []byte, n int) byte {
	return l[len(l)-n]
}

// VerifyKey reports whether key is the correct response to lock.
func VerifyKey(lock, key string) bool {
	return ComputeKey(lock) == key
}
