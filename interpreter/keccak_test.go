// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interpreter

import (
	"fmt"
	"testing"
)

func TestKeccak256_MatchesKnownHashes(t *testing.T) {
	tests := map[string]string{
		"":    "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		"abc": "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45",
	}

	for input, want := range tests {
		hash := Keccak256([]byte(input))
		// format the raw bytes; %x on the Hash itself would go through its
		// Stringer and hex-encode the "0x..." text
		if got := fmt.Sprintf("%x", hash[:]); want != got {
			t.Errorf("expected hash of %q to be %s, but got %s", input, want, got)
		}
	}
}

func TestKeccak256_EmptyInputUsesPrecomputedHash(t *testing.T) {
	if want, got := emptyKeccak256Hash, Keccak256(nil); want != got {
		t.Errorf("expected %x, but got %x", want, got)
	}
	if want, got := emptyKeccak256Hash, Keccak256([]byte{}); want != got {
		t.Errorf("expected %x, but got %x", want, got)
	}
}

func BenchmarkKeccak256(b *testing.B) {
	data := make([]byte, 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Keccak256(data)
	}
}
