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
	"testing"

	"github.com/petravm/petra"
	"github.com/petravm/petra/vm"
	"pgregory.net/rand"
)

func TestAnalysis_JumpDestInPushDataIsNotADestination(t *testing.T) {
	// PUSH2 0x5b5b JUMPDEST
	code := []byte{byte(vm.PUSH2), 0x5b, 0x5b, byte(vm.JUMPDEST)}
	res := analyzeCode(code)

	for pos, want := range map[uint64]bool{0: false, 1: false, 2: false, 3: true, 4: false} {
		if got := res.isJumpDest(pos); want != got {
			t.Errorf("expected isJumpDest(%d) to be %t, but got %t", pos, want, got)
		}
	}
}

func TestAnalysis_PositionsBeyondTheCodeAreNoDestinations(t *testing.T) {
	res := analyzeCode([]byte{byte(vm.JUMPDEST)})
	if res.isJumpDest(1) || res.isJumpDest(64) || res.isJumpDest(1<<40) {
		t.Errorf("expected positions beyond the code to be rejected")
	}
}

func TestAnalysis_MatchesNaiveReferenceOnRandomCodes(t *testing.T) {
	rnd := rand.New(0)
	for i := 0; i < 100; i++ {
		code := make([]byte, rnd.Intn(200))
		rnd.Read(code)

		want := referenceJumpDests(code)
		got := analyzeCode(code)
		for pos := 0; pos < len(code); pos++ {
			if want[pos] != got.isJumpDest(uint64(pos)) {
				t.Fatalf("mismatch for code %x at position %d: expected %t", code, pos, want[pos])
			}
		}
	}
}

// referenceJumpDests marks the valid jump destinations by scanning the code
// instruction by instruction, without the bit-set packing.
func referenceJumpDests(code []byte) []bool {
	res := make([]bool, len(code))
	for i := 0; i < len(code); {
		op := vm.OpCode(code[i])
		if op == vm.JUMPDEST {
			res[i] = true
		}
		if vm.PUSH1 <= op && op <= vm.PUSH32 {
			i += int(op-vm.PUSH1) + 1
		}
		i++
	}
	return res
}

func TestAnalyzer_ResultsAreCachedByCodeHash(t *testing.T) {
	analyzer, err := newAnalyzer(AnalysisConfig{})
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}

	code := []byte{byte(vm.JUMPDEST)}
	hash := Keccak256(code)

	first := analyzer.analyze(code, &hash)
	second := analyzer.analyze(nil, &hash) // < hit must not re-scan the code
	if !second.isJumpDest(0) {
		t.Errorf("expected the cached analysis to be reused")
	}
	if &first[0] != &second[0] {
		t.Errorf("expected both analyses to share their backing data")
	}
}

func TestAnalyzer_MissingHashSkipsTheCache(t *testing.T) {
	analyzer, err := newAnalyzer(AnalysisConfig{})
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}

	code := []byte{byte(vm.JUMPDEST)}
	res := analyzer.analyze(code, nil)
	if !res.isJumpDest(0) {
		t.Errorf("expected analysis to be computed without a hash")
	}
	if want, got := 0, analyzer.cache.Len(); want != got {
		t.Errorf("expected the cache to stay empty, but it holds %d entries", got)
	}
}

func TestAnalyzer_NegativeCacheSizeDisablesTheCache(t *testing.T) {
	analyzer, err := newAnalyzer(AnalysisConfig{CacheSize: -1})
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}
	hash := petra.Hash{1}
	if res := analyzer.analyze([]byte{byte(vm.JUMPDEST)}, &hash); !res.isJumpDest(0) {
		t.Errorf("expected analysis to be computed without a cache")
	}
	if analyzer.cache != nil {
		t.Errorf("expected no cache to be created")
	}
}
