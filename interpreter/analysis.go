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
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/petravm/petra"
	"github.com/petravm/petra/vm"
)

// AnalysisConfig contains a set of configuration options for the code
// analysis.
type AnalysisConfig struct {
	// CacheSize is the maximum number of code analyses retained in the
	// cache. If set to 0, a default size is used. If negative, no cache
	// is used.
	CacheSize int
}

// analyzer computes and caches jump-destination analyses of contract codes.
// Analyses are cached by code hash, since the same contract code is
// typically executed many times.
type analyzer struct {
	config AnalysisConfig
	cache  *lru.Cache[petra.Hash, analysis]
}

func newAnalyzer(config AnalysisConfig) (*analyzer, error) {
	if config.CacheSize == 0 {
		config.CacheSize = 1 << 15
	}

	var cache *lru.Cache[petra.Hash, analysis]
	if config.CacheSize > 0 {
		var err error
		cache, err = lru.New[petra.Hash, analysis](config.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	return &analyzer{
		config: config,
		cache:  cache,
	}, nil
}

// analyze obtains the jump-destination analysis for the given code. If the
// provided code hash is not nil, it is assumed to be a valid hash of the code
// and is used to cache the analysis result. If the hash is nil, the result is
// not cached.
func (a *analyzer) analyze(code []byte, codeHash *petra.Hash) analysis {
	if a.cache == nil || codeHash == nil {
		return analyzeCode(code)
	}

	res, exists := a.cache.Get(*codeHash)
	if exists {
		return res
	}

	res = analyzeCode(code)
	if len(code) > maxCachedCodeLength {
		return res
	}

	a.cache.Add(*codeHash, res)
	return res
}

// maxCachedCodeLength is the maximum length of a code in bytes retained in
// the cache. To avoid excessive memory usage, longer codes are not cached.
// The defined limit is the maximum size of a deployed contract; only
// initialization codes can be longer. Such init codes are deliberately not
// cached due to the expected limited re-use and the missing code hash.
const maxCachedCodeLength = maxCodeSize

// analysis is the result of scanning a contract code. It identifies the code
// positions that are valid jump destinations: positions holding a JUMPDEST
// instruction that is not part of the immediate data of a PUSH instruction.
type analysis []uint64

// isJumpDest returns whether the given position is a valid jump destination.
func (a analysis) isJumpDest(pos uint64) bool {
	if pos/64 >= uint64(len(a)) {
		return false
	}
	return a[pos/64]&(uint64(1)<<(pos%64)) != 0
}

func (a analysis) markJumpDest(pos int) {
	a[pos/64] |= uint64(1) << (pos % 64)
}

func analyzeCode(code []byte) analysis {
	res := make(analysis, (len(code)+63)/64)
	for i := 0; i < len(code); {
		op := vm.OpCode(code[i])
		if op == vm.JUMPDEST {
			res.markJumpDest(i)
		}
		// The immediate data of a PUSH is skipped, so a 0x5b byte inside
		// it is never a valid destination.
		i += op.Width()
	}
	return res
}
