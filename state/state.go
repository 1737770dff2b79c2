// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"bytes"

	"github.com/petravm/petra"
	"github.com/petravm/petra/interpreter"
	"golang.org/x/exp/maps"
)

// State is an in-memory implementation of a petra.TransactionContext. It
// tracks a set of accounts, supports snapshots of the full account state,
// and records the logs emitted during an execution.
//
// Accounts that were never written to are indistinguishable from accounts
// holding all-zero values. The implementation is not thread-safe.
type State struct {
	accounts  map[petra.Address]*account
	logs      []petra.Log
	snapshots []snapshot
}

type account struct {
	balance petra.Value
	nonce   uint64
	code    petra.Code
	storage map[petra.Key]petra.Word
}

func (a *account) clone() *account {
	return &account{
		balance: a.balance,
		nonce:   a.nonce,
		code:    bytes.Clone(a.code),
		storage: maps.Clone(a.storage),
	}
}

func (a *account) empty() bool {
	return a.balance == (petra.Value{}) && a.nonce == 0 && len(a.code) == 0
}

type snapshot struct {
	accounts map[petra.Address]*account
	numLogs  int
}

// New creates an empty state.
func New() *State {
	return &State{
		accounts: map[petra.Address]*account{},
	}
}

func (s *State) get(addr petra.Address) *account {
	return s.accounts[addr]
}

func (s *State) getOrAdd(addr petra.Address) *account {
	res, found := s.accounts[addr]
	if !found {
		res = &account{storage: map[petra.Key]petra.Word{}}
		s.accounts[addr] = res
	}
	return res
}

func (s *State) AccountExists(addr petra.Address) bool {
	cur := s.get(addr)
	return cur != nil && !cur.empty()
}

func (s *State) GetBalance(addr petra.Address) petra.Value {
	if cur := s.get(addr); cur != nil {
		return cur.balance
	}
	return petra.Value{}
}

func (s *State) SetBalance(addr petra.Address, balance petra.Value) {
	s.getOrAdd(addr).balance = balance
}

func (s *State) GetNonce(addr petra.Address) uint64 {
	if cur := s.get(addr); cur != nil {
		return cur.nonce
	}
	return 0
}

func (s *State) SetNonce(addr petra.Address, nonce uint64) {
	s.getOrAdd(addr).nonce = nonce
}

func (s *State) GetCode(addr petra.Address) petra.Code {
	if cur := s.get(addr); cur != nil {
		return cur.code
	}
	return nil
}

func (s *State) GetCodeHash(addr petra.Address) petra.Hash {
	return interpreter.Keccak256(s.GetCode(addr))
}

func (s *State) GetCodeSize(addr petra.Address) int {
	return len(s.GetCode(addr))
}

func (s *State) SetCode(addr petra.Address, code petra.Code) {
	s.getOrAdd(addr).code = code
}

func (s *State) GetStorage(addr petra.Address, key petra.Key) petra.Word {
	if cur := s.get(addr); cur != nil {
		return cur.storage[key]
	}
	return petra.Word{}
}

func (s *State) SetStorage(addr petra.Address, key petra.Key, value petra.Word) petra.StorageStatus {
	cur := s.getOrAdd(addr)
	status := petra.GetStorageStatus(cur.storage[key], value)
	if value == (petra.Word{}) {
		delete(cur.storage, key)
	} else {
		cur.storage[key] = value
	}
	return status
}

// CreateSnapshot captures the full current account state. The returned
// snapshot remains valid until it or an older snapshot is restored.
func (s *State) CreateSnapshot() petra.Snapshot {
	accounts := make(map[petra.Address]*account, len(s.accounts))
	for addr, cur := range s.accounts {
		accounts[addr] = cur.clone()
	}
	s.snapshots = append(s.snapshots, snapshot{
		accounts: accounts,
		numLogs:  len(s.logs),
	})
	return petra.Snapshot(len(s.snapshots) - 1)
}

// RestoreSnapshot resets the account state and the emitted logs to the
// state captured by the given snapshot. All newer snapshots are discarded.
func (s *State) RestoreSnapshot(id petra.Snapshot) {
	if int(id) < 0 || int(id) >= len(s.snapshots) {
		return
	}
	restored := s.snapshots[id]
	s.accounts = restored.accounts
	s.logs = s.logs[:restored.numLogs]
	s.snapshots = s.snapshots[:id]
}

func (s *State) EmitLog(log petra.Log) {
	s.logs = append(s.logs, log)
}

func (s *State) GetLogs() []petra.Log {
	return s.logs
}
