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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/petravm/petra"
)

// The JSON world format describes the accounts of a state:
//
//	{
//	  "accounts": {
//	    "0x<20-byte address>": {
//	      "balance": "0x100",
//	      "nonce": 1,
//	      "code": "0x6001600101",
//	      "storage": { "0x01": "0x2a" }
//	    }
//	  }
//	}
//
// Balances, storage keys, and storage values accept hex strings of any
// length up to 32 bytes. Addresses are always 20 bytes.

type worldJSON struct {
	Accounts map[petra.Address]accountJSON `json:"accounts"`
}

type accountJSON struct {
	Balance string            `json:"balance,omitempty"`
	Nonce   uint64            `json:"nonce,omitempty"`
	Code    string            `json:"code,omitempty"`
	Storage map[string]string `json:"storage,omitempty"`
}

// Read parses a state in the JSON world format.
func Read(reader io.Reader) (*State, error) {
	var world worldJSON
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&world); err != nil {
		return nil, fmt.Errorf("failed to parse world state: %w", err)
	}

	res := New()
	for addr, cur := range world.Accounts {
		account := res.getOrAdd(addr)
		account.nonce = cur.Nonce
		if cur.Balance != "" {
			balance, err := parseWord(cur.Balance)
			if err != nil {
				return nil, fmt.Errorf("invalid balance of account %v: %w", addr, err)
			}
			account.balance = petra.Value(balance)
		}
		if cur.Code != "" {
			code, err := parseCode(cur.Code)
			if err != nil {
				return nil, fmt.Errorf("invalid code of account %v: %w", addr, err)
			}
			account.code = code
		}
		for key, value := range cur.Storage {
			k, err := parseWord(key)
			if err != nil {
				return nil, fmt.Errorf("invalid storage key of account %v: %w", addr, err)
			}
			v, err := parseWord(value)
			if err != nil {
				return nil, fmt.Errorf("invalid storage value of account %v: %w", addr, err)
			}
			if v != (petra.Word{}) {
				account.storage[petra.Key(k)] = v
			}
		}
	}
	return res, nil
}

// ReadFile parses the file with the given path in the JSON world format.
func ReadFile(path string) (*State, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}

// Write exports the state in the JSON world format. Accounts holding
// all-zero values are skipped. The output is deterministic; accounts and
// storage slots are ordered by their keys.
func (s *State) Write(writer io.Writer) error {
	world := worldJSON{Accounts: map[petra.Address]accountJSON{}}
	for addr, cur := range s.accounts {
		if cur.empty() && len(cur.storage) == 0 {
			continue
		}
		entry := accountJSON{
			Nonce: cur.nonce,
		}
		if cur.balance != (petra.Value{}) {
			entry.Balance = formatWord(petra.Word(cur.balance))
		}
		if len(cur.code) != 0 {
			entry.Code = fmt.Sprintf("0x%x", []byte(cur.code))
		}
		if len(cur.storage) != 0 {
			entry.Storage = map[string]string{}
			for key, value := range cur.storage {
				entry.Storage[formatWord(petra.Word(key))] = formatWord(value)
			}
		}
		world.Accounts[addr] = entry
	}

	encoded, err := json.MarshalIndent(world, "", "  ")
	if err != nil {
		return err
	}
	_, err = writer.Write(append(encoded, '\n'))
	return err
}

// WriteFile exports the state in the JSON world format to the given path.
func (s *State) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func parseWord(s string) (petra.Word, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return petra.Word{}, fmt.Errorf("missing 0x prefix in %q", s)
	}
	digits := s[2:]
	if digits == "" {
		return petra.Word{}, fmt.Errorf("missing digits in %q", s)
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	data, err := hex.DecodeString(digits)
	if err != nil {
		return petra.Word{}, err
	}
	if len(data) > 32 {
		return petra.Word{}, fmt.Errorf("value %q exceeds 32 bytes", s)
	}
	var res petra.Word
	copy(res[32-len(data):], data)
	return res, nil
}

func formatWord(w petra.Word) string {
	return new(uint256.Int).SetBytes(w[:]).Hex()
}

func parseCode(s string) (petra.Code, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("missing 0x prefix in %q", s)
	}
	return hex.DecodeString(s[2:])
}
