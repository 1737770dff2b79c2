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
	"strings"
	"testing"

	"github.com/petravm/petra"
)

func TestRead_ParsesAFullWorldDocument(t *testing.T) {
	document := `{
	  "accounts": {
	    "0x0000000000000000000000000000000000000100": {
	      "balance": "0x100",
	      "nonce": 3,
	      "code": "0x6001600101",
	      "storage": {
	        "0x01": "0x2a",
	        "0x02": "0x0"
	      }
	    }
	  }
	}`

	state, err := Read(strings.NewReader(document))
	if err != nil {
		t.Fatalf("failed to read world state: %v", err)
	}

	addr := petra.Address{18: 0x01}
	if want, got := petra.NewValue(0x100), state.GetBalance(addr); want != got {
		t.Errorf("expected balance %v, but got %v", want, got)
	}
	if want, got := uint64(3), state.GetNonce(addr); want != got {
		t.Errorf("expected nonce %d, but got %d", want, got)
	}
	if want, got := (petra.Code{0x60, 0x01, 0x60, 0x01, 0x01}), state.GetCode(addr); !bytes.Equal(want, got) {
		t.Errorf("expected code %x, but got %x", want, got)
	}
	if want, got := (petra.Word{31: 0x2a}), state.GetStorage(addr, petra.Key{31: 1}); want != got {
		t.Errorf("expected storage value %v, but got %v", want, got)
	}
	// storage slots written with a zero value are not retained
	if want, got := 1, len(state.get(addr).storage); want != got {
		t.Errorf("expected %d storage slots, but got %d", want, got)
	}
}

func TestRead_ShortHexValuesAreLeftPadded(t *testing.T) {
	document := `{"accounts": {"0x0000000000000000000000000000000000000001": {"balance": "0x5"}}}`
	state, err := Read(strings.NewReader(document))
	if err != nil {
		t.Fatalf("failed to read world state: %v", err)
	}
	if want, got := petra.NewValue(5), state.GetBalance(petra.Address{19: 1}); want != got {
		t.Errorf("expected balance %v, but got %v", want, got)
	}
}

func TestRead_RejectsMalformedDocuments(t *testing.T) {
	tests := map[string]string{
		"unknown field":     `{"account": {}}`,
		"short address":     `{"accounts": {"0x01": {}}}`,
		"balance no prefix": `{"accounts": {"0x0000000000000000000000000000000000000001": {"balance": "100"}}}`,
		"balance no digits": `{"accounts": {"0x0000000000000000000000000000000000000001": {"balance": "0x"}}}`,
		"balance too wide":  `{"accounts": {"0x0000000000000000000000000000000000000001": {"balance": "0x` + strings.Repeat("ff", 33) + `"}}}`,
		"code not hex":      `{"accounts": {"0x0000000000000000000000000000000000000001": {"code": "0xzz"}}}`,
		"storage bad key":   `{"accounts": {"0x0000000000000000000000000000000000000001": {"storage": {"01": "0x01"}}}}`,
	}
	for name, document := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(document)); err == nil {
				t.Errorf("expected the document to be rejected")
			}
		})
	}
}

func TestWrite_ReadBackYieldsTheSameState(t *testing.T) {
	original := New()
	addr := petra.Address{19: 0x42}
	original.SetBalance(addr, petra.NewValue(1000))
	original.SetNonce(addr, 2)
	original.SetCode(addr, petra.Code{0x60, 0x2a})
	original.SetStorage(addr, petra.Key{31: 1}, petra.Word{31: 7})

	var buf bytes.Buffer
	if err := original.Write(&buf); err != nil {
		t.Fatalf("failed to write world state: %v", err)
	}

	restored, err := Read(&buf)
	if err != nil {
		t.Fatalf("failed to read the exported state: %v", err)
	}
	if want, got := original.GetBalance(addr), restored.GetBalance(addr); want != got {
		t.Errorf("expected balance %v, but got %v", want, got)
	}
	if want, got := original.GetNonce(addr), restored.GetNonce(addr); want != got {
		t.Errorf("expected nonce %d, but got %d", want, got)
	}
	if !bytes.Equal(original.GetCode(addr), restored.GetCode(addr)) {
		t.Errorf("expected code %x, but got %x", original.GetCode(addr), restored.GetCode(addr))
	}
	if want, got := original.GetStorage(addr, petra.Key{31: 1}), restored.GetStorage(addr, petra.Key{31: 1}); want != got {
		t.Errorf("expected storage value %v, but got %v", want, got)
	}
}

func TestWrite_EmptyAccountsAreSkipped(t *testing.T) {
	state := New()
	state.SetBalance(petra.Address{1}, petra.NewValue(1))
	state.SetBalance(petra.Address{1}, petra.NewValue(0))

	var buf bytes.Buffer
	if err := state.Write(&buf); err != nil {
		t.Fatalf("failed to write world state: %v", err)
	}
	if strings.Contains(buf.String(), "0x01") {
		t.Errorf("expected the empty account to be skipped, but got:\n%s", buf.String())
	}
}

func TestReadFile_ReportsMissingFiles(t *testing.T) {
	if _, err := ReadFile(t.TempDir() + "/no-such-file.json"); err == nil {
		t.Errorf("expected a missing file to be reported")
	}
}

func TestWriteFile_RoundTripsThroughTheFileSystem(t *testing.T) {
	state := New()
	state.SetBalance(petra.Address{19: 1}, petra.NewValue(42))

	path := t.TempDir() + "/world.json"
	if err := state.WriteFile(path); err != nil {
		t.Fatalf("failed to write world state: %v", err)
	}
	restored, err := ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read world state: %v", err)
	}
	if want, got := petra.NewValue(42), restored.GetBalance(petra.Address{19: 1}); want != got {
		t.Errorf("expected balance %v, but got %v", want, got)
	}
}
