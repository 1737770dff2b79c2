// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/petravm/petra"
)

func TestReadCode_AcceptsHexArgumentsAndFiles(t *testing.T) {
	want := []byte{0x60, 0x01, 0x00}

	for _, arg := range []string{"600100", "0x600100", "0X600100", " 600100 "} {
		code, err := readCode(arg)
		if err != nil {
			t.Fatalf("failed to read code from %q: %v", arg, err)
		}
		if !bytes.Equal(want, code) {
			t.Errorf("expected code %x from %q, but got %x", want, arg, code)
		}
	}

	path := t.TempDir() + "/code.bin"
	if err := os.WriteFile(path, want, 0644); err != nil {
		t.Fatalf("failed to write code file: %v", err)
	}
	code, err := readCode("@" + path)
	if err != nil {
		t.Fatalf("failed to read code file: %v", err)
	}
	if !bytes.Equal(want, code) {
		t.Errorf("expected code %x, but got %x", want, code)
	}
}

func TestReadCode_RejectsInvalidArguments(t *testing.T) {
	for _, arg := range []string{"", "0xzz", "123", "@" + t.TempDir() + "/missing.bin"} {
		if _, err := readCode(arg); err == nil {
			t.Errorf("expected %q to be rejected", arg)
		}
	}
}

func TestParseAddress_ShortInputsArePaddedOnTheLeft(t *testing.T) {
	tests := map[string]petra.Address{
		"0x100":  {18: 0x01},
		"0x0100": {18: 0x01},
		"42":     {19: 0x42},
		"0x1234567890123456789012345678901234567890": {
			0x12, 0x34, 0x56, 0x78, 0x90, 0x12, 0x34, 0x56, 0x78, 0x90,
			0x12, 0x34, 0x56, 0x78, 0x90, 0x12, 0x34, 0x56, 0x78, 0x90,
		},
	}
	for input, want := range tests {
		got, err := parseAddress(input)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", input, err)
		}
		if want != got {
			t.Errorf("expected %q to parse to %v, but got %v", input, want, got)
		}
	}
}

func TestParseAddress_RejectsOversizedAndMalformedInputs(t *testing.T) {
	for _, input := range []string{"0xzz", "0x123456789012345678901234567890123456789012"} {
		if _, err := parseAddress(input); err == nil {
			t.Errorf("expected %q to be rejected", input)
		}
	}
}

func TestParseValue_AcceptsDecimalAndHexAmounts(t *testing.T) {
	tests := map[string]petra.Value{
		"0":     petra.NewValue(0),
		"42":    petra.NewValue(42),
		"0x2a":  petra.NewValue(42),
		"0X2a":  petra.NewValue(42),
		"10000": petra.NewValue(10000),
	}
	for input, want := range tests {
		got, err := parseValue(input)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", input, err)
		}
		if want != got {
			t.Errorf("expected %q to parse to %v, but got %v", input, want, got)
		}
	}
}

func TestParseValue_RejectsMalformedAmounts(t *testing.T) {
	for _, input := range []string{"", "ten", "0x", "-1"} {
		if _, err := parseValue(input); err == nil {
			t.Errorf("expected %q to be rejected", input)
		}
	}
}
