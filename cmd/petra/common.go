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
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/petravm/petra"
	"github.com/petravm/petra/state"
)

// transactionFlags are the flags shared by the commands executing code.
var transactionFlags = []cli.Flag{
	&cli.Int64Flag{
		Name:  "gas",
		Usage: "gas limit of the transaction",
		Value: 10_000_000,
	},
	&cli.StringFlag{
		Name:  "calldata",
		Usage: "input data of the transaction, hex encoded",
	},
	&cli.StringFlag{
		Name:  "world",
		Usage: "path of a JSON world file providing the initial accounts",
	},
	&cli.StringFlag{
		Name:  "address",
		Usage: "address the code is installed at and executed on",
		Value: "0x100",
	},
	&cli.StringFlag{
		Name:  "caller",
		Usage: "address of the transaction sender",
		Value: "0x42",
	},
	&cli.StringFlag{
		Name:  "value",
		Usage: "amount of chain currency transferred to the executed account",
		Value: "0",
	},
	&cli.StringFlag{
		Name:  "gas-price",
		Usage: "effective price of a unit of gas",
		Value: "0",
	},
}

// blockFlags are the flags defining the block environment of an execution.
var blockFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "coinbase",
		Usage: "address of the block's beneficiary",
		Value: "0x0",
	},
	&cli.Int64Flag{
		Name:  "timestamp",
		Usage: "timestamp of the block",
	},
	&cli.Int64Flag{
		Name:  "number",
		Usage: "number of the block",
	},
	&cli.Int64Flag{
		Name:  "block-gas-limit",
		Usage: "gas limit of the block",
	},
	&cli.Uint64Flag{
		Name:  "chainid",
		Usage: "chain ID of the block environment",
		Value: 1,
	},
	&cli.StringFlag{
		Name:  "basefee",
		Usage: "base fee of the block",
		Value: "0",
	},
}

// readCode obtains the code named by the given command line argument. An
// argument starting with '@' names a file holding the raw byte-code; any
// other argument is the hex-encoded code itself, with an optional 0x prefix.
func readCode(arg string) ([]byte, error) {
	if arg == "" {
		return nil, fmt.Errorf("no code provided")
	}
	if strings.HasPrefix(arg, "@") {
		return os.ReadFile(arg[1:])
	}
	return parseHex(arg)
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

// parseAddress parses a hex address with an optional 0x prefix. Short inputs
// are padded with zeros on the left.
func parseAddress(s string) (petra.Address, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	data, err := hex.DecodeString(digits)
	if err != nil {
		return petra.Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(data) > 20 {
		return petra.Address{}, fmt.Errorf("invalid address %q: exceeds 20 bytes", s)
	}
	var res petra.Address
	copy(res[20-len(data):], data)
	return res, nil
}

// parseValue parses a numeric amount, given in decimal or 0x-prefixed hex.
func parseValue(s string) (petra.Value, error) {
	var value *uint256.Int
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		value, err = uint256.FromHex("0x" + s[2:])
	} else {
		value, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return petra.Value{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return petra.ValueFromUint256(value), nil
}

// loadWorld obtains the initial world state, either from the JSON world file
// given by the --world flag or, if absent, an empty state.
func loadWorld(context *cli.Context) (*state.State, error) {
	path := context.String("world")
	if path == "" {
		return state.New(), nil
	}
	return state.ReadFile(path)
}

// getBlockParameters assembles the block environment from the command line.
func getBlockParameters(context *cli.Context) (petra.BlockParameters, error) {
	coinbase, err := parseAddress(context.String("coinbase"))
	if err != nil {
		return petra.BlockParameters{}, err
	}
	baseFee, err := parseValue(context.String("basefee"))
	if err != nil {
		return petra.BlockParameters{}, err
	}
	return petra.BlockParameters{
		ChainID:     petra.Word(petra.NewValue(context.Uint64("chainid"))),
		BlockNumber: context.Int64("number"),
		Timestamp:   context.Int64("timestamp"),
		Coinbase:    coinbase,
		GasLimit:    petra.Gas(context.Int64("block-gas-limit")),
		BaseFee:     baseFee,
	}, nil
}

// getTransaction assembles the transaction to be executed from the command
// line, installing the given code at the recipient address of the world.
func getTransaction(context *cli.Context, world *state.State, code []byte) (petra.Transaction, error) {
	recipient, err := parseAddress(context.String("address"))
	if err != nil {
		return petra.Transaction{}, err
	}
	sender, err := parseAddress(context.String("caller"))
	if err != nil {
		return petra.Transaction{}, err
	}
	value, err := parseValue(context.String("value"))
	if err != nil {
		return petra.Transaction{}, err
	}
	gasPrice, err := parseValue(context.String("gas-price"))
	if err != nil {
		return petra.Transaction{}, err
	}
	input := []byte{}
	if calldata := context.String("calldata"); calldata != "" {
		input, err = parseHex(calldata)
		if err != nil {
			return petra.Transaction{}, fmt.Errorf("invalid calldata: %w", err)
		}
	}

	world.SetCode(recipient, code)

	return petra.Transaction{
		Sender:    sender,
		Recipient: &recipient,
		Input:     input,
		Value:     value,
		GasLimit:  petra.Gas(context.Int64("gas")),
		GasPrice:  gasPrice,
	}, nil
}
