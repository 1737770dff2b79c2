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
	"os"

	"github.com/urfave/cli/v2"

	"github.com/petravm/petra/disasm"
)

var DisasmCmd = cli.Command{
	Action:    doDisasm,
	Name:      "disasm",
	Usage:     "Disassemble byte-code",
	ArgsUsage: "<code|@file>",
}

func doDisasm(context *cli.Context) error {
	code, err := readCode(context.Args().Get(0))
	if err != nil {
		return err
	}
	return disasm.Print(os.Stdout, code)
}
