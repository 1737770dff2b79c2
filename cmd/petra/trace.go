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

	"github.com/petravm/petra/interpreter"
)

var TraceCmd = cli.Command{
	Action:    doTrace,
	Name:      "trace",
	Usage:     "Execute byte-code printing every executed instruction",
	ArgsUsage: "<code|@file>",
	Flags: concatFlags(
		[]cli.Flag{
			&cli.IntFlag{
				Name:  "max-steps",
				Usage: "caps the number of printed steps, the execution itself is not limited",
			},
		},
		transactionFlags,
		blockFlags,
	),
}

func doTrace(context *cli.Context) error {
	traceInterpreter, err := interpreter.NewInterpreter(interpreter.Config{
		Tracer:     os.Stdout,
		TraceLimit: context.Int("max-steps"),
	})
	if err != nil {
		return err
	}
	return runTransaction(context, traceInterpreter)
}
