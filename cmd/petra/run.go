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
	"fmt"
	"os"
	"time"

	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"

	"github.com/petravm/petra"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Execute byte-code in a transaction context",
	ArgsUsage: "<code|@file>",
	Flags: concatFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:  "interpreter",
				Usage: "name of the registered interpreter to use",
				Value: "petra",
			},
			&cli.StringFlag{
				Name:  "dump-world",
				Usage: "write the final world state as JSON to the given path, '-' for stdout",
			},
		},
		transactionFlags,
		blockFlags,
	),
}

func concatFlags(lists ...[]cli.Flag) []cli.Flag {
	res := []cli.Flag{}
	for _, list := range lists {
		res = append(res, list...)
	}
	return res
}

func doRun(context *cli.Context) error {
	name := context.String("interpreter")
	interpreter, err := petra.NewInterpreter(name)
	if err != nil {
		return fmt.Errorf("%w, registered interpreters: %v",
			err, maps.Keys(petra.GetAllRegisteredInterpreters()))
	}
	return runTransaction(context, interpreter)
}

// runTransaction executes the code named on the command line with the given
// interpreter and prints a summary of the resulting receipt.
func runTransaction(context *cli.Context, interpreter petra.Interpreter) error {
	code, err := readCode(context.Args().Get(0))
	if err != nil {
		return err
	}
	world, err := loadWorld(context)
	if err != nil {
		return err
	}
	blockParams, err := getBlockParameters(context)
	if err != nil {
		return err
	}
	transaction, err := getTransaction(context, world, code)
	if err != nil {
		return err
	}

	processor := petra.GetProcessor("petra", interpreter)
	if processor == nil {
		return fmt.Errorf("no processor registered")
	}

	start := time.Now()
	receipt, err := processor.Run(blockParams, transaction, world)
	duration := time.Since(start)
	if err != nil {
		return fmt.Errorf("failed to process transaction: %w", err)
	}

	printReceipt(receipt, duration)

	if path := context.String("dump-world"); path != "" {
		if path == "-" {
			return world.Write(os.Stdout)
		}
		return world.WriteFile(path)
	}
	return nil
}

func printReceipt(receipt petra.Receipt, duration time.Duration) {
	status := "success"
	if !receipt.Success {
		status = "reverted"
		if receipt.Error != nil {
			status = fmt.Sprintf("failed (%v)", receipt.Error)
		}
	}
	fmt.Printf("status:   %s\n", status)
	if len(receipt.Output) > 0 {
		fmt.Printf("output:   0x%x\n", []byte(receipt.Output))
	}
	rate := 0.0
	if seconds := duration.Seconds(); seconds > 0 {
		rate = float64(receipt.GasUsed) / seconds
	}
	fmt.Printf("gas used: %d (~%s gas/s)\n",
		receipt.GasUsed, unitconv.FormatPrefix(rate, unitconv.SI, 1))
	fmt.Printf("gas left: %d\n", receipt.GasLeft)
	fmt.Printf("logs:     %d\n", len(receipt.Logs))
	if receipt.ContractAddress != nil {
		fmt.Printf("contract: %v\n", receipt.ContractAddress)
	}
}
