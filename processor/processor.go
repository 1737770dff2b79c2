// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package processor

import (
	"github.com/petravm/petra"
)

func init() {
	petra.RegisterProcessorFactory("petra", NewProcessor)
}

// NewProcessor creates a Processor executing transactions with the given
// interpreter instance.
func NewProcessor(interpreter petra.Interpreter) petra.Processor {
	return &processor{
		interpreter: interpreter,
	}
}

type processor struct {
	interpreter petra.Interpreter
}

func (p *processor) Run(
	blockParams petra.BlockParameters,
	transaction petra.Transaction,
	context petra.TransactionContext,
) (petra.Receipt, error) {
	var failure error
	runContext := runContext{
		TransactionContext: context,
		interpreter:        p.interpreter,
		blockParameters:    blockParams,
		transactionParameters: petra.TransactionParameters{
			Origin:   transaction.Sender,
			GasPrice: transaction.GasPrice,
		},
		failure: &failure,
	}

	kind := petra.Call
	callParameters := petra.CallParameters{
		Sender: transaction.Sender,
		Value:  transaction.Value,
		Input:  transaction.Input,
		Gas:    transaction.GasLimit,
	}
	if transaction.Recipient == nil {
		kind = petra.Create
	} else {
		callParameters.Recipient = *transaction.Recipient
	}

	result, err := runContext.Call(kind, callParameters)
	if err != nil {
		return petra.Receipt{}, err
	}

	gasLeft := result.GasLeft
	if result.Success {
		// Refunds are credited in full once the transaction succeeded.
		gasLeft += result.GasRefund
		if gasLeft > transaction.GasLimit {
			gasLeft = transaction.GasLimit
		}
	}

	receipt := petra.Receipt{
		Success: result.Success,
		Output:  result.Output,
		GasUsed: transaction.GasLimit - gasLeft,
		GasLeft: gasLeft,
		Error:   failure,
	}
	if result.Success {
		receipt.Logs = context.GetLogs()
		if kind == petra.Create {
			created := result.CreatedAddress
			receipt.ContractAddress = &created
		}
	}
	return receipt, nil
}
