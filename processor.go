// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package petra

// Processor is an interface for a component capable of executing transactions.
// Implementations execute individual transactions to progress the world state.
// In particular, they handle the transfer of value, the execution of code
// using (potentially) recursive calls of contracts, the integration of
// precompiled contracts, and the creation of new contracts.
type Processor interface {
	// Run executes the transaction provided by the parameters in the
	// specified context.
	Run(BlockParameters, Transaction, TransactionContext) (Receipt, error)
}

// Transaction summarizes the parameters of a transaction to be executed.
type Transaction struct {
	Sender    Address  // the sender of the transaction
	Recipient *Address // the receiver, nil if a new contract is to be created
	Input     Data     // the input data for the transaction
	Value     Value    // the amount of chain currency to transfer to the recipient
	GasLimit  Gas      // the maximum amount of gas that can be used
	GasPrice  Value    // the effective price of a unit of gas for this transaction
}

// Receipt summarizes the result of the execution of a transaction.
type Receipt struct {
	Success         bool     // false if the execution ended in a revert or failure
	Output          Data     // the output produced by the transaction
	ContractAddress *Address // filled if a contract was created by this transaction
	GasUsed         Gas      // gas consumed, after crediting accumulated refunds
	GasLeft         Gas      // gas remaining of the transaction's gas limit
	Logs            []Log    // logs produced by the transaction
	Error           error    // the cause of a failed execution, nil otherwise
}
