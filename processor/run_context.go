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
	"fmt"

	"github.com/petravm/petra"

	// geth dependencies
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxCallDepth is the maximum number of nested call frames.
	MaxCallDepth = 1024

	// maxCodeSize is the maximum byte-code size a creation may deploy.
	maxCodeSize = 24576

	// createGasCostPerByte is charged for every byte of deployed code.
	createGasCostPerByte = 200
)

var emptyCodeHash = petra.Hash(crypto.Keccak256(nil))

type runContext struct {
	petra.TransactionContext
	interpreter           petra.Interpreter
	blockParameters       petra.BlockParameters
	transactionParameters petra.TransactionParameters
	depth                 int
	static                bool

	// failure is a shared slot recording the cause of a top-level frame
	// failure, reported through the transaction receipt.
	failure *error
}

func (r runContext) Call(kind petra.CallKind, parameters petra.CallParameters) (petra.CallResult, error) {
	if kind == petra.Create || kind == petra.Create2 {
		return r.executeCreate(kind, parameters)
	}
	return r.executeCall(kind, parameters)
}

func (r runContext) reportFailure(err error) {
	if r.depth == 1 && r.failure != nil && err != nil {
		*r.failure = err
	}
}

func (r runContext) executeCall(kind petra.CallKind, parameters petra.CallParameters) (petra.CallResult, error) {
	errResult := petra.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth >= MaxCallDepth {
		return errResult, nil
	}
	r.depth++

	if kind == petra.Call || kind == petra.CallCode {
		if !canTransferValue(r, parameters.Value, parameters.Sender, &parameters.Recipient) {
			r.reportFailure(petra.ErrInsufficientBalance)
			return errResult, nil
		}
	}
	snapshot := r.CreateSnapshot()
	recipient := parameters.Recipient

	if kind == petra.StaticCall {
		r.static = true
	}

	if kind == petra.Call || kind == petra.CallCode {
		transferValue(r, parameters.Value, parameters.Sender, recipient)
	}

	if kind == petra.Call {
		result, isPrecompiled := handlePrecompiledContract(parameters.Input, recipient, parameters.Gas)
		if isPrecompiled {
			if !result.Success {
				r.RestoreSnapshot(snapshot)
				result.GasLeft = 0
				r.reportFailure(petra.ErrOutOfGas)
			}
			return result, nil
		}
	}

	var codeHash petra.Hash
	var code petra.Code
	if kind == petra.Call || kind == petra.StaticCall {
		codeHash = r.GetCodeHash(recipient)
		code = r.GetCode(recipient)
	} else {
		codeHash = r.GetCodeHash(parameters.CodeAddress)
		code = r.GetCode(parameters.CodeAddress)
	}

	interpreterParameters := petra.Parameters{
		BlockParameters:       r.blockParameters,
		TransactionParameters: r.transactionParameters,
		Context:               r,
		Kind:                  kind,
		Static:                r.static,
		Depth:                 r.depth - 1, // depth has already been incremented
		Gas:                   parameters.Gas,
		Recipient:             recipient,
		Sender:                parameters.Sender,
		Input:                 parameters.Input,
		Value:                 parameters.Value,
		CodeHash:              &codeHash,
		Code:                  code,
	}

	callResult, err := r.interpreter.Run(interpreterParameters)
	if err != nil || !callResult.Success {
		r.RestoreSnapshot(snapshot)

		if !isRevert(callResult, err) {
			// only a revert keeps its unused gas
			callResult.GasLeft = 0
			r.reportFailure(callResult.Error)
		}
	}

	return petra.CallResult{
		Output:    callResult.Output,
		GasLeft:   callResult.GasLeft,
		GasRefund: callResult.GasRefund,
		Success:   callResult.Success,
	}, err
}

func (r runContext) executeCreate(kind petra.CallKind, parameters petra.CallParameters) (petra.CallResult, error) {
	errResult := petra.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth >= MaxCallDepth {
		return errResult, nil
	}
	r.depth++

	if r.static {
		return errResult, nil
	}
	if !canTransferValue(r, parameters.Value, parameters.Sender, nil) {
		r.reportFailure(petra.ErrInsufficientBalance)
		return errResult, nil
	}
	if err := incrementNonce(r, parameters.Sender); err != nil {
		return errResult, nil
	}

	code := petra.Code(parameters.Input)
	codeHash := hashCode(code)

	createdAddress := createAddress(kind, parameters.Sender, r.GetNonce(parameters.Sender)-1,
		parameters.Salt, codeHash)

	// A creation colliding with an existing account fails without running
	// the initialization code and consumes all gas.
	if r.GetNonce(createdAddress) != 0 ||
		(r.GetCodeHash(createdAddress) != (petra.Hash{}) &&
			r.GetCodeHash(createdAddress) != emptyCodeHash) {
		return petra.CallResult{}, nil
	}
	snapshot := r.CreateSnapshot()
	r.SetNonce(createdAddress, 1)

	transferValue(r, parameters.Value, parameters.Sender, createdAddress)

	interpreterParameters := petra.Parameters{
		BlockParameters:       r.blockParameters,
		TransactionParameters: r.transactionParameters,
		Context:               r,
		Kind:                  kind,
		Static:                r.static,
		Depth:                 r.depth - 1, // depth has already been incremented
		Gas:                   parameters.Gas,
		Recipient:             createdAddress,
		Sender:                parameters.Sender,
		Input:                 nil,
		Value:                 parameters.Value,
		CodeHash:              &codeHash,
		Code:                  code,
	}

	result, err := r.interpreter.Run(interpreterParameters)
	if err != nil || !result.Success {
		r.RestoreSnapshot(snapshot)

		if !isRevert(result, err) {
			r.reportFailure(result.Error)
			return petra.CallResult{}, err
		}
		// a revert of the initialization code returns its unused gas
		return petra.CallResult{Output: result.Output, GasLeft: result.GasLeft, CreatedAddress: createdAddress}, nil
	}

	outCode := result.Output
	if len(outCode) > maxCodeSize {
		result.Success = false
	}
	createGas := petra.Gas(len(outCode) * createGasCostPerByte)
	if result.GasLeft < createGas {
		result.Success = false
	}
	result.GasLeft -= createGas

	if result.Success {
		r.SetCode(createdAddress, petra.Code(outCode))
	} else {
		r.RestoreSnapshot(snapshot)
		result.GasLeft = 0
		result.Output = nil
		result.GasRefund = 0
		r.reportFailure(petra.ErrOutOfGas)
	}

	return petra.CallResult{
		Output:         result.Output,
		GasLeft:        result.GasLeft,
		GasRefund:      result.GasRefund,
		Success:        result.Success,
		CreatedAddress: createdAddress,
	}, nil
}

func isRevert(result petra.Result, err error) bool {
	return err == nil && !result.Success && result.Error == nil
}

func hashCode(code petra.Code) petra.Hash {
	return petra.Hash(crypto.Keccak256(code))
}

func createAddress(
	kind petra.CallKind,
	sender petra.Address,
	nonce uint64,
	salt petra.Hash,
	initHash petra.Hash,
) petra.Address {
	if kind == petra.Create {
		return petra.Address(crypto.CreateAddress(common.Address(sender), nonce))
	}
	return petra.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), initHash[:]))
}

func canTransferValue(
	context petra.TransactionContext,
	value petra.Value,
	sender petra.Address,
	recipient *petra.Address,
) bool {
	if value == (petra.Value{}) {
		return true
	}

	senderBalance := context.GetBalance(sender)
	if senderBalance.Cmp(value) < 0 {
		return false
	}

	if recipient == nil || sender == *recipient {
		return true
	}

	receiverBalance := context.GetBalance(*recipient)
	updatedBalance := petra.Add(receiverBalance, value)
	if updatedBalance.Cmp(receiverBalance) < 0 || updatedBalance.Cmp(value) < 0 {
		return false
	}

	return true
}

func incrementNonce(context petra.TransactionContext, address petra.Address) error {
	nonce := context.GetNonce(address)
	if nonce+1 < nonce {
		return fmt.Errorf("nonce overflow")
	}
	context.SetNonce(address, nonce+1)
	return nil
}

// Only to be called after canTransferValue
func transferValue(
	context petra.TransactionContext,
	value petra.Value,
	sender petra.Address,
	recipient petra.Address,
) {
	if value == (petra.Value{}) {
		return
	}
	if sender == recipient {
		return
	}

	senderBalance := context.GetBalance(sender)
	receiverBalance := context.GetBalance(recipient)
	updatedBalance := petra.Add(receiverBalance, value)

	senderBalance = petra.Sub(senderBalance, value)
	context.SetBalance(sender, senderBalance)
	context.SetBalance(recipient, updatedBalance)
}
