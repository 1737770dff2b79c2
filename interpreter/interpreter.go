// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interpreter

import (
	"fmt"
	"io"

	"github.com/petravm/petra"
	"github.com/petravm/petra/vm"
)

func init() {
	mustRegister := func(name string, factory petra.InterpreterFactory) {
		if err := petra.RegisterInterpreterFactory(name, factory); err != nil {
			panic(fmt.Sprintf("failed to register interpreter %q: %v", name, err))
		}
	}
	mustRegister("petra", func(config any) (petra.Interpreter, error) {
		cfg, err := asConfig(config)
		if err != nil {
			return nil, err
		}
		return NewInterpreter(cfg)
	})
	mustRegister("petra-no-analysis-cache", func(config any) (petra.Interpreter, error) {
		cfg, err := asConfig(config)
		if err != nil {
			return nil, err
		}
		cfg.Analysis.CacheSize = -1
		return NewInterpreter(cfg)
	})
}

func asConfig(config any) (Config, error) {
	if config == nil {
		return Config{}, nil
	}
	cfg, ok := config.(Config)
	if !ok {
		return Config{}, fmt.Errorf("invalid configuration type %T", config)
	}
	return cfg, nil
}

// Config contains a set of configuration options for an interpreter instance.
type Config struct {
	// Analysis configures the jump-destination analysis cache.
	Analysis AnalysisConfig

	// Tracer, if set, receives a line-based trace of every executed
	// instruction.
	Tracer io.Writer

	// TraceLimit caps the number of traced instructions if positive. The
	// execution itself is not limited.
	TraceLimit int

	// runner can be overridden by tests to intercept the execution loop.
	runner runner
}

type machine struct {
	config   Config
	analyzer *analyzer
}

// NewInterpreter creates a byte-code interpreter instance using the given
// configuration.
func NewInterpreter(config Config) (petra.Interpreter, error) {
	analyzer, err := newAnalyzer(config.Analysis)
	if err != nil {
		return nil, err
	}
	if config.runner == nil {
		if config.Tracer != nil {
			config.runner = loggingRunner{out: config.Tracer, limit: config.TraceLimit}
		} else {
			config.runner = vanillaRunner{}
		}
	}
	return &machine{
		config:   config,
		analyzer: analyzer,
	}, nil
}

func (m *machine) Run(params petra.Parameters) (petra.Result, error) {
	// Executing empty code is always successful and does not consume gas.
	if len(params.Code) == 0 {
		return petra.Result{Success: true, GasLeft: params.Gas}, nil
	}
	analysis := m.analyzer.analyze(params.Code, params.CodeHash)
	return run(m.config, params, analysis)
}

// status is the execution state of an interpreter context.
type status byte

const (
	statusRunning  status = iota // < all fine, keep running
	statusStopped                // < execution stopped with a STOP
	statusReturned               // < execution stopped with a RETURN
	statusReverted               // < execution stopped with a REVERT
	statusFailed                 // < execution failed, all gas is consumed
)

// context is the execution environment of a single contract frame. It holds
// the program counter, the remaining gas, the stack, the memory, and a view
// on the executed code together with its jump-destination analysis.
type context struct {
	// Inputs
	params   petra.Parameters
	context  petra.RunContext
	code     []byte
	analysis analysis

	// Execution state
	status status
	err    error
	pc     int32
	gas    petra.Gas
	refund petra.Gas
	stack  *stack
	memory *Memory

	// Intermediate data
	returnData []byte // < the result of the last nested call or the frame
}

// useGas reduces the gas level by the given amount. If the gas level drops
// below zero, the remaining gas is set to zero and an out-of-gas error is
// returned.
func (c *context) useGas(amount petra.Gas) error {
	if c.gas < 0 || amount < 0 || c.gas < amount {
		c.gas = 0
		return errOutOfGas
	}
	c.gas -= amount
	return nil
}

// signalError aborts the execution with the given failure cause. All
// remaining gas is forfeited.
func (c *context) signalError(err error) {
	c.status = statusFailed
	c.err = err
	c.gas = 0
}

func run(config Config, params petra.Parameters, analysis analysis) (petra.Result, error) {
	ctxt := context{
		params:   params,
		context:  params.Context,
		code:     params.Code,
		analysis: analysis,
		gas:      params.Gas,
		stack:    NewStack(),
		memory:   NewMemory(),
	}
	defer ReturnStack(ctxt.stack)

	runner := config.runner
	if runner == nil {
		runner = vanillaRunner{}
	}
	runner.run(&ctxt)

	return generateResult(&ctxt)
}

func generateResult(c *context) (petra.Result, error) {
	switch c.status {
	case statusStopped:
		return petra.Result{
			Success:   true,
			GasLeft:   c.gas,
			GasRefund: c.refund,
		}, nil
	case statusReturned:
		return petra.Result{
			Success:   true,
			Output:    c.returnData,
			GasLeft:   c.gas,
			GasRefund: c.refund,
		}, nil
	case statusReverted:
		// A revert returns the unused gas but surrenders the refund
		// accumulated in this frame.
		return petra.Result{
			Success: false,
			Output:  c.returnData,
			GasLeft: c.gas,
		}, nil
	case statusFailed:
		return petra.Result{
			Success: false,
			Error:   c.err,
		}, nil
	}
	return petra.Result{}, fmt.Errorf("unexpected interpreter status %d", c.status)
}

// runner is an interceptable execution loop of an interpreter context.
type runner interface {
	run(*context)
}

type vanillaRunner struct{}

func (r vanillaRunner) run(c *context) {
	steps(c, false)
}

func step(c *context) {
	steps(c, true)
}

func steps(c *context, oneStepOnly bool) {
	for c.status == statusRunning {
		// Running past the end of the code is an implicit STOP.
		if int(c.pc) >= len(c.code) {
			c.status = statusStopped
			return
		}
		op := vm.OpCode(c.code[c.pc])

		if err := checkStackLimits(c.stack.len(), op); err != nil {
			c.signalError(err)
			return
		}
		if err := c.useGas(staticGasPrices[op]); err != nil {
			c.signalError(err)
			return
		}

		var err error
		switch {
		case vm.PUSH1 <= op && op <= vm.PUSH32:
			opPush(c, int(op-vm.PUSH1)+1)
		case vm.DUP1 <= op && op <= vm.DUP16:
			opDup(c, int(op-vm.DUP1)+1)
		case vm.SWAP1 <= op && op <= vm.SWAP16:
			opSwap(c, int(op-vm.SWAP1)+1)
		case vm.LOG0 <= op && op <= vm.LOG4:
			err = opLog(c, int(op-vm.LOG0))
		default:
			switch op {
			case vm.STOP:
				c.status = opStop()
			case vm.RETURN:
				if err = opEndWithResult(c); err == nil {
					c.status = statusReturned
				}
			case vm.REVERT:
				if err = opEndWithResult(c); err == nil {
					c.status = statusReverted
				}
			case vm.ADD:
				opAdd(c)
			case vm.MUL:
				opMul(c)
			case vm.SUB:
				opSub(c)
			case vm.DIV:
				opDiv(c)
			case vm.SDIV:
				opSDiv(c)
			case vm.MOD:
				opMod(c)
			case vm.SMOD:
				opSMod(c)
			case vm.ADDMOD:
				opAddMod(c)
			case vm.MULMOD:
				opMulMod(c)
			case vm.EXP:
				err = opExp(c)
			case vm.SIGNEXTEND:
				opSignExtend(c)
			case vm.LT:
				opLt(c)
			case vm.GT:
				opGt(c)
			case vm.SLT:
				opSlt(c)
			case vm.SGT:
				opSgt(c)
			case vm.EQ:
				opEq(c)
			case vm.ISZERO:
				opIszero(c)
			case vm.AND:
				opAnd(c)
			case vm.OR:
				opOr(c)
			case vm.XOR:
				opXor(c)
			case vm.NOT:
				opNot(c)
			case vm.BYTE:
				opByte(c)
			case vm.SHL:
				opShl(c)
			case vm.SHR:
				opShr(c)
			case vm.SAR:
				opSar(c)
			case vm.SHA3:
				err = opSha3(c)
			case vm.ADDRESS:
				opAddress(c)
			case vm.BALANCE:
				opBalance(c)
			case vm.ORIGIN:
				opOrigin(c)
			case vm.CALLER:
				opCaller(c)
			case vm.CALLVALUE:
				opCallvalue(c)
			case vm.CALLDATALOAD:
				opCallDataload(c)
			case vm.CALLDATASIZE:
				opCallDatasize(c)
			case vm.CALLDATACOPY:
				err = genericDataCopy(c, c.params.Input)
			case vm.CODESIZE:
				opCodeSize(c)
			case vm.CODECOPY:
				err = genericDataCopy(c, c.params.Code)
			case vm.GASPRICE:
				opGasPrice(c)
			case vm.EXTCODESIZE:
				opExtcodesize(c)
			case vm.EXTCODECOPY:
				err = opExtCodeCopy(c)
			case vm.RETURNDATASIZE:
				opReturnDataSize(c)
			case vm.RETURNDATACOPY:
				err = genericDataCopy(c, c.returnData)
			case vm.EXTCODEHASH:
				opExtcodehash(c)
			case vm.BLOCKHASH:
				opBlockhash(c)
			case vm.COINBASE:
				opCoinbase(c)
			case vm.TIMESTAMP:
				opTimestamp(c)
			case vm.NUMBER:
				opNumber(c)
			case vm.PREVRANDAO:
				opPrevRandao(c)
			case vm.GASLIMIT:
				opGasLimit(c)
			case vm.CHAINID:
				opChainId(c)
			case vm.SELFBALANCE:
				opSelfbalance(c)
			case vm.BASEFEE:
				opBaseFee(c)
			case vm.POP:
				opPop(c)
			case vm.MLOAD:
				err = opMload(c)
			case vm.MSTORE:
				err = opMstore(c)
			case vm.MSTORE8:
				err = opMstore8(c)
			case vm.SLOAD:
				opSload(c)
			case vm.SSTORE:
				err = opSstore(c)
			case vm.JUMP:
				err = opJump(c)
			case vm.JUMPI:
				err = opJumpi(c)
			case vm.PC:
				opPc(c)
			case vm.MSIZE:
				opMsize(c)
			case vm.GAS:
				opGas(c)
			case vm.JUMPDEST:
				// nothing to do
			case vm.PUSH0:
				opPush0(c)
			case vm.CREATE:
				err = opCreate(c)
			case vm.CALL:
				err = opCall(c)
			case vm.CALLCODE:
				err = opCallCode(c)
			case vm.DELEGATECALL:
				err = opDelegateCall(c)
			case vm.CREATE2:
				err = opCreate2(c)
			case vm.STATICCALL:
				err = opStaticCall(c)
			default:
				err = errInvalidOpCode
			}
		}

		if err != nil {
			c.signalError(err)
			return
		}

		c.pc++

		if oneStepOnly {
			return
		}
	}
}
