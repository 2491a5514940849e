package ir

import (
	"github.com/go-evm/decomp/internal/opcodes"
	"github.com/go-evm/decomp/internal/vm"
	"github.com/holiman/uint256"
)

// FromOperandTree converts a provenance tree produced by the interpreter
// into an IR expression. A nil tree (a raw leaf with no recorded opcode)
// lowers to a zero constant; callers needing the actual leaf value should
// prefer exprFromInstrInput, which falls back to the instruction's raw
// Inputs value when no tree is present.
func FromOperandTree(op *opcodes.WrappedOp) Expr {
	if op == nil {
		return Const{Value: new(uint256.Int)}
	}
	args := make([]Expr, len(op.Inputs))
	for i, in := range op.Inputs {
		args[i] = fromInput(in)
	}
	return fromOpcode(op.Opcode, args)
}

func fromInput(in opcodes.Input) Expr {
	if in.Op != nil {
		return FromOperandTree(in.Op)
	}
	v := in.Raw
	if v == nil {
		v = new(uint256.Int)
	}
	return Const{Value: v.Clone()}
}

func arg(args []Expr, i int) Expr {
	if i < 0 || i >= len(args) {
		return Const{Value: new(uint256.Int)}
	}
	return args[i]
}

func bin(op BinOp, args []Expr) Expr {
	return BinOpExpr{Op: op, X: arg(args, 0), Y: arg(args, 1)}
}

func un(op UnOp, args []Expr) Expr {
	return UnOpExpr{Op: op, X: arg(args, 0)}
}

// fromOpcode maps one opcode and its already-lowered input expressions to
// an Expr. Opcodes with no direct IR shape (environment reads this
// interpreter can't resolve, block-context fields) lower to an opaque
// named variable carrying the mnemonic, so the emitter still has something
// meaningful to print.
func fromOpcode(op byte, args []Expr) Expr {
	switch op {
	case opcodes.ADD:
		return bin(Add, args)
	case opcodes.SUB:
		return bin(Sub, args)
	case opcodes.MUL:
		return bin(Mul, args)
	case opcodes.DIV, opcodes.SDIV:
		return bin(Div, args)
	case opcodes.MOD, opcodes.SMOD:
		return bin(Mod, args)
	case opcodes.EXP:
		return bin(Exp, args)
	case opcodes.AND:
		return bin(And, args)
	case opcodes.OR:
		return bin(Or, args)
	case opcodes.XOR:
		return bin(Xor, args)
	case opcodes.SHL:
		return bin(Shl, args)
	case opcodes.SHR:
		return bin(Shr, args)
	case opcodes.SAR:
		return bin(Sar, args)
	case opcodes.EQ:
		return bin(Eq, args)
	case opcodes.LT:
		return bin(Lt, args)
	case opcodes.GT:
		return bin(Gt, args)
	case opcodes.SLT:
		return bin(Slt, args)
	case opcodes.SGT:
		return bin(Sgt, args)
	case opcodes.NOT:
		return un(Not, args)
	case opcodes.ISZERO:
		return un(IsZero, args)
	case opcodes.MLOAD:
		return Load{Type: LoadMemory, Addr: arg(args, 0)}
	case opcodes.SLOAD:
		return Load{Type: LoadStorage, Addr: arg(args, 0)}
	case opcodes.TLOAD:
		return Load{Type: LoadTransient, Addr: arg(args, 0)}
	case opcodes.CALLDATALOAD:
		return Load{Type: LoadCalldata, Addr: arg(args, 0)}
	case opcodes.CALL:
		return Call{Type: CallTypeCall, Address: arg(args, 1), Value: arg(args, 2), Args: args}
	case opcodes.CALLCODE:
		return Call{Type: CallTypeCall, Address: arg(args, 1), Value: arg(args, 2), Args: args}
	case opcodes.DELEGATECALL:
		return Call{Type: CallTypeDelegateCall, Address: arg(args, 1), Args: args}
	case opcodes.STATICCALL:
		return Call{Type: CallTypeStaticCall, Address: arg(args, 1), Args: args}
	case opcodes.CREATE:
		return Call{Type: CallTypeCreate, Value: arg(args, 0), Code: arg(args, 1)}
	case opcodes.CREATE2:
		return Call{Type: CallTypeCreate2, Value: arg(args, 0), Code: arg(args, 1), Salt: arg(args, 3)}
	default:
		return Var{Name: opcodes.Name(op)}
	}
}

// exprFromInstrInput lowers the i-th consumed operand of an executed
// Instruction: its provenance tree when one was recorded, else the raw
// concrete value the interpreter actually popped.
func exprFromInstrInput(instr vm.Instruction, i int) Expr {
	if i < len(instr.InputOperations) && instr.InputOperations[i] != nil {
		return FromOperandTree(instr.InputOperations[i])
	}
	if i < len(instr.Inputs) {
		v := instr.Inputs[i]
		return Const{Value: new(uint256.Int).Set(&v)}
	}
	return Const{Value: new(uint256.Int)}
}

// LowerBlock converts one trace node's executed operations into a Block:
// side-effecting opcodes become statements in execution order, and the
// final instruction (if any) determines the block's terminator.
func LowerBlock(label Label, ops []*vm.State) *Block {
	block := &Block{Label: label}
	for _, state := range ops {
		instr := state.LastInstruction
		switch instr.Opcode {
		case opcodes.SSTORE:
			block.Stmts = append(block.Stmts, Store{
				Type: StoreStorage, Addr: exprFromInstrInput(instr, 0), Value: exprFromInstrInput(instr, 1),
			})
		case opcodes.TSTORE:
			block.Stmts = append(block.Stmts, Store{
				Type: StoreTransient, Addr: exprFromInstrInput(instr, 0), Value: exprFromInstrInput(instr, 1),
			})
		case opcodes.MSTORE, opcodes.MSTORE8:
			block.Stmts = append(block.Stmts, Store{
				Type: StoreMemory, Addr: exprFromInstrInput(instr, 0), Value: exprFromInstrInput(instr, 1),
			})
		case opcodes.CALL, opcodes.CALLCODE, opcodes.DELEGATECALL, opcodes.STATICCALL, opcodes.CREATE, opcodes.CREATE2:
			block.Stmts = append(block.Stmts, CallStmt{Call: callExprFromInstr(instr).(Call)})
		default:
			if opcodes.IsLog(instr.Opcode) {
				n := opcodes.LogTopics(instr.Opcode)
				args := make([]Expr, 0, n)
				for i := 2; i < 2+n; i++ {
					args = append(args, exprFromInstrInput(instr, i))
				}
				block.Stmts = append(block.Stmts, Log{Topics: n, Args: args})
			}
		}
	}

	if len(ops) == 0 {
		return block
	}
	last := ops[len(ops)-1].LastInstruction
	block.Terminator = terminatorFromInstr(last)
	return block
}

func callExprFromInstr(instr vm.Instruction) Expr {
	args := make([]Expr, len(instr.Inputs))
	for i := range instr.Inputs {
		args[i] = exprFromInstrInput(instr, i)
	}
	switch instr.Opcode {
	case opcodes.CALL, opcodes.CALLCODE:
		return Call{Type: CallTypeCall, Address: arg(args, 1), Value: arg(args, 2), Args: args}
	case opcodes.DELEGATECALL:
		return Call{Type: CallTypeDelegateCall, Address: arg(args, 1), Args: args}
	case opcodes.STATICCALL:
		return Call{Type: CallTypeStaticCall, Address: arg(args, 1), Args: args}
	case opcodes.CREATE:
		return Call{Type: CallTypeCreate, Value: arg(args, 0), Code: arg(args, 1)}
	case opcodes.CREATE2:
		return Call{Type: CallTypeCreate2, Value: arg(args, 0), Code: arg(args, 1), Salt: arg(args, 3)}
	default:
		return Call{}
	}
}

func terminatorFromInstr(instr vm.Instruction) Terminator {
	switch instr.Opcode {
	case opcodes.STOP:
		return StopTerm{}
	case opcodes.RETURN:
		return ReturnTerm{Values: []Expr{exprFromInstrInput(instr, 0), exprFromInstrInput(instr, 1)}}
	case opcodes.REVERT:
		return RevertTerm{Values: []Expr{exprFromInstrInput(instr, 0), exprFromInstrInput(instr, 1)}}
	case opcodes.JUMP:
		return JumpTerm{Target: Label(instr.Inputs[0].Uint64())}
	case opcodes.JUMPI:
		return ConditionalJumpTerm{
			Cond:        exprFromInstrInput(instr, 1),
			Target:      Label(instr.Inputs[0].Uint64()),
			Fallthrough: Label(instr.PC + 1),
		}
	default:
		return nil
	}
}
