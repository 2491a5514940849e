package passes

import (
	"reflect"

	"github.com/go-evm/decomp/internal/ir"
)

// Run applies the full pipeline in its fixed order, repeating the whole
// sequence until a round leaves the Function unchanged (at most 8 rounds).
// Each stage is a pure Function -> Function mapping; none introduces an
// opcode absent from its input. Once a round reaches that fixed point the
// pipeline is idempotent: running it twice on its own output leaves the
// Function unchanged.
func Run(f ir.Function) ir.Function {
	for round := 0; round < 8; round++ {
		prev := f
		f = ConstantFold(f)
		f = AlgebraicSimplify(f)
		f = BitmaskToCast(f)
		f = StrengthReduce(f)
		f = DeadCodeEliminate(f)
		f = CommonSubexpressionEliminate(f)
		f = CopyPropagate(f)
		f = RecoverControlFlow(f)
		f = InferTypes(f)
		if reflect.DeepEqual(prev, f) {
			break
		}
	}
	return f
}
