package opcodes

// PrecompileHint describes the textual stub an emitter prints for a call
// into one of the well-known precompile addresses (0x01..0x0a).
type PrecompileHint struct {
	Address byte
	Name    string
	Inputs  uint8
	Outputs uint8
	MinGas  uint64
}

var precompiles = [11]PrecompileHint{
	1:  {0x01, "ecrecover", 4, 1, 3000},
	2:  {0x02, "sha256", 1, 1, 60},
	3:  {0x03, "ripemd160", 1, 1, 600},
	4:  {0x04, "identity", 1, 1, 15},
	5:  {0x05, "modexp", 6, 1, 200},
	6:  {0x06, "ecadd", 4, 2, 150},
	7:  {0x07, "ecmul", 3, 2, 6000},
	8:  {0x08, "ecpairing", 6, 1, 45000},
	9:  {0x09, "blake2f", 5, 1, 0},
	10: {0x0a, "pointEvaluation", 1, 1, 0},
}

// Precompile looks up the hint for a known precompile address (1..10),
// returning ok=false for anything else.
func Precompile(addr byte) (PrecompileHint, bool) {
	if addr == 0 || int(addr) >= len(precompiles) {
		return PrecompileHint{}, false
	}
	hint := precompiles[addr]
	if hint.Name == "" {
		return PrecompileHint{}, false
	}
	return hint, true
}
