package pipesim

// Operand is implemented by the two kinds of value a uop can read or
// write: a register or a memory location. Pointer receivers make both
// implementations comparable by identity, the same way the reference
// tool keys its latency and rename dictionaries off Python object
// identity rather than structural equality.
type Operand interface {
	isOperand()
}

// RegOperand names a register operand by its canonical name (see
// CanonicalReg).
type RegOperand struct {
	Reg string
}

func (*RegOperand) isOperand() {}

// MemAddr describes a memory operand's addressing components.
type MemAddr struct {
	Base         string
	Index        string
	Scale        int
	Displacement int64
}

// MemOperand names a memory operand.
type MemOperand struct {
	Addr MemAddr
}

func (*MemOperand) isOperand() {}

// gprSet lists the 64-bit general-purpose registers the renamer and
// move-eliminator track individually.
var gprSet = map[string]bool{
	"RAX": true, "RBX": true, "RCX": true, "RDX": true,
	"RSI": true, "RDI": true, "RBP": true, "RSP": true,
	"R8": true, "R9": true, "R10": true, "R11": true,
	"R12": true, "R13": true, "R14": true, "R15": true,
}

// high8Regs lists the legacy high-8-bit register names (AH/BH/CH/DH)
// whose use as a write target costs a register an extra cycle of
// latency on modern cores ("dirty high-8" penalty), because writing
// them requires merging with the low bits of the containing register.
var high8Regs = map[string]bool{
	"AH": true, "BH": true, "CH": true, "DH": true,
}

// IsGPR reports whether reg names a tracked 64-bit general-purpose
// register.
func IsGPR(reg string) bool { return gprSet[reg] }

// IsHigh8 reports whether reg is a legacy high-8-bit register.
func IsHigh8(reg string) bool { return high8Regs[reg] }

// subregToGPR maps sub-register names (32/16/8-bit views, and the
// high-8 legacy names) to the owning 64-bit register, for the
// purposes of rename tracking: writes to any view of a GPR rename the
// whole register, matching x86-64's zero-extension-on-32-bit-write
// and partial-register semantics as the reference tool's
// canonicalization does.
var subregToGPR = map[string]string{
	"EAX": "RAX", "AX": "RAX", "AL": "RAX", "AH": "RAX",
	"EBX": "RBX", "BX": "RBX", "BL": "RBX", "BH": "RBX",
	"ECX": "RCX", "CX": "RCX", "CL": "RCX", "CH": "RCX",
	"EDX": "RDX", "DX": "RDX", "DL": "RDX", "DH": "RDX",
	"ESI": "RSI", "SI": "RSI", "SIL": "RSI",
	"EDI": "RDI", "DI": "RDI", "DIL": "RDI",
	"EBP": "RBP", "BP": "RBP", "BPL": "RBP",
	"ESP": "RSP", "SP": "RSP", "SPL": "RSP",
	"R8D": "R8", "R8W": "R8", "R8B": "R8",
	"R9D": "R9", "R9W": "R9", "R9B": "R9",
	"R10D": "R10", "R10W": "R10", "R10B": "R10",
	"R11D": "R11", "R11W": "R11", "R11B": "R11",
	"R12D": "R12", "R12W": "R12", "R12B": "R12",
	"R13D": "R13", "R13W": "R13", "R13B": "R13",
	"R14D": "R14", "R14W": "R14", "R14B": "R14",
	"R15D": "R15", "R15W": "R15", "R15B": "R15",
}

// CanonicalReg returns the canonical register name used as a rename
// key: GPR sub-registers map to their owning 64-bit register; every
// other register name (SIMD, flags, segment) is returned unchanged.
func CanonicalReg(reg string) string {
	if full, ok := subregToGPR[reg]; ok {
		return full
	}
	return reg
}
