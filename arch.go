package pipesim

import (
	"fmt"

	"github.com/opd-ai/x86pipesim/internal/instrdata"
)

// Params holds the per-microarchitecture pipeline widths and
// structure sizes the simulator drives off of. Values below are the
// ones the reference tool uses for its default (Coffee Lake) target;
// other microarchitectures override a handful of them.
type Params struct {
	Arch instrdata.Arch

	RetireWidth          int
	ROBWidth             int
	RSWidth              int
	PreDecodeWidth       int
	PredecodeDecodeDelay int
	IQWidth              int
	NDecoders            int
	MITEWidth            int
	DSBWidth             int
	IDQWidth             int
	IssueWidth           int
	IssueDispatchDelay   int

	// MacroFusibleInstrCanBeDecodedAsLastInstr mirrors the reference
	// tool's module-level flag of the same purpose: whether a
	// macro-fusible compare can be the last instruction decoded by a
	// decode group even though the branch it fuses with hasn't been
	// seen yet.
	MacroFusibleInstrCanBeDecodedAsLastInstr bool
	Pop5CEndsDecodeGroup                      bool
	Pop5CRequiresComplexDecoder                bool

	AllPorts []string
}

// DefaultParams returns the pipeline parameters for arch, or an error
// if arch is not a microarchitecture this package models.
func DefaultParams(arch instrdata.Arch) (Params, error) {
	if !arch.Valid() {
		return Params{}, fmt.Errorf("pipesim: unknown microarchitecture %q", arch)
	}

	p := Params{
		Arch:                 arch,
		RetireWidth:          4,
		ROBWidth:             224,
		RSWidth:              97,
		PreDecodeWidth:       5,
		PredecodeDecodeDelay: 3,
		IQWidth:              25,
		NDecoders:            4,
		MITEWidth:            5,
		DSBWidth:             6,
		IDQWidth:             64,
		IssueWidth:           4,
		IssueDispatchDelay:   5,

		MacroFusibleInstrCanBeDecodedAsLastInstr: true,
		Pop5CEndsDecodeGroup:                     true,
		Pop5CRequiresComplexDecoder:               false,
	}

	switch arch {
	case instrdata.CON, instrdata.WOL, instrdata.NHM, instrdata.WSM:
		p.ROBWidth = 128
		p.RSWidth = 36
		p.AllPorts = []string{"0", "1", "2", "3", "4", "5"}
	case instrdata.SNB, instrdata.IVB:
		p.ROBWidth = 168
		p.RSWidth = 54
		p.AllPorts = []string{"0", "1", "2", "3", "4", "5"}
	case instrdata.HSW, instrdata.BDW:
		p.ROBWidth = 192
		p.RSWidth = 60
		p.AllPorts = []string{"0", "1", "2", "3", "4", "5", "6", "7"}
	case instrdata.SKL, instrdata.SKX, instrdata.KBL, instrdata.CFL:
		p.ROBWidth = 224
		p.RSWidth = 97
		p.AllPorts = []string{"0", "1", "2", "3", "4", "5", "6", "7"}
	case instrdata.CNL:
		p.ROBWidth = 224
		p.RSWidth = 97
		p.AllPorts = []string{"0", "1", "2", "3", "4", "5", "6", "7"}
	case instrdata.ICL:
		p.ROBWidth = 352
		p.RSWidth = 160
		p.DSBWidth = 6
		p.AllPorts = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
	}

	return p, nil
}

// Config is the top-level, user-facing set of run options: a
// microarchitecture, loop mode, and round budget. The instruction
// stream itself is passed to NewSimulator separately.
type Config struct {
	Arch instrdata.Arch

	// Loop, when true, repeats the instruction stream end-to-end every round
	// instead of running it once, matching the reference tool's
	// steady-state throughput measurement mode.
	Loop bool

	// Cycles overrides the default round budget used to reach the
	// steady state (0 selects the default of 150 rounds).
	Cycles int
}

// Validate reports whether c describes a runnable simulation.
func (c Config) Validate() error {
	if !c.Arch.Valid() {
		return fmt.Errorf("pipesim: config: unknown microarchitecture %q", c.Arch)
	}
	if c.Cycles < 0 {
		return fmt.Errorf("pipesim: config: negative cycle budget %d", c.Cycles)
	}
	return nil
}
