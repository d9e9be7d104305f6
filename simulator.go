package pipesim

import (
	"fmt"

	"github.com/opd-ai/x86pipesim/internal/instrdata"
)

const defaultRounds = 150

// Result is the outcome of a simulation run: every retired uop (for
// port-usage reporting) plus the measured steady-state throughput.
type Result struct {
	Retired    []*Uop
	Cycles     int
	Throughput float64 // cycles per loop iteration, steady state
}

// Simulator drives a FrontEnd over a compiled instruction stream until
// either the stream (non-looping) fully retires or a looping run has
// reached its steady state.
type Simulator struct {
	cfg      Params
	prog     []*Instruction
	frontEnd *FrontEnd
	loop     bool
	maxCycle int
}

// NewSimulator returns a ready-to-run Simulator over prog, which must
// already be compiled (see Compile); it is used as given.
func NewSimulator(cfg Params, prog []*Instruction, c Config) *Simulator {
	rounds := c.Cycles
	if rounds <= 0 {
		rounds = defaultRounds
	}
	return &Simulator{
		cfg:      cfg,
		prog:     prog,
		frontEnd: NewFrontEnd(cfg, prog, c.Loop),
		loop:     c.Loop,
		maxCycle: rounds * (len(prog) + 1) * 4,
	}
}

// Run executes the simulation to completion (or until its cycle
// budget is exhausted) and reports the retired uops and, for looping
// runs, the steady-state per-iteration throughput.
func (s *Simulator) Run() Result {
	safetyLimit := s.maxCycle
	if safetyLimit < 2000 {
		safetyLimit = 2000
	}

	cycles := 0
	for cycles < safetyLimit {
		s.frontEnd.Cycle()
		cycles++
		if !s.loop && s.frontEnd.Idle() && s.frontEnd.ROBEmpty() {
			break
		}
		if s.loop && cycles > 500 && s.steadyEnough() {
			break
		}
	}

	retired := s.frontEnd.Retired()
	res := Result{Retired: retired, Cycles: cycles}
	if s.loop && len(s.prog) > 0 {
		res.Throughput = s.steadyStateThroughput(retired)
	}
	return res
}

// steadyEnough is a cheap early-exit check: once enough uops have
// retired to have completed several loop iterations, the steady-state
// computation below has enough data to be stable.
func (s *Simulator) steadyEnough() bool {
	uopsPerIter := 0
	for _, instr := range s.prog {
		uopsPerIter += len(instr.Props)
	}
	if uopsPerIter == 0 {
		return true
	}
	return len(s.frontEnd.Retired()) > uopsPerIter*60
}

// steadyStateThroughput measures cycles-per-iteration over a late
// window of retirements, discarding the first firstRelevantRound
// iterations' worth of uops as front-end/back-end ramp-up.
func (s *Simulator) steadyStateThroughput(retired []*Uop) float64 {
	uopsPerIter := 0
	for _, instr := range s.prog {
		uopsPerIter += len(instr.Props)
	}
	if uopsPerIter == 0 || len(retired) < uopsPerIter*2 {
		return 0
	}

	const firstRelevantRound = 50
	firstIdx := firstRelevantRound * uopsPerIter
	if firstIdx >= len(retired) {
		firstIdx = 0
	}
	lastIdx := len(retired) - 1 - (len(retired)-firstIdx)%uopsPerIter
	if lastIdx <= firstIdx {
		return 0
	}

	numRounds := (lastIdx - firstIdx) / uopsPerIter
	if numRounds <= 0 {
		return 0
	}

	first := retired[firstIdx].RetiredCycle
	last := retired[lastIdx].RetiredCycle
	return float64(last-first) / float64(numRounds)
}

// Compile turns a raw instruction stream (iform + operands, as loaded
// from a JSON stream file or synthesized by internal/entropy) into
// compiled Instructions ready to hand to NewSimulator.
func Compile(arch instrdata.Arch, reqs []InstrRequest) ([]*Instruction, error) {
	table := instrdata.Lookup(arch)
	if table == nil {
		return nil, fmt.Errorf("pipesim: unknown microarchitecture %q", arch)
	}

	out := make([]*Instruction, 0, len(reqs))
	for _, r := range reqs {
		entry, ok := table.Find(r.Iform, r.Attributes)
		if !ok {
			return nil, fmt.Errorf("pipesim: no instruction-data entry for iform %q on %s", r.Iform, arch)
		}
		instr := &Instruction{
			Iform:              r.Iform,
			Entry:              entry,
			Operands:           r.Operands,
			Len:                r.Len,
			StackSynchRequired: stackPtrImplicitlyModified(r),
		}
		if instr.Len <= 0 {
			instr.Len = 4
		}
		instr.Props = CompileUopProperties(entry)
		out = append(out, instr)
	}
	return out, nil
}

// InstrRequest is the minimal description of one instruction stream
// entry a caller supplies to Compile: which instruction form it is,
// its concrete operands, and its encoded length.
type InstrRequest struct {
	Iform      string
	Attributes map[string]string
	Operands   map[string]Operand
	Len        int64
}

// stackPtrImplicitlyModified reports whether r's addressing mode
// writes RSP without it appearing as a declared operand — the case
// that requires an explicit stack-synchronization uop so later RSP
// readers see a correctly ordered dependency. POP always adjusts RSP
// in addition to writing its destination register; when the
// destination register is RSP itself that adjustment already *is* the
// declared write, so no extra uop is needed.
func stackPtrImplicitlyModified(r InstrRequest) bool {
	if r.Iform != "POP" {
		return false
	}
	dst, ok := r.Operands["dst"].(*RegOperand)
	if !ok {
		return true
	}
	return CanonicalReg(dst.Reg) != "RSP"
}
