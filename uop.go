package pipesim

// UopKind distinguishes the handful of uop shapes the simulator needs
// to treat specially. Modeling this as a tag on Uop rather than a
// type hierarchy keeps every stage that walks a uop slice working
// against one concrete type.
type UopKind int

const (
	// UopNormal is an ordinary uop produced directly from an
	// instruction's declared operands.
	UopNormal UopKind = iota
	// UopStackSynch is a synthetic uop (dispatchable on port 0, 1 or
	// 5) appended after an instruction that implicitly modifies RSP
	// (a POP into a register other than RSP) so that later
	// instructions reading RSP see a correctly ordered dependency.
	UopStackSynch
)

// UopProperties is the compiled, port/latency-level description of
// one uop, produced by CompileUopProperties from an instrdata.Entry.
// It is immutable once built and shared by every dynamic Uop instance
// generated from the same instruction form.
type UopProperties struct {
	PossiblePorts []string
	IsLoad        bool
	IsStoreAddress bool
	IsStoreData   bool
	DivCycles     int
	Latency       int // cycles from a producing uop's dispatch to this uop's output becoming ready
	IsFirstUop    bool
	IsLastUop     bool
}

// Uop is one dynamic, schedulable micro-operation: the atomic unit of
// renaming, reservation-station scheduling, dispatch, and retirement.
type Uop struct {
	Idx  int
	Kind UopKind

	Prop UopProperties

	Instr *InstrInstance // owning dynamic instruction instance

	Inputs  []*RenamedOperand // renamed input operands this uop must wait on
	Outputs []*RenamedOperand // renamed values this uop produces, if any

	ActualPort string // port assigned at issue; "" until assigned

	// Scheduling timestamps, all -1 until set. Clock is in simulator
	// cycles, zero-based.
	AddedToRSCycle        int
	ReadyForDispatchCycle int
	DispatchedCycle       int
	ExecutedCycle         int
	RetiredCycle          int

	DivBusyCyclesLeft int
}

func newUop(idx int, instr *InstrInstance, prop UopProperties) *Uop {
	return &Uop{
		Idx:                   idx,
		Instr:                 instr,
		Prop:                  prop,
		AddedToRSCycle:        -1,
		ReadyForDispatchCycle: -1,
		DispatchedCycle:       -1,
		ExecutedCycle:         -1,
		RetiredCycle:          -1,
	}
}

// FusedUop is the fused-domain grouping used by pre-decode, decode,
// and the IDQ: two macro-fused instructions (a compare and the branch
// it fuses with) occupy one FusedUop; everything else occupies a
// FusedUop of its own single uop.
type FusedUop struct {
	Uops []*Uop
}

// LaminatedUop is the rename-domain grouping used by the IDQ and
// issue width accounting: a load-and-op instruction laminates its
// load uop and its ALU uop into one LaminatedUop that issues as one
// slot but unlaminates into independently dispatched uops once past
// rename.
type LaminatedUop struct {
	Fused []*FusedUop
	Instr *InstrInstance
}

// AllUops flattens l to its individual dynamic uops, in program order.
func (l *LaminatedUop) AllUops() []*Uop {
	var out []*Uop
	for _, f := range l.Fused {
		out = append(out, f.Uops...)
	}
	return out
}

// IdxGen hands out strictly increasing Uop indices. Threading an
// IdxGen through the simulator in place of a package-level counter
// keeps multiple simulator runs (as in tests) from interfering with
// each other's uop numbering.
type IdxGen struct {
	next int
}

// Next returns the next index, starting at 0.
func (g *IdxGen) Next() int {
	n := g.next
	g.next++
	return n
}
