package pipesim

import "github.com/opd-ai/x86pipesim/internal/instrdata"

// Instruction is the static, compiled form of one instruction stream
// entry: its instrdata.Entry plus the concrete operands it was
// disassembled with. Every dynamic occurrence of the same instruction
// (e.g. inside a looped instruction stream) shares one Instruction and
// its compiled UopProperties.
type Instruction struct {
	Iform    string
	Entry    instrdata.Entry
	Operands map[string]Operand // named operand -> concrete Reg/Mem operand

	Len int64 // encoded length in bytes, for 16-byte pre-decode block placement

	Props []UopProperties // compiled per-uop properties, see CompileUopProperties

	// StackSynchRequired marks instructions that implicitly modify RSP
	// beyond what their declared operands capture: a POP into any
	// register other than RSP (see stackPtrImplicitlyModified).
	StackSynchRequired bool
}

// CompileUopProperties classifies e's port-distribution entries into
// load / store-address / store-data / non-memory buckets and expands
// them into one UopProperties per uop, in the fixed order: store
// address, loads, non-memory, store data. This mirrors the order the
// reference uop-property compiler emits uops in, which later stages
// (stack-synch placement, retire-slot padding) depend on.
func CompileUopProperties(e instrdata.Entry) []UopProperties {
	var storeAddr, loads, nonMem, storeData []UopProperties

	for _, pc := range e.Ports {
		for i := 0; i < pc.Count; i++ {
			prop := UopProperties{PossiblePorts: pc.Ports}
			switch pc.Role {
			case instrdata.RoleLoad:
				prop.IsLoad = true
				loads = append(loads, prop)
			case instrdata.RoleStoreAddress:
				prop.IsStoreAddress = true
				storeAddr = append(storeAddr, prop)
			case instrdata.RoleStoreData:
				prop.IsStoreData = true
				storeData = append(storeData, prop)
			default:
				nonMem = append(nonMem, prop)
			}
		}
	}

	// A store with data uops but no declared store-address uop has its
	// first load uop promoted to a store-address uop, so the store
	// always carries an address uop. The curated stores in
	// internal/instrdata declare their store-address uop explicitly and
	// never take this path.
	if len(storeData) > 0 && len(storeAddr) == 0 && len(loads) > 0 {
		storeAddr = append(storeAddr, loads[0])
		storeAddr[len(storeAddr)-1].IsLoad = false
		storeAddr[len(storeAddr)-1].IsStoreAddress = true
		loads = loads[1:]
	}

	for i := range nonMem {
		if nonMem[i].PossiblePorts != nil && onlyPort0(nonMem[i].PossiblePorts) && e.DivCycles > 0 {
			nonMem[i].DivCycles = e.DivCycles
			break
		}
	}

	out := make([]UopProperties, 0, len(storeAddr)+len(loads)+len(nonMem)+len(storeData))
	out = append(out, storeAddr...)
	out = append(out, loads...)
	out = append(out, nonMem...)
	out = append(out, storeData...)

	retireSlots := e.RetireSlots
	if retireSlots == 0 && e.Uops != 0 {
		// RetireSlots was left at its zero value for an ordinary
		// (non-eliminated) instruction; default it to one slot. A
		// genuinely zero-uop entry (move elimination) keeps
		// RetireSlots at zero on purpose.
		retireSlots = 1
	}
	for len(out) < retireSlots {
		out = append(out, UopProperties{})
	}

	if len(out) > 0 {
		out[0].IsFirstUop = true
		out[len(out)-1].IsLastUop = true
	}

	return AdjustLatencies(out, e)
}

func onlyPort0(ports []string) bool {
	return len(ports) == 1 && ports[0] == "0"
}

// hasLoadUop reports whether any of instr's compiled uops reads from
// memory, used by the renamer to tell a load's memory operand (no
// producer chain of its own) apart from an ordinary data input.
func (instr *Instruction) hasLoadUop() bool {
	for _, p := range instr.Props {
		if p.IsLoad {
			return true
		}
	}
	return false
}

// AdjustLatencies fills in each uop's scalar Latency from e's named
// latency table, collapsing the (input, output) latency map into one
// number shared by every uop: the maximum latency anywhere in e's
// table (1 if the table is empty), which is sufficient fidelity for the curated
// instruction set this package ships (entries with a single producing
// path dominate; entries with divergent latencies per operand are a
// documented simplification, see DESIGN.md).
func AdjustLatencies(props []UopProperties, e instrdata.Entry) []UopProperties {
	max := 0
	for _, lat := range e.Latencies {
		if lat > max {
			max = lat
		}
	}
	if max == 0 {
		max = 1
	}
	for i := range props {
		if props[i].Latency == 0 {
			props[i].Latency = max
		}
	}
	return props
}

// InstrInstance is one dynamic occurrence of an Instruction in the
// simulated instruction stream: the unit pre-decode, decode, and
// rename all operate on.
type InstrInstance struct {
	Instr   *Instruction
	Addr    int64
	RoundNr int

	PredecodedCycle int
	Laminated       *LaminatedUop
}

// GenerateUops builds the dynamic Uop slice for this instance from
// its Instruction's compiled UopProperties, laminating the result
// into FusedUop/LaminatedUop containers and appending a stack-synch
// uop when the instruction requires one.
func (ii *InstrInstance) GenerateUops(gen *IdxGen) *LaminatedUop {
	fused := &FusedUop{}
	for _, prop := range ii.Instr.Props {
		u := newUop(gen.Next(), ii, prop)
		fused.Uops = append(fused.Uops, u)
	}
	lam := &LaminatedUop{Fused: []*FusedUop{fused}, Instr: ii}

	if ii.Instr.StackSynchRequired {
		synch := newUop(gen.Next(), ii, UopProperties{PossiblePorts: []string{"0", "1", "5"}})
		synch.Kind = UopStackSynch
		lam.Fused = append(lam.Fused, &FusedUop{Uops: []*Uop{synch}})
	}

	ii.Laminated = lam
	return lam
}
