package pipesim

import "fmt"

// RenamedOperand is the renamer's view of one logical value: the
// uops that will produce it (empty if the value is already
// architecturally available, e.g. read before anything in the
// simulated window writes it).
type RenamedOperand struct {
	Operand   Operand
	Producers []*Uop
}

// ReadyCycle returns the cycle this value becomes available to a
// consumer, or -1 if it is not yet known (a producer hasn't dispatched
// yet, or one of that producer's own inputs isn't resolvable yet) or
// the value has no tracked producer and is assumed ready immediately.
//
// For each producer this is
// max(dispatched+1, dispatched+latency, every input's ReadyCycle()+latency),
// recursing into the producer's own inputs rather than only looking at
// its own dispatch time, so a chain of back-to-back dependent uops
// accumulates latency correctly instead of only ever reflecting the
// latency of its immediate producer.
func (r *RenamedOperand) ReadyCycle() int {
	if len(r.Producers) == 0 {
		return -1
	}
	ready := -1
	for _, p := range r.Producers {
		if p.DispatchedCycle < 0 {
			return -1
		}
		lat := p.Prop.Latency
		if lat <= 0 {
			lat = 1
		}
		c := p.DispatchedCycle + 1
		if v := p.DispatchedCycle + lat; v > c {
			c = v
		}
		for _, in := range p.Inputs {
			if in == nil {
				continue
			}
			irc := in.ReadyCycle()
			if irc < 0 && len(in.Producers) > 0 {
				return -1
			}
			if v := irc + lat; v > c {
				c = v
			}
		}
		if c > ready {
			ready = c
		}
	}
	return ready
}

// renameKey is the renamer's dictionary key: either a plain register
// name or a memory addressing tuple, mirroring the two shapes of key
// the reference renamer's single dictionary holds. A memory operand's
// base/index are keyed by their *abstract* value rather than their
// literal register name, so that reusing a register for an unrelated
// pointer after a write does not alias the new memory reference with
// the old one.
type renameKey struct {
	isMem bool
	reg   string
	base  int
	index int
	scale int
	disp  int64
	agen  bool
}

// moveEliminationBudget caps how many register-to-register moves the
// renamer eliminates (aliases rather than dispatches a uop for) in a
// single cycle. The reference renamer tracks this with a sliding
// 2-cycle window keyed per register; this package uses a flat
// per-cycle budget sized to the issue width instead, a deliberate
// simplification recorded in DESIGN.md.
const moveEliminationBudget = 4

// Renamer assigns RenamedOperands to instruction operands in program
// order, aliasing eliminated moves instead of allocating a producing
// uop for them, and tracks the abstract values flowing through
// registers and memory locations for memory-operand rename keys and
// move/pop/lea value propagation.
type Renamer struct {
	dict map[renameKey]*RenamedOperand

	abstractReg map[string]int // canonical register -> current abstract value
	abstractMem map[string]int // memory-addressing key -> abstract value last stored there
	abstractLea map[string]int // memory-addressing key -> abstract value an lea over it yields
	nextAbstract int

	eliminationsThisCycle int
}

// NewRenamer returns an empty Renamer.
func NewRenamer() *Renamer {
	return &Renamer{
		dict:        make(map[renameKey]*RenamedOperand),
		abstractReg: make(map[string]int),
		abstractMem: make(map[string]int),
		abstractLea: make(map[string]int),
	}
}

func (r *Renamer) mintAbstract() int {
	r.nextAbstract++
	return r.nextAbstract
}

// abstractOfReg returns reg's current abstract value, minting (and
// remembering) a fresh one the first time reg is observed so that
// repeated reads of an architecturally-initialized register agree.
func (r *Renamer) abstractOfReg(reg string) int {
	reg = CanonicalReg(reg)
	if id, ok := r.abstractReg[reg]; ok {
		return id
	}
	id := r.mintAbstract()
	r.abstractReg[reg] = id
	return id
}

// memAbstractKey builds a string key for addr from the abstract
// values currently held by its base/index registers, so the same
// physical register reused for an unrelated pointer later does not
// collide with an earlier reference through it.
func (r *Renamer) memAbstractKey(addr MemAddr) string {
	base := -1
	if addr.Base != "" {
		base = r.abstractOfReg(addr.Base)
	}
	index := -1
	if addr.Index != "" {
		index = r.abstractOfReg(addr.Index)
	}
	return fmt.Sprintf("%d:%d:%d:%d", base, index, addr.Scale, addr.Displacement)
}

func (r *Renamer) renameKeyFor(op Operand, isAGEN bool) renameKey {
	switch v := op.(type) {
	case *RegOperand:
		return renameKey{reg: CanonicalReg(v.Reg)}
	case *MemOperand:
		base := -1
		if v.Addr.Base != "" {
			base = r.abstractOfReg(v.Addr.Base)
		}
		index := -1
		if v.Addr.Index != "" {
			index = r.abstractOfReg(v.Addr.Index)
		}
		return renameKey{
			isMem: true,
			base:  base, index: index,
			scale: v.Addr.Scale, disp: v.Addr.Displacement,
			agen: isAGEN,
		}
	default:
		return renameKey{}
	}
}

// Lookup returns the current RenamedOperand for op, creating an
// already-ready placeholder if op has never been written within the
// renamer's tracked window.
func (r *Renamer) Lookup(op Operand) *RenamedOperand {
	return r.lookup(op, false)
}

func (r *Renamer) lookup(op Operand, isAGEN bool) *RenamedOperand {
	if op == nil {
		return nil
	}
	k := r.renameKeyFor(op, isAGEN)
	if ro, ok := r.dict[k]; ok {
		return ro
	}
	return &RenamedOperand{Operand: op}
}

func (r *Renamer) bind(op Operand, ro *RenamedOperand) {
	r.dict[r.renameKeyFor(op, false)] = ro
}

// computeAbstractValue derives the abstract value ii's write(s)
// produce: a move propagates its source register's current abstract
// value, a pop reads the abstract value last stored at the memory
// location it loads from, and an lea derives one from its AGEN
// operand (so that two leas computing the same symbolic address agree
// rather than each minting an unrelated fresh value); everything else
// mints a fresh value, modeling an ordinary ALU result as a new,
// unrelated quantity.
func (r *Renamer) computeAbstractValue(ii *InstrInstance) int {
	e := ii.Instr.Entry

	switch {
	case e.IsMove:
		if src, ok := ii.Instr.Operands["src"].(*RegOperand); ok {
			return r.abstractOfReg(src.Reg)
		}
	case e.IsPop:
		if mem, ok := ii.Instr.Operands[e.MemOperandKey].(*MemOperand); ok {
			key := r.memAbstractKey(mem.Addr)
			if id, ok := r.abstractMem[key]; ok {
				return id
			}
		}
	case e.IsLea:
		if agen, ok := ii.Instr.Operands[e.AGENOperand].(*MemOperand); ok {
			key := r.memAbstractKey(agen.Addr)
			if id, ok := r.abstractLea[key]; ok {
				return id
			}
			id := r.mintAbstract()
			r.abstractLea[key] = id
			return id
		}
	}
	return r.mintAbstract()
}

// Cycle renames every operand of each instance in instances, in
// program order, attaching RenamedOperand inputs to each instance's
// generated uops (driven by the instruction form's own declared
// InputOperands/OutputOperands rather than a fixed set of operand
// names) and registering each output as the new producer for its
// destination operand.
func (r *Renamer) Cycle(instances []*InstrInstance) {
	r.eliminationsThisCycle = 0

	for _, ii := range instances {
		entry := ii.Instr.Entry
		isLoad := ii.Instr.hasLoadUop()

		var inputs []*RenamedOperand
		for _, key := range entry.InputOperands {
			// The memory operand of a load carries no producer chain
			// of its own (it models the read, not a value with a
			// renamer-tracked writer); folding it into Inputs would
			// make every load uop permanently unready. Its abstract
			// value is still tracked below, just not as a scheduler
			// dependency.
			if isLoad && key == entry.MemOperandKey {
				continue
			}
			op, ok := ii.Instr.Operands[key]
			if !ok {
				continue
			}
			inputs = append(inputs, r.lookup(op, key == entry.AGENOperand))
		}

		if entry.Uops == 0 && len(entry.OutputOperands) > 0 && len(inputs) > 0 &&
			r.eliminationsThisCycle < moveEliminationBudget {
			for _, key := range entry.OutputOperands {
				if dst, ok := ii.Instr.Operands[key]; ok {
					r.bind(dst, inputs[0])
				}
			}
			r.eliminationsThisCycle++
			continue
		}

		uops := ii.Laminated.AllUops()
		for _, u := range uops {
			u.Inputs = inputs
		}

		if len(uops) == 0 {
			continue
		}
		producer := uops[len(uops)-1]
		abstractVal := r.computeAbstractValue(ii)

		for _, key := range entry.OutputOperands {
			dst, ok := ii.Instr.Operands[key]
			if !ok {
				continue
			}
			ro := &RenamedOperand{Operand: dst, Producers: []*Uop{producer}}
			r.bind(dst, ro)
			producer.Outputs = append(producer.Outputs, ro)

			switch v := dst.(type) {
			case *RegOperand:
				r.abstractReg[CanonicalReg(v.Reg)] = abstractVal
			case *MemOperand:
				r.abstractMem[r.memAbstractKey(v.Addr)] = abstractVal
			}
		}
	}
}
