package pipesim

// dsbHalfBytes is the granularity the DSB's cacheability test runs
// at: a 64-byte DSB cache line is built from two 32-byte halves, and
// a half's instructions are DSB-resident only as a unit.
const dsbHalfBytes = 32

// dsbMaxUopsPerHalf is the uop budget a half may not exceed to be
// cacheable.
const dsbMaxUopsPerHalf = 18

// dsbSwitchPenaltyCycles is the stall paid when fetch moves from the
// DSB to the MITE/MS path or back, modeling the real pipeline bubble
// a uop-source switch costs rather than the two paths interleaving
// uop-for-uop at zero cost.
const dsbSwitchPenaltyCycles = 2

// DSB is the decoded-stream buffer: once a 32-byte half of the
// instruction stream has been classified cacheable (computed once,
// from the program's static layout, the same way the reference tool
// fixes its cacheable set from the first round rather than
// recomputing it every round) and its instructions have been decoded
// at least once, later occurrences of the same addresses are served
// straight from the cache instead of going through pre-decode/decode
// again.
type DSB struct {
	width int
	cache map[int64]*Instruction

	cacheableHalves map[int64]bool

	lastServedFromDSB bool
	switchStallLeft   int
}

// NewDSB returns an empty DSB with the given per-cycle delivery
// width, with prog's cacheable halves computed up front from its
// static layout.
func NewDSB(width int, prog []*Instruction) *DSB {
	d := &DSB{width: width, cache: make(map[int64]*Instruction)}
	d.computeCacheableHalves(prog)
	return d
}

func instrByteLen(instr *Instruction) int64 {
	if instr.Len > 0 {
		return instr.Len
	}
	return 4
}

// computeCacheableHalves lays prog out at consecutive addresses (the
// same scheme CacheBlockGen uses) and classifies every 32-byte half
// of that layout: a half is cacheable unless its non-macro-fused-away
// uop total exceeds dsbMaxUopsPerHalf, a branch's encoding crosses its
// half boundary, or a macro-fused compare+branch pair straddles one.
// The straddle check walks the program's full sequential order rather
// than each half's own instructions in isolation, since a straddling
// pair by definition has its two halves (not its two instructions)
// landing in different per-half buckets.
func (d *DSB) computeCacheableHalves(prog []*Instruction) {
	d.cacheableHalves = make(map[int64]bool)

	type placed struct {
		instr *Instruction
		addr  int64
	}
	var all []placed
	var addr int64
	for _, instr := range prog {
		all = append(all, placed{instr, addr})
		addr += instrByteLen(instr)
	}

	halfOf := func(a int64) int64 { return (a / dsbHalfBytes) * dsbHalfBytes }

	uopsPerHalf := make(map[int64]int)
	uncacheable := make(map[int64]bool)
	seen := make(map[int64]bool)
	var order []int64

	for idx, p := range all {
		base := halfOf(p.addr)
		if !seen[base] {
			seen[base] = true
			order = append(order, base)
		}
		halfEnd := base + dsbHalfBytes

		fusedWithPrev := idx > 0 && halfOf(all[idx-1].addr) == base && macroFusesWithNext(all[idx-1].instr, p.instr)
		if !fusedWithPrev {
			uopsPerHalf[base] += p.instr.Entry.Uops
		}

		end := p.addr + instrByteLen(p.instr)
		if p.instr.Entry.IsBranch && end > halfEnd {
			uncacheable[base] = true
		}
		if idx < len(all)-1 && macroFusesWithNext(p.instr, all[idx+1].instr) {
			nextBase := halfOf(all[idx+1].addr)
			if end > halfEnd || nextBase != base {
				uncacheable[base] = true
				uncacheable[nextBase] = true
			}
		}
	}

	for _, base := range order {
		d.cacheableHalves[base] = !uncacheable[base] && uopsPerHalf[base] <= dsbMaxUopsPerHalf
	}
}

// Cycle serves as many of instances as are already cached and whose
// half was classified cacheable (up to the DSB's width) and returns
// the served LaminatedUops plus the instances that still need
// pre-decode/decode. A pending source-switch stall (see
// dsbSwitchPenaltyCycles) holds back delivery entirely for its
// duration.
func (d *DSB) Cycle(instances []*InstrInstance, gen *IdxGen) (served []*LaminatedUop, rest []*InstrInstance) {
	if d.switchStallLeft > 0 {
		d.switchStallLeft--
		return nil, instances
	}

	for i, ii := range instances {
		if len(served) >= d.width {
			rest = append(rest, instances[i:]...)
			break
		}
		base := (ii.Addr / dsbHalfBytes) * dsbHalfBytes
		instr, ok := d.cache[ii.Addr]
		if ok && d.cacheableHalves[base] {
			ii.Instr = instr
			served = append(served, ii.GenerateUops(gen))
			continue
		}
		// A miss (uncacheable half, or not yet recorded): hand this
		// instruction and everything after it to MITE/MS rather than
		// interleaving sources within one cycle's delivery.
		rest = append(rest, instances[i:]...)
		break
	}

	switch {
	case len(served) > 0 && !d.lastServedFromDSB:
		d.switchStallLeft = dsbSwitchPenaltyCycles
		d.lastServedFromDSB = true
	case len(served) == 0 && len(rest) > 0 && d.lastServedFromDSB:
		d.switchStallLeft = dsbSwitchPenaltyCycles
		d.lastServedFromDSB = false
	}

	return served, rest
}

// Record registers ii's address as cacheable, so future occurrences
// of the same address hit in Cycle. Instructions requiring the
// microcode sequencer, and instructions whose 32-byte half was
// classified uncacheable, are never cached.
func (d *DSB) Record(ii *InstrInstance) {
	if ii.Instr.Entry.UopsMS > 0 {
		return
	}
	base := (ii.Addr / dsbHalfBytes) * dsbHalfBytes
	if !d.cacheableHalves[base] {
		return
	}
	d.cache[ii.Addr] = ii.Instr
}
