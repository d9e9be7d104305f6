package pipesim

// MicrocodeSequencer delivers uops for instructions whose table entry
// declares microcoded uops (UopsMS > 0), one instruction per cycle —
// the MS can only be "streaming" one instruction's microcode at a
// time, unlike the four-wide MITE.
type MicrocodeSequencer struct {
	busyUntil int
}

// Cycle delivers microcoded instructions from the front of instances,
// at most one per cycle, and returns the LaminatedUops it produced
// plus the instances still awaiting a decoder.
func (m *MicrocodeSequencer) Cycle(clock int, instances []*InstrInstance, gen *IdxGen) ([]*LaminatedUop, []*InstrInstance) {
	var served []*LaminatedUop
	var rest []*InstrInstance
	for _, ii := range instances {
		if ii.Instr.Entry.UopsMS > 0 && clock >= m.busyUntil && len(served) == 0 {
			served = append(served, ii.GenerateUops(gen))
			m.busyUntil = clock + 1
			continue
		}
		rest = append(rest, ii)
	}
	return served, rest
}

// IsBusy reports whether the sequencer is still occupied at clock.
func (m *MicrocodeSequencer) IsBusy(clock int) bool {
	return clock < m.busyUntil
}
