package pipesim

// lcpStallCycles is the extra pre-decode delay a length-changing-
// prefix instruction costs on top of the arch's ordinary
// predecode-to-decode delay.
const lcpStallCycles = 3

// PreDecoder turns 16-byte fetch blocks from a CacheBlockGen into a
// FIFO of instructions waiting out the pre-decode-to-decode delay. It
// models two effects a single flat per-instruction delay alone
// misses: a length-changing-prefix instruction (isLCPStall) costs
// extra cycles of its own, and an instruction whose encoding alone
// exceeds the current 16-byte fetch window (the one case
// CacheBlockGen.Next allows past the window) holds up the next fetch
// by a cycle while its back half is notionally still arriving.
type PreDecoder struct {
	gen     *CacheBlockGen
	width   int
	delay   int
	iqWidth int

	pending []*InstrInstance

	carryCycles int
}

// NewPreDecoder returns a PreDecoder pulling blocks from gen. iqWidth
// caps how many pre-decoded instructions the pre-decoder may buffer
// ahead of the decoder, independent of width*delay; zero selects the
// width*(delay+1) default.
func NewPreDecoder(gen *CacheBlockGen, width, delay, iqWidth int) *PreDecoder {
	if iqWidth <= 0 {
		iqWidth = width * (delay + 1)
	}
	return &PreDecoder{gen: gen, width: width, delay: delay, iqWidth: iqWidth}
}

func isLCPStall(instr *Instruction) bool {
	return instr.Entry.LCPStall
}

// Cycle advances the pre-decoder by one cycle and returns the
// instructions (if any) that have cleared the pre-decode delay (plus
// any LCP stall) and are ready for the decoder this cycle, in program
// order.
func (p *PreDecoder) Cycle(clock int) []*InstrInstance {
	if p.carryCycles > 0 {
		p.carryCycles--
	} else if len(p.pending) < p.iqWidth && !p.gen.Done() {
		if blk := p.gen.Next(16); blk != nil {
			var used int64
			for _, ii := range blk {
				l := ii.Instr.Len
				if l <= 0 {
					l = 4
				}
				used += l
				ii.PredecodedCycle = clock
				if isLCPStall(ii.Instr) {
					ii.PredecodedCycle += lcpStallCycles
				}
			}
			if used > 16 {
				p.carryCycles = 1
			}
			p.pending = append(p.pending, blk...)
		}
	}

	var ready []*InstrInstance
	consumed := 0
	for _, ii := range p.pending {
		if len(ready) >= p.width || clock-ii.PredecodedCycle < p.delay {
			break
		}
		ready = append(ready, ii)
		consumed++
	}
	p.pending = p.pending[consumed:]
	return ready
}

// Idle reports whether the pre-decoder has nothing buffered, no carry
// stall pending, and its generator is exhausted.
func (p *PreDecoder) Idle() bool {
	return len(p.pending) == 0 && p.carryCycles == 0 && p.gen.Done()
}
