package pipesim

// CacheBlockGen hands out consecutive pre-decode blocks of whole
// instructions from a static instruction stream (each block starts
// where the previous one ended; blocks are not aligned to 16-byte
// address boundaries), optionally looping back to
// the start of the stream to model a steady-state throughput
// measurement. It is an explicit state machine rather than a
// goroutine/channel pipeline stage, so driving it is just repeated
// calls to Next from the simulator's own cycle loop.
type CacheBlockGen struct {
	prog  []*Instruction
	addrs []int64

	loop  bool
	idx   int
	round int
}

// NewCacheBlockGen lays prog out at consecutive addresses starting at
// zero and returns a generator over it. If loop is true, Next wraps
// back to the start of prog indefinitely instead of reporting done.
func NewCacheBlockGen(prog []*Instruction, loop bool) *CacheBlockGen {
	addrs := make([]int64, len(prog))
	var addr int64
	for i, instr := range prog {
		l := instr.Len
		if l <= 0 {
			l = 4
		}
		addrs[i] = addr
		addr += l
	}
	return &CacheBlockGen{prog: prog, addrs: addrs, loop: loop}
}

// Done reports whether the generator has exhausted a non-looping
// stream.
func (g *CacheBlockGen) Done() bool {
	return !g.loop && g.idx >= len(g.prog)
}

// Next returns the next pre-decode block, containing as many whole
// instructions as fit within maxBlockBytes starting from the current
// position (always at least one instruction, even if it alone
// exceeds maxBlockBytes). It returns nil once the generator is Done.
func (g *CacheBlockGen) Next(maxBlockBytes int64) []*InstrInstance {
	if len(g.prog) == 0 || g.Done() {
		return nil
	}

	var out []*InstrInstance
	var used int64
	for {
		if g.idx >= len(g.prog) {
			if !g.loop || used > 0 {
				break
			}
			g.idx = 0
			g.round++
		}
		instr := g.prog[g.idx]
		l := instr.Len
		if l <= 0 {
			l = 4
		}
		if used+l > maxBlockBytes && used > 0 {
			break
		}
		out = append(out, &InstrInstance{
			Instr:           instr,
			Addr:            g.addrs[g.idx],
			RoundNr:         g.round,
			PredecodedCycle: -1,
		})
		used += l
		g.idx++
		if used >= maxBlockBytes {
			break
		}
	}
	return out
}
