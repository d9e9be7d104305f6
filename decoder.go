package pipesim

// Decoder models the MITE: nDecoders legacy decoders turn pre-decoded
// instructions into uops every cycle, subject to the structural rules
// a real front-end's decode group enforces. Every complex-decoder
// instruction occupies the first decoder slot: the first instruction
// of a group may always use the complex decoder regardless of its
// shape, but any later instruction that itself needs the complex
// decoder stops the group instead of taking a simple-decoder slot.
// The remaining nDecoders-1 simple decoders only ever take
// single-uop, non-microcoded instructions. A macro-fusible compare
// paired with the branch it fuses with is folded into one decode slot
// (decodeFused); POP's 5C encoding form can end a group or require
// the complex decoder depending on the arch; and a branch always ends
// the group it's decoded in, since nothing sequentially past it can
// be fetched in the same pass.
type Decoder struct {
	cfg Params
}

// NewDecoder returns a Decoder governed by cfg's decoder width and
// decode-group rules.
func NewDecoder(cfg Params) *Decoder {
	return &Decoder{cfg: cfg}
}

func isComplexDecode(instr *Instruction) bool {
	return instr.Entry.ComplexDecoder || instr.Entry.Uops > 1 || instr.Entry.UopsMS > 0
}

// isPop5C reports whether instr is treated as POP's 5C encoding form.
// Every instruction of iform "POP" is treated as that form; the
// register it pops into is not examined.
func isPop5C(instr *Instruction) bool {
	return instr.Iform == "POP"
}

func macroFusesWithNext(cur, next *Instruction) bool {
	if next == nil {
		return false
	}
	for _, s := range cur.Entry.MacroFusibleWith {
		if s == next.Iform {
			return true
		}
	}
	return false
}

// decodeFused folds cmp and the branch it macro-fuses with into a
// single FusedUop occupying one decoder slot and one IDQ entry,
// rather than two.
func decodeFused(cmp, br *InstrInstance, gen *IdxGen) *LaminatedUop {
	fused := &FusedUop{}
	for _, prop := range cmp.Instr.Props {
		fused.Uops = append(fused.Uops, newUop(gen.Next(), cmp, prop))
	}
	for _, prop := range br.Instr.Props {
		fused.Uops = append(fused.Uops, newUop(gen.Next(), br, prop))
	}
	lam := &LaminatedUop{Fused: []*FusedUop{fused}, Instr: cmp}
	cmp.Laminated = lam
	br.Laminated = lam
	return lam
}

// Cycle decodes one decode group from the front of instances and
// returns its generated LaminatedUops. The caller is responsible for
// re-queuing whatever instances are left over.
func (d *Decoder) Cycle(instances []*InstrInstance, gen *IdxGen) ([]*LaminatedUop, []*InstrInstance) {
	var out []*LaminatedUop
	i := 0
	nSimpleUsed := 0
	nSimpleAvailable := d.cfg.NDecoders - 1
	if nSimpleAvailable < 0 {
		nSimpleAvailable = 0
	}

	for i < len(instances) && len(out) < d.cfg.NDecoders {
		ii := instances[i]
		complex := isComplexDecode(ii.Instr)
		isLast := i == len(instances)-1

		if i > 0 {
			if complex {
				break
			}
			if nSimpleUsed >= nSimpleAvailable {
				break
			}
		}

		if len(ii.Instr.Entry.MacroFusibleWith) > 0 && isLast && !d.cfg.MacroFusibleInstrCanBeDecodedAsLastInstr {
			// The compare can fuse with the branch it's paired with,
			// but that branch hasn't been fetched into this window
			// yet and this arch doesn't allow the compare to be
			// decoded alone as a group's last slot. Stall it for next
			// cycle instead, when the branch may have arrived.
			break
		}

		if i > 0 && isPop5C(ii.Instr) && d.cfg.Pop5CRequiresComplexDecoder {
			break
		}

		if !isLast && macroFusesWithNext(ii.Instr, instances[i+1].Instr) {
			out = append(out, decodeFused(ii, instances[i+1], gen))
			if !complex && i > 0 {
				nSimpleUsed++
			}
			i += 2
			break // the fused branch always ends the group
		}

		out = append(out, ii.GenerateUops(gen))
		if !complex && i > 0 {
			nSimpleUsed++
		}
		i++

		if ii.Instr.Entry.IsBranch {
			break
		}
		if isPop5C(ii.Instr) && d.cfg.Pop5CEndsDecodeGroup {
			break
		}
	}

	return out, instances[i:]
}
