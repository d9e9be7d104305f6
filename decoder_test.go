package pipesim

import (
	"testing"

	"github.com/opd-ai/x86pipesim/internal/instrdata"
)

func newInstance(instr *Instruction) *InstrInstance {
	return &InstrInstance{Instr: instr, PredecodedCycle: -1}
}

func TestDecoderComplexInstructionOnlyStopsGroupAfterFirstSlot(t *testing.T) {
	cfg := Params{NDecoders: 4}
	d := NewDecoder(cfg)

	simple := instrOfLen("ADD", instrdata.Entry{String: "ADD", Uops: 1}, 4)
	complex := instrOfLen("IMUL", instrdata.Entry{String: "IMUL", Uops: 3}, 4)

	// A complex instruction may occupy slot 0.
	out, rest := d.Cycle([]*InstrInstance{newInstance(complex), newInstance(simple)}, &IdxGen{})
	if len(out) != 2 || len(rest) != 0 {
		t.Fatalf("complex-first group: out=%d rest=%d, want 2 decoded, 0 left", len(out), len(rest))
	}

	// A complex instruction in a later slot stops the group instead of
	// taking a simple-decoder slot.
	out, rest = d.Cycle([]*InstrInstance{newInstance(simple), newInstance(complex), newInstance(simple)}, &IdxGen{})
	if len(out) != 1 || len(rest) != 2 {
		t.Fatalf("complex-in-later-slot: out=%d rest=%d, want 1 decoded, 2 left", len(out), len(rest))
	}
}

func TestDecoderLimitsSimpleDecoderCount(t *testing.T) {
	cfg := Params{NDecoders: 2} // 1 complex-capable slot + 1 simple decoder
	d := NewDecoder(cfg)
	simple := instrOfLen("ADD", instrdata.Entry{String: "ADD", Uops: 1}, 4)

	var instances []*InstrInstance
	for i := 0; i < 4; i++ {
		instances = append(instances, newInstance(simple))
	}

	out, rest := d.Cycle(instances, &IdxGen{})
	if len(out) != 2 || len(rest) != 2 {
		t.Fatalf("out=%d rest=%d, want 2 decoded (1 complex-slot + 1 simple decoder), 2 left", len(out), len(rest))
	}
}

func TestDecoderStallsFusibleLastInstrWhenArchDisallows(t *testing.T) {
	cfg := Params{NDecoders: 4, MacroFusibleInstrCanBeDecodedAsLastInstr: false}
	d := NewDecoder(cfg)
	cmp := instrOfLen("CMP", instrdata.Entry{String: "CMP", Uops: 1, MacroFusibleWith: []string{"JZ"}}, 4)

	out, rest := d.Cycle([]*InstrInstance{newInstance(cmp)}, &IdxGen{})
	if len(out) != 0 || len(rest) != 1 {
		t.Fatalf("out=%d rest=%d, want the fusible compare held back as the group's last slot", len(out), len(rest))
	}
}

func TestDecoderAllowsFusibleLastInstrWhenArchAllows(t *testing.T) {
	cfg := Params{NDecoders: 4, MacroFusibleInstrCanBeDecodedAsLastInstr: true}
	d := NewDecoder(cfg)
	cmp := instrOfLen("CMP", instrdata.Entry{String: "CMP", Uops: 1, MacroFusibleWith: []string{"JZ"}}, 4)

	out, rest := d.Cycle([]*InstrInstance{newInstance(cmp)}, &IdxGen{})
	if len(out) != 1 || len(rest) != 0 {
		t.Fatalf("out=%d rest=%d, want the fusible compare decoded alone when the arch allows it", len(out), len(rest))
	}
}

func TestDecoderFusesCompareWithBranch(t *testing.T) {
	cfg := Params{NDecoders: 4}
	d := NewDecoder(cfg)
	cmp := instrOfLen("CMP", instrdata.Entry{String: "CMP", Uops: 1, MacroFusibleWith: []string{"JZ"}}, 4)
	br := instrOfLen("JZ", instrdata.Entry{String: "JZ", Uops: 1, IsBranch: true}, 4)
	next := instrOfLen("ADD", instrdata.Entry{String: "ADD", Uops: 1}, 4)

	out, rest := d.Cycle([]*InstrInstance{newInstance(cmp), newInstance(br), newInstance(next)}, &IdxGen{})
	if len(out) != 1 {
		t.Fatalf("out=%d, want the compare+branch pair folded into one LaminatedUop", len(out))
	}
	if len(out[0].AllUops()) != 2 {
		t.Errorf("fused LaminatedUop has %d uops, want 2 (one per fused instruction)", len(out[0].AllUops()))
	}
	if len(rest) != 1 {
		t.Fatalf("rest=%d, want the fused branch to end the group, leaving the trailing instruction undecoded", len(rest))
	}
}

func TestDecoderBranchEndsGroup(t *testing.T) {
	cfg := Params{NDecoders: 4}
	d := NewDecoder(cfg)
	br := instrOfLen("JZ", instrdata.Entry{String: "JZ", Uops: 1, IsBranch: true}, 4)
	next := instrOfLen("ADD", instrdata.Entry{String: "ADD", Uops: 1}, 4)

	out, rest := d.Cycle([]*InstrInstance{newInstance(br), newInstance(next)}, &IdxGen{})
	if len(out) != 1 || len(rest) != 1 {
		t.Fatalf("out=%d rest=%d, want the branch to end the group after decoding itself", len(out), len(rest))
	}
}

func TestDecoderPop5CEndsGroupWhenArchRequires(t *testing.T) {
	cfg := Params{NDecoders: 4, Pop5CEndsDecodeGroup: true}
	d := NewDecoder(cfg)
	pop := instrOfLen("POP", instrdata.Entry{String: "POP (5C)", Uops: 1}, 1)
	next := instrOfLen("ADD", instrdata.Entry{String: "ADD", Uops: 1}, 4)

	out, rest := d.Cycle([]*InstrInstance{newInstance(pop), newInstance(next)}, &IdxGen{})
	if len(out) != 1 || len(rest) != 1 {
		t.Fatalf("out=%d rest=%d, want POP's 5C form to end the decode group", len(out), len(rest))
	}
}

func TestDecoderPop5CRequiresComplexDecoderInLaterSlot(t *testing.T) {
	cfg := Params{NDecoders: 4, Pop5CRequiresComplexDecoder: true}
	d := NewDecoder(cfg)
	simple := instrOfLen("ADD", instrdata.Entry{String: "ADD", Uops: 1}, 4)
	pop := instrOfLen("POP", instrdata.Entry{String: "POP (5C)", Uops: 1}, 1)

	out, rest := d.Cycle([]*InstrInstance{newInstance(simple), newInstance(pop)}, &IdxGen{})
	if len(out) != 1 || len(rest) != 1 {
		t.Fatalf("out=%d rest=%d, want POP's 5C form held back from a simple-decoder slot", len(out), len(rest))
	}
}
