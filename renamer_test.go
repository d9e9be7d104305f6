package pipesim

import (
	"testing"

	"github.com/opd-ai/x86pipesim/internal/instrdata"
)

func TestRenamedOperandReadyCycle(t *testing.T) {
	prop := UopProperties{Latency: 3}
	u := newUop(0, nil, prop)

	ro := &RenamedOperand{Operand: &RegOperand{Reg: "RAX"}, Producers: []*Uop{u}}
	if rc := ro.ReadyCycle(); rc != -1 {
		t.Errorf("ReadyCycle() before dispatch = %d, want -1", rc)
	}

	u.DispatchedCycle = 5
	if rc := ro.ReadyCycle(); rc != 8 {
		t.Errorf("ReadyCycle() after dispatch at 5 with latency 3 = %d, want 8", rc)
	}
}

func TestRenamedOperandReadyCycleNoProducers(t *testing.T) {
	ro := &RenamedOperand{Operand: &RegOperand{Reg: "RAX"}}
	if rc := ro.ReadyCycle(); rc != -1 {
		t.Errorf("ReadyCycle() with no producers = %d, want -1 (immediately available)", rc)
	}
}

func TestRenamerTracksLatestProducer(t *testing.T) {
	r := NewRenamer()
	reg := &RegOperand{Reg: "RAX"}

	u1 := newUop(0, nil, UopProperties{Latency: 1})
	r.bind(reg, &RenamedOperand{Operand: reg, Producers: []*Uop{u1}})

	ro := r.Lookup(reg)
	if len(ro.Producers) != 1 || ro.Producers[0] != u1 {
		t.Fatalf("Lookup after first bind = %+v, want producer u1", ro)
	}

	u2 := newUop(1, nil, UopProperties{Latency: 2})
	r.bind(reg, &RenamedOperand{Operand: reg, Producers: []*Uop{u2}})

	ro = r.Lookup(reg)
	if len(ro.Producers) != 1 || ro.Producers[0] != u2 {
		t.Fatalf("Lookup after second bind = %+v, want producer u2", ro)
	}
}

func TestRenamerLookupUnwrittenRegisterIsReady(t *testing.T) {
	r := NewRenamer()
	ro := r.Lookup(&RegOperand{Reg: "RCX"})
	if rc := ro.ReadyCycle(); rc != -1 {
		t.Errorf("ReadyCycle() for never-written register = %d, want -1", rc)
	}
	if len(ro.Producers) != 0 {
		t.Errorf("never-written register should have no producers, got %d", len(ro.Producers))
	}
}

func TestRenamerCycleEliminatesMove(t *testing.T) {
	r := NewRenamer()
	src := &RegOperand{Reg: "RAX"}
	dst := &RegOperand{Reg: "RBX"}

	producer := newUop(0, nil, UopProperties{Latency: 1})
	r.bind(src, &RenamedOperand{Operand: src, Producers: []*Uop{producer}})

	instr := &Instruction{
		Entry: instrdata.Entry{
			Uops:           0,
			IsMove:         true,
			InputOperands:  []string{"src"},
			OutputOperands: []string{"dst"},
		},
		Operands: map[string]Operand{"dst": dst, "src": src},
	}
	ii := &InstrInstance{Instr: instr, Laminated: &LaminatedUop{}}

	r.Cycle([]*InstrInstance{ii})

	aliased := r.Lookup(dst)
	if len(aliased.Producers) != 1 || aliased.Producers[0] != producer {
		t.Errorf("eliminated move did not alias dst to src's producer: %+v", aliased)
	}
}
