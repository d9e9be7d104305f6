package pipesim

import (
	"testing"

	"github.com/opd-ai/x86pipesim/internal/instrdata"
)

func compileOrFatal(t *testing.T, reqs []InstrRequest) []*Instruction {
	t.Helper()
	prog, err := Compile(instrdata.CFL, reqs)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return prog
}

func TestSimulatorRetiresSingleNop(t *testing.T) {
	prog := compileOrFatal(t, []InstrRequest{{Iform: "NOP"}})
	cfg, err := DefaultParams(instrdata.CFL)
	if err != nil {
		t.Fatalf("DefaultParams() error = %v", err)
	}

	sim := NewSimulator(cfg, prog, Config{Arch: instrdata.CFL})
	res := sim.Run()

	if len(res.Retired) != 1 {
		t.Fatalf("retired %d uops, want 1", len(res.Retired))
	}
	if res.Retired[0].ActualPort == "" {
		t.Error("retired NOP uop has no assigned port")
	}
}

func TestSimulatorDependentAddChain(t *testing.T) {
	reqs := []InstrRequest{
		{Iform: "ADD_GPR8_R_IMM8", Operands: map[string]Operand{"dst": &RegOperand{Reg: "RAX"}}},
		{Iform: "ADD_GPR8_R_IMM8", Operands: map[string]Operand{"dst": &RegOperand{Reg: "RAX"}, "src": &RegOperand{Reg: "RAX"}}},
		{Iform: "ADD_GPR8_R_IMM8", Operands: map[string]Operand{"dst": &RegOperand{Reg: "RAX"}, "src": &RegOperand{Reg: "RAX"}}},
	}
	prog := compileOrFatal(t, reqs)
	cfg, _ := DefaultParams(instrdata.CFL)

	sim := NewSimulator(cfg, prog, Config{Arch: instrdata.CFL})
	res := sim.Run()

	if len(res.Retired) != 3 {
		t.Fatalf("retired %d uops, want 3", len(res.Retired))
	}
	for i := 1; i < len(res.Retired); i++ {
		if res.Retired[i].RetiredCycle <= res.Retired[i-1].RetiredCycle {
			t.Errorf("dependent chain uop %d retired at %d, not after uop %d at %d",
				i, res.Retired[i].RetiredCycle, i-1, res.Retired[i-1].RetiredCycle)
		}
	}
}

func TestSimulatorMoveEliminationChain(t *testing.T) {
	reqs := []InstrRequest{
		{Iform: "ADD_GPR8_R_IMM8", Operands: map[string]Operand{"dst": &RegOperand{Reg: "RAX"}}},
		{Iform: "MOV_GPR64_GPR64", Operands: map[string]Operand{"dst": &RegOperand{Reg: "RBX"}, "src": &RegOperand{Reg: "RAX"}}},
		{Iform: "MOV_GPR64_GPR64", Operands: map[string]Operand{"dst": &RegOperand{Reg: "RCX"}, "src": &RegOperand{Reg: "RBX"}}},
	}
	prog := compileOrFatal(t, reqs)
	cfg, _ := DefaultParams(instrdata.CFL)

	sim := NewSimulator(cfg, prog, Config{Arch: instrdata.CFL})
	res := sim.Run()

	// The two eliminated MOVs decode to zero uops each, so only the
	// ADD's single uop should ever retire.
	if len(res.Retired) != 1 {
		t.Fatalf("retired %d uops, want 1 (two MOVs should be eliminated)", len(res.Retired))
	}
}

func TestSimulatorLoopSteadyStateThroughput(t *testing.T) {
	reqs := []InstrRequest{
		{Iform: "ADD_GPR8_R_IMM8", Operands: map[string]Operand{"dst": &RegOperand{Reg: "RAX"}}},
	}
	prog := compileOrFatal(t, reqs)
	cfg, _ := DefaultParams(instrdata.CFL)

	sim := NewSimulator(cfg, prog, Config{Arch: instrdata.CFL, Loop: true, Cycles: 120})
	res := sim.Run()

	if res.Throughput <= 0 {
		t.Errorf("steady-state throughput = %v, want a positive number of cycles/iteration", res.Throughput)
	}
}

func TestSimulatorFenceOrdering(t *testing.T) {
	reqs := []InstrRequest{
		{Iform: "MFENCE"},
		{Iform: "MOV_GPR64_MEMq", Operands: map[string]Operand{"dst": &RegOperand{Reg: "RAX"}, "src.mem": &MemOperand{}}},
	}
	prog := compileOrFatal(t, reqs)
	cfg, _ := DefaultParams(instrdata.CFL)

	sim := NewSimulator(cfg, prog, Config{Arch: instrdata.CFL})
	res := sim.Run()

	if len(res.Retired) == 0 {
		t.Fatal("fence+load sequence retired no uops")
	}
}
