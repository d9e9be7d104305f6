package pipesim

import "testing"

func TestPickPortBalancesUsage(t *testing.T) {
	cfg := Params{AllPorts: []string{"0", "1", "5", "6"}}
	s := NewScheduler(cfg)

	ports := []string{"0", "1", "5", "6"}
	chosen := make(map[string]int)
	for i := 0; i < 8; i++ {
		p := s.pickPort(ports, i)
		chosen[p]++
	}

	for _, p := range ports {
		if chosen[p] < 1 {
			t.Errorf("port %s never chosen across 8 balanced picks: %v", p, chosen)
		}
	}
}

func TestCheckUopReadyWaitsOnInputs(t *testing.T) {
	cfg := Params{AllPorts: []string{"0"}}
	s := NewScheduler(cfg)

	producer := newUop(0, nil, UopProperties{Latency: 2})
	in := &RenamedOperand{Operand: &RegOperand{Reg: "RAX"}, Producers: []*Uop{producer}}
	u := newUop(1, nil, UopProperties{})
	u.Inputs = []*RenamedOperand{in}

	if s.checkUopReady(u, 0) {
		t.Error("checkUopReady() = true before producer has dispatched, want false")
	}

	producer.DispatchedCycle = 0
	if !s.checkUopReady(u, 5) {
		t.Error("checkUopReady() = false once producer's value is resolvable, want true")
	}
}

func TestReadyForDispatchCycleBanding(t *testing.T) {
	cfg := Params{AllPorts: []string{"0"}, IssueDispatchDelay: 5}
	s := NewScheduler(cfg)

	// No inputs: floors to issued+d.
	u := newUop(0, nil, UopProperties{})
	u.AddedToRSCycle = 0
	if rc := s.readyForDispatchCycle(u, 0); rc != 5 {
		t.Errorf("readyForDispatchCycle with no inputs = %d, want 5 (issued+d)", rc)
	}

	// opReady well below issued+d clamps up to issued+d.
	below := newUop(1, nil, UopProperties{Latency: 1})
	below.DispatchedCycle = 0
	u2 := newUop(2, nil, UopProperties{})
	u2.AddedToRSCycle = 0
	u2.Inputs = []*RenamedOperand{{Operand: &RegOperand{Reg: "RAX"}, Producers: []*Uop{below}}}
	if rc := s.readyForDispatchCycle(u2, 0); rc != 5 {
		t.Errorf("readyForDispatchCycle with opReady < issued+d = %d, want 5", rc)
	}

	// opReady == issued+d bands up to opReady+1.
	atBand := newUop(3, nil, UopProperties{Latency: 5})
	atBand.DispatchedCycle = 0
	u3 := newUop(4, nil, UopProperties{})
	u3.AddedToRSCycle = 0
	u3.Inputs = []*RenamedOperand{{Operand: &RegOperand{Reg: "RBX"}, Producers: []*Uop{atBand}}}
	if rc := s.readyForDispatchCycle(u3, 0); rc != 6 {
		t.Errorf("readyForDispatchCycle with opReady == issued+d = %d, want 6", rc)
	}

	// opReady well beyond issued+d+1 passes through unchanged.
	far := newUop(5, nil, UopProperties{Latency: 20})
	far.DispatchedCycle = 0
	u4 := newUop(6, nil, UopProperties{})
	u4.AddedToRSCycle = 0
	u4.Inputs = []*RenamedOperand{{Operand: &RegOperand{Reg: "RCX"}, Producers: []*Uop{far}}}
	if rc := s.readyForDispatchCycle(u4, 0); rc != 20 {
		t.Errorf("readyForDispatchCycle with opReady far beyond issued+d = %d, want 20", rc)
	}
}

func TestCheckUopReadyStoreSerializingFlaggedBehavior(t *testing.T) {
	// Documents the intentionally-preserved quirk: a store uop's
	// readiness check consults the load-fence queue instead of the
	// store-fence queue. See the comment above this check in
	// scheduler.go for why it is kept rather than corrected.
	cfg := Params{AllPorts: []string{"2"}}
	s := NewScheduler(cfg)
	s.loadFenceQueue = []*Uop{newUop(0, nil, UopProperties{})}

	store := newUop(1, nil, UopProperties{IsStoreData: true})
	if s.checkUopReady(store, 0) {
		t.Error("checkUopReady() = true for a store uop while loadFenceQueue is non-empty, want false (flagged quirk)")
	}
}

func TestProcessPendingFencesOnlyInspectsHead(t *testing.T) {
	cfg := Params{AllPorts: []string{"0"}}
	s := NewScheduler(cfg)

	head := newUop(0, nil, UopProperties{})
	tail := newUop(1, nil, UopProperties{})
	tail.ExecutedCycle = 5 // executed, but is not the head
	s.loadFenceQueue = []*Uop{head, tail}

	s.processPendingFences(5)

	if len(s.loadFenceQueue) != 2 {
		t.Errorf("processPendingFences popped %d entries with a non-executed head, want 0 popped (queue len %d)", 2-len(s.loadFenceQueue), len(s.loadFenceQueue))
	}

	head.ExecutedCycle = 5
	s.processPendingFences(6)
	if len(s.loadFenceQueue) != 1 {
		t.Errorf("processPendingFences() left %d entries after head executed, want 1", len(s.loadFenceQueue))
	}
}
