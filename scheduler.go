package pipesim

import "container/heap"

// idxHeap is a min-heap of Uop indices, used as the ready-for-
// dispatch queue for one port: popping it always yields the
// oldest (lowest-Idx, i.e. earliest program-order) ready uop. The
// uops themselves live in a side table rather than inside the heap,
// so the heap only ever moves small ints around.
type idxHeap []int

func (h idxHeap) Len() int            { return len(h) }
func (h idxHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idxHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *idxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// portDecrement is a pending, one-cycle-delayed release of a port's
// usage counter: the counter is incremented as soon as a uop is
// assigned the port (so the balancing heuristic reacts immediately to
// instructions issued earlier this same cycle) but only decremented
// the cycle after that uop actually dispatches, matching the lag the
// balancing heuristic's occupancy model depends on.
type portDecrement struct {
	port string
	at   int
}

// Scheduler is the reservation-station model: it tracks every uop
// added to the RS until it dispatches, assigning each a port and
// honoring divider, fence, and port-contention constraints.
type Scheduler struct {
	cfg Params

	byIdx map[int]*Uop

	pending    []*Uop // added to the RS, not yet known ready
	portQueues map[string]*idxHeap
	portUsage  map[string]int
	decrements []portDecrement

	// divQueue holds uops restricted to the shared integer divider
	// (port-0-only, DivCycles > 0), kept distinct from portQueues["0"]
	// so port 0's dispatch slot can arbitrate between an ordinary ALU
	// uop and a divider uop by program order instead of one queue
	// always winning.
	divQueue          *idxHeap
	divBusyCyclesLeft int

	loadFenceQueue  []*Uop
	storeFenceQueue []*Uop

	// loadUopsSinceFence and storeUopsSinceFence track every load /
	// store uop dispatched since the last fence of that kind cleared,
	// so a fence's own readiness can require all of them to have
	// executed rather than only checking its own inputs.
	loadUopsSinceFence  []*Uop
	storeUopsSinceFence []*Uop

	// blockedResources models each instruction form's reciprocal
	// throughput: once one of its uops becomes ready, the form is
	// blocked from becoming ready again for ceil(TP) cycles.
	blockedResources map[string]int
}

// NewScheduler returns an empty Scheduler for cfg.
func NewScheduler(cfg Params) *Scheduler {
	s := &Scheduler{
		cfg:              cfg,
		byIdx:            make(map[int]*Uop),
		portQueues:       make(map[string]*idxHeap),
		portUsage:        make(map[string]int),
		divQueue:         &idxHeap{},
		blockedResources: make(map[string]int),
	}
	heap.Init(s.divQueue)
	for _, p := range cfg.AllPorts {
		h := &idxHeap{}
		heap.Init(h)
		s.portQueues[p] = h
	}
	return s
}

// AddNewUops admits every uop of instances into the RS, assigning
// each a concrete port from its possible-ports set using the usage-
// balancing heuristic: the least-used applicable port, ties broken
// toward the highest port number, with every odd issue slot nudged
// toward the second-least-used port unless that port is much busier.
func (s *Scheduler) AddNewUops(instances []*InstrInstance, clock int) {
	s.applyPortDecrements(clock)

	issueSlot := 0
	for _, ii := range instances {
		for _, fused := range ii.Laminated.Fused {
			for _, u := range fused.Uops {
				u.AddedToRSCycle = clock
				s.byIdx[u.Idx] = u

				if u.Prop.PossiblePorts != nil {
					u.ActualPort = s.pickPort(u.Prop.PossiblePorts, issueSlot)
				}

				// Only the instruction's first uop enters the fence
				// FIFOs: the uops after it are ordinary data uops of
				// the same serializing instruction, not additional
				// serialization points.
				if u.Prop.IsFirstUop {
					if ii.Instr.Entry.IsLoadSerializing {
						s.loadFenceQueue = append(s.loadFenceQueue, u)
					}
					if ii.Instr.Entry.IsStoreSerializing {
						s.storeFenceQueue = append(s.storeFenceQueue, u)
					}
				}

				s.pending = append(s.pending, u)
			}
			issueSlot++
		}
	}
}

func (s *Scheduler) applyPortDecrements(clock int) {
	var still []portDecrement
	for _, d := range s.decrements {
		if d.at <= clock {
			if s.portUsage[d.port] > 0 {
				s.portUsage[d.port]--
			}
		} else {
			still = append(still, d)
		}
	}
	s.decrements = still
}

func (s *Scheduler) pickPort(applicable []string, issueSlot int) string {
	if len(applicable) == 0 {
		return ""
	}
	best := applicable[0]
	second := ""
	for _, p := range applicable[1:] {
		if s.portUsage[p] < s.portUsage[best] || (s.portUsage[p] == s.portUsage[best] && p > best) {
			second = best
			best = p
		} else if second == "" || s.portUsage[p] < s.portUsage[second] {
			second = p
		}
	}
	chosen := best
	if issueSlot%2 == 1 && second != "" && s.portUsage[second] < s.portUsage[best]+3 {
		chosen = second
	}
	s.portUsage[chosen]++
	return chosen
}

// instrStr returns the instruction form string a uop belongs to, or
// "" if u carries no owning instruction (as in tests that build bare
// uops).
func instrStr(u *Uop) string {
	if u.Instr == nil || u.Instr.Instr == nil {
		return ""
	}
	return u.Instr.Instr.Entry.String
}

func (s *Scheduler) blockedByFence(q []*Uop, u *Uop) bool {
	if len(q) == 0 {
		return false
	}
	f := q[0]
	return f.DispatchedCycle < 0 && f.Idx < u.Idx
}

// fenceUopReady reports whether a serializing instruction's own first
// uop may become ready: it must be the head of its fence FIFO, and
// every load/store uop dispatched since the previous fence cleared
// must have executed by clock.
func (s *Scheduler) fenceUopReady(u *Uop, clock int) bool {
	entry := u.Instr.Instr.Entry
	ready := true
	if entry.IsLoadSerializing {
		if len(s.loadFenceQueue) == 0 || s.loadFenceQueue[0] != u {
			return false
		}
		for _, prior := range s.loadUopsSinceFence {
			if prior.ExecutedCycle < 0 || prior.ExecutedCycle > clock {
				ready = false
			}
		}
	}
	if entry.IsStoreSerializing {
		if len(s.storeFenceQueue) == 0 || s.storeFenceQueue[0] != u {
			return false
		}
		for _, prior := range s.storeUopsSinceFence {
			if prior.ExecutedCycle < 0 || prior.ExecutedCycle > clock {
				ready = false
			}
		}
	}
	return ready
}

// checkUopReady reports whether u's inputs are resolvable at all (not
// necessarily by any particular clock - that banding is
// readyForDispatchCycle's job) and any serialization or throughput
// constraint it is subject to has cleared.
func (s *Scheduler) checkUopReady(u *Uop, clock int) bool {
	for _, in := range u.Inputs {
		if len(in.Producers) > 0 && in.ReadyCycle() < 0 {
			return false
		}
	}

	if u.Prop.IsFirstUop {
		if n, ok := s.blockedResources[instrStr(u)]; ok && n > 0 {
			return false
		}
		if e := u.Instr.Instr.Entry; (e.IsLoadSerializing || e.IsStoreSerializing) && !s.fenceUopReady(u, clock) {
			return false
		}
	}

	// Store-serializing readiness should drain against
	// storeFenceQueue; this checks loadFenceQueue instead, which is
	// what the tool this package's behavior is grounded in does.
	// Kept verbatim for fidelity rather than silently corrected.
	if (u.Prop.IsStoreAddress || u.Prop.IsStoreData) && s.blockedByFence(s.loadFenceQueue, u) {
		return false
	}
	if u.Prop.IsLoad && s.blockedByFence(s.loadFenceQueue, u) {
		return false
	}

	return true
}

// readyForDispatchCycle computes the cycle u may actually dispatch,
// once checkUopReady has confirmed it is unblocked: the issue-to-
// dispatch delay is applied as a band around the cycle its operands
// become available (opReady) rather than a flat offset, and the
// result can never be earlier than the next cycle.
func (s *Scheduler) readyForDispatchCycle(u *Uop, clock int) int {
	opReady := -1
	for _, in := range u.Inputs {
		if rc := in.ReadyCycle(); rc > opReady {
			opReady = rc
		}
	}
	if opReady < 0 {
		opReady = clock
	}

	d := s.cfg.IssueDispatchDelay
	issued := u.AddedToRSCycle
	var rc int
	switch {
	case opReady < issued+d:
		rc = issued + d
	case opReady == issued+d || opReady == issued+d+1:
		rc = opReady + 1
	default:
		rc = opReady
	}
	if rc < clock+1 {
		rc = clock + 1
	}
	return rc
}

// processPendingFences inspects only the head of each fence FIFO: a
// later fence cannot clear before an earlier one, since fences of the
// same kind are enqueued in program order and clear in that same
// order once their own uop has executed.
func (s *Scheduler) processPendingFences(clock int) {
	if len(s.loadFenceQueue) > 0 {
		head := s.loadFenceQueue[0]
		if head.ExecutedCycle >= 0 && head.ExecutedCycle <= clock {
			s.loadFenceQueue = s.loadFenceQueue[1:]
			s.loadUopsSinceFence = nil
		}
	}
	if len(s.storeFenceQueue) > 0 {
		head := s.storeFenceQueue[0]
		if head.ExecutedCycle >= 0 && head.ExecutedCycle <= clock {
			s.storeFenceQueue = s.storeFenceQueue[1:]
			s.storeUopsSinceFence = nil
		}
	}
}

func (s *Scheduler) markBlockedResource(u *Uop) {
	if !u.Prop.IsFirstUop {
		return
	}
	tp := u.Instr.Instr.Entry.TP
	if tp == nil {
		return
	}
	n := int(*tp)
	if float64(n) < *tp {
		n++
	}
	if n > 0 {
		s.blockedResources[instrStr(u)] = n
	}
}

func (s *Scheduler) decayBlockedResources() {
	for k, v := range s.blockedResources {
		if v > 0 {
			s.blockedResources[k] = v - 1
		}
	}
}

func (s *Scheduler) enqueue(u *Uop) {
	if u.Prop.DivCycles > 0 {
		heap.Push(s.divQueue, u.Idx)
		return
	}
	if u.ActualPort == "" {
		return
	}
	heap.Push(s.portQueues[u.ActualPort], u.Idx)
}

func (s *Scheduler) processNonReadyUops(clock int) {
	var still []*Uop
	for _, u := range s.pending {
		if u.ReadyForDispatchCycle < 0 {
			if !s.checkUopReady(u, clock) {
				still = append(still, u)
				continue
			}
			u.ReadyForDispatchCycle = s.readyForDispatchCycle(u, clock)
			s.markBlockedResource(u)
		}
		if u.ReadyForDispatchCycle > clock {
			still = append(still, u)
			continue
		}
		s.enqueue(u)
	}
	s.pending = still
}

// dispatch commits u to dispatch at clock: stamps its timestamps,
// schedules the delayed port-usage decrement, arms the divider if u
// consumes it, records it against the since-last-fence lists, and
// computes its completion cycle.
func (s *Scheduler) dispatch(u *Uop, clock int) {
	u.DispatchedCycle = clock
	if u.ActualPort != "" {
		s.decrements = append(s.decrements, portDecrement{port: u.ActualPort, at: clock + 1})
	}
	if u.Prop.DivCycles > 0 {
		s.divBusyCyclesLeft = u.Prop.DivCycles
	}

	lat := u.Prop.Latency
	if lat <= 0 {
		lat = 1
	}
	finish := clock + 2
	if v := clock + lat; v > finish {
		finish = v
	}
	if u.Prop.IsFirstUop && u.Prop.DivCycles > 0 {
		if v := clock + u.Prop.DivCycles; v > finish {
			finish = v
		}
	}
	for _, out := range u.Outputs {
		if rc := out.ReadyCycle(); rc > finish {
			finish = rc
		}
	}
	u.ExecutedCycle = finish

	if u.Prop.IsLoad {
		s.loadUopsSinceFence = append(s.loadUopsSinceFence, u)
	}
	if u.Prop.IsStoreAddress || u.Prop.IsStoreData {
		s.storeUopsSinceFence = append(s.storeUopsSinceFence, u)
	}
}

// dispatchPort0 arbitrates port 0's single dispatch slot between the
// divider queue and the ordinary port-0 ALU queue: whichever queue's
// head is older (lower Idx) wins, except a divider uop can't dispatch
// while the divider is still busy with a previous one, in which case
// the ALU queue gets the slot instead.
func (s *Scheduler) dispatchPort0(clock int) {
	divQ := s.divQueue
	portQ := s.portQueues["0"]
	if portQ == nil {
		portQ = &idxHeap{}
	}

	preferDiv := false
	switch {
	case divQ.Len() == 0:
		preferDiv = false
	case portQ.Len() == 0:
		preferDiv = true
	default:
		preferDiv = (*divQ)[0] < (*portQ)[0]
	}

	if preferDiv {
		if s.divBusyCyclesLeft == 0 {
			idx := heap.Pop(divQ).(int)
			s.dispatch(s.byIdx[idx], clock)
			return
		}
		if portQ.Len() > 0 {
			idx := heap.Pop(portQ).(int)
			s.dispatch(s.byIdx[idx], clock)
		}
		return
	}

	if portQ.Len() > 0 {
		idx := heap.Pop(portQ).(int)
		s.dispatch(s.byIdx[idx], clock)
	}
}

// dispatchPort serves own's dispatch slot, falling back to steal's
// queue when own is empty, the mutual-stealing relationship ports 2
// and 3 have between each other.
func (s *Scheduler) dispatchPort(clock int, own, steal string) {
	q := s.portQueues[own]
	if q == nil {
		return
	}
	if q.Len() > 0 {
		idx := heap.Pop(q).(int)
		s.dispatch(s.byIdx[idx], clock)
		return
	}
	sq := s.portQueues[steal]
	if sq != nil && sq.Len() > 0 {
		idx := heap.Pop(sq).(int)
		s.dispatch(s.byIdx[idx], clock)
	}
}

func (s *Scheduler) dispatchPlain(port string, clock int) {
	q := s.portQueues[port]
	if q == nil || q.Len() == 0 {
		return
	}
	idx := heap.Pop(q).(int)
	s.dispatch(s.byIdx[idx], clock)
}

// dispatchUops serves each port's dispatch slot in ascending port
// order, the order the balancing and stealing rules below are
// specified against: port 0 arbitrates against the divider queue,
// ports 2 and 3 steal from one another when idle, and every other
// port just dispatches its own queue's head.
func (s *Scheduler) dispatchUops(clock int) {
	if s.divBusyCyclesLeft > 0 {
		s.divBusyCyclesLeft--
	}

	for _, p := range s.cfg.AllPorts {
		switch p {
		case "0":
			s.dispatchPort0(clock)
		case "2":
			s.dispatchPort(clock, "2", "3")
		case "3":
			s.dispatchPort(clock, "3", "2")
		default:
			s.dispatchPlain(p, clock)
		}
	}
}

// Cycle advances the scheduler by one clock: promotes newly-ready
// uops onto their port/divider queues, dispatches per port in
// ascending order, drains fence FIFOs whose head has executed, and
// decays the per-instruction-form throughput blocks.
func (s *Scheduler) Cycle(clock int) {
	s.processNonReadyUops(clock)
	s.dispatchUops(clock)
	s.processPendingFences(clock)
	s.decayBlockedResources()
}
