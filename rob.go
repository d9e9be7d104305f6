package pipesim

// ReorderBuffer holds every in-flight uop in program order and
// retires up to RetireWidth of them per cycle, strictly from the head,
// once they have executed.
type ReorderBuffer struct {
	width       int
	retireWidth int

	queue   []*Uop
	retired []*Uop
}

// NewReorderBuffer returns an empty ReorderBuffer.
func NewReorderBuffer(width, retireWidth int) *ReorderBuffer {
	return &ReorderBuffer{width: width, retireWidth: retireWidth}
}

// IsFull reports whether admitting n more uops would exceed the ROB's
// capacity.
func (r *ReorderBuffer) IsFull(n int) bool {
	return len(r.queue)+n > r.width
}

// IsEmpty reports whether the ROB currently holds no uops.
func (r *ReorderBuffer) IsEmpty() bool {
	return len(r.queue) == 0
}

// AddUops enqueues every uop generated for instances, in program
// order.
func (r *ReorderBuffer) AddUops(instances []*InstrInstance) {
	for _, ii := range instances {
		r.queue = append(r.queue, ii.Laminated.AllUops()...)
	}
}

// Cycle retires up to RetireWidth uops from the head of the ROB whose
// execution has completed strictly before clock.
func (r *ReorderBuffer) Cycle(clock int) []*Uop {
	var done []*Uop
	for len(done) < r.retireWidth && len(r.queue) > 0 {
		head := r.queue[0]
		if head.ExecutedCycle < 0 || head.ExecutedCycle >= clock {
			break
		}
		head.RetiredCycle = clock
		done = append(done, head)
		r.retired = append(r.retired, head)
		r.queue = r.queue[1:]
	}
	return done
}

// Retired returns every uop retired so far, in retirement order.
func (r *ReorderBuffer) Retired() []*Uop {
	return r.retired
}
