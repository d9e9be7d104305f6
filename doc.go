// Package pipesim simulates, cycle by cycle, the front-end and
// out-of-order back-end of an x86-64 superscalar core: pre-decode,
// MITE decoding, the microcode sequencer, the decoded-stream buffer,
// the instruction decode queue, register renaming with move
// elimination, the reorder buffer, and a port-based reservation-station
// scheduler.
//
// It does not decode machine code itself. Callers supply an already
// disassembled instruction stream (see internal/instrdata) describing
// each instruction's uop count, port distribution, and latencies; this
// package drives that stream through a simulated pipeline and reports
// retirement timing and per-port uop counts.
package pipesim
