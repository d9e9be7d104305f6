// Command x86pipesim drives the pipesim pipeline simulator over a
// disassembled instruction stream.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/opd-ai/x86pipesim"
	"github.com/opd-ai/x86pipesim/internal/entropy"
	"github.com/opd-ai/x86pipesim/internal/instrdata"
)

func main() {
	arch := flag.String("arch", "CFL", "target microarchitecture (CON, WOL, NHM, WSM, SNB, IVB, HSW, BDW, SKL, SKX, KBL, CFL, CNL, ICL)")
	raw := flag.Bool("raw", false, "mark the loaded stream as raw in its metadata (does not change how the file is read or simulated)")
	iacaMarkers := flag.Bool("iacaMarkers", false, "restrict simulation to the region between IACA_START/IACA_END markers")
	loop := flag.Bool("loop", false, "repeat the instruction stream to measure steady-state throughput")
	cycles := flag.Int("cycles", 0, "override the default simulation round budget (0 selects the default)")
	trace := flag.Bool("trace", false, "write an HTML per-uop execution trace to the path given by -traceOut")
	tracePath := flag.String("traceOut", "trace.html", "output path for -trace")
	gen := flag.Int64("gen", 0, "synthesize a random instruction stream from this seed instead of reading a file")
	genLen := flag.Int("genLen", 32, "number of instructions to synthesize when -gen is set")

	flag.Parse()

	a := instrdata.Arch(*arch)
	if !a.Valid() {
		log.Fatalf("unknown microarchitecture: %s", *arch)
	}

	var reqs []pipesim.InstrRequest
	if *gen != 0 {
		seed := []byte(fmt.Sprintf("%d", *gen))
		streams, err := entropy.Generate(a, seed, *genLen)
		if err != nil {
			log.Fatalf("generating instruction stream: %v", err)
		}
		for _, s := range streams {
			reqs = append(reqs, pipesim.InstrRequest{Iform: s.Iform})
		}
	} else {
		if flag.NArg() < 1 {
			log.Fatalf("usage: x86pipesim [flags] <stream-file.json>")
		}
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			log.Fatalf("reading stream file: %v", err)
		}
		sf, err := instrdata.LoadStreamFile(data)
		if err != nil {
			log.Fatalf("loading stream file: %v", err)
		}
		sf.Raw = *raw
		reqs = pipesim.FromStreamFile(sf, *iacaMarkers)
	}

	prog, err := pipesim.Compile(a, reqs)
	if err != nil {
		log.Fatalf("compiling instruction stream: %v", err)
	}

	cfg, err := pipesim.DefaultParams(a)
	if err != nil {
		log.Fatalf("resolving microarchitecture parameters: %v", err)
	}

	runCfg := pipesim.Config{Arch: a, Loop: *loop, Cycles: *cycles}
	if err := runCfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	sim := pipesim.NewSimulator(cfg, prog, runCfg)
	result := sim.Run()

	fmt.Printf("TP: %.2f\n", result.Throughput)

	totals := pipesim.PortUsageReport(result.Retired)
	perInstr := pipesim.PortUsageByInstruction(result.Retired)
	fmt.Print(pipesim.FormatPortTable(cfg.AllPorts, totals, perInstr))

	if *trace {
		rows := pipesim.BuildTrace(result.Retired)
		html := pipesim.WriteHTMLTrace(rows)
		if err := os.WriteFile(*tracePath, []byte(html), 0o644); err != nil {
			log.Fatalf("writing trace file: %v", err)
		}
		fmt.Printf("Wrote trace to %s\n", *tracePath)
	}
}
