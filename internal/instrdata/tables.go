package instrdata

// The built-in tables are deliberately small: a handful of instruction
// forms covering the scenarios in spec.md §8 (a single-uop ALU op, a
// multiplies-bound op, eliminable moves, fences, loads/stores, a
// macro-fusible compare+branch pair, and the POP r64/r12 decoder
// special case) rather than a full per-microarchitecture XED dump,
// which this package's doc comment explains is out of scope.
//
// Each arch gets its own concrete port assignment (Haswell and later
// archs have a fourth ALU port, port 6, and dedicated store-address
// ports; earlier ones don't) generated from a shared logical
// description below.

type ports struct {
	alu       []string // general ALU uop
	aluSingle []string // single-port-0 ALU uop (e.g. one uop of a DIV)
	mulHigh   []string // port restricted to the integer multiply unit
	load      []string
	storeAddr []string
	storeData []string
	branch    []string
}

func portsFor(a Arch) ports {
	switch a {
	case CON, WOL, NHM, WSM, SNB, IVB:
		return ports{
			alu:       []string{"0", "1", "5"},
			aluSingle: []string{"0"},
			mulHigh:   []string{"1"},
			load:      []string{"2", "3"},
			storeAddr: []string{"2", "3"},
			storeData: []string{"4"},
			branch:    []string{"5"},
		}
	case ICL:
		return ports{
			alu:       []string{"0", "1", "5", "6"},
			aluSingle: []string{"0"},
			mulHigh:   []string{"1"},
			load:      []string{"2", "3"},
			storeAddr: []string{"7", "8"},
			storeData: []string{"4", "9"},
			branch:    []string{"6"},
		}
	default: // HSW, BDW, SKL, SKX, KBL, CFL, CNL
		return ports{
			alu:       []string{"0", "1", "5", "6"},
			aluSingle: []string{"0"},
			mulHigh:   []string{"1"},
			load:      []string{"2", "3"},
			storeAddr: []string{"7"},
			storeData: []string{"4"},
			branch:    []string{"6"},
		}
	}
}

func tpOf(v float64) *float64 { return &v }

func baseTable(a Arch) Table {
	p := portsFor(a)
	t := Table{}

	t["NOP"] = []Entry{{
		String: "NOP", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports: []PortCount{{Ports: p.alu, Count: 1}},
		TP:    tpOf(0.25),
	}}

	t["ADD_GPR8_R_GPR8_R"] = []Entry{{
		String: "ADD (R64, R64)", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports:     []PortCount{{Ports: p.alu, Count: 1}},
		Latencies: map[LatKey]int{{In: "src", Out: "dst"}: 1, {In: "dst", Out: "dst"}: 1},
		TP:        tpOf(0.25),
		InputOperands: []string{"dst", "src"}, OutputOperands: []string{"dst"},
	}}

	t["ADD_GPR8_R_IMM8"] = []Entry{{
		String: "ADD (R64, I8)", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports:     []PortCount{{Ports: p.alu, Count: 1}},
		Latencies: map[LatKey]int{{In: "dst", Out: "dst"}: 1},
		TP:        tpOf(0.25),
		InputOperands: []string{"dst"}, OutputOperands: []string{"dst"},
	}}

	t["IMUL_GPR64_GPR64_GPR64"] = []Entry{{
		String: "IMUL (R64, R64)", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports:     []PortCount{{Ports: p.mulHigh, Count: 1}},
		Latencies: map[LatKey]int{{In: "src", Out: "dst"}: 3, {In: "dst", Out: "dst"}: 3},
		TP:        tpOf(1),
		InputOperands: []string{"dst", "src"}, OutputOperands: []string{"dst"},
	}}

	t["MOV_GPR64_GPR64"] = []Entry{{
		String: "MOV_89 (R64, R64)", Uops: 0, RetireSlots: 0, UopsMITE: 1,
		Ports: nil, TP: tpOf(0.25),
		IsMove: true,
		InputOperands: []string{"src"}, OutputOperands: []string{"dst"},
	}}

	t["MOV_GPR64_MEMq"] = []Entry{{
		String: "MOV (R64, M64)", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports:     []PortCount{{Ports: p.load, Count: 1, Role: RoleLoad}},
		Latencies: map[LatKey]int{{In: "src.mem", Out: "dst"}: 5, {In: "src.addr", Out: "dst"}: 5},
		TP:        tpOf(0.5),
		InputOperands: []string{"src.mem"}, OutputOperands: []string{"dst"},
		MemOperandKey: "src.mem",
	}}

	t["MOV_MEMq_GPR64"] = []Entry{{
		String: "MOV (M64, R64)", Uops: 2, RetireSlots: 1, UopsMITE: 2,
		Ports: []PortCount{
			{Ports: p.storeAddr, Count: 1, Role: RoleStoreAddress},
			{Ports: p.storeData, Count: 1, Role: RoleStoreData},
		},
		TP: tpOf(1),
		InputOperands: []string{"src"}, OutputOperands: []string{"dst.mem"},
		MemOperandKey: "dst.mem",
	}}

	t["LEA_GPR64_AGEN"] = []Entry{{
		String: "LEA_0 (R64, AGEN)", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports:     []PortCount{{Ports: []string{"0", "1"}, Count: 1}},
		Latencies: map[LatKey]int{{In: "base", Out: "dst"}: 1, {In: "index", Out: "dst"}: 1},
		TP:        tpOf(0.5),
		IsLea: true,
		AGENOperand: "agen", OutputOperands: []string{"dst"},
	}}

	t["CMP_GPR64_GPR64"] = []Entry{{
		String: "CMP (R64, R64)", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports:            []PortCount{{Ports: p.alu, Count: 1}},
		TP:               tpOf(0.25),
		MacroFusibleWith: []string{"JZ", "JNZ", "JLE", "JGE"},
		InputOperands: []string{"dst", "src"},
	}}

	t["JZ"] = []Entry{{
		String: "JZ", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports: []PortCount{{Ports: p.branch, Count: 1}},
		TP:    tpOf(0.5), IsBranch: true,
	}}

	t["POP"] = []Entry{{
		String: "POP (R64)", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports:     []PortCount{{Ports: p.load, Count: 1, Role: RoleLoad}},
		Latencies: map[LatKey]int{{In: "src.mem", Out: "dst"}: 5},
		TP:        tpOf(0.5),
		IsPop: true,
		InputOperands: []string{"src.mem"}, OutputOperands: []string{"dst"},
		MemOperandKey: "src.mem",
	}}

	t["MFENCE"] = []Entry{{
		String: "MFENCE", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports: []PortCount{{Ports: p.alu, Count: 1}},
		TP:    tpOf(33), IsLoadSerializing: true, IsStoreSerializing: true,
	}}

	t["LFENCE"] = []Entry{{
		String: "LFENCE", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports: []PortCount{{Ports: p.alu, Count: 1}},
		TP:    tpOf(6), IsLoadSerializing: true,
	}}

	t["SFENCE"] = []Entry{{
		String: "SFENCE", Uops: 1, RetireSlots: 1, UopsMITE: 1,
		Ports: []PortCount{{Ports: p.alu, Count: 1}},
		TP:    tpOf(1), IsStoreSerializing: true,
	}}

	t["DIV_GPR64"] = []Entry{{
		String: "DIV (R64)", Uops: 3, RetireSlots: 3, UopsMITE: 3,
		Ports: []PortCount{
			{Ports: p.aluSingle, Count: 1},
			{Ports: p.mulHigh, Count: 1},
			{Ports: p.alu, Count: 1},
		},
		DivCycles: 36,
		TP:        tpOf(24),
		InputOperands: []string{"dst"}, OutputOperands: []string{"dst"},
	}}

	return t
}

func init() {
	for _, a := range []Arch{CON, WOL, NHM, WSM, SNB, IVB, HSW, BDW, SKL, SKX, KBL, CFL, CNL, ICL} {
		register(a, baseTable(a))
	}
}
