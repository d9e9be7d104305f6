package instrdata

import "testing"

func TestArchValid(t *testing.T) {
	tests := []struct {
		name string
		arch Arch
		want bool
	}{
		{"CFL is valid", CFL, true},
		{"HSW is valid", HSW, true},
		{"unknown arch", Arch("ZZZ"), false},
		{"empty arch", Arch(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.arch.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupAllArchesRegistered(t *testing.T) {
	for _, a := range []Arch{CON, WOL, NHM, WSM, SNB, IVB, HSW, BDW, SKL, SKX, KBL, CFL, CNL, ICL} {
		if tbl := Lookup(a); tbl == nil {
			t.Errorf("Lookup(%s) = nil, want a populated table", a)
		}
	}
}

func TestFind(t *testing.T) {
	tbl := Lookup(CFL)
	if tbl == nil {
		t.Fatal("Lookup(CFL) = nil")
	}

	tests := []struct {
		name  string
		iform string
		attrs map[string]string
		want  bool
	}{
		{"nop present", "NOP", nil, true},
		{"imul present", "IMUL_GPR64_GPR64_GPR64", nil, true},
		{"unknown iform absent", "NOT_A_REAL_INSTRUCTION", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tbl.Find(tt.iform, tt.attrs)
			if ok != tt.want {
				t.Errorf("Find(%q) ok = %v, want %v", tt.iform, ok, tt.want)
			}
		})
	}
}

func TestFindRespectsAttributes(t *testing.T) {
	tbl := Table{
		"FOO": []Entry{
			{Attributes: map[string]string{"same_reg": "true"}, String: "FOO_SR"},
			{Attributes: nil, String: "FOO"},
		},
	}

	e, ok := tbl.Find("FOO", map[string]string{"same_reg": "true"})
	if !ok || e.String != "FOO_SR" {
		t.Errorf("Find with matching attribute = %+v, %v; want FOO_SR entry", e, ok)
	}

	e, ok = tbl.Find("FOO", map[string]string{"same_reg": "false"})
	if !ok || e.String != "FOO" {
		t.Errorf("Find falling back to unconstrained entry = %+v, %v; want FOO entry", e, ok)
	}
}

func TestPortsForCoversAllArches(t *testing.T) {
	for _, a := range []Arch{CON, WOL, NHM, WSM, SNB, IVB, HSW, BDW, SKL, SKX, KBL, CFL, CNL, ICL} {
		p := portsFor(a)
		if len(p.alu) == 0 || len(p.load) == 0 || len(p.mulHigh) == 0 {
			t.Errorf("portsFor(%s) has an empty required port set: %+v", a, p)
		}
	}
}
