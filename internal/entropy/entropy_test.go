package entropy

import (
	"bytes"
	"testing"

	"github.com/opd-ai/x86pipesim/internal/instrdata"
)

func TestGenerateDeterministic(t *testing.T) {
	seed := []byte("fixture seed")

	a, err := Generate(instrdata.CFL, seed, 32)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := Generate(instrdata.CFL, seed, 32)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("Generate() returned %d and %d streams, want 32 each", len(a), len(b))
	}
	for i := range a {
		if a[i].Iform != b[i].Iform || !bytes.Equal(a[i].Seed, b[i].Seed) {
			t.Errorf("stream %d differs between identical-seed runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateSameLengthAcrossArches(t *testing.T) {
	seed := []byte("fixture seed")

	// ICL has a table entry HSW/CFL lack the exact port shape of, but
	// every registered arch shares the same iform set today, so this
	// only checks that Generate succeeds rather than diverges.
	cfl, err := Generate(instrdata.CFL, seed, 8)
	if err != nil {
		t.Fatalf("Generate(CFL) error = %v", err)
	}
	icl, err := Generate(instrdata.ICL, seed, 8)
	if err != nil {
		t.Fatalf("Generate(ICL) error = %v", err)
	}
	if len(cfl) != len(icl) {
		t.Errorf("stream lengths differ: %d vs %d", len(cfl), len(icl))
	}
}

func TestGenerateUnknownArch(t *testing.T) {
	_, err := Generate(instrdata.Arch("ZZZ"), []byte("x"), 4)
	if err == nil {
		t.Error("Generate() with unknown arch: want error, got nil")
	}
}

func TestGenerateEmptySeedStillDeterministic(t *testing.T) {
	a, err := Generate(instrdata.CFL, nil, 4)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := Generate(instrdata.CFL, nil, 4)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for i := range a {
		if a[i].Iform != b[i].Iform {
			t.Errorf("stream %d differs for nil seed across runs", i)
		}
	}
}
