package instrdata

import (
	"encoding/json"
	"fmt"
)

// StreamOperand is one operand of a StreamInstr, as loaded from a
// disassembled-instruction-stream JSON document.
type StreamOperand struct {
	Kind         string `json:"kind"` // "reg" or "mem"
	Reg          string `json:"reg,omitempty"`
	Base         string `json:"base,omitempty"`
	Index        string `json:"index,omitempty"`
	Scale        int    `json:"scale,omitempty"`
	Displacement int64  `json:"displacement,omitempty"`
}

// StreamInstr is one already-disassembled instruction: enough to look
// up its instrdata.Entry (Iform plus Attributes) and to build its
// concrete operand graph (Operands).
type StreamInstr struct {
	Asm              string                   `json:"asm"`
	Bytes            []byte                   `json:"bytes"`
	PosNominalOpcode int                      `json:"posNominalOpcode"`
	Iform            string                   `json:"iform"`
	Attributes       map[string]string        `json:"attributes"`
	Operands         map[string]StreamOperand `json:"operands"`
	Len              int64                    `json:"len"`
}

// StreamFile is the top-level JSON document describing an
// already-disassembled instruction stream for a given
// microarchitecture.
type StreamFile struct {
	Arch         Arch          `json:"arch"`
	Raw          bool          `json:"raw"`
	Instructions []StreamInstr `json:"instructions"`
}

// LoadStreamFile parses an instruction-stream JSON document.
func LoadStreamFile(data []byte) (*StreamFile, error) {
	var sf StreamFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("instrdata: parsing stream file: %w", err)
	}
	if !sf.Arch.Valid() {
		return nil, fmt.Errorf("instrdata: stream file names unknown microarchitecture %q", sf.Arch)
	}
	return &sf, nil
}

// FilterIACAMarkers restricts instrs to the slice strictly between an
// IACA_START and the following IACA_END sentinel iform, matching the
// marker-based region restriction used when a stream was captured
// with IACA markers embedded. If no IACA_START is present, instrs is
// returned unchanged.
func FilterIACAMarkers(instrs []StreamInstr) []StreamInstr {
	start := -1
	for i, ins := range instrs {
		if ins.Iform == "IACA_START" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return instrs
	}
	for i := start; i < len(instrs); i++ {
		if instrs[i].Iform == "IACA_END" {
			return instrs[start:i]
		}
	}
	return instrs[start:]
}
