package pipesim

import "github.com/opd-ai/x86pipesim/internal/instrdata"

// FromStreamFile builds the InstrRequest slice Compile needs from an
// already-loaded instruction-stream document, applying the IACA-marker
// restriction first when iacaMarkers is true (IACA filtering is opt-in
// at the CLI layer, see cmd/x86pipesim). sf.Raw has no effect here.
func FromStreamFile(sf *instrdata.StreamFile, iacaMarkers bool) []InstrRequest {
	instrs := sf.Instructions
	if iacaMarkers {
		instrs = instrdata.FilterIACAMarkers(instrs)
	}

	out := make([]InstrRequest, 0, len(instrs))
	for _, ins := range instrs {
		out = append(out, InstrRequest{
			Iform:      ins.Iform,
			Attributes: ins.Attributes,
			Operands:   convertOperands(ins.Operands),
			Len:        ins.Len,
		})
	}
	return out
}

func convertOperands(ops map[string]instrdata.StreamOperand) map[string]Operand {
	if len(ops) == 0 {
		return nil
	}
	out := make(map[string]Operand, len(ops))
	for name, op := range ops {
		switch op.Kind {
		case "mem":
			out[name] = &MemOperand{Addr: MemAddr{
				Base: op.Base, Index: op.Index,
				Scale: op.Scale, Displacement: op.Displacement,
			}}
		default:
			out[name] = &RegOperand{Reg: op.Reg}
		}
	}
	return out
}
