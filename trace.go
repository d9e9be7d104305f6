package pipesim

import (
	"fmt"
	"strings"
)

// TraceRow is one rendered line of a per-uop execution trace: which
// uop it is, the port it could have used versus the one it got, and
// the cycle markers for every stage it passed through.
type TraceRow struct {
	InstrIform string
	UopIdx     int
	Possible   []string
	Actual     string
	Events     string // fixed-width cycle-indexed event grid
}

// eventGridWidth bounds how many cycles of a HTML trace row are
// rendered; traces longer than this are truncated rather than
// growing the table without limit.
const eventGridWidth = 200

// BuildTrace renders one TraceRow per retired uop, in retirement
// order, the same granularity the reference tool's HTML trace table
// uses (one row per unfused uop, not per instruction).
func BuildTrace(retired []*Uop) []TraceRow {
	rows := make([]TraceRow, 0, len(retired))
	for _, u := range retired {
		rows = append(rows, TraceRow{
			InstrIform: u.Instr.Instr.Iform,
			UopIdx:     u.Idx,
			Possible:   u.Prop.PossiblePorts,
			Actual:     u.ActualPort,
			Events:     renderEvents(u),
		})
	}
	return rows
}

func renderEvents(u *Uop) string {
	width := eventGridWidth
	if u.RetiredCycle > 0 && u.RetiredCycle < width {
		width = u.RetiredCycle + 1
	}
	grid := make([]byte, width)
	for i := range grid {
		grid[i] = ' '
	}
	mark := func(cycle int, ch byte) {
		if cycle >= 0 && cycle < len(grid) {
			grid[cycle] = ch
		}
	}
	mark(u.Instr.PredecodedCycle, 'P')
	mark(u.AddedToRSCycle, 'Q')
	mark(u.ReadyForDispatchCycle, 'r')
	mark(u.DispatchedCycle, 'D')
	mark(u.ExecutedCycle, 'E')
	mark(u.RetiredCycle, 'R')
	return string(grid)
}

// WriteHTMLTrace renders rows as a minimal HTML table: one <tr> per
// row, one <td> per field. It is intentionally plain markup (no CSS,
// no JS) built with string concatenation, the same way the reference
// tool's own HTML trace writer works.
func WriteHTMLTrace(rows []TraceRow) string {
	var b strings.Builder
	b.WriteString("<table>\n")
	b.WriteString("<tr><th>instr</th><th>uop</th><th>possible</th><th>actual</th><th>events</th></tr>\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td><pre>%s</pre></td></tr>\n",
			r.InstrIform, r.UopIdx, strings.Join(r.Possible, ","), r.Actual, r.Events)
	}
	b.WriteString("</table>\n")
	return b.String()
}
