package pipesim

import (
	"fmt"
	"sort"
	"strings"
)

// PortUsage is the per-port uop count computed by PortUsageReport,
// restricted to the uops in the window it was given.
type PortUsage struct {
	Port  string
	Count int
}

// PortUsageReport tallies how many of the given retired uops
// dispatched on each port, sorted by port name, mirroring the
// reference tool's end-of-run total "Uops" table.
func PortUsageReport(retired []*Uop) []PortUsage {
	counts := make(map[string]int)
	for _, u := range retired {
		if u.ActualPort == "" {
			continue
		}
		counts[u.ActualPort]++
	}

	ports := make([]string, 0, len(counts))
	for p := range counts {
		ports = append(ports, p)
	}
	sort.Strings(ports)

	out := make([]PortUsage, 0, len(ports))
	for _, p := range ports {
		out = append(out, PortUsage{Port: p, Count: counts[p]})
	}
	return out
}

// FormatPortUsage renders a PortUsageReport as a single-line table,
// e.g. "Port 0: 12  Port 1: 8  Port 5: 4".
func FormatPortUsage(usage []PortUsage) string {
	parts := make([]string, 0, len(usage))
	for _, u := range usage {
		parts = append(parts, fmt.Sprintf("Port %s: %d", u.Port, u.Count))
	}
	return strings.Join(parts, "  ")
}

// InstrPortUsage is one row of the per-instruction port-usage table:
// the average number of uops instruction Iform dispatched to each
// port across every retired occurrence of it.
type InstrPortUsage struct {
	Iform string
	Avg   map[string]float64
}

// PortUsageByInstruction groups retired uops by their owning
// instruction's Iform and averages each port's dispatched-uop count
// over the number of retired occurrences of that instruction,
// mirroring the reference tool's per-instruction port-usage table.
// Rows are sorted by Iform for determinism.
func PortUsageByInstruction(retired []*Uop) []InstrPortUsage {
	type accum struct {
		counts    map[string]int
		instances map[*InstrInstance]bool
	}
	byIform := make(map[string]*accum)

	for _, u := range retired {
		iform := u.Instr.Instr.Iform
		a, ok := byIform[iform]
		if !ok {
			a = &accum{counts: make(map[string]int), instances: make(map[*InstrInstance]bool)}
			byIform[iform] = a
		}
		a.instances[u.Instr] = true
		if u.ActualPort != "" {
			a.counts[u.ActualPort]++
		}
	}

	iforms := make([]string, 0, len(byIform))
	for name := range byIform {
		iforms = append(iforms, name)
	}
	sort.Strings(iforms)

	out := make([]InstrPortUsage, 0, len(iforms))
	for _, name := range iforms {
		a := byIform[name]
		n := len(a.instances)
		if n == 0 {
			n = 1
		}
		avg := make(map[string]float64, len(a.counts))
		for port, c := range a.counts {
			avg[port] = float64(c) / float64(n)
		}
		out = append(out, InstrPortUsage{Iform: name, Avg: avg})
	}
	return out
}

// FormatPortTable renders a fixed-column table over ports: one header
// row naming each port, a "Uops" total row from totals, and one row
// per entry in perInstr giving that instruction's average uops per
// port, matching the reference tool's two-table stdout report shape.
func FormatPortTable(ports []string, totals []PortUsage, perInstr []InstrPortUsage) string {
	totalByPort := make(map[string]int, len(totals))
	for _, t := range totals {
		totalByPort[t.Port] = t.Count
	}

	var b strings.Builder
	b.WriteString("      ")
	for _, p := range ports {
		fmt.Fprintf(&b, "%6s", "P"+p)
	}
	b.WriteString("\n")

	b.WriteString("Uops: ")
	for _, p := range ports {
		fmt.Fprintf(&b, "%6d", totalByPort[p])
	}
	b.WriteString("\n")

	for _, row := range perInstr {
		fmt.Fprintf(&b, "%-6s", row.Iform)
		for _, p := range ports {
			fmt.Fprintf(&b, "%6.2f", row.Avg[p])
		}
		b.WriteString("\n")
	}
	return b.String()
}
