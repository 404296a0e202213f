package yolodet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
)

// Reports is the outcome of a batch run.
type Reports []Report

// Failed returns how many reports carry an error.
func (r Reports) Failed() int {
	return lo.CountBy(r, func(rep Report) bool { return rep.Err != nil })
}

// Classes counts the detected objects per class name across all reports.
func (r Reports) Classes() map[string]int {
	all := lo.FlatMap(r, func(rep Report, _ int) []Detection { return rep.Detections })
	return lo.CountValuesBy(all, func(det Detection) string { return det.Class })
}

// String renders a table with one row per processed source.
func (r Reports) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Source", "Objects", "Classes", "Output"})
	for i, rep := range r {
		output := rep.Output
		if rep.Err != nil {
			output = "error: " + rep.Err.Error()
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i+1),
			rep.Source,
			len(rep.Detections),
			classList(rep.Detections),
			output,
		})
	}
	t.AppendFooter(table.Row{"", "Total", lo.SumBy(r, func(rep Report) int { return len(rep.Detections) }), "", fmt.Sprintf("%d failed", r.Failed())})
	return t.Render()
}

// classList formats detections as "person x2, dog".
func classList(dets []Detection) string {
	counts := lo.CountValuesBy(dets, func(det Detection) string { return det.Class })
	names := lo.Keys(counts)
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if n := counts[name]; n > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", name, n))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}
