package pdfx

import (
	"regexp"
	"strings"
)

// cellSeparator splits a line into cells on tabs or runs of two and more
// spaces, the way column-aligned PDF text extracts.
var cellSeparator = regexp.MustCompile(`\t+| {2,}`)

// DetectTables finds table grids in extracted page text: two or more
// consecutive lines that split into the same number (at least two) of
// separator-aligned cells form one grid, first row treated as headers.
func DetectTables(text string) [][][]string {
	var tables [][][]string
	var current [][]string

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		cells := splitCells(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(current) > 0 && len(cells) != len(current[0]) {
			flush()
		}
		current = append(current, cells)
	}
	flush()

	return tables
}

func splitCells(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	parts := cellSeparator.Split(trimmed, -1)
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}
