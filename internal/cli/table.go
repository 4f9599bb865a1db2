package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// renderTable lays out rows as aligned columns. The first row is the
// header. Trailing blanks of each line are dropped.
func renderTable(rows [][]string) (string, error) {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return "", fmt.Errorf("render table: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}

	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n"), nil
}
