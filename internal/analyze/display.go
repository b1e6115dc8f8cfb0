package analyze

import (
	"fmt"
	"io"
	"strings"
)

// maxRows is the number of modules listed unless all are requested.
const maxRows = 10

// Display prints the analysis; all lists every module instead of the
// largest ones.
func Display(w io.Writer, res *Result, all bool) {
	_, _ = fmt.Fprintf(w, "\n=== Bundle Analysis: %s ===\n", res.Artifact)
	_, _ = fmt.Fprintf(w, "Estimated size: %s\n", FormatBytes(res.TotalBytes))

	if len(res.ExternalImports) > 0 {
		_, _ = fmt.Fprintln(w, "\nExternals (provided by other artifacts or loaders):")
		for _, imp := range res.ExternalImports {
			_, _ = fmt.Fprintf(w, "  - %s\n", imp)
		}
	}

	if len(res.Modules) > 0 {
		_, _ = fmt.Fprintln(w, "\nModules:")
		rows := len(res.Modules)
		if !all && rows > maxRows {
			rows = maxRows
		}

		width := 0
		for _, m := range res.Modules[:rows] {
			if n := len(truncate(m.Modname, 50)); n > width {
				width = n
			}
		}
		for _, m := range res.Modules[:rows] {
			name := truncate(m.Modname, 50)
			_, _ = fmt.Fprintf(w, "  %s%s  %10s  %5.1f%%\n",
				name, strings.Repeat(" ", width-len(name)), FormatBytes(m.BytesInOutput), m.Percentage)
		}
		if rows < len(res.Modules) {
			_, _ = fmt.Fprintf(w, "  ... and %d more modules\n", len(res.Modules)-rows)
		}
	}

	if len(res.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range res.Warnings {
			_, _ = fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
	_, _ = fmt.Fprintln(w)
}

// FormatBytes formats a size in B, KB or MB.
func FormatBytes(n int) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case n >= mb:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
