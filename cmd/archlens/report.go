package main

import (
	"fmt"
	"io"

	"github.com/archlens/archlens/internal/ingestion"
)

// printLoadReport writes a load summary. Failures are always itemized;
// succeeded classes only when verbose.
func printLoadReport(w io.Writer, report *ingestion.LoadReport, verbose bool) {
	fmt.Fprintf(w, "\nLoad %s (%s)\n", report.RunID, report.Mode)
	if report.Scope != "" {
		fmt.Fprintf(w, "  Identity:   %s\n", report.Scope)
	}
	fmt.Fprintf(w, "  Succeeded:  %d\n", len(report.Succeeded))
	if verbose {
		for _, class := range report.Succeeded {
			fmt.Fprintf(w, "    + %s\n", class)
		}
	}
	fmt.Fprintf(w, "  Failed:     %d\n", len(report.Failed))
	for _, f := range report.Failed {
		fmt.Fprintf(w, "    x %s: %s\n", failureSubject(f), f.Error())
	}
	fmt.Fprintf(w, "  Statements: %d\n", report.Statements)
	fmt.Fprintf(w, "  Duration:   %s\n", report.Duration.Round(1e6))
}

func failureSubject(f ingestion.RecordFailure) string {
	switch {
	case f.Class != "" && f.File != "":
		return fmt.Sprintf("%s (%s)", f.Class, f.File)
	case f.Class != "":
		return f.Class
	case f.File != "":
		return f.File
	default:
		return "<unnamed record>"
	}
}

func printExtraction(w io.Writer, res *ingestion.ExtractionResult) {
	fmt.Fprintf(w, "\nExtraction\n")
	fmt.Fprintf(w, "  Files:      %d\n", res.Files)
	fmt.Fprintf(w, "  Records:    %d\n", len(res.Records))
	fmt.Fprintf(w, "  Cache hits: %d\n", res.CacheHits)
	fmt.Fprintf(w, "  Skipped:    %d\n", len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "    - %s: %v\n", s.Path, s.Err)
	}
}
