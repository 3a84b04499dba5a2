package main

// ---------------------------------------------------------------------------
// cmd_trace.go — shortest contamination path between two resources
// ---------------------------------------------------------------------------

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/1sec-project/forensec/internal/service"
)

func cmdTrace(args []string) {
	af := newAnalysisFlags("trace")
	from := af.fs.String("from", "", "Starting resource (required)")
	to := af.fs.String("to", "", "Target resource (required)")
	run := af.load(args)

	if *from == "" || *to == "" {
		errorf("--from and --to are required")
	}
	path, found := run.analyzer.TraceContamination(run.records, *from, *to)
	if path == nil {
		path = []string{}
	}
	run.report(func(w *os.File) error {
		return renderTrace(w, run.format, *from, *to, path, found)
	}, service.TraceFinding(*from, *to, path, found))
}

func renderTrace(w io.Writer, f OutputFormat, from, to string, path []string, found bool) error {
	if f == FormatTable && !found {
		_, err := fmt.Fprintf(w, "No contamination path from %s to %s\n", from, to)
		return err
	}
	t := NewTable(w, "HOP", "RESOURCE")
	for i, r := range path {
		t.AddRow(strconv.Itoa(i), r)
	}
	return t.emit(f, service.TraceResult{Found: found, Path: path})
}
