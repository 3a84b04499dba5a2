package main

// ---------------------------------------------------------------------------
// cmd_sessions.go — list sessions with an invalid login/logout lifecycle
// ---------------------------------------------------------------------------

import (
	"io"
	"os"

	"github.com/1sec-project/forensec/internal/service"
)

func cmdSessions(args []string) {
	af := newAnalysisFlags("sessions")
	run := af.load(args)

	invalid := run.analyzer.FindInvalidSessions(run.records)
	ids := invalid.Sorted()
	run.report(func(w *os.File) error {
		return renderSessions(w, run.format, ids)
	}, service.SessionsFinding(invalid))
}

func renderSessions(w io.Writer, f OutputFormat, ids []string) error {
	t := NewTable(w, "SESSION_ID")
	for _, id := range ids {
		t.AddRow(id)
	}
	return t.emit(f, ids)
}
