package main

// ---------------------------------------------------------------------------
// cmd_timeline.go — ordered actions of one session
// ---------------------------------------------------------------------------

import (
	"io"
	"os"
	"strconv"

	"github.com/1sec-project/forensec/internal/service"
)

func cmdTimeline(args []string) {
	af := newAnalysisFlags("timeline")
	session := af.fs.String("session", "", "Session ID to reconstruct (required)")
	run := af.load(args)

	if *session == "" {
		errorf("--session is required")
	}
	timeline := run.analyzer.ReconstructTimeline(run.records, *session)
	run.report(func(w *os.File) error {
		return renderTimeline(w, run.format, timeline)
	}, service.TimelineFinding(*session, timeline))
}

func renderTimeline(w io.Writer, f OutputFormat, actions []string) error {
	t := NewTable(w, "STEP", "ACTION")
	for i, a := range actions {
		t.AddRow(strconv.Itoa(i+1), a)
	}
	return t.emit(f, actions)
}
