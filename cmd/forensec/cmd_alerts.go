package main

// ---------------------------------------------------------------------------
// cmd_alerts.go — top-N records by severity
// ---------------------------------------------------------------------------

import (
	"io"
	"os"
	"strconv"

	"github.com/1sec-project/forensec/internal/forensics"
	"github.com/1sec-project/forensec/internal/service"
)

func cmdAlerts(args []string) {
	af := newAnalysisFlags("alerts")
	limit := af.fs.Int("n", 0, "Number of alerts to return (default: analysis.alert_limit)")
	run := af.load(args)

	n := run.cfg.Analysis.AlertLimit
	if flagWasSet(af.fs, "n") {
		n = *limit
	}
	alerts := run.analyzer.PrioritizeAlerts(run.records, n)
	run.report(func(w *os.File) error {
		return renderAlerts(w, run.format, alerts)
	}, service.AlertsFinding(alerts))
}

func renderAlerts(w io.Writer, f OutputFormat, alerts []forensics.AlertView) error {
	t := NewTable(w, "RANK", "TIMESTAMP", "SESSION_ID", "SEVERITY")
	for i, a := range alerts {
		t.AddRow(
			strconv.Itoa(i+1),
			strconv.FormatInt(a.Timestamp, 10),
			a.SessionID,
			strconv.Itoa(a.SeverityLevel),
		)
	}
	return t.emit(f, alerts)
}
