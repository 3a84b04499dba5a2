package main

// ---------------------------------------------------------------------------
// cmd_check.go — ingest diagnostics for a log extract
// ---------------------------------------------------------------------------

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/1sec-project/forensec/internal/core"
	"github.com/1sec-project/forensec/internal/forensics"
	"github.com/1sec-project/forensec/internal/ingest"
	"github.com/rs/zerolog"
)

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type checkReport struct {
	Source string        `json:"source"`
	Stats  ingest.Stats  `json:"stats"`
	Checks []checkResult `json:"checks"`
	Failed int           `json:"failed"`
	Warned int           `json:"warned"`
}

func cmdCheck(args []string) {
	af := newAnalysisFlags("check")
	positional, err := parseInterspersed(af.fs, args)
	if err != nil {
		errorf("%v", err)
	}
	if *af.jsonOut {
		*af.format = "json"
	}

	report := &checkReport{Checks: make([]checkResult, 0)}
	cfg, err := af.resolveConfig()
	if err != nil {
		report.add("config", "fail", err.Error())
	} else {
		report.add("config", "pass", fmt.Sprintf("loaded %s", envConfig(*af.configPath)))
		report.Source, err = logSource(positional, cfg)
		if err != nil {
			report.add("source", "fail", err.Error())
		} else {
			runIngestChecks(report, cfg, core.NewLogger(cfg.Logging, os.Stderr))
		}
	}

	w, closeFn := outputWriter(*af.output)
	defer closeFn()
	if err := renderCheck(w, parseFormat(*af.format), report); err != nil {
		errorf("writing output: %v", err)
	}
	if report.Failed > 0 {
		closeFn()
		os.Exit(1)
	}
}

func (r *checkReport) add(name, status, detail string) {
	r.Checks = append(r.Checks, checkResult{Name: name, Status: status, Detail: detail})
	switch status {
	case "fail":
		r.Failed++
	case "warn":
		r.Warned++
	}
}

// runIngestChecks loads report.Source under cfg and records what it found.
func runIngestChecks(report *checkReport, cfg *core.Config, logger zerolog.Logger) {
	loader := ingest.NewLoader(cfg.IngestOptions(), logger)
	records, stats, err := loader.LoadFile(report.Source)
	report.Stats = stats

	var merr *ingest.MalformedRecordError
	switch {
	case errors.As(err, &merr):
		report.add("source", "pass", fmt.Sprintf("%s is readable", report.Source))
		report.add("records", "fail", fmt.Sprintf("strict mode: %v", merr))
		return
	case err != nil:
		report.add("source", "fail", err.Error())
		return
	}
	report.add("source", "pass", fmt.Sprintf("%s is readable", report.Source))

	if stats.HeaderSkipped {
		report.add("header", "pass", "header line skipped")
	} else {
		report.add("header", "pass", "no header line")
	}

	if stats.Skipped > 0 {
		report.add("records", "warn", fmt.Sprintf("%d record(s), %d malformed line(s) skipped", stats.Records, stats.Skipped))
	} else {
		report.add("records", "pass", fmt.Sprintf("%d record(s)", stats.Records))
	}

	if len(records) == 0 {
		report.add("chronology", "warn", "no records to analyze")
	} else if forensics.IsChronological(records) {
		report.add("chronology", "pass", "records are in timestamp order")
	} else {
		report.add("chronology", "warn", "records are out of order; analyses sort them by timestamp")
	}

	g := forensics.BuildContaminationGraph(records)
	report.add("graph", "pass", fmt.Sprintf("%d resource(s), %d contamination edge(s)", g.NodeCount(), g.EdgeCount()))

	if cfg.Bus.Embedded && cfg.Bus.Port > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Bus.Host, cfg.Bus.Port))
		if err != nil {
			report.add("nats_port", "warn", fmt.Sprintf("port %d is already in use", cfg.Bus.Port))
		} else {
			ln.Close()
			report.add("nats_port", "pass", fmt.Sprintf("port %d is available", cfg.Bus.Port))
		}
	}
}

func renderCheck(w io.Writer, f OutputFormat, report *checkReport) error {
	t := NewTable(w, "CHECK", "STATUS", "DETAIL")
	for _, r := range report.Checks {
		status := r.Status
		if f == FormatTable {
			switch r.Status {
			case "pass":
				status = green("PASS")
			case "fail":
				status = red("FAIL")
			case "warn":
				status = yellow("WARN")
			}
		}
		t.AddRow(r.Name, status, r.Detail)
	}
	if f != FormatTable {
		return t.emit(f, report)
	}

	fmt.Fprintf(w, "%s Ingest diagnostics\n\n", bold("▸"))
	t.Render()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  lines %d, records %d, skipped %d\n\n", report.Stats.Lines, report.Stats.Records, report.Stats.Skipped)
	switch {
	case report.Failed > 0:
		fmt.Fprintf(w, "%s %d check(s) failed.\n", red("✗"), report.Failed)
	case report.Warned > 0:
		fmt.Fprintf(w, "%s All checks passed with %d warning(s).\n", yellow("!"), report.Warned)
	default:
		fmt.Fprintf(w, "%s All checks passed.\n", green("✓"))
	}
	return nil
}
