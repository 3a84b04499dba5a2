package forensics

import (
	"time"

	"github.com/rs/zerolog"
)

// Analysis names, used for logging, findings and query subjects.
const (
	AnalysisSessions = "sessions"
	AnalysisTimeline = "timeline"
	AnalysisAlerts   = "alerts"
	AnalysisSpikes   = "spikes"
	AnalysisTrace    = "trace"
)

// Analyses lists every analysis name in a stable order.
var Analyses = []string{
	AnalysisSessions,
	AnalysisTimeline,
	AnalysisAlerts,
	AnalysisSpikes,
	AnalysisTrace,
}

// Analyzer runs the forensic analyses and logs each call. It keeps no state
// between calls and is safe for concurrent use.
type Analyzer struct {
	logger zerolog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.With().Str("component", "analyzer").Logger(),
	}
}

func (a *Analyzer) done(analysis string, records int, results int, start time.Time) {
	a.logger.Debug().
		Str("analysis", analysis).
		Int("records", records).
		Int("results", results).
		Dur("took", time.Since(start)).
		Msg("analysis complete")
}

// FindInvalidSessions wraps FindInvalidSessions.
func (a *Analyzer) FindInvalidSessions(records []Record) SessionSet {
	start := time.Now()
	out := FindInvalidSessions(records)
	a.done(AnalysisSessions, len(records), len(out), start)
	return out
}

// ReconstructTimeline wraps ReconstructTimeline.
func (a *Analyzer) ReconstructTimeline(records []Record, sessionID string) []string {
	start := time.Now()
	out := ReconstructTimeline(records, sessionID)
	a.done(AnalysisTimeline, len(records), len(out), start)
	return out
}

// PrioritizeAlerts wraps PrioritizeAlerts.
func (a *Analyzer) PrioritizeAlerts(records []Record, n int) []AlertView {
	start := time.Now()
	out := PrioritizeAlerts(records, n)
	a.done(AnalysisAlerts, len(records), len(out), start)
	return out
}

// FindTransferSpikes wraps FindTransferSpikes.
func (a *Analyzer) FindTransferSpikes(records []Record) map[int64]int64 {
	start := time.Now()
	out := FindTransferSpikes(records)
	a.done(AnalysisSpikes, len(records), len(out), start)
	return out
}

// TraceContamination builds the graph, logs its size and searches it.
func (a *Analyzer) TraceContamination(records []Record, from, to string) ([]string, bool) {
	start := time.Now()
	g := BuildContaminationGraph(records)
	path, ok := g.Path(from, to)
	a.logger.Debug().
		Str("analysis", AnalysisTrace).
		Int("nodes", g.NodeCount()).
		Int("edges", g.EdgeCount()).
		Bool("found", ok).
		Int("hops", max(len(path)-1, 0)).
		Dur("took", time.Since(start)).
		Msg("analysis complete")
	return path, ok
}
