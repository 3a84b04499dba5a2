package service

import (
	"fmt"
	"strings"

	"github.com/1sec-project/forensec/internal/core"
	"github.com/1sec-project/forensec/internal/forensics"
)

// SessionsFinding summarizes invalid sessions.
func SessionsFinding(invalid forensics.SessionSet) *core.Finding {
	ids := invalid.Sorted()
	sev := core.SeverityInfo
	summary := "no invalid sessions"
	if len(ids) > 0 {
		sev = core.SeverityHigh
		summary = fmt.Sprintf("%d invalid session(s)", len(ids))
	}
	f := core.NewFinding(forensics.AnalysisSessions, sev, summary)
	f.Details["invalid_sessions"] = ids
	return f
}

// TimelineFinding summarizes one session's timeline.
func TimelineFinding(sessionID string, timeline []string) *core.Finding {
	f := core.NewFinding(forensics.AnalysisTimeline, core.SeverityInfo,
		fmt.Sprintf("session %s: %d action(s)", sessionID, len(timeline)))
	f.Details["session_id"] = sessionID
	f.Details["actions"] = timeline
	return f
}

// AlertsFinding summarizes the top alerts. Severity follows the highest
// ranked alert.
func AlertsFinding(alerts []forensics.AlertView) *core.Finding {
	sev := core.SeverityInfo
	summary := "no alerts"
	if len(alerts) > 0 {
		sev = core.SeverityFromLevel(alerts[0].SeverityLevel)
		summary = fmt.Sprintf("top %d alert(s), highest severity %d", len(alerts), alerts[0].SeverityLevel)
	}
	f := core.NewFinding(forensics.AnalysisAlerts, sev, summary)
	f.Details["alerts"] = alerts
	return f
}

// SpikesFinding summarizes escalating transfers.
func SpikesFinding(spikes map[int64]int64) *core.Finding {
	sev := core.SeverityInfo
	summary := "no escalating transfers"
	if len(spikes) > 0 {
		sev = core.SeverityMedium
		summary = fmt.Sprintf("%d transfer(s) followed by a larger one", len(spikes))
	}
	f := core.NewFinding(forensics.AnalysisSpikes, sev, summary)
	f.Details["spikes"] = spikes
	return f
}

// TraceFinding summarizes a contamination trace.
func TraceFinding(start, target string, path []string, found bool) *core.Finding {
	sev := core.SeverityInfo
	summary := fmt.Sprintf("no path from %s to %s", start, target)
	if found {
		sev = core.SeverityCritical
		summary = "contamination path: " + strings.Join(path, " -> ")
	}
	f := core.NewFinding(forensics.AnalysisTrace, sev, summary)
	f.Details["start"] = start
	f.Details["target"] = target
	f.Details["found"] = found
	if found {
		f.Details["path"] = path
	}
	return f
}
