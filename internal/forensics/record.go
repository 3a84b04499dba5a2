package forensics

import (
	"slices"
)

// Action types with meaning to the session validator. Any other value is
// passed through untouched.
const (
	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"
)

// Record is one access-log line. Records are values; no analysis mutates them.
type Record struct {
	Timestamp        int64  `json:"timestamp"`
	UserID           string `json:"user_id"`
	SessionID        string `json:"session_id"`
	ActionType       string `json:"action_type"`
	TargetResource   string `json:"target_resource,omitempty"`
	SeverityLevel    int    `json:"severity_level"`
	BytesTransferred int64  `json:"bytes_transferred"`
}

// HasTransfer reports whether the record moved any bytes.
func (r Record) HasTransfer() bool { return r.BytesTransferred > 0 }

// AlertView is the projection of a Record ranked by PrioritizeAlerts.
type AlertView struct {
	Timestamp     int64  `json:"timestamp"`
	SessionID     string `json:"session_id"`
	SeverityLevel int    `json:"severity_level"`
}

// View projects the record onto an AlertView.
func (r Record) View() AlertView {
	return AlertView{
		Timestamp:     r.Timestamp,
		SessionID:     r.SessionID,
		SeverityLevel: r.SeverityLevel,
	}
}

// IsChronological reports whether records are non-decreasing by timestamp.
func IsChronological(records []Record) bool {
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp < records[i-1].Timestamp {
			return false
		}
	}
	return true
}

// Chronological returns records in non-decreasing timestamp order. An
// already ordered slice is returned as is; otherwise a stably sorted copy is
// returned so records sharing a timestamp keep their relative order. The
// input is never modified.
func Chronological(records []Record) []Record {
	if IsChronological(records) {
		return records
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})
	return sorted
}
