package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Severity represents the severity of a finding.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "INFO":
		*s = SeverityInfo
	case "LOW":
		*s = SeverityLow
	case "MEDIUM":
		*s = SeverityMedium
	case "HIGH":
		*s = SeverityHigh
	case "CRITICAL":
		*s = SeverityCritical
	default:
		*s = SeverityInfo
	}
	return nil
}

// SeverityFromLevel buckets a raw log severity level onto Severity.
func SeverityFromLevel(level int) Severity {
	switch {
	case level <= 1:
		return SeverityInfo
	case level <= 3:
		return SeverityLow
	case level <= 5:
		return SeverityMedium
	case level <= 7:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Finding is the result of one analysis, as published to the bus.
type Finding struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Analysis  string                 `json:"analysis"`
	Source    string                 `json:"source,omitempty"`
	Severity  Severity               `json:"severity"`
	Summary   string                 `json:"summary"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// NewFinding creates a Finding with a generated ID and current timestamp.
func NewFinding(analysis string, severity Severity, summary string) *Finding {
	return &Finding{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Analysis:  analysis,
		Severity:  severity,
		Summary:   summary,
		Details:   make(map[string]interface{}),
	}
}

// Marshal serializes the finding to JSON.
func (f *Finding) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalFinding deserializes a Finding from JSON.
func UnmarshalFinding(data []byte) (*Finding, error) {
	var f Finding
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
