package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/1sec-project/forensec/internal/forensics"
	"github.com/rs/zerolog"
)

// Column layout of a data line.
const (
	colTimestamp = iota
	colUserID
	colSessionID
	colActionType
	colTargetResource
	colSeverityLevel
	colBytesTransferred

	fieldCount
)

const maxLineBytes = 1024 * 1024

// Policy decides what happens to a malformed line.
type Policy int

const (
	// PolicyLenient skips malformed lines and keeps reading.
	PolicyLenient Policy = iota
	// PolicyStrict aborts ingestion at the first malformed line.
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "lenient"
}

// ParsePolicy converts "lenient" or "strict". Empty means lenient.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return PolicyLenient, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyLenient, fmt.Errorf("unknown malformed-record policy %q", s)
	}
}

// HeaderMode controls how the first line is treated.
type HeaderMode int

const (
	// HeaderAuto skips the first non-blank line when it names the
	// timestamp column.
	HeaderAuto HeaderMode = iota
	// HeaderAlways skips the first line unconditionally.
	HeaderAlways
	// HeaderNever treats every line as data.
	HeaderNever
)

func (m HeaderMode) String() string {
	switch m {
	case HeaderAlways:
		return "always"
	case HeaderNever:
		return "never"
	default:
		return "auto"
	}
}

// ParseHeaderMode converts "auto", "always" or "never". Empty means auto.
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HeaderAuto, nil
	case "always", "true", "yes":
		return HeaderAlways, nil
	case "never", "false", "no":
		return HeaderNever, nil
	default:
		return HeaderAuto, fmt.Errorf("unknown header mode %q", s)
	}
}

// Options configures a Loader.
type Options struct {
	Policy Policy
	Header HeaderMode
}

// Stats summarizes one ingestion pass.
type Stats struct {
	Lines         int  `json:"lines"`
	Records       int  `json:"records"`
	Skipped       int  `json:"skipped"`
	HeaderSkipped bool `json:"header_skipped"`
}

// Loader turns delimited access-log text into records. It reads its source
// exactly once and preserves line order.
type Loader struct {
	opts   Options
	logger zerolog.Logger
}

// NewLoader creates a Loader.
func NewLoader(opts Options, logger zerolog.Logger) *Loader {
	return &Loader{
		opts:   opts,
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// Read parses every data line of r. Under PolicyStrict the first malformed
// line aborts with a *MalformedRecordError; under PolicyLenient it is logged
// and counted in Stats.Skipped. A line longer than maxLineBytes is malformed.
func (l *Loader) Read(r io.Reader) ([]forensics.Record, Stats, error) {
	var (
		stats   Stats
		records []forensics.Record
		first   = true
	)

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		raw, tooLong, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%w: reading line %d: %v", ErrSourceUnavailable, stats.Lines+1, err)
		}
		stats.Lines++
		line := strings.TrimRight(string(raw), "\r")

		if !tooLong && strings.TrimSpace(line) == "" {
			continue
		}
		if first {
			first = false
			if l.opts.Header == HeaderAlways || (l.opts.Header == HeaderAuto && !tooLong && isHeader(line)) {
				stats.HeaderSkipped = true
				continue
			}
		}

		var rec forensics.Record
		var merr *MalformedRecordError
		if tooLong {
			merr = &MalformedRecordError{Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes)}
		} else if rec, err = ParseLine(line); err != nil {
			merr = err.(*MalformedRecordError)
		}
		if merr != nil {
			merr.Line = stats.Lines
			if l.opts.Policy == PolicyStrict {
				return nil, stats, merr
			}
			stats.Skipped++
			l.logger.Warn().
				Int("line", merr.Line).
				Str("field", merr.Field).
				Str("reason", merr.Reason).
				Msg("skipping malformed record")
			continue
		}
		records = append(records, rec)
	}

	stats.Records = len(records)
	l.logger.Debug().
		Int("lines", stats.Lines).
		Int("records", stats.Records).
		Int("skipped", stats.Skipped).
		Msg("ingestion complete")
	return records, stats, nil
}

// readLine returns the next line without its newline. A line longer than
// maxLineBytes is consumed to its end and reported as tooLong with nothing
// retained. io.EOF means no line is left.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}
		if !tooLong {
			if len(line)+len(chunk) > maxLineBytes {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch err {
		case nil:
			return line, tooLong, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if len(line) == 0 && !tooLong {
				return nil, false, io.EOF
			}
			return line, tooLong, nil
		default:
			return nil, false, err
		}
	}
}

// LoadFile opens path and reads it.
func (l *Loader) LoadFile(path string) ([]forensics.Record, Stats, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer rc.Close()

	records, stats, err := l.Read(rc)
	if err != nil {
		return nil, stats, fmt.Errorf("ingesting %s: %w", path, err)
	}
	l.logger.Info().
		Str("path", path).
		Int("records", stats.Records).
		Int("skipped", stats.Skipped).
		Msg("log loaded")
	return records, stats, nil
}

func isHeader(line string) bool {
	return strings.Contains(strings.ToLower(line), "timestamp")
}

// ParseLine parses one data line. Fields are trimmed; columns past the
// seventh are ignored. The returned error is always a *MalformedRecordError
// with Line unset.
func ParseLine(line string) (forensics.Record, error) {
	parts := strings.Split(line, ",")
	if len(parts) < fieldCount {
		return forensics.Record{}, &MalformedRecordError{
			Reason: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(parts)),
		}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	ts, err := strconv.ParseInt(parts[colTimestamp], 10, 64)
	if err != nil {
		return forensics.Record{}, numericError("timestamp", err)
	}
	sev, err := strconv.Atoi(parts[colSeverityLevel])
	if err != nil {
		return forensics.Record{}, numericError("severityLevel", err)
	}
	var bytes int64
	if raw := parts[colBytesTransferred]; raw != "" {
		bytes, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return forensics.Record{}, numericError("bytesTransferred", err)
		}
		if bytes < 0 {
			return forensics.Record{}, &MalformedRecordError{
				Field:  "bytesTransferred",
				Reason: "negative byte count",
			}
		}
	}

	return forensics.Record{
		Timestamp:        ts,
		UserID:           parts[colUserID],
		SessionID:        parts[colSessionID],
		ActionType:       parts[colActionType],
		TargetResource:   parts[colTargetResource],
		SeverityLevel:    sev,
		BytesTransferred: bytes,
	}, nil
}

func numericError(field string, err error) *MalformedRecordError {
	return &MalformedRecordError{Field: field, Reason: "not an integer", Err: err}
}
