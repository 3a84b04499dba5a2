package ingest

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/1sec-project/forensec/internal/forensics"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

const sampleLog = `timestamp,userId,sessionId,actionType,targetResource,severityLevel,bytesTransferred
1000,alice,s-a-01,LOGIN,/usr/bin/sshd,1,0

1005,alice,s-a-01,READ,/etc/passwd,4,2048
1010, bob , s-b-01 , LOGIN ,,2,
1020,alice,s-a-01,LOGOUT,,1,0
`

func newTestLoader(policy Policy, header HeaderMode) *Loader {
	return NewLoader(Options{Policy: policy, Header: header}, zerolog.Nop())
}

// ─── ParseLine ────────────────────────────────────────────────────────────────

func TestParseLine_Fields(t *testing.T) {
	rec, err := ParseLine(" 42 , u1 , s1 , READ , /data/x , 7 , 512 ")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	want := forensics.Record{
		Timestamp:        42,
		UserID:           "u1",
		SessionID:        "s1",
		ActionType:       "READ",
		TargetResource:   "/data/x",
		SeverityLevel:    7,
		BytesTransferred: 512,
	}
	if rec != want {
		t.Errorf("ParseLine = %+v, want %+v", rec, want)
	}
}

func TestParseLine_EmptyBytesIsZero(t *testing.T) {
	rec, err := ParseLine("1,u,s,LOGIN,,3,")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rec.BytesTransferred != 0 || rec.TargetResource != "" {
		t.Errorf("got bytes=%d resource=%q, want 0 and empty", rec.BytesTransferred, rec.TargetResource)
	}
}

func TestParseLine_ExtraFieldsIgnored(t *testing.T) {
	rec, err := ParseLine("1,u,s,LOGIN,r,3,10,extra,more")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if rec.BytesTransferred != 10 {
		t.Errorf("BytesTransferred = %d, want 10", rec.BytesTransferred)
	}
}

func TestParseLine_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		field string
	}{
		{"too few fields", "1,u,s,LOGIN,r,3", ""},
		{"bad timestamp", "abc,u,s,LOGIN,r,3,0", "timestamp"},
		{"empty timestamp", ",u,s,LOGIN,r,3,0", "timestamp"},
		{"bad severity", "1,u,s,LOGIN,r,high,0", "severityLevel"},
		{"bad bytes", "1,u,s,LOGIN,r,3,lots", "bytesTransferred"},
		{"negative bytes", "1,u,s,LOGIN,r,3,-5", "bytesTransferred"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLine(tc.line)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("error %v should match ErrMalformedRecord", err)
			}
			var merr *MalformedRecordError
			if !errors.As(err, &merr) {
				t.Fatalf("error %T is not *MalformedRecordError", err)
			}
			if merr.Field != tc.field {
				t.Errorf("Field = %q, want %q", merr.Field, tc.field)
			}
		})
	}
}

// ─── Loader.Read ──────────────────────────────────────────────────────────────

func TestRead_SkipsHeaderAndBlankLines(t *testing.T) {
	records, stats, err := newTestLoader(PolicyLenient, HeaderAuto).Read(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if !stats.HeaderSkipped {
		t.Error("expected header to be skipped")
	}
	if stats.Records != 4 || stats.Skipped != 0 || stats.Lines != 6 {
		t.Errorf("stats = %+v", stats)
	}
	if records[2].UserID != "bob" || records[2].SessionID != "s-b-01" || records[2].ActionType != "LOGIN" {
		t.Errorf("fields not trimmed: %+v", records[2])
	}
	if records[0].Timestamp != 1000 || records[3].Timestamp != 1020 {
		t.Error("file order not preserved")
	}
}

func TestRead_AutoHeaderAbsent(t *testing.T) {
	input := "1,u,s,LOGIN,,1,0\n2,u,s,LOGOUT,,1,0\n"
	records, stats, err := newTestLoader(PolicyLenient, HeaderAuto).Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 2 || stats.HeaderSkipped {
		t.Errorf("got %d records, header skipped=%v; want 2, false", len(records), stats.HeaderSkipped)
	}
}

func TestRead_HeaderAlwaysSkipsFirstLine(t *testing.T) {
	input := "ts,user,session,action,resource,sev,bytes\n1,u,s,LOGIN,,1,0\n"
	records, _, err := newTestLoader(PolicyStrict, HeaderAlways).Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestRead_HeaderNeverTreatsFirstLineAsData(t *testing.T) {
	_, _, err := newTestLoader(PolicyStrict, HeaderNever).Read(strings.NewReader(sampleLog))
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected malformed record error for header line, got %v", err)
	}
}

func TestRead_LenientSkipsMalformed(t *testing.T) {
	input := "1,u,s,LOGIN,,1,0\nbroken line\n3,u,s,READ,r,x,0\n4,u,s,LOGOUT,,1,0\n"
	records, stats, err := newTestLoader(PolicyLenient, HeaderAuto).Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("lenient Read should not fail: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}
}

func TestRead_StrictAbortsAtFirstMalformed(t *testing.T) {
	input := "1,u,s,LOGIN,,1,0\n2,u,s,READ,r,1,0\nbroken line\n4,u,s,READ,r,x,0\n"
	records, _, err := newTestLoader(PolicyStrict, HeaderAuto).Read(strings.NewReader(input))
	if err == nil {
		t.Fatal("strict Read should fail")
	}
	if records != nil {
		t.Errorf("strict failure should return no records, got %d", len(records))
	}
	var merr *MalformedRecordError
	if !errors.As(err, &merr) {
		t.Fatalf("error %T is not *MalformedRecordError", err)
	}
	if merr.Line != 3 {
		t.Errorf("Line = %d, want 3", merr.Line)
	}
}

func TestRead_OversizedLine(t *testing.T) {
	long := "2,u,s,READ," + strings.Repeat("x", 2*maxLineBytes) + ",1,0"
	input := "timestamp,userId,sessionId,actionType,targetResource,severityLevel,bytesTransferred\n" +
		"1,u,s,LOGIN,,1,0\n" + long + "\n3,u,s,LOGOUT,,1,0\n"

	records, stats, err := newTestLoader(PolicyLenient, HeaderAuto).Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("lenient Read should skip the long line: %v", err)
	}
	if len(records) != 2 || records[0].Timestamp != 1 || records[1].Timestamp != 3 {
		t.Errorf("records = %+v, want timestamps 1 and 3", records)
	}
	if stats.Lines != 4 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 4 lines and 1 skipped", stats)
	}

	_, _, err = newTestLoader(PolicyStrict, HeaderAuto).Read(strings.NewReader(input))
	var merr *MalformedRecordError
	if !errors.As(err, &merr) {
		t.Fatalf("strict Read error = %v, want *MalformedRecordError", err)
	}
	if merr.Line != 3 {
		t.Errorf("Line = %d, want 3", merr.Line)
	}
	if errors.Is(err, ErrSourceUnavailable) {
		t.Error("an oversized line is not a source failure")
	}
}

func TestRead_LineAtSizeLimit(t *testing.T) {
	line := "1,u,s,LOGIN,"
	line += strings.Repeat("r", maxLineBytes-len(line)-len(",1,0")) + ",1,0"
	records, _, err := newTestLoader(PolicyStrict, HeaderNever).Read(strings.NewReader(line))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 || len(records[0].TargetResource) != maxLineBytes-len("1,u,s,LOGIN,,1,0") {
		t.Errorf("got %d records", len(records))
	}
}

func TestRead_HeaderAlwaysIgnoresLeadingBlankLines(t *testing.T) {
	input := "\n  \ntimestamp,userId,sessionId,actionType,targetResource,severityLevel,bytesTransferred\n1,u,s,LOGIN,,1,0\n"
	records, stats, err := newTestLoader(PolicyStrict, HeaderAlways).Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 || !stats.HeaderSkipped {
		t.Errorf("got %d records, header skipped=%v; want 1, true", len(records), stats.HeaderSkipped)
	}
}

// ─── Open / LoadFile ──────────────────────────────────────────────────────────

func TestLoadFile_Missing(t *testing.T) {
	_, _, err := newTestLoader(PolicyLenient, HeaderAuto).LoadFile(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestLoadFile_Compressed(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "access.csv")
	if err := os.WriteFile(plain, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}

	zstPath := filepath.Join(dir, "access.csv.zst")
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(zstPath, enc.EncodeAll([]byte(sampleLog), nil), 0o644); err != nil {
		t.Fatal(err)
	}
	enc.Close()

	gzPath := filepath.Join(dir, "access.csv.gz")
	gf, err := os.Create(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(gf)
	if _, err := gw.Write([]byte(sampleLog)); err != nil {
		t.Fatal(err)
	}
	gw.Close()
	gf.Close()

	loader := newTestLoader(PolicyStrict, HeaderAuto)
	want, _, err := loader.LoadFile(plain)
	if err != nil {
		t.Fatalf("LoadFile(plain): %v", err)
	}
	for _, p := range []string{zstPath, gzPath} {
		got, _, err := loader.LoadFile(p)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", filepath.Base(p), err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: records differ from plain file", filepath.Base(p))
		}
	}
}

// ─── Policy / HeaderMode parsing ──────────────────────────────────────────────

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{"": PolicyLenient, "lenient": PolicyLenient, "STRICT": PolicyStrict}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePolicy("paranoid"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestParseHeaderMode(t *testing.T) {
	cases := map[string]HeaderMode{"": HeaderAuto, "auto": HeaderAuto, "always": HeaderAlways, "never": HeaderNever, "true": HeaderAlways}
	for in, want := range cases {
		got, err := ParseHeaderMode(in)
		if err != nil || got != want {
			t.Errorf("ParseHeaderMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseHeaderMode("sometimes"); err == nil {
		t.Error("expected error for unknown header mode")
	}
}
