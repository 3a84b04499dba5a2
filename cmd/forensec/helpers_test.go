package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"strings"
	"testing"
)

// ─── suggest ──────────────────────────────────────────────────────────────────

func TestSuggest_PrefixMatch(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"sess", "sessions"},
		{"time", "timeline"},
		{"al", "alerts"},
		{"sp", "spikes"},
		{"tr", "trace"},
		{"ser", "serve"},
		{"con", "config"},
		{"ver", "version"},
		{"hel", "help"},
	}
	for _, tc := range tests {
		got := suggest(tc.input)
		if got != tc.want {
			t.Errorf("suggest(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSuggest_TypoCorrection(t *testing.T) {
	if got := suggest("trase"); got != "trace" {
		t.Errorf("suggest('trase') = %q, want 'trace'", got)
	}
	if got := suggest("chack"); got != "check" {
		t.Errorf("suggest('chack') = %q, want 'check'", got)
	}
}

func TestSuggest_NoMatch(t *testing.T) {
	if got := suggest("zzzzzzzzz"); got != "" {
		t.Errorf("suggest('zzzzzzzzz') = %q, want empty", got)
	}
	if got := suggest(""); got != "" {
		t.Errorf("suggest('') = %q, want empty", got)
	}
}

func TestSuggest_CaseInsensitive(t *testing.T) {
	if got := suggest("SPIKES"); got != "spikes" {
		t.Errorf("suggest('SPIKES') = %q, want 'spikes'", got)
	}
}

// ─── parseValue ───────────────────────────────────────────────────────────────

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  interface{}
	}{
		{"true", true},
		{"False", false},
		{"25", 25},
		{"-1", -1},
		{"0.5", 0.5},
		{"250ms", "250ms"},
		{"strict", "strict"},
		{"", ""},
	}
	for _, tc := range tests {
		got := parseValue(tc.input)
		if got != tc.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tc.input, got, got, tc.want, tc.want)
		}
	}
}

// ─── setNestedValue ───────────────────────────────────────────────────────────

func TestSetNestedValue_MultiLevel(t *testing.T) {
	m := map[string]interface{}{
		"analysis": map[string]interface{}{
			"alert_limit": 10,
		},
	}
	if err := setNestedValue(m, []string{"analysis", "alert_limit"}, "25"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	analysis := m["analysis"].(map[string]interface{})
	if analysis["alert_limit"] != 25 {
		t.Errorf("analysis.alert_limit = %v, want 25", analysis["alert_limit"])
	}
}

func TestSetNestedValue_CreateIntermediate(t *testing.T) {
	m := map[string]interface{}{}
	if err := setNestedValue(m, []string{"ingest", "policy"}, "strict"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ingest := m["ingest"].(map[string]interface{})
	if ingest["policy"] != "strict" {
		t.Errorf("ingest.policy = %v, want 'strict'", ingest["policy"])
	}
}

func TestSetNestedValue_Errors(t *testing.T) {
	if err := setNestedValue(map[string]interface{}{}, []string{}, "v"); err == nil {
		t.Error("expected error for empty path")
	}
	if err := setNestedValue(map[string]interface{}{}, []string{""}, "v"); err == nil {
		t.Error("expected error for empty key")
	}
	m := map[string]interface{}{"bus": "nats"}
	if err := setNestedValue(m, []string{"bus", "url"}, "v"); err == nil {
		t.Error("expected error when intermediate is not a map")
	}
}

// ─── envConfig ────────────────────────────────────────────────────────────────

func TestEnvConfig_FlagOverride(t *testing.T) {
	t.Setenv("FORENSEC_CONFIG", "/from/env.yaml")
	if got := envConfig("/custom/path.toml"); got != "/custom/path.toml" {
		t.Errorf("envConfig = %q, want /custom/path.toml", got)
	}
}

func TestEnvConfig_Env(t *testing.T) {
	t.Setenv("FORENSEC_CONFIG", "/from/env.yaml")
	if got := envConfig(defaultConfigPath); got != "/from/env.yaml" {
		t.Errorf("envConfig = %q, want /from/env.yaml", got)
	}
}

func TestEnvConfig_Default(t *testing.T) {
	t.Setenv("FORENSEC_CONFIG", "")
	if got := envConfig(defaultConfigPath); got != defaultConfigPath {
		t.Errorf("envConfig = %q, want %s", got, defaultConfigPath)
	}
}

// ─── Flag helpers ─────────────────────────────────────────────────────────────

func TestParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	n := fs.Int("n", 0, "")
	jsonOut := fs.Bool("json", false, "")

	positional, err := parseInterspersed(fs, []string{"access.csv", "-n", "3", "--json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positional) != 1 || positional[0] != "access.csv" {
		t.Errorf("positional = %v, want [access.csv]", positional)
	}
	if *n != 3 || !*jsonOut {
		t.Errorf("n = %d, json = %v; want 3, true", *n, *jsonOut)
	}
	if !flagWasSet(fs, "n") {
		t.Error("flagWasSet(n) = false, want true")
	}
}

func TestParseInterspersed_Unset(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("n", 7, "")

	positional, err := parseInterspersed(fs, []string{"a.csv", "b.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positional) != 2 || positional[1] != "b.csv" {
		t.Errorf("positional = %v, want [a.csv b.csv]", positional)
	}
	if flagWasSet(fs, "n") {
		t.Error("flagWasSet(n) = true for a defaulted flag")
	}
}

func TestParseInterspersed_BadFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	if _, err := parseInterspersed(fs, []string{"a.csv", "--nope"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

// ─── OutputFormat ─────────────────────────────────────────────────────────────

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  OutputFormat
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{" csv ", FormatCSV},
		{"table", FormatTable},
		{"", FormatTable},
		{"sarif", FormatTable},
	}
	for _, tc := range tests {
		if got := parseFormat(tc.input); got != tc.want {
			t.Errorf("parseFormat(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestFormatName(t *testing.T) {
	for _, f := range []OutputFormat{FormatTable, FormatJSON, FormatCSV} {
		if got := parseFormat(formatName(f)); got != f {
			t.Errorf("parseFormat(formatName(%v)) = %v", f, got)
		}
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "SESSION_ID", "SEVERITY")
	tbl.AddRow("s1", "9")
	tbl.AddRow("session-long", "3")
	tbl.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "┌") || !strings.HasPrefix(lines[5], "└") {
		t.Error("table should have box-drawing borders")
	}
	if !strings.Contains(lines[4], "session-long") {
		t.Errorf("last row = %q", lines[4])
	}
	// Every line has the same display width.
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if len([]rune(l)) != width {
			t.Errorf("line %d width %d, want %d", i, len([]rune(l)), width)
		}
	}
}

func TestTable_EmptyHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf).Render()
	if buf.Len() != 0 {
		t.Error("empty headers should produce no output")
	}
}

func TestTable_PadShortRow(t *testing.T) {
	tbl := NewTable(&bytes.Buffer{}, "A", "B", "C")
	tbl.AddRow("only_one")
	tbl.AddRow("1", "2", "3", "extra")
	rows := tbl.Rows()
	if len(rows[0]) != 3 || rows[0][2] != "" {
		t.Errorf("short row = %q", rows[0])
	}
	if len(rows[1]) != 3 {
		t.Errorf("long row = %q, want truncated to 3", rows[1])
	}
}

// ─── writeCSV ─────────────────────────────────────────────────────────────────

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSV(&buf, []string{"TIMESTAMP", "NEXT_LARGER"}, [][]string{
		{"1", "3"},
		{"2", "3"},
	})
	if err != nil {
		t.Fatalf("writeCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("CSV parse error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0][0] != "timestamp" || records[0][1] != "next_larger" {
		t.Errorf("header = %v, want lowercase column names", records[0])
	}
	if records[2][1] != "3" {
		t.Errorf("second data row = %v", records[2])
	}
}
