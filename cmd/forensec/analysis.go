package main

// ---------------------------------------------------------------------------
// analysis.go — shared flags, log loading, and finding publication for the
// analysis commands
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/1sec-project/forensec/internal/core"
	"github.com/1sec-project/forensec/internal/forensics"
	"github.com/1sec-project/forensec/internal/ingest"
	"github.com/rs/zerolog"
)

// analysisFlags holds the flags every analysis command accepts.
type analysisFlags struct {
	fs         *flag.FlagSet
	configPath *string
	strict     *bool
	header     *string
	format     *string
	jsonOut    *bool
	output     *string
	publish    *bool
	logLevel   *string
}

func newAnalysisFlags(name string) *analysisFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &analysisFlags{
		fs:         fs,
		configPath: fs.String("config", defaultConfigPath, "Config file path (YAML or TOML)"),
		strict:     fs.Bool("strict", false, "Abort on the first malformed record"),
		header:     fs.String("header", "", "Header handling: auto, always, never"),
		format:     fs.String("format", "table", "Output format: table, json, csv"),
		jsonOut:    fs.Bool("json", false, "Output as JSON"),
		output:     fs.String("output", "", "Write output to file"),
		publish:    fs.Bool("publish", false, "Publish the result as a finding on the NATS bus"),
		logLevel:   fs.String("log-level", "", "Log level override: debug, info, warn, error"),
	}
}

// analysisRun is a loaded log extract plus everything needed to analyze and
// report on it.
type analysisRun struct {
	cfg      *core.Config
	logger   zerolog.Logger
	analyzer *forensics.Analyzer
	source   string
	records  []forensics.Record
	stats    ingest.Stats
	format   OutputFormat
	output   string
	publish  bool
}

// resolveConfig loads the config file and applies command-line overrides.
func (a *analysisFlags) resolveConfig() (*core.Config, error) {
	cfg, err := core.LoadConfig(envConfig(*a.configPath))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagWasSet(a.fs, "strict") {
		cfg.Ingest.Policy = strictPolicy(*a.strict)
	}
	if *a.header != "" {
		cfg.Ingest.Header = *a.header
	}
	if *a.logLevel != "" {
		cfg.Logging.Level = *a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// strictPolicy maps the --strict flag onto an ingest policy name.
func strictPolicy(strict bool) string {
	if strict {
		return ingest.PolicyStrict.String()
	}
	return ingest.PolicyLenient.String()
}

// logSource picks the log extract from the positional argument, falling back
// to service.log_path.
func logSource(positional []string, cfg *core.Config) (string, error) {
	switch {
	case len(positional) > 1:
		return "", fmt.Errorf("expected one log file, got %d", len(positional))
	case len(positional) == 1:
		return positional[0], nil
	case cfg.Service.LogPath != "":
		return cfg.Service.LogPath, nil
	default:
		return "", fmt.Errorf("no log file given (pass a path or set service.log_path)")
	}
}

// load parses args, reads the config and ingests the log extract. Failures
// are process-level errors.
func (a *analysisFlags) load(args []string) *analysisRun {
	positional, err := parseInterspersed(a.fs, args)
	if err != nil {
		errorf("%v", err)
	}
	if *a.jsonOut {
		*a.format = "json"
	}

	cfg, err := a.resolveConfig()
	if err != nil {
		errorf("%v", err)
	}
	source, err := logSource(positional, cfg)
	if err != nil {
		errorf("%v", err)
	}

	logger := core.NewLogger(cfg.Logging, os.Stderr)
	loader := ingest.NewLoader(cfg.IngestOptions(), logger)
	records, stats, err := loader.LoadFile(source)
	if err != nil {
		errorf("%v", err)
	}
	if stats.Skipped > 0 {
		warnf("%d malformed line(s) skipped in %s", stats.Skipped, source)
	}

	return &analysisRun{
		cfg:      cfg,
		logger:   logger,
		analyzer: forensics.NewAnalyzer(logger),
		source:   source,
		records:  records,
		stats:    stats,
		format:   parseFormat(*a.format),
		output:   *a.output,
		publish:  *a.publish,
	}
}

// report writes the rendered table and, when requested, publishes the
// finding.
func (r *analysisRun) report(t func(w *os.File) error, finding *core.Finding) {
	w, closeFn := outputWriter(r.output)
	defer closeFn()
	if err := t(w); err != nil {
		errorf("writing output: %v", err)
	}
	r.logger.Debug().
		Str("format", formatName(r.format)).
		Str("source", r.source).
		Int("records", len(r.records)).
		Msg("report written")
	if r.publish {
		finding.Source = r.source
		if err := publishFinding(&r.cfg.Bus, r.logger, finding); err != nil {
			errorf("%v", err)
		}
		fmt.Fprintf(os.Stderr, "%s Published %s finding (%s)\n", green("✓"), finding.Analysis, finding.Severity)
	}
}

// publishFinding connects to the bus, sends one finding and disconnects.
func publishFinding(cfg *core.BusConfig, logger zerolog.Logger, f *core.Finding) error {
	bus, err := core.NewFindingBus(cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting to finding bus: %w", err)
	}
	defer bus.Close()
	if err := bus.Publish(f); err != nil {
		return fmt.Errorf("publishing finding: %w", err)
	}
	if err := bus.Flush(2 * time.Second); err != nil {
		return fmt.Errorf("flushing finding: %w", err)
	}
	return nil
}
