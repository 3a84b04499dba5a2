package main

// ---------------------------------------------------------------------------
// banner.go — banner, version, usage and per-command help
// ---------------------------------------------------------------------------

import (
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"runtime/debug"
)

func bannerText() string {
	text := `
    forensec  ·  access-log forensics
    ─────────────────────────────────
`
	return cyan(text)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "forensec v%s", version)
	if commit != "dev" {
		fmt.Fprintf(w, " (%s)", commit[:min(7, len(commit))])
	}
	if buildDate != "unknown" {
		fmt.Fprintf(w, " built %s", buildDate)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(w, " %s", bi.GoVersion)
	}
	fmt.Fprintf(w, " %s/%s", goruntime.GOOS, goruntime.GOARCH)
	fmt.Fprintln(w)
}

type commandHelp struct {
	summary string
	usage   string
	flags   [][2]string
}

var analysisFlagHelp = [][2]string{
	{"--config <path>", "Config file path (default: " + defaultConfigPath + ", env: FORENSEC_CONFIG)"},
	{"--strict", "Abort on the first malformed record (env: FORENSEC_STRICT)"},
	{"--header <mode>", "Header handling: auto, always, never"},
	{"--format <fmt>", "Output format: table, json, csv (default: table)"},
	{"--json", "Shorthand for --format json"},
	{"--output <path>", "Write output to file"},
	{"--publish", "Publish the result as a finding on the NATS bus"},
	{"--log-level <lvl>", "Log level override: debug, info, warn, error"},
}

func withAnalysisFlags(extra ...[2]string) [][2]string {
	return append(extra, analysisFlagHelp...)
}

var helpTopics = map[string]commandHelp{
	"sessions": {
		summary: "List sessions whose login/logout lifecycle is invalid",
		usage:   "forensec sessions [flags] <log.csv>",
		flags:   withAnalysisFlags(),
	},
	"timeline": {
		summary: "Print the ordered actions of one session",
		usage:   "forensec timeline --session <id> [flags] <log.csv>",
		flags:   withAnalysisFlags([2]string{"--session <id>", "Session to reconstruct (required)"}),
	},
	"alerts": {
		summary: "Show the N most severe records",
		usage:   "forensec alerts [-n N] [flags] <log.csv>",
		flags:   withAnalysisFlags([2]string{"-n <count>", "Number of alerts (default: analysis.alert_limit)"}),
	},
	"spikes": {
		summary: "Map each transfer to the next strictly larger transfer",
		usage:   "forensec spikes [flags] <log.csv>",
		flags:   withAnalysisFlags(),
	},
	"trace": {
		summary: "Find the shortest contamination path between two resources",
		usage:   "forensec trace --from <resource> --to <resource> [flags] <log.csv>",
		flags: withAnalysisFlags(
			[2]string{"--from <resource>", "Starting resource (required)"},
			[2]string{"--to <resource>", "Target resource (required)"},
		),
	},
	"check": {
		summary: "Report ingest statistics and diagnostics for a log extract",
		usage:   "forensec check [flags] <log.csv>",
		flags:   withAnalysisFlags(),
	},
	"serve": {
		summary: "Answer analysis queries over NATS request/reply",
		usage:   "forensec serve [flags] [log.csv]",
		flags: [][2]string{
			{"--config <path>", "Config file path"},
			{"--log <path>", "Log extract to serve (default: service.log_path, env: FORENSEC_LOG_PATH)"},
			{"--nats-url <url>", "NATS server URL (env: FORENSEC_NATS_URL)"},
			{"--embedded", "Start an in-process NATS server"},
			{"--no-watch", "Do not reload when the log file changes"},
			{"--publish", "Publish every answered query as a finding"},
			{"--strict", "Abort a reload on the first malformed record"},
			{"--log-level <lvl>", "Log level override"},
			{"--quiet, -q", "Suppress banner and non-essential output"},
		},
	},
	"config": {
		summary: "Show, validate, initialize, or set configuration",
		usage:   "forensec config [init [path] | set <key> <value>] [flags]",
		flags: [][2]string{
			{"--config <path>", "Config file path"},
			{"--validate", "Validate config and exit"},
			{"--format <fmt>", "Output format: yaml, toml, json (default: yaml)"},
			{"--output <path>", "Write output to file"},
			{"--force", "init: overwrite an existing file"},
		},
	},
	"version": {
		summary: "Print version and build info",
		usage:   "forensec version",
	},
	"help": {
		summary: "Show help for a command",
		usage:   "forensec help <command>",
	},
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, bannerText())
	fmt.Fprintf(w, "  %s\n\n", dim("v"+version))
	fmt.Fprintf(w, "%s\n\n", bold("USAGE"))
	fmt.Fprintf(w, "  forensec <command> [flags]\n\n")
	fmt.Fprintf(w, "%s\n\n", bold("COMMANDS"))
	for _, name := range commands {
		fmt.Fprintf(w, "  %-14s  %s\n", bold(name), helpTopics[name].summary)
	}
	fmt.Fprintf(w, "\n%s\n\n", bold("ENVIRONMENT VARIABLES"))
	fmt.Fprintf(w, "  %-22s  %s\n", "FORENSEC_CONFIG", "Default config file path")
	fmt.Fprintf(w, "  %-22s  %s\n", "FORENSEC_NATS_URL", "NATS server URL")
	fmt.Fprintf(w, "  %-22s  %s\n", "FORENSEC_STRICT", "Abort on malformed records (true/false)")
	fmt.Fprintf(w, "  %-22s  %s\n", "FORENSEC_LOG_LEVEL", "Log level")
	fmt.Fprintf(w, "  %-22s  %s\n", "FORENSEC_LOG_PATH", "Log extract served by 'serve'")
	fmt.Fprintf(w, "  %s\n", dim("Variables may also be set in ./.env"))
	fmt.Fprintf(w, "\n%s\n\n", bold("EXAMPLES"))
	fmt.Fprintf(w, "  %s\n", dim("# Sessions with broken login/logout pairing"))
	fmt.Fprintf(w, "  forensec sessions access.csv\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Top 5 alerts as JSON"))
	fmt.Fprintf(w, "  forensec alerts -n 5 --format json access.csv\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# How did a payload reach the database?"))
	fmt.Fprintf(w, "  forensec trace --from /tmp/payload --to /srv/db access.csv.zst\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Serve queries with an embedded NATS server"))
	fmt.Fprintf(w, "  forensec serve --embedded access.csv\n\n")
	fmt.Fprintf(w, "Run %s for detailed help on any command.\n\n", bold("forensec help <command>"))
}

func printCommandHelp(w io.Writer, name string) bool {
	h, ok := helpTopics[name]
	if !ok {
		return false
	}
	fmt.Fprintf(w, "%s\n\n", h.summary)
	fmt.Fprintf(w, "%s\n\n  %s\n", bold("USAGE"), h.usage)
	if len(h.flags) > 0 {
		fmt.Fprintf(w, "\n%s\n\n", bold("FLAGS"))
		for _, f := range h.flags {
			fmt.Fprintf(w, "  %-22s  %s\n", f[0], f[1])
		}
	}
	fmt.Fprintln(w)
	return true
}

func cmdHelp(name string) {
	if printCommandHelp(os.Stdout, name) {
		return
	}
	fmt.Fprintf(os.Stderr, red("error: ")+"no help for %q\n", name)
	if s := suggest(name); s != "" {
		fmt.Fprintf(os.Stderr, "       Did you mean %s?\n", bold(s))
	}
	os.Exit(1)
}
