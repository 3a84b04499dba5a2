package main

// ---------------------------------------------------------------------------
// main.go — command dispatcher for the forensec CLI
//
// Command implementations live in cmd_*.go. Shared helpers are in
// helpers.go, analysis.go, output.go, and banner.go.
// ---------------------------------------------------------------------------

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var (
	version   = "0.4.0"
	commit    = "dev"
	buildDate = "unknown"
)

func main() {
	// A missing .env is normal; FORENSEC_* may come from the real environment.
	_ = godotenv.Load()

	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--version", "-V":
			printVersion(os.Stdout)
			os.Exit(0)
		case "--help", "-h", "help":
			if len(os.Args) >= 3 {
				cmdHelp(os.Args[2])
			} else {
				printUsage(os.Stdout)
			}
			os.Exit(0)
		}
	}

	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(0)
	}

	subcmd := os.Args[1]
	args := os.Args[2:]

	for _, a := range args {
		if a == "-h" || a == "--help" {
			cmdHelp(subcmd)
			os.Exit(0)
		}
	}

	switch subcmd {
	case "sessions":
		cmdSessions(args)
	case "timeline":
		cmdTimeline(args)
	case "alerts":
		cmdAlerts(args)
	case "spikes":
		cmdSpikes(args)
	case "trace":
		cmdTrace(args)
	case "check":
		cmdCheck(args)
	case "serve":
		cmdServe(args)
	case "config":
		cmdConfig(args)
	case "version":
		printVersion(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, red("error: ")+"unknown command %q\n\n", subcmd)
		if s := suggest(subcmd); s != "" {
			fmt.Fprintf(os.Stderr, "       Did you mean %s?\n\n", bold(s))
		}
		printUsage(os.Stderr)
		os.Exit(1)
	}
}
