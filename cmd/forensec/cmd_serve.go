package main

// ---------------------------------------------------------------------------
// cmd_serve.go — answer analysis queries over NATS
// ---------------------------------------------------------------------------

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/1sec-project/forensec/internal/core"
	"github.com/1sec-project/forensec/internal/service"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path (YAML or TOML)")
	logPath := fs.String("log", "", "Log extract to serve (default: service.log_path)")
	natsURL := fs.String("nats-url", "", "NATS server URL override")
	embedded := fs.Bool("embedded", false, "Start an in-process NATS server")
	noWatch := fs.Bool("no-watch", false, "Do not reload when the log file changes")
	publish := fs.Bool("publish", false, "Publish every answered query as a finding")
	strict := fs.Bool("strict", false, "Abort a reload on the first malformed record")
	logLevel := fs.String("log-level", "", "Log level override: debug, info, warn, error")
	quiet := fs.Bool("quiet", false, "Suppress banner and non-essential output")
	fs.BoolVar(quiet, "q", false, "Suppress banner and non-essential output")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		errorf("%v", err)
	}

	cfg, err := core.LoadConfig(envConfig(*configPath))
	if err != nil {
		errorf("loading config: %v", err)
	}
	if len(positional) > 0 {
		*logPath = positional[0]
	}
	if *logPath != "" {
		cfg.Service.LogPath = *logPath
	}
	if *natsURL != "" {
		cfg.Bus.URL = *natsURL
	}
	if *embedded {
		cfg.Bus.Embedded = true
	}
	if *noWatch {
		cfg.Service.Watch = false
	}
	if *publish {
		cfg.Service.PublishFindings = true
	}
	if flagWasSet(fs, "strict") {
		cfg.Ingest.Policy = strictPolicy(*strict)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if !*quiet {
		fmt.Fprint(os.Stderr, bannerText())
	}

	logger := core.NewLogger(cfg.Logging, os.Stderr)
	srv, err := service.NewServer(cfg, logger)
	if err != nil {
		errorf("starting query service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*quiet {
		fmt.Fprintf(os.Stderr, "%s Serving %s (%d records) on %s\n",
			green("✓"), cfg.Service.LogPath, srv.Store().Current().Len(), srv.Bus().Subject("query", ">"))
		fmt.Fprintf(os.Stderr, "%s Press Ctrl+C to stop\n", dim("▸"))
	}

	if err := srv.Run(ctx); err != nil {
		errorf("query service: %v", err)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "%s Stopped\n", dim("▸"))
	}
}
