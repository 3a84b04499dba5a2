package main

// ---------------------------------------------------------------------------
// cmd_config.go — show, validate, initialize, or modify configuration
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/1sec-project/forensec/internal/core"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

func cmdConfig(args []string) {
	if len(args) > 0 {
		switch args[0] {
		case "set":
			cmdConfigSet(args[1:])
			return
		case "init":
			cmdConfigInit(args[1:])
			return
		}
	}

	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path (YAML or TOML)")
	validate := fs.Bool("validate", false, "Validate config and exit")
	format := fs.String("format", "yaml", "Output format: yaml, toml, json")
	output := fs.String("output", "", "Write output to file")
	fs.Parse(args)

	*configPath = envConfig(*configPath)

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		if *validate {
			fmt.Fprintf(os.Stderr, "%s Config invalid: %v\n", red("✗"), err)
			os.Exit(1)
		}
		errorf("loading config: %v", err)
	}

	if *validate {
		issues := configIssues(cfg)
		if len(issues) > 0 {
			fmt.Fprintf(os.Stderr, "%s Config has %d issue(s):\n", red("✗"), len(issues))
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "  - %s\n", issue)
			}
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "%s Config valid (%s).\n", green("✓"), *configPath)
		os.Exit(0)
	}

	w, cleanup := outputWriter(*output)
	defer cleanup()
	if err := writeConfig(w, *format, cfg); err != nil {
		errorf("%v", err)
	}
}

// configIssues reports settings that load but cannot work at runtime.
func configIssues(cfg *core.Config) []string {
	issues := make([]string, 0)
	if cfg.Analysis.AlertLimit < 0 {
		issues = append(issues, fmt.Sprintf("analysis.alert_limit %d is negative", cfg.Analysis.AlertLimit))
	}
	if cfg.Bus.Embedded && (cfg.Bus.Port < -1 || cfg.Bus.Port > 65535) {
		issues = append(issues, fmt.Sprintf("bus.port %d is out of range (1-65535, or -1 for random)", cfg.Bus.Port))
	}
	if !cfg.Bus.Embedded && cfg.Bus.URL == "" {
		issues = append(issues, "bus.url is required when bus.embedded is false")
	}
	if cfg.Service.Debounce < 0 {
		issues = append(issues, "service.debounce must not be negative")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "disabled": true, "off": true}
	if !validLevels[cfg.LogLevel()] {
		issues = append(issues, fmt.Sprintf("logging.level %q is not valid (debug, info, warn, error)", cfg.Logging.Level))
	}
	if f := cfg.Logging.Format; f != "console" && f != "json" {
		issues = append(issues, fmt.Sprintf("logging.format %q is not valid (console, json)", f))
	}
	return issues
}

func writeConfig(w io.Writer, format string, cfg *core.Config) error {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "toml":
		if err := toml.NewEncoder(w).Encode(cfg); err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		return nil
	default:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
}

func cmdConfigInit(args []string) {
	fs := flag.NewFlagSet("config-init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args)

	path := defaultConfigPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		errorf("%s already exists (use --force to overwrite)", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			errorf("creating %s: %v", dir, err)
		}
	}

	cfg := core.DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		f, err := os.Create(path)
		if err != nil {
			errorf("writing config: %v", err)
		}
		defer f.Close()
		if err := writeConfig(f, "toml", cfg); err != nil {
			errorf("%v", err)
		}
	} else if err := core.SaveConfig(cfg, path); err != nil {
		errorf("writing config: %v", err)
	}
	fmt.Fprintf(os.Stdout, "%s Wrote default config to %s\n", green("✓"), path)
}

func cmdConfigSet(args []string) {
	fs := flag.NewFlagSet("config-set", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path (YAML)")
	fs.Parse(args)

	*configPath = envConfig(*configPath)

	remaining := fs.Args()
	if len(remaining) < 2 {
		errorf("usage: forensec config set <key> <value>\n\nExamples:\n  forensec config set ingest.policy strict\n  forensec config set analysis.alert_limit 25\n  forensec config set bus.embedded true")
	}

	key := remaining[0]
	value := remaining[1]

	data, err := os.ReadFile(*configPath)
	if err != nil {
		errorf("reading config: %v", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		errorf("parsing config: %v", err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	if err := setNestedValue(raw, strings.Split(key, "."), value); err != nil {
		errorf("setting %s: %v", key, err)
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		errorf("marshaling config: %v", err)
	}

	// Reject edits that would leave the file unloadable.
	check := core.DefaultConfig()
	if err := yaml.Unmarshal(out, check); err != nil {
		errorf("setting %s: %v", key, err)
	}
	if err := check.Validate(); err != nil {
		errorf("setting %s: %v", key, err)
	}

	if err := os.WriteFile(*configPath, out, 0644); err != nil {
		errorf("writing config: %v", err)
	}

	fmt.Fprintf(os.Stdout, "%s Set %s = %s in %s\n", green("✓"), bold(key), value, *configPath)
}

func setNestedValue(m map[string]interface{}, path []string, value string) error {
	if len(path) == 0 || path[0] == "" {
		return fmt.Errorf("empty key path")
	}

	if len(path) == 1 {
		m[path[0]] = parseValue(value)
		return nil
	}

	next, ok := m[path[0]]
	if !ok {
		next = map[string]interface{}{}
		m[path[0]] = next
	}

	nextMap, ok := next.(map[string]interface{})
	if !ok {
		return fmt.Errorf("key %q is not a map", path[0])
	}

	return setNestedValue(nextMap, path[1:], value)
}

// parseValue converts a string to a bool, int, float, or leaves it as is.
func parseValue(s string) interface{} {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
