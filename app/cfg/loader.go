package cfg

import (
	"cmp"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/newswatch.db" description:"Path to the SQLite database file"`

	// Application configuration
	FeedsDir         string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed catalog files"`
	Topics           string `long:"topics" env:"TOPICS" description:"Comma-separated topic names to track (e.g., Chrome,Firefox)"`
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount      int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for feed downloads"`
	DispatchInterval int    `long:"dispatch-interval" env:"DISPATCH_INTERVAL" default:"900" description:"Interval in seconds between dispatching downloads for every feed"`
	StatsInterval    int    `long:"stats-interval" env:"STATS_INTERVAL" default:"3600" description:"Interval in seconds between topic stats refreshes"`
	FetchTimeout     int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed download timeout in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Newswatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Reporting timezone for stored timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	cfg, err := parse(os.Args[1:])
	if err != nil || cfg == nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", raw.WorkerCount)
	}
	if raw.DispatchInterval < 1 || raw.StatsInterval < 1 || raw.FetchTimeout < 1 {
		return nil, fmt.Errorf("intervals and timeouts must be positive")
	}

	return &Cfg{
		DBPath:           raw.DBPath,
		FeedsDir:         raw.FeedsDir,
		Topics:           splitTopics(raw.Topics),
		Port:             raw.Port,
		WorkerCount:      raw.WorkerCount,
		DispatchInterval: raw.DispatchInterval,
		StatsInterval:    raw.StatsInterval,
		FetchTimeout:     raw.FetchTimeout,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}, nil
}

// splitTopics keeps topic names case-sensitive and drops blanks and repeats.
func splitTopics(s string) []string {
	var topics []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		topics = append(topics, name)
	}
	return topics
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
