package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/motocodex/motofeeds/pkg/config"
	"github.com/motocodex/motofeeds/pkg/db"
	"github.com/motocodex/motofeeds/pkg/feed"
	"github.com/motocodex/motofeeds/pkg/ingest"
	"github.com/motocodex/motofeeds/pkg/youtube"
	"github.com/motocodex/motofeeds/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Printf("[ERROR] can't load config: %v", err)
		os.Exit(1)
	}

	setupLog(opts.Debug, cfg.Ingest.Secret)

	log.Printf("[INFO] starting motofeeds version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		log.Printf("[ERROR] motofeeds failed: %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()

	log.Print("[INFO] shutdown complete")
}

// run wires the store, orchestrator and HTTP server together
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	database, err := db.New(db.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			log.Printf("[WARN] can't close database: %v", closeErr)
		}
	}()

	if err := seedSources(ctx, database, cfg.Sources); err != nil {
		return fmt.Errorf("seed sources: %w", err)
	}

	fetcher := feed.NewFetcher(cfg.Ingest.SourceTimeout, cfg.Ingest.UserAgent)
	resolver := youtube.NewResolver(cfg.Ingest.ResolveTimeout, cfg.Ingest.UserAgent)
	runner := ingest.NewRunner(database, fetcher, resolver, ingest.Config{
		SourceTimeout: cfg.Ingest.SourceTimeout,
		HalfLife:      cfg.Ingest.HalfLife,
	})

	srv := server.New(cfg, database, runner, server.Options{
		Secret:   cfg.Ingest.Secret,
		Version:  revision,
		Debug:    debug,
		HalfLife: cfg.Ingest.HalfLife,
	})

	return srv.Run(ctx)
}

// seedSources upserts the configured roster into the store, leaving status
// snapshots and externally-added sources alone
func seedSources(ctx context.Context, database *db.DB, sources []config.SourceConfig) error {
	for _, sc := range sources {
		src := &db.Source{
			Platform:  sc.Platform,
			Name:      sc.Name,
			Handle:    sc.Handle,
			ChannelID: sc.ChannelID,
			FeedURLs:  sc.URLs,
			Tier:      sc.Tier,
			Enabled:   sc.Enabled,
		}
		if err := database.UpsertSource(ctx, src); err != nil {
			return fmt.Errorf("upsert source %q: %w", sc.Name, err)
		}
	}
	if len(sources) > 0 {
		log.Printf("[INFO] seeded %d sources from config", len(sources))
	}
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
