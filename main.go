// ABOUTME: Entry point for the hublake sync CLI
// ABOUTME: Routes to sync and status commands based on arguments
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/harperreed/hublake/cli"
	"github.com/harperreed/hublake/config"
)

const version = "0.3.1"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file path (YAML)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hublake version %s\n", version)
		os.Exit(0)
	}

	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "sync":
		if err := cli.SyncCommand(ctx, app, commandArgs); err != nil {
			log.Error("sync failed", "error", err)
			app.Close()
			os.Exit(1)
		}
	case "status":
		if err := cli.StatusCommand(app, commandArgs); err != nil {
			log.Error("status failed", "error", err)
			app.Close()
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hublake - incremental CRM ingestion into date-partitioned storage

Usage:
  hublake [flags] sync <entity>   Sync one entity (deals, activities, contacts, companies, owners, pipelines)
  hublake [flags] sync all        Sync every entity
  hublake [flags] status [entity] Show recent sync runs

Flags:
  -config path   YAML config file
  -verbose       Debug logging
  -version       Print version`)
}
