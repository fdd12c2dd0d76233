// Command mcp-reminder provides an MCP server for medicine reminders.
//
// This server provides tools for assigning medicines, listing and acting on
// the reminders expanded from them, and composing the spoken reminder
// message, all stored in a SQLite database.
//
// Usage:
//
//	./mcp-reminder          # Start MCP server (stdio)
//	./mcp-reminder --help   # Show help
//
// Environment:
//
//	MEDIVOICE_CONFIG      Path to config file (default: ~/.medivoice/config.yaml)
//	MEDIVOICE_STORE__PATH Path to SQLite database (default: ~/.medivoice/medivoice.db)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/config"
	"github.com/shankar379/medivoice/internal/logger"
	"github.com/shankar379/medivoice/internal/mcpserver"
	"github.com/shankar379/medivoice/internal/reminder"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--help", "-h":
			printHelp()
			return
		}
	}

	configPath := os.Getenv("MEDIVOICE_CONFIG")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "mcp-reminder")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("invalid timezone", zap.Error(err))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		log.Fatal("failed to create data directory", zap.Error(err))
	}

	store, err := reminder.NewStore(cfg.Store.Path)
	if err != nil {
		log.Fatal("failed to open database", zap.String("path", cfg.Store.Path), zap.Error(err))
	}
	defer store.Close()

	svc := reminder.NewService(store,
		reminder.WithClock(reminder.SystemClock{Location: loc}),
		reminder.WithLogger(log.Named("reminder")),
		reminder.WithHorizonDays(cfg.Reminders.HorizonDays),
		reminder.WithMissedPolicy(reminder.MissedPolicy{
			Enabled: cfg.Reminders.Missed.Enabled,
			Grace:   cfg.MissedGrace(),
		}),
	)

	s := mcpserver.NewServer(svc, cfg.Voice.DefaultLanguage, log.Named("mcp"))

	if err := server.ServeStdio(s.MCPServer()); err != nil {
		log.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`MCP Reminder Server - Medicine reminders via MCP protocol

USAGE:
    mcp-reminder          Start MCP server (communicates via stdio)
    mcp-reminder --help   Show this help

ENVIRONMENT:
    MEDIVOICE_CONFIG       Path to config file
                           Default: ~/.medivoice/config.yaml
    MEDIVOICE_STORE__PATH  Path to SQLite database file
                           Default: ~/.medivoice/medivoice.db

TOOLS:
    assign_medicine        Assign a medicine and expand its reminders
                           (patient_id, medicine_name, dosage, timings, ...)
    list_assignments       List a patient's medicine assignments
    list_reminders         List a patient's reminders (optional status filter)
    todays_reminders       Pending reminders for today
    mark_taken             Mark a reminder as taken
    snooze_reminder        Snooze a reminder
    compose_message        Compose the spoken reminder for an assignment
    re_expand_assignment   Extend an assignment's reminder window
    deactivate_assignment  Stop generating reminders for an assignment
    mark_missed            Apply the missed-dose policy

CONFIGURATION:
    Register with an MCP client:
    {
      "mcpServers": {
        "medivoice": {
          "command": "/path/to/mcp-reminder",
          "args": []
        }
      }
    }`)
}
