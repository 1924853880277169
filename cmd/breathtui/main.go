// Package main provides the terminal breathing screen entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/infra/config"
	"github.com/osa030/breathbox/internal/infra/logger"
	"github.com/osa030/breathbox/internal/infra/wiring"
	"github.com/osa030/breathbox/internal/ui/tui"
)

var (
	app        = kingpin.New("breathtui", "breathbox terminal breathing screen")
	configPath = app.Flag("config", "Path to config file").Default("config/breathbox.yaml").String()
	exerciseID = app.Flag("exercise", "Exercise ID to select before starting").Short('e').String()
	logfile    = app.Flag("logfile", "Path to log file (default: no logging)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere
	loggerConfig := logger.Config{Output: "discard", Level: cfg.Log.Level}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	a, err := wiring.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if *exerciseID != "" {
		if _, err := a.Session.SelectExercise(ctx, *exerciseID); err != nil {
			return err
		}
	}

	p := tea.NewProgram(
		tui.NewModel(a.Session, cfg.Animation.ExpandedRadius),
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	if err != nil {
		return err
	}
	// Covers ctrl+c before the screen opened and any other early quit
	a.Session.Close()

	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	zlog.Info().Msg("breathtui: exited")
	return nil
}
