// Package main provides the breathbox daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/breathbox/internal/api/connect"
	"github.com/osa030/breathbox/internal/api/router"
	"github.com/osa030/breathbox/internal/app/rule"
	"github.com/osa030/breathbox/internal/infra/config"
	"github.com/osa030/breathbox/internal/infra/logger"
	"github.com/osa030/breathbox/internal/infra/wiring"
)

var (
	app        = kingpin.New("breathd", "breathbox guided breathing daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/breathbox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// serve command (default)
	serveCmd      = app.Command("serve", "Run the remote control server").Default()
	serveOpen     = serveCmd.Flag("open", "Open the breathing screen on startup").Bool()
	serveAutoPlay = serveCmd.Flag("autostart", "Start breathing right after opening").Default("true").Bool()

	// list-rules command
	listRulesCmd = app.Command("list-rules", "List available exercise rules and exit")

	// reset command
	resetCmd = app.Command("reset", "Restore the default exercise catalogue and exit")
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listRulesCmd.FullCommand() {
		printRules()
		return
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	switch command {
	case resetCmd.FullCommand():
		err = reset(cfg)
	default:
		err = run(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("breathd: %+v", err)
		closeLog()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	a, err := wiring.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := apiconnect.NewSessionService(a.Session, cfg)
	if cfg.Server.ControlToken == "" {
		zlog.Warn().Msg("breathd: control token not set, control procedures are open")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(router.New(svc, a.Store), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	if *serveOpen {
		if _, err := a.Session.Open(ctx, *serveAutoPlay); err != nil {
			zlog.Error().Msgf("breathd: failed to open breathing screen: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("Received %s, shutting down...", sig)
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop the breathing screen first so subscribers see it close, then end the streams
	a.Session.Close()
	svc.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// reset restores the built-in exercise catalogue.
func reset(cfg *config.Config) error {
	ctx := context.Background()

	a, err := wiring.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.Reset(ctx); err != nil {
		return errors.Wrap(err, "failed to reset store")
	}
	zlog.Info().Msgf("Exercise catalogue restored: path=%s", cfg.Storage.DBPath)
	return nil
}

// printRules prints available exercise rules.
func printRules() {
	fmt.Println("Available Rules:")
	for name, factory := range rule.GetRegistered() {
		r := factory()
		fmt.Printf("  %-20s - %s [codes: %v]\n", name, r.Description(), r.ReturnCodes())
	}
}
