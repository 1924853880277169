// Package wiring assembles the session manager and its infrastructure from configuration.
package wiring

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/app/notification"
	"github.com/osa030/breathbox/internal/app/session"
	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/app/telemetry"
	"github.com/osa030/breathbox/internal/infra/audio"
	"github.com/osa030/breathbox/internal/infra/config"
	"github.com/osa030/breathbox/internal/infra/haptics"
	"github.com/osa030/breathbox/internal/infra/store"
)

const sentryFlushTimeout = 2 * time.Second

// App holds the assembled components.
type App struct {
	Config        *config.Config
	Store         *store.Store
	Settings      *settings.Store
	Notifications *notification.Manager
	Session       *session.Manager

	sentryEnabled bool
}

// New opens storage, loads settings and builds the session manager.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open store")
	}

	seeded, err := st.Seed(ctx)
	if err != nil {
		_ = st.Close()
		return nil, errors.Wrap(err, "failed to seed exercises")
	}
	if seeded {
		zlog.Info().Msg("wiring: exercise catalogue seeded with defaults")
	}

	settingsStore := settings.NewStore(settings.Default(), st)
	if err := settingsStore.Load(ctx); err != nil {
		_ = st.Close()
		return nil, errors.Wrap(err, "failed to load settings")
	}

	a := &App{
		Config:        cfg,
		Store:         st,
		Settings:      settingsStore,
		Notifications: notification.NewManager(),
	}

	recorder, err := a.buildRecorder()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	source, err := audio.NewSourceFromConfig(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	pulser, err := haptics.NewPulserFromConfig(cfg, a.Notifications)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Session = session.NewManager(cfg, st, settingsStore, source, pulser, recorder, a.Notifications)
	return a, nil
}

// buildRecorder combines the log and Sentry recorders the configuration enables.
func (a *App) buildRecorder() (telemetry.Recorder, error) {
	cfg := a.Config
	var recorders telemetry.Multi

	if cfg.LogEventsEnabled() {
		recorders = append(recorders, telemetry.NewLogRecorder(zerolog.InfoLevel))
	}

	if cfg.Telemetry.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Telemetry.SentryDSN,
			Environment: cfg.Telemetry.Environment,
			Release:     cfg.Session.AppVersion,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialize sentry")
		}
		a.sentryEnabled = true
		recorders = append(recorders, telemetry.NewSentryRecorder(nil))
		zlog.Info().Msgf("wiring: sentry enabled: environment=%s", cfg.Telemetry.Environment)
	}

	if len(recorders) == 0 {
		return telemetry.Nop{}, nil
	}
	return recorders, nil
}

// Close closes the open screen, the notification streams and the store.
func (a *App) Close() {
	if a.Session != nil {
		a.Session.Close()
	}
	a.Notifications.Close()
	if err := a.Store.Close(); err != nil {
		zlog.Error().Msgf("wiring: failed to close store: %v", err)
	}
	if a.sentryEnabled {
		sentry.Flush(sentryFlushTimeout)
	}
}
