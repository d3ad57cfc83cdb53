// Package app wires configuration, storage, the relay, the speech bridge
// and the HTTP surface into a runnable server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"voxd/pkg/auth"
	"voxd/pkg/banner"
	"voxd/pkg/config"
	"voxd/pkg/logger"
	"voxd/pkg/relay"
	"voxd/pkg/session"
	"voxd/pkg/speech"
	"voxd/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	version string
	sources string

	sessions *session.Manager
	relay    *relay.Relay
	bridge   *speech.Bridge
	provider auth.Provider

	srv *http.Server
}

// New initializes everything that does not require a running context:
// config validation, logging, the store, the relay and the speech bridge.
// Call Run to start the HTTP server and block until shutdown.
func New(cfg *config.Config, version, sources string) (*App, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	rc := &config.RuntimeConfig{SigningKeys: map[string]struct{}{}}
	for _, k := range cfg.Security.SigningKeys {
		rc.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(rc)

	if err := store.Open(cfg.Storage.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Storage.DBPath, err)
	}

	provider := auth.NewLocalProvider()
	if u, err := provider.Current(); err == nil && u != nil {
		logger.Info("identity_restored", zap.String("user", u.Username))
	}

	rl := relay.New(cfg.Relay.Endpoint, cfg.Relay.APIKey)
	rl.IncludeHistory = cfg.Relay.IncludeHistory
	rl.ChunkChars = cfg.Relay.Stream.ChunkChars
	rl.Interval = time.Duration(cfg.Relay.Stream.IntervalMs) * time.Millisecond

	var bridge *speech.Bridge
	if cfg.Speech.Enabled {
		rec, syn := speech.Detect(cfg.Speech.SpeakCommand, cfg.Speech.ListenCommand)
		bridge = speech.NewBridge(rec, syn, cfg.Speech.Language, cfg.Speech.PreferredVoice)
	} else {
		bridge = speech.NewBridge(nil, nil, "", nil)
	}

	return &App{
		cfg:      cfg,
		version:  version,
		sources:  sources,
		sessions: session.NewManager(),
		relay:    rl,
		bridge:   bridge,
		provider: provider,
	}, nil
}

// Run prints the banner, starts the HTTP server and blocks until ctx is
// canceled or a fatal server error occurs. The store is closed on the way
// out.
func (a *App) Run(ctx context.Context) error {
	banner.Print(a.cfg.Addr(), a.cfg.Storage.DBPath, a.sources, a.version,
		a.bridge.CanSpeak(), a.bridge.CanListen())

	errCh := a.startHTTP()

	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store_close_failed", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
		a.stopHTTP()
		return nil
	case err := <-errCh:
		return err
	}
}

func validateConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	tls := cfg.Server.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("server.tls requires both cert_file and key_file")
	}
	if cfg.Relay.Stream.ChunkChars < 0 || cfg.Relay.Stream.IntervalMs < 0 {
		return fmt.Errorf("relay.stream values must be non-negative")
	}
	return nil
}
