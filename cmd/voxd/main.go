package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"voxd/internal/app"
	"voxd/pkg/config"
	"voxd/pkg/logger"
	"voxd/pkg/shutdown"
)

// build metadata, set via ldflags during release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	srcs := []string{}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		// a missing config file is fine unless explicitly requested
		if setFlags["config"] {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = &config.Config{}
	} else {
		srcs = append(srcs, "config")
	}

	if config.LoadEnvOverrides(cfg) {
		srcs = append(srcs, "env")
	}

	// explicit flags win over env and config
	if setFlags["addr"] || setFlags["db"] {
		srcs = append(srcs, "flags")
	}
	if setFlags["addr"] {
		if host, port, ok := config.SplitHostPort(addrVal); ok {
			cfg.Server.Address = host
			cfg.Server.Port = port
		}
	}
	if setFlags["db"] || cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = dbVal
	}

	verStr := version
	if commit != "none" {
		verStr += " (" + commit + ")"
	}

	a, err := app.New(cfg, verStr, strings.Join(srcs, ", "))
	if err != nil {
		shutdown.Abort("startup failed", err, cfg.Storage.DBPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		cancel()
	}()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server failed", err, cfg.Storage.DBPath)
	}
	logger.Sync()
}
