// cmd/forma/main.go
//
// Forma – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (system-wide file → .env fallback).
//
//  2. Load configuration (YAML, FORMA_ env, vault: secrets).
//
//  3. Start daily rotating logger (tees to console when running in a TTY).
//
//  4. Open the key-value store (memory, sqlite, or mysql) and migrate it.
//
//  5. Build the credential service around the development account.
//
//  6. Root router:
//
//     • request ID, real IP, request logger, panic recovery
//     • security headers on every response
//     • Prometheus /metrics endpoint
//     • components mounted under /<name> (auth, onboarding)
//
//  7. Optional HTTPS redirect, then serve until SIGINT / SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/forma/internal/component"
	"github.com/yanizio/forma/internal/config"
	"github.com/yanizio/forma/internal/credential"
	"github.com/yanizio/forma/internal/logger"
	"github.com/yanizio/forma/internal/message"
	"github.com/yanizio/forma/internal/middleware"
	"github.com/yanizio/forma/internal/server"

	_ "github.com/yanizio/forma/components/auth"
	_ "github.com/yanizio/forma/components/onboarding"
)

const serverEnvPath = "/usr/local/etc/forma/forma.env"

// loadEnv prefers the system-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("forma: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Config + logger ─────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx, config.Options{})
	if err != nil {
		return err
	}
	logOut, err := logger.New(cfg.Log.Dir, runningInTTY())
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Key-value store ─────────────────────────────────────────────
	//
	kv, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		logOut.Errorw("storage open failed", "driver", cfg.Storage.Driver, "err", err)
		return err
	}
	defer closeStore()
	logOut.Infow("storage online", "driver", cfg.Storage.Driver)

	//
	// ── 3.  Credential service ──────────────────────────────────────────
	//
	creds, err := credential.New(kv, credential.Options{
		Account: credential.Account{
			Email:    cfg.Auth.DevEmail,
			Password: cfg.Auth.DevPassword,
		},
		LoginLatency:    cfg.Auth.LoginLatency,
		RegisterLatency: cfg.Auth.RegisterLatency,
		HashCost:        cfg.Auth.PasswordHashCost,
	})
	if err != nil {
		return err
	}

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, middleware.RequestLogger(logOut), chimw.Recoverer, middleware.Security)
	r.Handle("/metrics", promhttp.Handler())

	if err := component.Mount(r, component.Deps{
		Config:      cfg,
		Store:       kv,
		Credentials: creds,
		Messages:    message.Default(),
	}); err != nil {
		return err
	}
	defer closeComponents()

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	var root http.Handler = r
	if cfg.HTTP.ForceHTTPS {
		root = middleware.ForceHTTPS(root)
	}
	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, root))
}

// closeComponents releases components holding live resources, such as the
// auth flows and their timers.
func closeComponents() {
	for _, c := range component.All() {
		if cl, ok := c.(interface{ Close() }); ok {
			cl.Close()
		}
	}
}
