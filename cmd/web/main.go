// cmd/web/main.go
//
// Cyberitance backend – HTTP entry point.
//
// Start-up
// --------
//
//  1. Load .env (optional) and resolve the environment from $APP_ENV.
//
//  2. Build the Vault resolver when VAULT_ADDR is set, so `vault:`
//     references in the configuration can be resolved.
//
//  3. Load configuration and start the daily rotating logger.
//
//  4. Assemble the application (config → database → routes → schema).
//
//  5. Serve the API on http.listen_addr and Prometheus /metrics on
//     metrics.listen_addr, both inside one errgroup.
//
//  6. On SIGINT/SIGTERM, shut both servers down gracefully and release the
//     database handle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cyberitance/backend/internal/app"
	"github.com/cyberitance/backend/internal/config"
	"github.com/cyberitance/backend/internal/logger"
	"github.com/cyberitance/backend/internal/server"
	"github.com/cyberitance/backend/internal/vault"
)

const shutdownGrace = 10 * time.Second

func init() { _ = godotenv.Load() }

func main() {
	if err := run(); err != nil {
		log.Fatalf("cyberitance: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfgOpts []config.Option
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx)
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		cfgOpts = append(cfgOpts, config.WithSecretResolver(vc))
	}

	//
	// ── 1.  Configuration and logging ──────────────────────────────────
	//
	cfg, err := config.Load(ctx, "", cfgOpts...)
	if err != nil {
		return err
	}
	logDir := cfg.Log.Dir
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(cfg.Paths.Root, logDir)
	}
	logOut, err := logger.New(logger.Options{Dir: logDir, Tee: cfg.Log.Tee, Debug: cfg.Log.Debug})
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Application instance (same config, loaded once) ────────────
	//
	a, err := app.New(ctx, "", app.WithConfig(cfg))
	if err != nil {
		logOut.Errorw("assembly failed", "err", err)
		return err
	}
	defer a.Close()

	//
	// ── 3.  Listeners ──────────────────────────────────────────────────
	//
	servers := []*http.Server{server.New(cfg.HTTP.ListenAddr, a.Handler(), cfg.HTTP)}
	if cfg.Metrics.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, server.New(cfg.Metrics.ListenAddr, mux, cfg.HTTP))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logOut.Infow("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logOut.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(sctx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
