package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/davidmreis/bizbook/internal/auth"
	"github.com/davidmreis/bizbook/internal/cache"
	"github.com/davidmreis/bizbook/internal/config"
	bizbookHttp "github.com/davidmreis/bizbook/internal/http"
	ledgerHandler "github.com/davidmreis/bizbook/internal/http/ledger"
	salesHandler "github.com/davidmreis/bizbook/internal/http/sales"
	"github.com/davidmreis/bizbook/internal/http/syncapi"
	vaultHandler "github.com/davidmreis/bizbook/internal/http/vault"
	"github.com/davidmreis/bizbook/internal/ledger"
	"github.com/davidmreis/bizbook/internal/remote"
	"github.com/davidmreis/bizbook/internal/sales"
	"github.com/davidmreis/bizbook/internal/sync"
	"github.com/davidmreis/bizbook/internal/vault"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store := remote.New(remote.Config{
		APIBase: cfg.Remote.APIBase,
		Owner:   cfg.Remote.Owner,
		Repo:    cfg.Remote.Repo,
		Timeout: cfg.Remote.Timeout,
	})

	fileCache := cache.New(cfg.App.CacheDir)

	vaultSvc := vault.New(store, fileCache, vault.Options{
		Branch:        cfg.Vault.Branch,
		Path:          cfg.Vault.Path,
		DefaultBranch: cfg.Remote.Branch,
	})

	engine := sync.New(store, sync.Options{
		Branch:   cfg.Remote.Branch,
		Path:     cfg.Sync.Path,
		Debounce: cfg.Sync.Debounce,
	})

	var (
		ledgerService = ledger.NewService(engine)
		salesService  = sales.NewService(engine, ledgerService)
		sessions      = auth.NewSessions(cfg.Session.Secret, cfg.Session.TTL)
	)

	// The snapshot can only be loaded once a credential has been recovered
	// from the vault; load exactly once so a re-login cannot clobber
	// pending local mutations.
	var (
		loadMu gosync.Mutex
		loaded bool
	)

	onLogin := func(ctx context.Context, credential string) error {
		store.SetToken(credential)

		loadMu.Lock()
		defer loadMu.Unlock()

		if loaded {
			return nil
		}

		if err := engine.Load(ctx); err != nil {
			return err
		}

		loaded = true

		return nil
	}

	var (
		vaultV1  = vaultHandler.NewHandler(vaultSvc, sessions, onLogin)
		ledgerV1 = ledgerHandler.NewHandler(ledgerService)
		salesV1  = salesHandler.NewHandler(salesService)
		syncV1   = syncapi.NewHandler(engine)
	)

	router := bizbookHttp.New(sessions, vaultV1, ledgerV1, salesV1, syncV1)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "port", cfg.App.Port)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	// Best-effort final flush of anything still pending.
	if err := engine.Close(shutdownCtx); err != nil {
		slog.Error("final flush failed", "error", err, "pending", engine.Pending())
	}
}
