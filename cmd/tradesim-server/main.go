package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradesim/internal/api"
	"tradesim/internal/config"
	"tradesim/internal/domain"
	"tradesim/internal/ledger"
	"tradesim/internal/quote"
	"tradesim/internal/store"
	"tradesim/internal/telemetry"
	"tradesim/internal/util"
)

func main() {
	// .env values feed the config env overrides; a missing file is fine.
	godotenv.Load()

	cfgPath := "config/tradesim.yaml"
	if p := os.Getenv("TRADESIM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	startingCash, err := cfg.StartingCashDecimal()
	if err != nil {
		log.Fatalf("invalid starting cash: %v", err)
	}

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer st.Close()

	ldgr := ledger.New(st, st, quote.NewSimulatedSource(), startingCash,
		domain.PlatformType(cfg.Trading.PlatformType), logger)

	recorder := telemetry.NewRecorder(st, cfg.Trading.EventBufferSize, logger)
	defer recorder.Close()

	srv := api.NewServer(ldgr, quote.NewSimulatedSource(), recorder,
		cfg.Trading.RateLimitPerMin, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("server listening", "addr", cfg.Addr(), "platform", cfg.Trading.PlatformType)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
