package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"gobayes/adapters/excel"
	"gobayes/adapters/memory"
	"gobayes/adapters/postgres"
	"gobayes/internal"
	"gobayes/internal/api"
	"gobayes/internal/config"
	"gobayes/internal/migration"
	"gobayes/internal/pipeline"
	"gobayes/internal/studies"
	"gobayes/ports"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := internal.SetupLogging(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load study catalog")
	}

	ledger, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open run ledger")
	}
	defer closeLedger()

	server := api.NewServer(catalog, ledger, pipeline.Options{
		Seed:        cfg.Engine.Seed,
		Parallelism: cfg.Engine.Parallelism,
		HeavyLimit:  cfg.Engine.HeavyLimit,
		BootstrapN:  cfg.Engine.BootstrapN,
		NoiseTrials: cfg.Engine.NoiseTrials,
	})
	defer server.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Int("studies", len(catalog.Studies)).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// loadCatalog reads the configured catalog and applies workbook overrides
func loadCatalog(cfg *config.Config) (*studies.Catalog, error) {
	catalog, err := studies.Default()
	if cfg.Data.Catalog != "" {
		catalog, err = studies.Load(cfg.Data.Catalog)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Data.Workbook != "" {
		xcfg := excel.DefaultConfig()
		xcfg.FilePath = cfg.Data.Workbook
		list, _, err := excel.Apply(xcfg, catalog.Studies)
		if err != nil {
			return nil, err
		}
		catalog.Studies = list
	}
	return catalog, nil
}

// openLedger uses postgres when DATABASE_URL is set and memory otherwise
func openLedger(ctx context.Context, cfg *config.Config) (ports.LedgerPort, func(), error) {
	if cfg.Database.URL == "" {
		log.Info().Msg("DATABASE_URL not set, keeping reports in memory")
		return memory.NewLedger(memory.DefaultCapacity), func() {}, nil
	}

	db, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewReportRepository(db), func() { db.Close() }, nil
}
