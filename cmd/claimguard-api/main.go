// Command claimguard-api serves analysis runs over HTTP
//
// @title         Claimguard API
// @version       0.1.0
// @description   Queue fraud analysis runs over claims files and read their results
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claimguard/internal/modkit/httpkit"
	"claimguard/internal/platform/config"
	"claimguard/internal/platform/logger"
	phttp "claimguard/internal/platform/net/http"
	"claimguard/internal/platform/net/middleware"
	"claimguard/internal/platform/store"
	"claimguard/internal/services/api"
)

// drainTimeout bounds graceful http shutdown, runs are waited for separately
const drainTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.New()); err != nil {
		logger.Get().Error().Err(err).Msg("claimguard-api stopped")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, root config.Conf) error {
	log := logger.Get()
	cfg := root.Prefix("CORE_API_")

	// a backend without its DBURL stays disabled and analysis falls back to memory
	st, err := store.Open(ctx, store.ConfigFromEnv(root, "api"), store.WithLogger(*log))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()

	auth, err := keyAuth(cfg)
	if err != nil {
		return err
	}

	srv := phttp.NewServer(cfg)
	analysis := api.Mount(srv.Router(), api.Options{
		Config:         root,
		Store:          st,
		Logger:         log,
		EnableSwagger:  cfg.MayBool("SWAGGER", true),
		EnableProfiler: cfg.MayBool("PROFILER", false),
		EnableMetrics:  cfg.MayBool("METRICS", true),
		Auth:           auth,
	})
	if err := analysis.Migrate(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()
	if err := srv.Run(ctx); err != nil {
		return err
	}

	log.Info().Msg("waiting for in flight runs")
	analysis.Wait()
	return nil
}

// keyAuth reads CORE_API_KEYS=client:secret,... Unset leaves the run routes open
func keyAuth(cfg config.Conf) (middleware.AuthPort, error) {
	list := cfg.MayString("KEYS", "")
	if list == "" {
		logger.Get().Warn().Msg("CORE_API_KEYS unset, run routes are open")
		return nil, nil
	}
	keys, err := httpkit.ParseKeys(list)
	if err != nil {
		return nil, err
	}
	logger.Get().Info().Int("clients", len(keys)).Msg("api keys enabled")
	return httpkit.NewPortFunc(httpkit.StaticKeys(keys)), nil
}
