package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/loanwise/platform/internal/auth"
	"github.com/loanwise/platform/internal/bootstrap"
	"github.com/loanwise/platform/internal/config"
	"github.com/loanwise/platform/internal/domain"
	"github.com/loanwise/platform/internal/httpapi"
	"github.com/loanwise/platform/internal/logger"
	"github.com/loanwise/platform/internal/server"
	"github.com/loanwise/platform/internal/telemetry"
	"github.com/loanwise/platform/internal/telemetry/metrics"
)

const serviceName = "loanwise-api"

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup happens before exit.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return 1
	}

	logr := logger.New(cfg.Env)

	baseCtx := context.Background()

	shutdownTracing, err := telemetry.Setup(baseCtx, telemetry.Options{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: serviceName,
		Environment: cfg.Env,
	})
	if err != nil {
		logr.Error("failed to init tracing", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logr.Error("tracing shutdown failed", "err", err)
		}
	}()

	repos, closeRepos, err := bootstrap.OpenRepositories(baseCtx, cfg, logr)
	if err != nil {
		logr.Error("failed to open repositories", "err", err)
		return 1
	}
	defer func() {
		if cerr := closeRepos(); cerr != nil {
			logr.Error("error closing database", "err", cerr)
		}
	}()

	model, err := bootstrap.LoadClassifier(cfg, logr)
	if err != nil {
		logr.Error("failed to load classifier", "err", err)
		return 1
	}

	tokens, err := auth.NewIssuer(auth.IssuerConfig{
		Secret:  []byte(cfg.JWTSecret),
		Issuer:  cfg.JWTIssuer,
		Expiry:  cfg.JWTExpiry,
		Revoker: auth.NewRevoker(nil),
	})
	if err != nil {
		logr.Error("failed to init token issuer", "err", err)
		return 1
	}

	m := metrics.New()

	domainContainer := domain.New(domain.Options{
		UserRepo:       repos.Users,
		PredictionRepo: repos.Predictions,
		Classifier:     model,
		PageSize:       cfg.HistoryPageSize,
		Recorder:       m,
	})

	srv := server.New(cfg, logr, m)

	httpapi.Register(srv.Mux(), logr, domainContainer, tokens)

	ctx, stop := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		logr.Error("server error", "err", err)
		return 1
	}
	return 0
}
