// Command lambda serves the leaderboard API behind API Gateway.
package main

import (
	"context"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/http/api"
	"github.com/unicitynetwork/Boxy-Run/internal/adapters/lambda"
	service "github.com/unicitynetwork/Boxy-Run/internal/app"
	"github.com/unicitynetwork/Boxy-Run/internal/config"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Get()

	// Built once per cold start and reused across invocations. Invocations
	// are too short-lived for the purge loop, so expired rows are swept once
	// per cold start instead.
	svc, err := service.NewFromConfig(ctx, cfg, service.WithLogger(log.Named("service")))
	if err != nil {
		log.Fatal(ctx, "failed to build service", logger.String("store", cfg.Store), logger.Error(err))
	}
	if n, err := svc.Purge(ctx); err != nil {
		log.Warn(ctx, "cold start purge failed", logger.Error(err))
	} else {
		log.Debug(ctx, "cold start purge", logger.Int("rows", n))
	}

	dispatcher := api.NewDispatcher(svc,
		api.WithAllowedOrigin(cfg.AllowedOrigin),
		api.WithLimits(api.Limits{
			DailyDefault:   cfg.DailyDefaultLimit,
			DailyMax:       cfg.DailyMaxLimit,
			AllTimeDefault: cfg.AllTimeDefaultLimit,
			AllTimeMax:     cfg.AllTimeMaxLimit,
		}),
		api.WithLogger(log.Named("api")),
	)

	awslambda.Start(lambda.New(dispatcher).Handle)
}
