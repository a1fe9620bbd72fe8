package main

import (
	"log"
	"os"

	"vaultbooks/pkg/authz"
	"vaultbooks/pkg/clock"
	"vaultbooks/pkg/config"
	"vaultbooks/pkg/db"
	"vaultbooks/pkg/featureflags"
	"vaultbooks/pkg/gen"
	"vaultbooks/pkg/hashistack/secretmanager"
	"vaultbooks/pkg/hashistack/servicediscover"
	"vaultbooks/pkg/health"
	"vaultbooks/pkg/logger"
	"vaultbooks/pkg/minio"
	"vaultbooks/pkg/otelcol"
	"vaultbooks/pkg/profiling"
	"vaultbooks/pkg/redis"
	"vaultbooks/pkg/sequence"
	"vaultbooks/pkg/server"
	"vaultbooks/pkg/task"
	"vaultbooks/services/currency"
	"vaultbooks/services/loyalty"
	"vaultbooks/services/notification"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	opts := []fx.Option{
		configModule(),
		logger.Module,
		db.Module,
		redis.Module,
		gen.Module,
		sequence.Module,
		task.Client,
		otelcol.Module,
		profiling.Module,
		featureflags.Module,
		minio.Client,
		authz.Module,
		fx.Provide(clock.New),
		health.Module,
		notification.Module,
		loyalty.Module,
		currency.Module,
		server.ProvideHTTPServer,
		server.ProvideGRPCServer,
		servicediscover.Module,
		fxLogger,
	}

	// WORKER_INLINE runs the notification consumer in this process.
	if os.Getenv("WORKER_INLINE") == "true" {
		opts = append(opts, task.Server, notification.Worker)
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

// configModule reads config.yaml, or the remote key/value store when
// REMOTE_CONFIG_ADDR is set. Vault secrets are overlaid when VAULT_ADDR is set.
func configModule() fx.Option {
	if !secretmanager.Enabled() {
		return config.Module
	}
	if _, ok := os.LookupEnv("REMOTE_CONFIG_ADDR"); ok {
		return fx.Options(secretmanager.Module, config.RemoteModule)
	}
	return fx.Options(secretmanager.Module, config.Module)
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "development" {
		return &fxevent.ZapLogger{Logger: logger}
	}
	return fxevent.NopLogger
})
