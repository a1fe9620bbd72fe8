package main

import (
	"os"

	"vaultbooks/pkg/clock"
	"vaultbooks/pkg/config"
	"vaultbooks/pkg/db"
	"vaultbooks/pkg/gen"
	"vaultbooks/pkg/hashistack/secretmanager"
	"vaultbooks/pkg/logger"
	"vaultbooks/pkg/redis"
	"vaultbooks/pkg/task"
	"vaultbooks/services/notification"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		configModule(),
		logger.Module,
		db.Module,
		redis.Module,
		gen.Module,
		fx.Provide(
			clock.New,
			notification.NewService,
		),
		fx.Invoke(notification.AutoMigrate),
		task.Server,
		notification.Worker,
		fxLogger,
	)

	app.Run()
}

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
	return fxevent.NopLogger
})
