package db

import (
	"context"
	"os"
	"strings"
	"time"

	"vaultbooks/pkg/config"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/prometheus"
)

var Module = fx.Module("database",
	fx.Provide(
		Dialect,
		New,
	),
	fx.Invoke(
		RegisterConnectionPool,
		registerPlugins,
	),
)

func New(cfg *config.Config, dialector gorm.Dialector) *gorm.DB {
	var db *gorm.DB
	var err error

	gormLogger := NewQueryLogger(cfg.AppEnv == "production")

	for i := 0; i < 5; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger: gormLogger,
		})
		if err == nil {
			break
		}
		zap.L().Warn("[DB] Database not ready, retrying in 3 seconds... ", zap.Int("retry", i+1), zap.Error(err))
		time.Sleep(3 * time.Second)
	}

	if err != nil {
		zap.L().Error("[DB] Failed to connect to database", zap.Error(err))
		os.Exit(1)
	}

	zap.L().Info("[DB] Database connection successfully configured.", zap.String("dialect", dialector.Name()))

	return db
}

type connectionPoolParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	DB        *gorm.DB
	Config    *config.Config
}

func RegisterConnectionPool(p connectionPoolParams) {
	sqlDB, err := p.DB.DB()
	if err != nil {
		zap.L().Error("[DB] Failed to get sql.DB from gorm", zap.Error(err))
		os.Exit(1)
	}

	cp := p.Config.Database.ConnectionPool
	if cp.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cp.MaxIdleConn)
	}
	if cp.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cp.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(cp.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cp.ConnMaxIdleTime)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			zap.L().Info("[DB] Closing connection pool...")
			return sqlDB.Close()
		},
	})
}

func registerPlugins(db *gorm.DB, cfg *config.Config) error {
	if err := Otel(db); err != nil {
		return err
	}
	if cfg.Database.Metrics.Enable {
		return Metric(db, cfg)
	}
	return nil
}

func Otel(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		zap.L().Error("Failed to register db telemetry", zap.Error(err))
		return err
	}

	return nil
}

func Metric(db *gorm.DB, cfg *config.Config) error {
	port := cfg.Database.Metrics.Port
	if port == 0 {
		port = 8081
	}

	collectors := []prometheus.MetricsCollector{}
	switch db.Dialector.(type) {
	case *postgres.Dialector:
		collectors = append(collectors, &prometheus.Postgres{VariableNames: []string{"Threads_running"}})
	case *mysql.Dialector:
		collectors = append(collectors, &prometheus.MySQL{VariableNames: []string{"Threads_running"}})
	}

	if err := db.Use(prometheus.New(prometheus.Config{
		DBName:           getDBNameFromDialector(db.Dialector),
		RefreshInterval:  15,
		PushAddr:         cfg.Database.Metrics.PushAddr,
		StartServer:      true,
		HTTPServerPort:   port,
		MetricsCollector: collectors,
	})); err != nil {
		zap.L().Error("Failed to register db metrics", zap.Error(err))
		return err
	}
	return nil
}

// extractDBNameFromDSN handles both "key=value" postgres DSNs and
// "user:pass@tcp(host)/name?params" mysql DSNs.
func extractDBNameFromDSN(dsn string) string {
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}

	if i := strings.LastIndex(dsn, "/"); i >= 0 {
		name := dsn[i+1:]
		if j := strings.Index(name, "?"); j >= 0 {
			name = name[:j]
		}
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func getDBNameFromDialector(dialector gorm.Dialector) string {
	switch d := dialector.(type) {
	case *postgres.Dialector:
		return extractDBNameFromDSN(d.Config.DSN)
	case *mysql.Dialector:
		return extractDBNameFromDSN(d.Config.DSN)
	case *sqlite.Dialector:
		return strings.TrimSuffix(d.DSN, ".db")
	default:
		return "unknown"
	}
}
