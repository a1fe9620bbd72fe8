package loyalty

import (
	"fmt"

	"vaultbooks/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

var Module = fx.Module("loyalty.service",
	fx.Provide(
		NewCatalogFromConfig,
		NewStore,
		NewService,
		NewHandler,
		NewHealthServer,
	),
	fx.Invoke(
		RegisterRoutes,
		registerHealthServer,
	),
)

const (
	StoreMemory   = "memory"
	StoreDatabase = "database"
)

func NewCatalogFromConfig(cfg *config.Config) (*Catalog, error) {
	c, err := CatalogFromConfig(cfg.Loyalty)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loyalty catalog loaded", zap.Int("tiers", len(c.tiers)), zap.Int("rewards", len(c.rewards)))
	return c, nil
}

type StoreParams struct {
	fx.In
	Config *config.Config
	DB     *gorm.DB `optional:"true"`
}

// NewStore picks the store named by LOYALTY.STORE and migrates its tables.
func NewStore(p StoreParams) (Store, error) {
	switch p.Config.Loyalty.Store {
	case StoreMemory:
		zap.L().Warn("loyalty records are kept in memory only")
		return NewMemoryStore(), nil
	case StoreDatabase, "":
		if p.DB == nil {
			return nil, fmt.Errorf("loyalty store %q needs a database", StoreDatabase)
		}
		if err := AutoMigrate(p.DB); err != nil {
			return nil, err
		}
		return NewGormStore(p.DB), nil
	default:
		return nil, fmt.Errorf("unknown loyalty store %q", p.Config.Loyalty.Store)
	}
}

func registerHealthServer(server *grpc.Server, h *HealthServer) {
	grpc_health_v1.RegisterHealthServer(server, h)
}
