package loyalty

import (
	"context"
	"testing"

	"vaultbooks/pkg/config"
	"vaultbooks/services/testutil"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestNewStore(t *testing.T) {
	cfg := &config.Config{}

	cfg.Loyalty.Store = StoreMemory
	s, err := NewStore(StoreParams{Config: cfg})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	cfg.Loyalty.Store = StoreDatabase
	_, err = NewStore(StoreParams{Config: cfg})
	require.Error(t, err)

	s, err = NewStore(StoreParams{Config: cfg, DB: testutil.NewTestDB(t)})
	require.NoError(t, err)
	require.IsType(t, &GormStore{}, s)

	cfg.Loyalty.Store = "redis"
	_, err = NewStore(StoreParams{Config: cfg})
	require.Error(t, err)
}

func TestHealthServer(t *testing.T) {
	h := NewHealthServer(NewMemoryStore())
	resp, err := h.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	db := testutil.NewTestDB(t, Models()...)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp, err = NewHealthServer(NewGormStore(db)).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
