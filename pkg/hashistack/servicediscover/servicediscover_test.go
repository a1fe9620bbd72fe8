package servicediscover

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewServiceRegistration(t *testing.T) {
	reg := NewServiceRegistration("loyalty", "loyalty-1", "10.0.0.4", 8080)

	require.Equal(t, "loyalty-1", reg.ID)
	require.Equal(t, 8080, reg.Port)
	require.Equal(t, "http://10.0.0.4:8080/health/readiness", reg.Check.HTTP)
}
