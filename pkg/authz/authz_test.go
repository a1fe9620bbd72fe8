package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"vaultbooks/pkg/config"
	"vaultbooks/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func TestEmbeddedPolicy(t *testing.T) {
	e, err := NewEnforcer(&config.Config{})
	require.NoError(t, err)

	ok, err := e.Enforce(middleware.RoleAdmin, ObjectCustomer, ActionDelete)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Enforce(middleware.RoleMember, ObjectCustomer, ActionDelete)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = e.Enforce("owner", ObjectHistory, ActionExport)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRequire(t *testing.T) {
	e, err := NewEnforcer(&config.Config{})
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Channel("admin_key"), middleware.Error())
	r.DELETE("/customers/:id", Require(e, ObjectCustomer, ActionDelete), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/customers/1", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodDelete, "/customers/1", nil)
	req.Header.Set(middleware.HeaderAPIKey, "admin_key")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}
