package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vaultbooks/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func newEngine(h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Channel("pos_ops-secret", " "), Error())
	r.GET("/", h)
	return r
}

func TestErrorRendersBaseError(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errutil.UnprocessableEntity("insufficient points", nil))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "unprocessable_entity", body.Error.Code)
	require.Equal(t, "insufficient points", body.Error.Message)
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp: connection refused"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "connection refused")
}

func TestChannelFromAPIKey(t *testing.T) {
	var channel, role string
	r := newEngine(func(c *gin.Context) {
		channel = GetChannel(c.Request.Context())
		role = GetRole(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		key, channel, role string
	}{
		{"pos_123", "pos", RoleMember},
		{"web_abc", "online", RoleMember},
		{"admin_root", "api", RoleMember},
		{"pos_ops-secret", "pos", RoleAdmin},
		{"", "api", RoleMember},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderAPIKey, tc.key)
		r.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, tc.channel, channel, tc.key)
		require.Equal(t, tc.role, role, tc.key)
	}
}
