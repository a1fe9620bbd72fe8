package authz

import (
	_ "embed"
	"strings"

	"vaultbooks/pkg/config"
	"vaultbooks/pkg/errutil"
	"vaultbooks/pkg/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var modelText string

//go:embed policy.csv
var policyText string

const (
	ObjectCustomer     = "customer"
	ObjectHistory      = "history"
	ObjectNotification = "notification"

	ActionDelete = "delete"
	ActionExport = "export"
	ActionVerify = "verify"
)

var Module = fx.Module("authz", fx.Provide(NewEnforcer))

// NewEnforcer loads ACCESS_CONTROL.MODEL and ACCESS_CONTROL.POLICY when set
// and the embedded defaults otherwise.
func NewEnforcer(cfg *config.Config) (*casbin.SyncedEnforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg.AccessControl.Model != "" {
		m, err = model.NewModelFromFile(cfg.AccessControl.Model)
	} else {
		m, err = model.NewModelFromString(modelText)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AccessControl.Policy != "" {
		return casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.AccessControl.Policy))
	}
	return casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(strings.TrimSpace(policyText)))
}

// Require aborts with 403 unless the caller's role may perform act on obj.
func Require(enforcer *casbin.SyncedEnforcer, obj, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := middleware.GetRole(c.Request.Context())
		ok, err := enforcer.Enforce(role, obj, act)
		if err != nil {
			zap.L().Error("authorization check failed", zap.String("role", role), zap.Error(err))
			_ = c.Error(errutil.Internal("authorization check failed", err))
			c.Abort()
			return
		}
		if !ok {
			_ = c.Error(errutil.Forbidden("not allowed", nil, errutil.WithDetails(errutil.Detail{
				Field:   obj,
				Message: act,
			})))
			c.Abort()
			return
		}
		c.Next()
	}
}
