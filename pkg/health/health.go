package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("health",
	fx.Provide(ProvideHealth),
	fx.Invoke(RegisterRoutes),
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Health struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Deps    []Dependency `json:"deps"`
}

type HealthService interface {
	Liveness(c *gin.Context)
	Readiness(c *gin.Context)
}

type health struct {
	db    *gorm.DB
	redis *redis.Client
}

type HealthParams struct {
	fx.In
	DB    *gorm.DB      `optional:"true"`
	Redis *redis.Client `optional:"true"`
}

func ProvideHealth(p HealthParams) HealthService {
	return &health{
		db:    p.DB,
		redis: p.Redis,
	}
}

func RegisterRoutes(r *gin.Engine, h HealthService) {
	g := r.Group("/health")
	g.GET("/liveness", h.Liveness)
	g.GET("/readiness", h.Readiness)
}

func (h *health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, &Health{
		Status:  StatusHealthy,
		Message: "OK",
	})
}

func (h *health) Readiness(c *gin.Context) {
	this := &Health{
		Status:  StatusHealthy,
		Message: "OK",
		Deps:    make([]Dependency, 0),
	}

	if h.db != nil {
		dep := Dependency{Name: h.db.Name(), Status: StatusHealthy, Message: "OK"}

		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
		}

		this.Deps = append(this.Deps, dep)
	}

	if h.redis != nil {
		dep := Dependency{Name: "redis", Status: StatusHealthy, Message: "OK"}

		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
		}

		this.Deps = append(this.Deps, dep)
	}

	code := http.StatusOK
	for _, dep := range this.Deps {
		if dep.Status != StatusHealthy {
			this.Status = StatusUnhealthy
			this.Message = "dependency unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, this)
}
