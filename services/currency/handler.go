package currency

import (
	"net/http"

	"vaultbooks/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	g := r.Group("/v1/currencies")
	g.GET("", h.List)
	g.GET("/convert", h.Convert)
	g.GET("/:code/format", h.Format)
	g.GET("/:code/words", h.Words)
}

func queryAmount(c *gin.Context) (decimal.Decimal, bool) {
	raw := c.Query("amount")
	if raw == "" {
		_ = c.Error(errutil.BadRequest("amount is required", nil))
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		_ = c.Error(errutil.BadRequest("amount is not a number", err))
		return decimal.Zero, false
	}
	return amount, true
}

func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":    h.svc.Registry().Default().Code,
		"currencies": h.svc.Registry().List(),
	})
}

func (h *Handler) Convert(c *gin.Context) {
	amount, ok := queryAmount(c)
	if !ok {
		return
	}
	res, err := h.svc.Convert(amount, c.Query("from"), c.Query("to"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Format(c *gin.Context) {
	amount, ok := queryAmount(c)
	if !ok {
		return
	}
	out, err := h.svc.Format(amount, c.Param("code"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"formatted": out})
}

func (h *Handler) Words(c *gin.Context) {
	amount, ok := queryAmount(c)
	if !ok {
		return
	}
	out, err := h.svc.AmountInWords(amount, c.Param("code"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"words": out})
}
