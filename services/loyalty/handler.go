package loyalty

import (
	"net/http"

	"vaultbooks/pkg/authz"
	"vaultbooks/pkg/errutil"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc     *Service
	catalog *Catalog
}

func NewHandler(svc *Service, catalog *Catalog) *Handler {
	return &Handler{svc: svc, catalog: catalog}
}

func RegisterRoutes(r *gin.Engine, h *Handler, enforcer *casbin.SyncedEnforcer) {
	v1 := r.Group("/v1")
	v1.GET("/tiers", h.ListTiers)
	v1.GET("/rewards", h.ListRewards)

	c := v1.Group("/customers")
	c.POST("", h.CreateCustomer)
	c.GET("/:id", h.GetSummary)
	c.DELETE("/:id", authz.Require(enforcer, authz.ObjectCustomer, authz.ActionDelete), h.DeleteCustomer)
	c.POST("/:id/points", h.AddPoints)
	c.POST("/:id/tier/recompute", h.RecomputeTier)
	c.POST("/:id/redemptions", h.RedeemReward)
	c.POST("/:id/rewards/:reward_id/apply", h.ApplyReward)
	c.POST("/:id/referrals", h.AddReferral)
	c.GET("/:id/rewards", h.AvailableRewards)
	c.GET("/:id/benefits", h.TierBenefits)
	c.GET("/:id/next-tier", h.NextTier)
	c.GET("/:id/card", h.LoyaltyCard)
	c.GET("/:id/history/verify", authz.Require(enforcer, authz.ObjectHistory, authz.ActionVerify), h.VerifyHistory)
	c.POST("/:id/exports", authz.Require(enforcer, authz.ObjectHistory, authz.ActionExport), h.ExportHistory)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(errutil.BadRequest("invalid request body", err))
}

type createCustomerRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
}

type amountRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type redeemRequest struct {
	RewardID string `json:"reward_id" binding:"required"`
}

type referralRequest struct {
	ReferredCustomerID string `json:"referred_customer_id" binding:"required"`
}

func (h *Handler) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": h.catalog.Tiers()})
}

func (h *Handler) ListRewards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rewards": h.catalog.Rewards()})
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	customer, err := h.svc.InitializeCustomer(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) DeleteCustomer(c *gin.Context) {
	if err := h.svc.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddPoints(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.AddPoints(c.Request.Context(), c.Param("id"), *req.Amount)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RecomputeTier(c *gin.Context) {
	changed, err := h.svc.RecomputeTier(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h *Handler) RedeemReward(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.RedeemReward(c.Request.Context(), c.Param("id"), req.RewardID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ApplyReward(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.ApplyReward(c.Request.Context(), c.Param("id"), *req.Amount, c.Param("reward_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AddReferral(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.AddReferral(c.Request.Context(), c.Param("id"), req.ReferredCustomerID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AvailableRewards(c *gin.Context) {
	rewards, err := h.svc.AvailableRewards(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

func (h *Handler) TierBenefits(c *gin.Context) {
	benefits, err := h.svc.TierBenefits(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"benefits": benefits})
}

func (h *Handler) NextTier(c *gin.Context) {
	next, err := h.svc.NextTier(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_tier": next})
}

func (h *Handler) LoyaltyCard(c *gin.Context) {
	card, err := h.svc.LoyaltyCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) VerifyHistory(c *gin.Context) {
	valid, err := h.svc.VerifyHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (h *Handler) ExportHistory(c *gin.Context) {
	key, err := h.svc.ExportHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}
