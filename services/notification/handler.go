package notification

import (
	"net/http"
	"strconv"

	"vaultbooks/pkg/authz"
	"vaultbooks/pkg/db/pagination"
	"vaultbooks/pkg/errutil"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, h *Handler, enforcer *casbin.SyncedEnforcer) {
	g := r.Group("/v1/customers/:id/notifications")
	g.GET("", h.List)
	g.GET("/unread-count", h.UnreadCount)
	g.POST("/read-all", h.MarkAllAsRead)
	g.POST("/:notification_id/read", h.MarkAsRead)
	g.DELETE("/:notification_id", h.Delete)
	g.DELETE("", authz.Require(enforcer, authz.ObjectNotification, authz.ActionDelete), h.ClearAll)
}

func (h *Handler) List(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination", err))
		return
	}
	unread, _ := strconv.ParseBool(c.Query("unread"))

	items, info, err := h.svc.ListPage(c.Request.Context(), c.Param("id"), ListFilter{
		UnreadOnly: unread,
		Type:       c.Query("type"),
		Priority:   Priority(c.Query("priority")),
	}, page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items, "page_info": info})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	n, err := h.svc.MarkAsRead(c.Request.Context(), c.Param("id"), c.Param("notification_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	updated, err := h.svc.MarkAllAsRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), c.Param("notification_id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ClearAll(c *gin.Context) {
	if err := h.svc.ClearAll(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
