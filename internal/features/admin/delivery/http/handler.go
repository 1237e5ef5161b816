package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cpgram-backend/internal/common/middleware"
	"cpgram-backend/internal/features/admin/service"
	broadcastmodels "cpgram-backend/internal/features/broadcast/models"
	broadcastservice "cpgram-backend/internal/features/broadcast/service"
	taskservice "cpgram-backend/internal/features/task/service"
)

type AdminHandler struct {
	stats      service.StatsService
	broadcasts broadcastservice.BroadcastService
	tasks      taskservice.TaskService
}

func NewAdminHandler(stats service.StatsService, broadcasts broadcastservice.BroadcastService, tasks taskservice.TaskService) *AdminHandler {
	return &AdminHandler{
		stats:      stats,
		broadcasts: broadcasts,
		tasks:      tasks,
	}
}

// RegisterRoutes expects a group already gated by RequireAdmin.
func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stats", h.getStats)
	router.GET("/purchases/stats", h.getPurchaseStats)
	router.POST("/reset-invite-tasks", h.resetInviteTasks)
	router.POST("/broadcast", h.startBroadcast)
	router.GET("/broadcast/:id", h.getBroadcastProgress)
}

// @Summary Admin dashboard statistics
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} service.PlatformStats
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/stats [get]
func (h *AdminHandler) getStats(c *gin.Context) {
	stats, err := h.stats.GetStats(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Stars purchase statistics
// @Description Transaction counts by status and total revenue from settled purchases
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} service.PurchaseReport
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/purchases/stats [get]
func (h *AdminHandler) getPurchaseStats(c *gin.Context) {
	report, err := h.stats.GetPurchaseStats(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// @Summary Reset invite tasks
// @Description Clears every user's invite completion flag so the task can be offered again
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/reset-invite-tasks [post]
func (h *AdminHandler) resetInviteTasks(c *gin.Context) {
	reset, err := h.tasks.ResetInviteTasks(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"reset":   reset,
		"message": "Invite tasks reset for all users",
	})
}

// @Summary Broadcast a message to all users
// @Description Enqueues one message per user; delivery is rate-limited in the background
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body broadcastmodels.BroadcastPayload true "Message"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} middleware.ErrorResponse
// @Router /admin/broadcast [post]
func (h *AdminHandler) startBroadcast(c *gin.Context) {
	var payload broadcastmodels.BroadcastPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	progress, err := h.broadcasts.Start(c.Request.Context(), &payload)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"broadcast_id": progress.ID,
		"total":        progress.Total,
	})
}

// @Summary Broadcast delivery progress
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Broadcast ID"
// @Success 200 {object} broadcastmodels.BroadcastProgress
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/broadcast/{id} [get]
func (h *AdminHandler) getBroadcastProgress(c *gin.Context) {
	progress, err := h.broadcasts.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
