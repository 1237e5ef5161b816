package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cpgram-backend/internal/common/middleware"
	"cpgram-backend/internal/features/channel/models"
	"cpgram-backend/internal/features/channel/service"
)

type ChannelHandler struct {
	service service.ChannelService
}

func NewChannelHandler(service service.ChannelService) *ChannelHandler {
	return &ChannelHandler{
		service: service,
	}
}

func (h *ChannelHandler) RegisterRoutes(router *gin.RouterGroup) {
	channels := router.Group("/channels")
	{
		channels.POST("/validate", h.validateChannel)
		channels.POST("", h.createChannel)
		channels.GET("", h.listMyChannels)
		channels.GET("/all", h.listAllChannels)
		channels.GET("/:id", h.getChannel)
		channels.PUT("/:id", h.updateChannel)
		channels.DELETE("/:id", h.deleteChannel)
		channels.PUT("/:id/status", h.setPaused)
	}

	admin := router.Group("/admin/channels")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("", h.listPendingChannels)
		admin.POST("/:id/moderate", h.moderateChannel)
	}
}

// @Summary Validate a channel
// @Description Validate a Telegram channel link or username via the Bot API
// @Tags channels
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param input body object true "Channel input"
// @Success 200 {object} service.ValidatedChannel "Channel info"
// @Failure 400 {object} middleware.ErrorResponse "Invalid channel"
// @Router /channels/validate [post]
func (h *ChannelHandler) validateChannel(c *gin.Context) {
	var req struct {
		ChannelInput string `json:"channel_input" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Channel input is required"})
		return
	}

	validated, err := h.service.ValidateChannel(c.Request.Context(), req.ChannelInput)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "channel": validated})
}

// @Summary Register a channel
// @Description Submit a new channel configuration for moderation
// @Tags channels
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param channel body models.CreateChannelRequest true "Channel configuration"
// @Success 200 {object} models.Channel "Created channel"
// @Failure 400 {object} middleware.ErrorResponse "Validation error"
// @Router /channels [post]
func (h *ChannelHandler) createChannel(c *gin.Context) {
	var req models.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := h.service.CreateChannel(c.Request.Context(), c.GetInt64("user_id"), &req)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"channel_id": channel.ID,
		"message":    "Channel submitted successfully. It will be moderated within 48-72 hours.",
	})
}

// @Summary List my channels
// @Tags channels
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.Channel
// @Router /channels [get]
func (h *ChannelHandler) listMyChannels(c *gin.Context) {
	channels, err := h.service.ListMyChannels(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// @Summary List all approved channels
// @Description Discovery listing of approved, unpaused channels
// @Tags channels
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.PublicChannel
// @Router /channels/all [get]
func (h *ChannelHandler) listAllChannels(c *gin.Context) {
	channels, err := h.service.ListPublicChannels(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// @Summary Get one of my channels
// @Tags channels
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Channel ID"
// @Success 200 {object} models.Channel
// @Failure 404 {object} middleware.ErrorResponse "Channel not found"
// @Router /channels/{id} [get]
func (h *ChannelHandler) getChannel(c *gin.Context) {
	channel, err := h.service.GetChannel(c.Request.Context(), c.Param("id"), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, channel)
}

// @Summary Update a channel
// @Tags channels
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Channel ID"
// @Param channel body models.UpdateChannelRequest true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} middleware.ErrorResponse "Channel not found"
// @Router /channels/{id} [put]
func (h *ChannelHandler) updateChannel(c *gin.Context) {
	var req models.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpdateChannel(c.Request.Context(), c.Param("id"), c.GetInt64("user_id"), &req); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Channel updated successfully"})
}

// @Summary Delete a channel
// @Tags channels
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Channel ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} middleware.ErrorResponse "Channel not found"
// @Router /channels/{id} [delete]
func (h *ChannelHandler) deleteChannel(c *gin.Context) {
	if err := h.service.DeleteChannel(c.Request.Context(), c.Param("id"), c.GetInt64("user_id")); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Channel deleted successfully"})
}

// @Summary Pause or activate a channel
// @Description Toggle visibility of an approved channel. Pending channels cannot change status.
// @Tags channels
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Channel ID"
// @Param status body object true "New status: approved or paused"
// @Success 200 {object} map[string]interface{}
// @Router /channels/{id}/status [put]
func (h *ChannelHandler) setPaused(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status != "approved" && req.Status != "paused" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": `Invalid status. Must be "approved" or "paused"`})
		return
	}

	paused := req.Status == "paused"
	if err := h.service.SetPaused(c.Request.Context(), c.Param("id"), c.GetInt64("user_id"), paused); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "status": req.Status})
}

// @Summary List channels pending moderation
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.Channel
// @Router /admin/channels [get]
func (h *ChannelHandler) listPendingChannels(c *gin.Context) {
	channels, err := h.service.ListPendingChannels(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// @Summary Moderate a channel
// @Description Approve or reject a pending channel and notify the owner
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Channel ID"
// @Param decision body object true "Moderation decision"
// @Success 200 {object} map[string]interface{}
// @Router /admin/channels/{id}/moderate [post]
func (h *ChannelHandler) moderateChannel(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Action != "approve" && req.Action != "reject" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": `Invalid action. Must be "approve" or "reject"`})
		return
	}

	if err := h.service.ModerateChannel(c.Request.Context(), c.Param("id"), req.Action == "approve", req.Reason); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
