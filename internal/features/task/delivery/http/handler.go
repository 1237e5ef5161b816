package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cpgram-backend/internal/common/middleware"
	"cpgram-backend/internal/features/task/models"
	"cpgram-backend/internal/features/task/service"
)

type TaskHandler struct {
	service service.TaskService
}

func NewTaskHandler(service service.TaskService) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tasks", h.getTasks)
	router.POST("/tasks/claim-welcome", h.claimWelcome)
	router.POST("/tasks/verify-channel-join", h.verifyChannelJoin)
	router.POST("/tasks/create-invite", h.createInviteTask)
}

// @Summary List tasks
// @Description Available one-time tasks with the caller's completion state
// @Tags tasks
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} map[string]interface{}
// @Router /tasks [get]
func (h *TaskHandler) getTasks(c *gin.Context) {
	tasks, err := h.service.GetTasks(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// @Summary Claim the welcome bonus
// @Tags tasks
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} middleware.ErrorResponse "Already claimed"
// @Router /tasks/claim-welcome [post]
func (h *TaskHandler) claimWelcome(c *gin.Context) {
	reward, err := h.service.ClaimWelcome(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"reward":  reward,
		"message": "Welcome bonus claimed successfully!",
	})
}

// @Summary Verify news channel membership
// @Description Checks the caller joined the news channel and credits the reward once
// @Tags tasks
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} middleware.ErrorResponse "Not a member"
// @Failure 409 {object} middleware.ErrorResponse "Already verified"
// @Router /tasks/verify-channel-join [post]
func (h *TaskHandler) verifyChannelJoin(c *gin.Context) {
	reward, err := h.service.VerifyChannelJoin(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"reward":  reward,
		"message": "Channel membership verified!",
	})
}

// @Summary Create an invite task
// @Description Schedules a promotional post on the caller's channel. The reward is paid when the post's run finishes.
// @Tags tasks
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body models.CreateInviteTaskPayload true "Channel"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} middleware.ErrorResponse "Already created for this channel"
// @Router /tasks/create-invite [post]
func (h *TaskHandler) createInviteTask(c *gin.Context) {
	var payload models.CreateInviteTaskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaignID, err := h.service.CreateInviteTask(c.Request.Context(), c.GetInt64("user_id"), payload.ChannelID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"reward":      service.InviteTaskReward,
		"campaign_id": campaignID,
		"message":     "Invite task created successfully!",
	})
}
