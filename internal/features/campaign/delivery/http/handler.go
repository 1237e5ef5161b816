package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cpgram-backend/internal/common/middleware"
	"cpgram-backend/internal/features/campaign/service"
)

type CampaignHandler struct {
	service service.CampaignService
}

func NewCampaignHandler(service service.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		service: service,
	}
}

func (h *CampaignHandler) RegisterRoutes(router *gin.RouterGroup) {
	campaigns := router.Group("/campaigns")
	{
		campaigns.GET("", h.listMyCampaigns)
		campaigns.POST("/:id/verify-post", h.verifyPost)
		campaigns.POST("/:id/end", h.endCampaign)
	}

	router.GET("/analytics", h.getAnalytics)
}

// @Summary List my campaigns
// @Description Campaigns touching the caller's channels, annotated with the caller's role and the promo material they must post
// @Tags campaigns
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.CampaignView
// @Router /campaigns [get]
func (h *CampaignHandler) listMyCampaigns(c *gin.Context) {
	views, err := h.service.GetUserCampaigns(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// @Summary Cross-promotion analytics
// @Description Estimated impressions, engagement rate and subscriber growth across the caller's channels
// @Tags campaigns
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.UserAnalytics
// @Router /analytics [get]
func (h *CampaignHandler) getAnalytics(c *gin.Context) {
	analytics, err := h.service.GetUserAnalytics(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// @Summary Submit a post verification link
// @Description Activates the caller's side of the campaign. Re-submitting while active overwrites the link.
// @Tags campaigns
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Campaign ID"
// @Param link body object true "Post link"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} middleware.ErrorResponse "Missing post link"
// @Failure 403 {object} middleware.ErrorResponse "Not a party of this campaign"
// @Failure 404 {object} middleware.ErrorResponse "Campaign not found"
// @Router /campaigns/{id}/verify-post [post]
func (h *CampaignHandler) verifyPost(c *gin.Context) {
	var req struct {
		PostLink string `json:"post_link"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.service.SubmitPostLink(c.Request.Context(), c.Param("id"), c.GetInt64("user_id"), req.PostLink)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// @Summary End my side of a campaign and claim the reward
// @Description Requester earns the flat completion bonus; acceptor earns the agreed CP Coin cost transferred from the requester. Each side pays out exactly once.
// @Tags campaigns
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.RewardResult
// @Failure 402 {object} middleware.ErrorResponse "Requester balance does not cover the cost"
// @Failure 409 {object} middleware.ErrorResponse "Reward already claimed"
// @Router /campaigns/{id}/end [post]
func (h *CampaignHandler) endCampaign(c *gin.Context) {
	result, err := h.service.EndAndReward(c.Request.Context(), c.Param("id"), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "reward": result.Reward, "role": result.Role})
}
