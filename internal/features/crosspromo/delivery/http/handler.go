package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cpgram-backend/internal/common/middleware"
	"cpgram-backend/internal/features/crosspromo/models"
	"cpgram-backend/internal/features/crosspromo/service"
)

type RequestHandler struct {
	service service.RequestService
}

func NewRequestHandler(service service.RequestService) *RequestHandler {
	return &RequestHandler{
		service: service,
	}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/requests", h.listRequests)
	router.POST("/request", h.createRequest)
	router.POST("/request/:id/accept", h.acceptRequest)
	router.POST("/request/:id/decline", h.declineRequest)
}

// @Summary List my cross-promo requests
// @Description Requests involving any of the caller's channels
// @Tags requests
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.CrossPromoRequest
// @Router /requests [get]
func (h *RequestHandler) listRequests(c *gin.Context) {
	requests, err := h.service.ListMyRequests(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// @Summary Create a cross-promo request
// @Description Offer a promo exchange to another channel. The caller must own the requesting channel and have a balance covering the offered cost.
// @Tags requests
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body models.CreateRequestPayload true "Request"
// @Success 200 {object} map[string]interface{}
// @Failure 402 {object} middleware.ErrorResponse "Insufficient balance"
// @Router /request [post]
func (h *RequestHandler) createRequest(c *gin.Context) {
	var payload models.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.CreateRequest(c.Request.Context(), c.GetInt64("user_id"), &payload)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "id": request.ID})
}

// @Summary Accept a cross-promo request
// @Description Target channel owner accepts; a two-party campaign is created with both sides pending posting.
// @Tags requests
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} middleware.ErrorResponse "Request is no longer pending"
// @Router /request/{id}/accept [post]
func (h *RequestHandler) acceptRequest(c *gin.Context) {
	campaignID, err := h.service.AcceptRequest(c.Request.Context(), c.Param("id"), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "campaign_id": campaignID})
}

// @Summary Decline a cross-promo request
// @Tags requests
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Request ID"
// @Success 200 {object} map[string]interface{}
// @Router /request/{id}/decline [post]
func (h *RequestHandler) declineRequest(c *gin.Context) {
	if err := h.service.DeclineRequest(c.Request.Context(), c.Param("id"), c.GetInt64("user_id")); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
