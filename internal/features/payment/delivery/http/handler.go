package http

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"

	"cpgram-backend/internal/common/logger"
	"cpgram-backend/internal/common/middleware"
	"cpgram-backend/internal/features/payment/models"
	"cpgram-backend/internal/features/payment/service"
)

type PaymentHandler struct {
	service service.PaymentService
}

func NewPaymentHandler(service service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service: service,
	}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/purchase/rates", h.getRates)
	router.POST("/purchase/stars", h.initiatePurchase)
	router.GET("/transactions", h.listTransactions)
	router.GET("/transactions/:id", h.getTransaction)
}

// RegisterWebhook mounts the bot webhook outside the authenticated API group.
// Telegram calls it directly, so there is no init data to validate.
func (h *PaymentHandler) RegisterWebhook(router gin.IRouter) {
	router.POST("/bot/webhook", h.handleWebhook)
}

// @Summary Exchange rates
// @Description Stars-to-CP-Coins exchange terms
// @Tags purchase
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.Rates
// @Router /purchase/rates [get]
func (h *PaymentHandler) getRates(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetRates())
}

// @Summary Buy CP Coins with Telegram Stars
// @Description Creates a pending transaction and sends a Stars invoice to the caller's chat
// @Tags purchase
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body models.InitiatePurchasePayload true "Purchase"
// @Success 200 {object} map[string]interface{}
// @Failure 502 {object} middleware.ErrorResponse "Invoice could not be sent"
// @Router /purchase/stars [post]
func (h *PaymentHandler) initiatePurchase(c *gin.Context) {
	var payload models.InitiatePurchasePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, err := h.service.InitiatePurchase(c.Request.Context(), c.GetInt64("user_id"), payload.CPCAmount)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"transaction_id": transaction.TransactionID,
		"stars_cost":     transaction.StarsCost,
		"cpc_amount":     transaction.CPCAmount,
	})
}

// handleWebhook always answers 200 so Telegram does not retry forever.
// Processing failures are logged and reported instead.
func (h *PaymentHandler) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		logger.Warn().Err(err).Msg("Malformed webhook update")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if err := h.service.HandleWebhookUpdate(c.Request.Context(), &update); err != nil {
		logger.Error().Err(err).Msg("Failed to process webhook update")
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// @Summary Transaction history
// @Tags purchase
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} map[string]interface{}
// @Router /transactions [get]
func (h *PaymentHandler) listTransactions(c *gin.Context) {
	transactions, err := h.service.ListTransactions(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// @Summary Get a transaction
// @Tags purchase
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} middleware.ErrorResponse
// @Router /transactions/{id} [get]
func (h *PaymentHandler) getTransaction(c *gin.Context) {
	transaction, err := h.service.GetTransaction(c.Request.Context(), c.GetInt64("user_id"), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, transaction)
}
