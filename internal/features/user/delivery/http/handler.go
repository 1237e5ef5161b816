package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"cpgram-backend/internal/common/middleware"
	"cpgram-backend/internal/features/user/repository"
	"cpgram-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("/me", h.getMe)
	}

	admin := router.Group("/users")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/:id", h.getUser)
	}
}

// @Summary Get current user
// @Description Get or create current user based on Telegram init data. Returns profile and CP Coin balance.
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.User "User data"
// @Failure 400 {object} middleware.ErrorResponse "Invalid init data"
// @Failure 401 {object} middleware.ErrorResponse "Missing init data"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram Init Data required"})
		return
	}

	telegramUser, ok := user.(initdata.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user data format"})
		return
	}

	userResponse, err := h.service.GetOrCreateUser(c.Request.Context(), telegramUser.ID, telegramUser.Username, telegramUser.FirstName, telegramUser.LastName)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse)
}

// @Summary Get user by ID
// @Description Get user information by Telegram ID (admin only)
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Telegram user ID"
// @Success 200 {object} models.User "User data"
// @Failure 400 {object} middleware.ErrorResponse "Invalid request"
// @Failure 404 {object} middleware.ErrorResponse "User not found"
// @Router /users/{id} [get]
func (h *UserHandler) getUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
