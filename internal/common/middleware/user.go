package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"cpgram-backend/internal/common/logger"
	"cpgram-backend/internal/features/user/service"
)

// AutoCreateUser upserts the authenticated Telegram user on every request so
// handlers can assume a user document exists.
func AutoCreateUser(userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.Next()
			return
		}

		telegramUser, ok := user.(initdata.User)
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user data format"})
			return
		}

		_, err := userService.GetOrCreateUser(c.Request.Context(), telegramUser.ID, telegramUser.Username, telegramUser.FirstName, telegramUser.LastName)
		if err != nil {
			logger.Error().Err(err).Int64("user_id", telegramUser.ID).Msg("Failed to auto-create/update user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create/update user"})
			return
		}

		c.Next()
	}
}
