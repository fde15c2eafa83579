package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/wormz-app/backend/internal/webapp"
)

const (
	initDataHeader = "X-Telegram-Init-Data"
	userIDKey      = "user_id"
)

// authMiddleware validates the mini-app init data and puts the numeric
// Telegram user ID into the request context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(initDataHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "authentication required"})
			return
		}
		data, err := webapp.Validate(raw, s.botToken)
		if err != nil {
			log.WithField("context", "api").WithError(err).Debug("init data rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "authentication required"})
			return
		}
		c.Set(userIDKey, data.User.ID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
