package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grocery-tracker/internal/pkg/common"
)

const (
	// HeaderUserID 上游代理填入的使用者 ID
	HeaderUserID = "X-User-ID"
	// HeaderHouseholdID 上游代理填入的家庭 ID
	HeaderHouseholdID = "X-Household-ID"

	actorKey = "actor"
)

// Household 從標頭取得使用者與家庭，缺少或格式錯誤時回傳 401
func Household() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		householdID := strings.TrimSpace(c.GetHeader(HeaderHouseholdID))

		if !common.IsUUID(userID) || !common.IsUUID(householdID) {
			common.LogWarn("Missing or invalid household headers",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.ErrorResponse{
				Code:    common.ErrCodeUnauthorized,
				Message: "Unauthorized",
			})
			return
		}

		c.Set(actorKey, common.Actor{
			UserID:      strings.ToLower(userID),
			HouseholdID: strings.ToLower(householdID),
		})
		c.Next()
	}
}

// ActorFrom 取出 Household 中間件設定的 actor
func ActorFrom(c *gin.Context) (common.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return common.Actor{}, false
	}
	actor, ok := v.(common.Actor)
	return actor, ok
}
