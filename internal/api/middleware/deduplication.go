package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"grocery-tracker/internal/pkg/common"
)

// Deduplication 請求去重中間件：同一家庭在 window 內送出相同的 POST 會被擋下
// 只有回應 2xx 的請求會被記住；處理中的相同請求同樣會被擋下
func Deduplication(window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = time.Second
	}
	seen := gocache.New(window, 10*window)

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		bodyHash := ""
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.Next()
				return
			}
			hash := sha256.Sum256(body)
			bodyHash = hex.EncodeToString(hash[:])
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		fingerprint := c.Request.Method + ":" + c.Request.URL.Path + ":" + c.GetHeader(HeaderHouseholdID)
		if bodyHash != "" {
			fingerprint += ":" + bodyHash
		}

		// Add 在 key 已存在且未過期時失敗，檢查與保留一次完成；處理失敗時釋放，讓使用者可以重試
		if err := seen.Add(fingerprint, time.Now(), gocache.DefaultExpiration); err != nil {
			common.LogWarn("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Code:    common.ErrCodeTooManyRequests,
				Message: "Request too frequent",
			})
			return
		}

		c.Next()

		if status := c.Writer.Status(); status < http.StatusOK || status >= http.StatusMultipleChoices {
			seen.Delete(fingerprint)
		}
	}
}
