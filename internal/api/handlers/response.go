// Package handlers HTTP 處理器共用的回應與參數工具
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grocery-tracker/internal/api/middleware"
	"grocery-tracker/internal/pkg/common"
)

// RespondError 將錯誤轉成單一訊息的 JSON 回應
func RespondError(c *gin.Context, err error) {
	status := common.StatusOf(err)
	resp := common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: err.Error(),
	}

	var ce *common.CustomError
	switch {
	case common.IsValidationError(err):
		resp.Code = common.ErrCodeInvalidRequest
	case errors.As(err, &ce):
		resp.Code = ce.Code
		if ce.Message != "" {
			resp.Message = ce.Message
		}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		resp.Code = common.ErrCodeGatewayTimeout
		resp.Message = "Request timeout"
	default:
		resp.Message = "Internal server error"
		if gin.IsDebugging() {
			resp.Details = err.Error()
		}
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= http.StatusInternalServerError {
		common.LogError("Request failed", fields...)
	} else {
		common.LogWarn("Request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// BindJSON 解析請求體，失敗時直接回應 400
func BindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		common.LogWarn("Invalid request format",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "Invalid request format",
		})
		return false
	}
	return true
}

// Actor 取得目前請求的家庭身分，缺少時回應 401
func Actor(c *gin.Context) (common.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, common.ErrorResponse{
			Code:    common.ErrCodeUnauthorized,
			Message: "Unauthorized",
		})
	}
	return actor, ok
}

// PathID 取得路徑上的 UUID 參數，格式不符時回應 notFound
func PathID(c *gin.Context, name string, notFound error) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if !common.IsUUID(id) {
		RespondError(c, notFound)
		return "", false
	}
	return strings.ToLower(id), true
}
