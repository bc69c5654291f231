// Package health 健康、就緒與存活檢查
package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grocery-tracker/internal/pkg/common"
)

// pingTimeout 就緒檢查等待儲存層的上限
const pingTimeout = 2 * time.Second

// Pinger 可檢查連線的依賴（資料庫）
type Pinger interface {
	Ping(ctx context.Context) error
}

// AIStatus AI 供應商狀態
type AIStatus interface {
	Enabled() bool
	ProviderName() string
	ModelName(vision bool) string
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Storage   string                 `json:"storage"`
	AI        *AIInfo                `json:"ai"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// AIInfo AI 設定摘要
type AIInfo struct {
	Enabled     bool   `json:"enabled"`
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	VisionModel string `json:"vision_model,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	storage string
	store   Pinger
	ai      AIStatus
}

// NewHandler 創建健康檢查處理器，storage 為儲存後端名稱（postgres / memory）
func NewHandler(version, storage string, store Pinger, ai AIStatus) *Handler {
	return &Handler{version: version, storage: storage, store: store, ai: ai}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := &AIInfo{}
	if h.ai != nil && h.ai.Enabled() {
		info = &AIInfo{
			Enabled:     true,
			Provider:    h.ai.ProviderName(),
			Model:       h.ai.ModelName(false),
			VisionModel: h.ai.ModelName(true),
		}
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Storage:   h.storage,
		AI:        info,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器：儲存層無法連線時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			common.LogError("Readiness check failed", zap.Error(err), zap.String("storage", h.storage))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"storage": h.storage,
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"storage": h.storage,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
