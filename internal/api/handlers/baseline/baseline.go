// Package baseline 家庭常備品的 HTTP 處理器
package baseline

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grocery-tracker/internal/api/handlers"
	"grocery-tracker/internal/core/baseline"
	"grocery-tracker/internal/core/grocery"
	"grocery-tracker/internal/pkg/common"
)

// UpsertRequest 新增或覆寫常備品
type UpsertRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
}

// SetActiveRequest 啟用或停用
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Handler 常備品處理器
type Handler struct {
	baselines *baseline.Service
	groceries *grocery.Service
}

// NewHandler 創建常備品處理器
func NewHandler(baselines *baseline.Service, groceries *grocery.Service) *Handler {
	return &Handler{baselines: baselines, groceries: groceries}
}

// List GET /baseline
func (h *Handler) List(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	items, err := h.baselines.List(c.Request.Context(), actor)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Upsert POST /baseline
func (h *Handler) Upsert(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	var req UpsertRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	item, err := h.baselines.Upsert(c.Request.Context(), actor, baseline.UpsertInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Category: req.Category,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// AddToGroceries POST /baseline/:id/add-to-groceries
func (h *Handler) AddToGroceries(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	id, ok := handlers.PathID(c, "id", common.ErrBaselineNotFound)
	if !ok {
		return
	}

	itemID, err := h.groceries.AddBaselineItem(c.Request.Context(), actor, id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": itemID})
}

// SetActive PATCH /baseline/:id/active
func (h *Handler) SetActive(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	id, ok := handlers.PathID(c, "id", common.ErrBaselineNotFound)
	if !ok {
		return
	}
	var req SetActiveRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	if err := h.baselines.SetActive(c.Request.Context(), actor, id, *req.Active); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": *req.Active})
}

// Suggest POST /baseline/suggest
func (h *Handler) Suggest(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	items, err := h.baselines.Suggest(c.Request.Context(), actor)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
