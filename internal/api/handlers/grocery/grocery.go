// Package grocery 購物清單的 HTTP 處理器
package grocery

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grocery-tracker/internal/api/handlers"
	"grocery-tracker/internal/core/grocery"
	"grocery-tracker/internal/pkg/common"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AddItemRequest 手動新增項目
type AddItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// UpdateItemRequest 修改項目
type UpdateItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ToggleRequest 勾選或取消勾選
type ToggleRequest struct {
	GroceryItemID string `json:"groceryItemId" binding:"required"`
	Checked       bool   `json:"checked"`
}

// ResetRequest 重設清單
type ResetRequest struct {
	Mode string `json:"mode"`
}

// AddRecipeRequest 食譜加入清單
type AddRecipeRequest struct {
	TargetServings float64 `json:"targetServings"`
}

// Handler 購物清單處理器
type Handler struct {
	svc *grocery.Service
}

// NewHandler 創建購物清單處理器
func NewHandler(svc *grocery.Service) *Handler {
	return &Handler{svc: svc}
}

// List GET /groceries
func (h *Handler) List(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	items, err := h.svc.ListItems(c.Request.Context(), actor)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Add POST /groceries
func (h *Handler) Add(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	var req AddItemRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	id, err := h.svc.AddManualItem(c.Request.Context(), actor, req.Name, req.Quantity, req.Unit)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Update PATCH /groceries/:id
func (h *Handler) Update(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	id, ok := handlers.PathID(c, "id", common.ErrGroceryNotFound)
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	err := h.svc.UpdateItem(c.Request.Context(), actor, id, grocery.UpdateInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// Toggle POST /groceries/toggle
func (h *Handler) Toggle(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	var req ToggleRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	if !common.IsUUID(req.GroceryItemID) {
		handlers.RespondError(c, common.ErrGroceryNotFound)
		return
	}

	if err := h.svc.ToggleItem(c.Request.Context(), actor, req.GroceryItemID, req.Checked); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.GroceryItemID, "checked": req.Checked})
}

// Reset POST /groceries/reset
func (h *Handler) Reset(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	// 沒有請求體時視為 empty 模式
	var req ResetRequest
	if c.Request.ContentLength != 0 && !handlers.BindJSON(c, &req) {
		return
	}

	mode := grocery.ParseResetMode(req.Mode)
	if err := h.svc.ResetList(c.Request.Context(), actor, mode); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode})
}

// Export GET /groceries/export.xlsx
func (h *Handler) Export(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.ExportXLSX(c.Request.Context(), actor, &buf); err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogDebug("Grocery list exported",
		zap.String("household_id", actor.HouseholdID),
		zap.Int("bytes", buf.Len()),
	)
	c.Header("Content-Disposition", `attachment; filename="groceries.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// AddRecipe POST /recipes/:id/add-to-groceries
func (h *Handler) AddRecipe(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	recipeID, ok := handlers.PathID(c, "id", common.ErrRecipeNotFound)
	if !ok {
		return
	}
	var req AddRecipeRequest
	if c.Request.ContentLength != 0 && !handlers.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.AddRecipe(c.Request.Context(), actor, recipeID, req.TargetServings)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"message":           result.Message(),
		"recipe_title":      result.RecipeTitle,
		"ingredients_count": result.IngredientsCount,
	})
}
