// Package recipe 食譜匯入與管理的 HTTP 處理器
package recipe

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grocery-tracker/internal/api/handlers"
	"grocery-tracker/internal/core/recipe"
	"grocery-tracker/internal/pkg/common"
)

// uploadField multipart 表單中的圖片欄位
const uploadField = "image"

// Handler 食譜處理器
type Handler struct {
	recipes        *recipe.Service
	extract        *recipe.ExtractService
	maxUploadBytes int64
}

// NewHandler 創建食譜處理器
func NewHandler(recipes *recipe.Service, extract *recipe.ExtractService, maxUploadBytes int64) *Handler {
	return &Handler{
		recipes:        recipes,
		extract:        extract,
		maxUploadBytes: maxUploadBytes,
	}
}

// ExtractURL POST /recipes/extract-url
func (h *Handler) ExtractURL(c *gin.Context) {
	if _, ok := handlers.Actor(c); !ok {
		return
	}
	var req ExtractURLRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	draft, err := h.extract.FromURL(c.Request.Context(), req.URL)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DraftResponse{Draft: draft})
}

// UploadImage POST /recipes/upload-image (multipart, 欄位 image)
func (h *Handler) UploadImage(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handlers.RespondError(c, common.ErrInvalidImageSize)
			return
		}
		handlers.RespondError(c, common.NewFieldError(uploadField, "Image file is required."))
		return
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		handlers.RespondError(c, fmt.Errorf("%w: %d bytes", common.ErrInvalidImageSize, header.Size))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	path, err := h.extract.UploadImage(c.Request.Context(), actor, header.Filename, data)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("食譜照片已上傳",
		zap.String("household_id", actor.HouseholdID),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	c.JSON(http.StatusCreated, gin.H{"path": path})
}

// ExtractImage POST /recipes/extract-image
func (h *Handler) ExtractImage(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	var req ExtractImageRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	draft, err := h.extract.FromImage(c.Request.Context(), actor, req.ImagePath, imageSourceType(req.SourceType))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DraftResponse{Draft: draft})
}

// Save POST /recipes，請求體為確認後的草稿
func (h *Handler) Save(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	var draft common.RecipeDraft
	if !handlers.BindJSON(c, &draft) {
		return
	}

	saved, err := h.recipes.SaveDraft(c.Request.Context(), actor, &draft)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SaveResponse{RecipeID: saved.ID, Title: saved.Title})
}

// List GET /recipes
func (h *Handler) List(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	recipes, err := h.recipes.List(c.Request.Context(), actor)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Get GET /recipes/:id
func (h *Handler) Get(c *gin.Context) {
	actor, ok := handlers.Actor(c)
	if !ok {
		return
	}
	id, ok := handlers.PathID(c, "id", common.ErrRecipeNotFound)
	if !ok {
		return
	}

	r, err := h.recipes.Get(c.Request.Context(), actor, id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
