// Package api 組裝路由、中間件與處理器
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	baselineHandler "grocery-tracker/internal/api/handlers/baseline"
	groceryHandler "grocery-tracker/internal/api/handlers/grocery"
	"grocery-tracker/internal/api/handlers/health"
	recipeHandler "grocery-tracker/internal/api/handlers/recipe"
	"grocery-tracker/internal/api/middleware"
	"grocery-tracker/internal/core/ai/service"
	"grocery-tracker/internal/core/baseline"
	"grocery-tracker/internal/core/grocery"
	"grocery-tracker/internal/core/image"
	"grocery-tracker/internal/core/recipe"
	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/pkg/common"
)

const (
	// 下載食譜網頁的逾時
	pageFetchTimeout = 20 * time.Second
	// multipart 表單在圖片之外的額外空間
	multipartOverhead = 1 << 20
)

// Dependencies 路由需要的外部資源
type Dependencies struct {
	Store       store.Store
	StorageName string
	AI          *service.Service
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.String("storage", deps.StorageName),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(cors.New(corsConfig(cfg.Server.AllowOrigins)))
	router.Use(middleware.BodySizeLimit(cfg.Upload.MaxSizeBytes + multipartOverhead))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 未設定 API key 時不注入模型，服務會直接回報未設定
	var baselineAI baseline.Generator
	var recipeAI recipe.Generator
	if deps.AI.Enabled() {
		baselineAI = deps.AI
		recipeAI = deps.AI
	}

	st := deps.Store
	imageSvc := image.NewService(cfg.Upload.MaxSizeBytes, cfg.Upload.MaxDimension)
	grocerySvc := grocery.NewService(st, st, st)
	baselineSvc := baseline.NewService(st, baselineAI, cfg.Baseline.MaxSuggestions)
	recipeSvc := recipe.NewService(st, recipeAI)
	extractSvc := recipe.NewExtractService(recipeAI, st, imageSvc, pageFetchTimeout)

	healthH := health.NewHandler(cfg.App.Version, deps.StorageName, st, deps.AI)
	router.GET("/health", healthH.HealthCheck)
	router.GET("/ready", healthH.ReadinessCheck)
	router.GET("/live", healthH.LivenessCheck)

	api := router.Group("/api/v1")
	api.Use(middleware.Household())
	api.Use(middleware.Deduplication(cfg.DedupWindow))
	{
		groceries := groceryHandler.NewHandler(grocerySvc)
		g := api.Group("/groceries")
		{
			g.GET("", groceries.List)
			g.POST("", groceries.Add)
			g.PATCH("/:id", groceries.Update)
			g.POST("/toggle", groceries.Toggle)
			g.POST("/reset", groceries.Reset)
			g.GET("/export.xlsx", groceries.Export)
		}

		baselines := baselineHandler.NewHandler(baselineSvc, grocerySvc)
		b := api.Group("/baseline")
		{
			b.GET("", baselines.List)
			b.POST("", baselines.Upsert)
			b.POST("/suggest", baselines.Suggest)
			b.POST("/:id/add-to-groceries", baselines.AddToGroceries)
			b.PATCH("/:id/active", baselines.SetActive)
		}

		recipes := recipeHandler.NewHandler(recipeSvc, extractSvc, cfg.Upload.MaxSizeBytes)
		r := api.Group("/recipes")
		{
			r.GET("", recipes.List)
			r.POST("", recipes.Save)
			r.POST("/extract-url", recipes.ExtractURL)
			r.POST("/upload-image", recipes.UploadImage)
			r.POST("/extract-image", recipes.ExtractImage)
			r.GET("/:id", recipes.Get)
			r.POST("/:id/ingredients", recipes.AddIngredient)
			r.PATCH("/:id/ingredients/:ingredientId", recipes.UpdateIngredient)
			r.DELETE("/:id/ingredients/:ingredientId", recipes.DeleteIngredient)
			r.POST("/:id/add-to-groceries", groceries.AddRecipe)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("ai_enabled", deps.AI.Enabled()),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_upload_bytes", cfg.Upload.MaxSizeBytes),
	)

	return router
}

// corsConfig 含 "*" 時允許所有來源
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.HeaderUserID, middleware.HeaderHouseholdID},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}
