package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"grocery-tracker/internal/api/middleware"
	"grocery-tracker/internal/core/ai/provider"
	"grocery-tracker/internal/core/ai/service"
	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/infrastructure/store/memory"
	"grocery-tracker/internal/pkg/common"
)

const (
	userID      = "5a9d2f10-3333-4000-8000-000000000001"
	householdID = "5a9d2f10-3333-4000-8000-0000000000dd"
)

type stubProvider struct {
	content string
}

func (p *stubProvider) Generate(context.Context, *provider.Request) (*provider.Response, error) {
	return &provider.Response{Content: p.content, Model: "stub"}, nil
}
func (p *stubProvider) Name() string           { return "stub" }
func (p *stubProvider) Model(bool) string      { return "stub-model" }
func (p *stubProvider) Timeout() time.Duration { return 0 }
func (p *stubProvider) Close() error           { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Debug: true, Version: "test"},
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second, AllowOrigins: []string{"*"}},
		Upload:      config.UploadConfig{MaxSizeBytes: 8 << 20, MaxDimension: 256},
		Baseline:    config.BaselineConfig{MaxSuggestions: 40},
		DedupWindow: time.Second,
	}
}

func newTestRouter(t *testing.T, ai *service.Service) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memory.New()
	return SetupRouter(testConfig(), Dependencies{Store: st, StorageName: "memory", AI: ai}), st
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, userID)
	req.Header.Set(middleware.HeaderHouseholdID, householdID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthRoutes(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.NotEmpty(t, do(r, http.MethodGet, "/health", nil).Header().Get("X-Request-ID"))
}

func TestRequiresHousehold(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/groceries", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decode[common.ErrorResponse](t, w).Message)
}

func TestGroceryFlow(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodPost, "/api/v1/groceries", map[string]any{"name": "milk", "quantity": 1, "unit": "L"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]string](t, w)["id"]

	w = do(r, http.MethodPost, "/api/v1/groceries", map[string]any{"name": "Milk", "quantity": 500, "unit": "ml"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, id, decode[map[string]string](t, w)["id"])

	w = do(r, http.MethodGet, "/api/v1/groceries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []common.GroceryItemWithSources `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1.5, list.Items[0].Quantity)
	assert.Equal(t, "l", list.Items[0].Unit)

	w = do(r, http.MethodPost, "/api/v1/groceries/toggle", map[string]any{"groceryItemId": id, "checked": true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/groceries/"+id, map[string]any{"name": "oat milk", "quantity": 2, "unit": "l"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/groceries/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType(), w.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("Groceries")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Oat Milk", rows[1][0])

	w = do(r, http.MethodPost, "/api/v1/groceries/reset", map[string]any{"mode": "empty"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/api/v1/groceries", nil)
	assert.Empty(t, decode[struct {
		Items []common.GroceryItemWithSources `json:"items"`
	}](t, w).Items)
}

func xlsxContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func TestGroceryErrors(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodPatch, "/api/v1/groceries/not-a-uuid", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Grocery item not found.", decode[common.ErrorResponse](t, w).Message)

	w = do(r, http.MethodPost, "/api/v1/groceries", map[string]any{"quantity": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/groceries/toggle", map[string]any{"groceryItemId": common.GenerateUUID(), "checked": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBaselineFlow(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodPost, "/api/v1/baseline", map[string]any{"name": "eggs", "quantity": 12, "unit": "pcs"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	item := decode[common.BaselineItem](t, w)
	assert.Equal(t, "Eggs", item.NameDisplay)

	w = do(r, http.MethodPost, "/api/v1/baseline/"+item.ID+"/add-to-groceries", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPatch, "/api/v1/baseline/"+item.ID+"/active", map[string]any{"active": false})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/baseline/"+item.ID+"/active", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/baseline", nil)
	list := decode[struct {
		Items []common.BaselineItem `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 1)
	assert.False(t, list.Items[0].IsActive)

	w = do(r, http.MethodPost, "/api/v1/baseline/suggest", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "AI_NOT_CONFIGURED", decode[common.ErrorResponse](t, w).Code)

	w = do(r, http.MethodPost, "/api/v1/baseline/"+common.GenerateUUID()+"/add-to-groceries", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBaselineSuggest(t *testing.T) {
	ai := service.NewWithProvider(&stubProvider{content: `{"items":[{"name":"Rice","quantity":"2kg","unit":"kg"}]}`}, nil)
	r, _ := newTestRouter(t, ai)

	w := do(r, http.MethodPost, "/api/v1/baseline/suggest", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		Items []common.SuggestedBaselineItem `json:"items"`
	}](t, w)
	assert.Equal(t, []common.SuggestedBaselineItem{{Name: "Rice", Quantity: 2, Unit: "kg"}}, got.Items)
}

func TestRecipeFlow(t *testing.T) {
	r, st := newTestRouter(t, nil)

	draft := map[string]any{
		"title":      "Chicken Adobo",
		"sourceType": "manual",
		"servings":   4,
		"ingredients": []map[string]any{
			{"nameDisplay": "Chicken", "quantity": 1.5, "unit": "kg"},
			{"nameDisplay": "Vinegar", "quantity": 0.5, "unit": "cup"},
		},
	}
	w := do(r, http.MethodPost, "/api/v1/recipes", draft)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	recipeID := decode[map[string]string](t, w)["recipeId"]
	assert.Len(t, st.ImportLogs(), 1)

	w = do(r, http.MethodPost, "/api/v1/recipes/"+recipeID+"/ingredients", map[string]any{"name": "bay leaves", "quantity": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ingredient := decode[common.RecipeIngredient](t, w)

	w = do(r, http.MethodPatch, fmt.Sprintf("/api/v1/recipes/%s/ingredients/%s", recipeID, ingredient.ID), map[string]any{"name": "Bay Leaf", "quantity": 2})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodDelete, fmt.Sprintf("/api/v1/recipes/%s/ingredients/%s", recipeID, ingredient.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/recipes/"+recipeID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[common.RecipeWithIngredients](t, w).Ingredients, 2)

	w = do(r, http.MethodPost, "/api/v1/recipes/"+recipeID+"/add-to-groceries", map[string]any{"targetServings": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[map[string]any](t, w)
	assert.Equal(t, "Added 2 ingredients from Chicken Adobo.", result["message"])
	assert.Equal(t, "Chicken Adobo", result["recipe_title"])

	w = do(r, http.MethodGet, "/api/v1/groceries", nil)
	list := decode[struct {
		Items []common.GroceryItemWithSources `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 2)
	for _, item := range list.Items {
		if item.NameDisplay == "Chicken" {
			assert.Equal(t, 0.75, item.Quantity)
			require.Len(t, item.Sources, 1)
			assert.Equal(t, recipeID, item.Sources[0].SourceID)
		}
	}

	w = do(r, http.MethodGet, "/api/v1/recipes", nil)
	assert.Len(t, decode[struct {
		Recipes []common.Recipe `json:"recipes"`
	}](t, w).Recipes, 1)
}

func TestRecipeErrors(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodGet, "/api/v1/recipes/"+common.GenerateUUID(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Recipe not found.", decode[common.ErrorResponse](t, w).Message)

	w = do(r, http.MethodPost, "/api/v1/recipes", map[string]any{"title": "", "sourceType": "manual", "servings": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeInvalidRequest, decode[common.ErrorResponse](t, w).Code)

	w = do(r, http.MethodPost, "/api/v1/recipes/extract-url", map[string]any{"url": "ftp://example.com/x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func upload(r *gin.Engine, field, filename string, data []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile(field, filename)
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/upload-image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.HeaderUserID, userID)
	req.Header.Set(middleware.HeaderHouseholdID, householdID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadAndExtractImage(t *testing.T) {
	content := `{"title":"Pancakes","servings":2,"ingredients":[{"name":"Eggs","quantity":2,"unit":"pcs"}],"confidence":0.9}`
	ai := service.NewWithProvider(&stubProvider{content: content}, nil)
	r, _ := newTestRouter(t, ai)

	w := upload(r, "image", "breakfast.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	path := decode[map[string]string](t, w)["path"]
	assert.True(t, strings.HasPrefix(path, householdID+"/"+userID+"/"))

	w = do(r, http.MethodPost, "/api/v1/recipes/extract-image", map[string]any{"imagePath": path, "sourceType": "image_meal"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		Draft common.RecipeDraft `json:"draft"`
	}](t, w)
	assert.Equal(t, "Pancakes", got.Draft.Title)
	assert.Equal(t, common.RecipeSourceImageMeal, got.Draft.SourceType)

	w = upload(r, "file", "breakfast.png", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(r, "image", "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
