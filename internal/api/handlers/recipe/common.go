package recipe

import (
	"grocery-tracker/internal/pkg/common"
)

// ExtractURLRequest 從網址擷取食譜
type ExtractURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// ExtractImageRequest 從已上傳的照片擷取食譜
type ExtractImageRequest struct {
	ImagePath  string                  `json:"imagePath" binding:"required"`
	SourceType common.RecipeSourceType `json:"sourceType"`
}

// DraftResponse 擷取結果，使用者確認後再整份儲存
type DraftResponse struct {
	Draft *common.RecipeDraft `json:"draft"`
}

// SaveResponse 儲存結果
type SaveResponse struct {
	RecipeID string `json:"recipeId"`
	Title    string `json:"title"`
}

// IngredientRequest 新增或修改食材
type IngredientRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// imageSourceType 未指定時視為食譜頁面照片
func imageSourceType(t common.RecipeSourceType) common.RecipeSourceType {
	if t == "" {
		return common.RecipeSourceImageRecipePage
	}
	return t
}
