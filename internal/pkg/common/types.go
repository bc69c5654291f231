package common

import (
	"time"
)

// UnitDimension 單位的物理類別
type UnitDimension string

const (
	DimensionVolume  UnitDimension = "volume"
	DimensionWeight  UnitDimension = "weight"
	DimensionCount   UnitDimension = "count"
	DimensionUnknown UnitDimension = "unknown"
)

// CanonicalUnit 標準化後的單位
// ToBase 為換算到該類別基準單位（ml、g、個）的倍率
type CanonicalUnit struct {
	Canonical string        `json:"canonical"`
	Dimension UnitDimension `json:"dimension"`
	ToBase    float64       `json:"to_base"`
}

// GroceryStatus 購物清單項目狀態
type GroceryStatus string

const (
	GroceryStatusNeeded GroceryStatus = "needed"
	GroceryStatusHave   GroceryStatus = "have"
)

// SourceType 購物清單數量的來源類型
type SourceType string

const (
	SourceTypeBaseline SourceType = "baseline"
	SourceTypeRecipe   SourceType = "recipe"
)

// RecipeSourceType 食譜匯入來源
type RecipeSourceType string

const (
	RecipeSourceURL             RecipeSourceType = "url"
	RecipeSourceImageMeal       RecipeSourceType = "image_meal"
	RecipeSourceImageRecipePage RecipeSourceType = "image_recipe_page"
	RecipeSourceManual          RecipeSourceType = "manual"
)

// IsValid 檢查食譜來源是否為已知類型
func (t RecipeSourceType) IsValid() bool {
	switch t {
	case RecipeSourceURL, RecipeSourceImageMeal, RecipeSourceImageRecipePage, RecipeSourceManual:
		return true
	}
	return false
}

// GroceryItem 購物清單項目
type GroceryItem struct {
	ID             string        `json:"id" db:"id"`
	HouseholdID    string        `json:"household_id" db:"household_id"`
	CreatedBy      string        `json:"created_by" db:"created_by"`
	NameDisplay    string        `json:"name_display" db:"name_display"`
	NameNormalized string        `json:"name_normalized" db:"name_normalized"`
	Quantity       float64       `json:"quantity" db:"quantity"`
	Unit           string        `json:"unit" db:"unit"`
	Category       string        `json:"category" db:"category"`
	Status         GroceryStatus `json:"status" db:"status"`
	Checked        bool          `json:"checked" db:"checked"`
	Notes          *string       `json:"notes" db:"notes"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// GroceryItemSource 購物清單數量的來源歸屬
type GroceryItemSource struct {
	ID                  string     `json:"id" db:"id"`
	GroceryItemID       string     `json:"grocery_item_id" db:"grocery_item_id"`
	SourceType          SourceType `json:"source_type" db:"source_type"`
	SourceID            string     `json:"source_id" db:"source_id"`
	SourceLabel         string     `json:"source_label" db:"source_label"`
	QuantityContributed float64    `json:"quantity_contributed" db:"quantity_contributed"`
	Unit                string     `json:"unit" db:"unit"`
}

// GroceryItemWithSources 帶來源的購物清單項目
type GroceryItemWithSources struct {
	GroceryItem
	Sources []GroceryItemSource `json:"grocery_item_sources"`
}

// BaselineItem 家庭常備品模板
type BaselineItem struct {
	ID              string  `json:"id" db:"id"`
	HouseholdID     string  `json:"household_id" db:"household_id"`
	CreatedBy       string  `json:"created_by" db:"created_by"`
	NameDisplay     string  `json:"name_display" db:"name_display"`
	NameNormalized  string  `json:"name_normalized" db:"name_normalized"`
	DefaultQuantity float64 `json:"default_quantity" db:"default_quantity"`
	DefaultUnit     string  `json:"default_unit" db:"default_unit"`
	Category        string  `json:"category" db:"category"`
	IsActive        bool    `json:"is_active" db:"is_active"`
}

// SuggestedBaselineItem AI 建議的常備品（已清理）
type SuggestedBaselineItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Recipe 已儲存的食譜
type Recipe struct {
	ID              string           `json:"id" db:"id"`
	HouseholdID     string           `json:"household_id" db:"household_id"`
	CreatedBy       string           `json:"created_by" db:"created_by"`
	Title           string           `json:"title" db:"title"`
	Description     *string          `json:"description" db:"description"`
	SourceType      RecipeSourceType `json:"source_type" db:"source_type"`
	SourceURL       *string          `json:"source_url" db:"source_url"`
	SourceImagePath *string          `json:"source_image_path" db:"source_image_path"`
	Servings        float64          `json:"servings" db:"servings"`
	DietaryTags     []string         `json:"dietary_tags" db:"-"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// RecipeIngredient 食譜食材
type RecipeIngredient struct {
	ID             string  `json:"id" db:"id"`
	RecipeID       string  `json:"recipe_id" db:"recipe_id"`
	NameDisplay    string  `json:"name_display" db:"name_display"`
	NameNormalized string  `json:"name_normalized" db:"name_normalized"`
	Quantity       float64 `json:"quantity" db:"quantity"`
	Unit           string  `json:"unit" db:"unit"`
	IsOptional     bool    `json:"is_optional" db:"is_optional"`
	Notes          *string `json:"notes" db:"notes"`
}

// RecipeWithIngredients 食譜與其食材
type RecipeWithIngredients struct {
	Recipe
	Ingredients []RecipeIngredient `json:"ingredients"`
}

// IngredientDraft 尚未儲存的食材草稿
type IngredientDraft struct {
	NameDisplay    string  `json:"nameDisplay"`
	NameNormalized string  `json:"nameNormalized"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	IsOptional     bool    `json:"isOptional"`
	Notes          *string `json:"notes"`
}

// RecipeDraft 尚未儲存的食譜草稿，整份接受或整份放棄
type RecipeDraft struct {
	Title           string            `json:"title"`
	Description     *string           `json:"description"`
	SourceType      RecipeSourceType  `json:"sourceType"`
	SourceURL       *string           `json:"sourceUrl"`
	SourceImagePath *string           `json:"sourceImagePath"`
	Servings        float64           `json:"servings"`
	DietaryTags     []string          `json:"dietaryTags"`
	Ingredients     []IngredientDraft `json:"ingredients"`
	Confidence      *float64          `json:"confidence"`
}

// RecipeImportLog 食譜匯入紀錄
type RecipeImportLog struct {
	ID              string           `json:"id" db:"id"`
	HouseholdID     string           `json:"household_id" db:"household_id"`
	CreatedBy       string           `json:"created_by" db:"created_by"`
	RecipeID        string           `json:"recipe_id" db:"recipe_id"`
	SourceType      RecipeSourceType `json:"source_type" db:"source_type"`
	SourceReference *string          `json:"source_reference" db:"source_reference"`
	ModelProvider   string           `json:"model_provider" db:"model_provider"`
	ModelName       string           `json:"model_name" db:"model_name"`
	ParsedOutput    []byte           `json:"parsed_output" db:"parsed_output"`
	Confidence      *float64         `json:"confidence" db:"confidence"`
}

// MergeCandidate 合併引擎比對用的既有列
type MergeCandidate struct {
	ID       string  `json:"id" db:"id"`
	Quantity float64 `json:"quantity" db:"quantity"`
	Unit     string  `json:"unit" db:"unit"`
}

// MergeResult 合併判斷結果，TargetID 為 nil 表示應新增一列
type MergeResult struct {
	TargetID                  *string `json:"target_id"`
	MergedQuantity            float64 `json:"merged_quantity"`
	MergedUnit                string  `json:"merged_unit"`
	ConvertedIncomingQuantity float64 `json:"converted_incoming_quantity"`
}

// Actor 目前請求的使用者與家庭
type Actor struct {
	UserID      string
	HouseholdID string
}
