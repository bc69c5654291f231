// Package store 定義資料存取介面，實作位於 memory 與 postgres 子套件
package store

import (
	"context"

	"grocery-tracker/internal/pkg/common"
)

// RemoteAggregateResult 伺服器端「食譜加入購物清單」函數的回傳值
// 欄位為 nil 表示函數未回傳該值
type RemoteAggregateResult struct {
	RecipeTitle      *string `json:"recipe_title"`
	IngredientsCount *int    `json:"ingredients_count"`
}

// ItemUpdate 購物清單項目可修改的欄位
type ItemUpdate struct {
	NameDisplay    string
	NameNormalized string
	Quantity       float64
	Unit           string
	Category       string
	Notes          *string
}

// GroceryStore 購物清單資料存取
type GroceryStore interface {
	// ListOpenItemsByName 同家庭、同正規化名稱、未勾選且狀態為 needed 的項目，依建立時間排序
	ListOpenItemsByName(ctx context.Context, householdID, nameNormalized string) ([]common.GroceryItem, error)
	InsertItem(ctx context.Context, item *common.GroceryItem) error
	ApplyMerge(ctx context.Context, id string, quantity float64, unit, nameDisplay string) error
	GetItem(ctx context.Context, householdID, id string) (*common.GroceryItem, error)
	// ListItems 未勾選在前，再依名稱排序
	ListItems(ctx context.Context, householdID string) ([]common.GroceryItemWithSources, error)
	SetChecked(ctx context.Context, householdID, id string, checked bool) error
	UpdateItem(ctx context.Context, householdID, id string, update ItemUpdate) error
	DeleteAllItems(ctx context.Context, householdID string) error

	// FindSource 找不到時回傳 common.ErrNotFound
	FindSource(ctx context.Context, itemID string, sourceType common.SourceType, sourceID string) (*common.GroceryItemSource, error)
	InsertSource(ctx context.Context, source *common.GroceryItemSource) error
	UpdateSource(ctx context.Context, id string, quantity float64, unit string) error
	UpdateSourcesUnit(ctx context.Context, itemID, unit string) error

	// RunAddRecipeAggregate 伺服器端交易式加入；不支援時回傳 common.ErrRPCUnsupported
	RunAddRecipeAggregate(ctx context.Context, actor common.Actor, recipeID string, targetServings float64) (*RemoteAggregateResult, error)
}

// BaselineStore 常備品資料存取
type BaselineStore interface {
	// UpsertBaseline 以 (household_id, name_normalized) 為鍵新增或覆寫
	UpsertBaseline(ctx context.Context, item *common.BaselineItem) (*common.BaselineItem, error)
	ListBaseline(ctx context.Context, householdID string, activeOnly bool) ([]common.BaselineItem, error)
	GetBaseline(ctx context.Context, householdID, id string) (*common.BaselineItem, error)
	SetBaselineActive(ctx context.Context, householdID, id string, active bool) error
}

// RecipeStore 食譜資料存取
type RecipeStore interface {
	// SaveRecipe 食譜、食材與匯入紀錄在同一個交易內寫入
	SaveRecipe(ctx context.Context, recipe *common.Recipe, ingredients []common.RecipeIngredient, log *common.RecipeImportLog) error
	ListRecipes(ctx context.Context, householdID string) ([]common.Recipe, error)
	GetRecipe(ctx context.Context, householdID, id string) (*common.Recipe, error)
	ListIngredients(ctx context.Context, recipeID string) ([]common.RecipeIngredient, error)
	InsertIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error
	GetIngredient(ctx context.Context, recipeID, id string) (*common.RecipeIngredient, error)
	UpdateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error
	DeleteIngredient(ctx context.Context, recipeID, id string) error
}

// ImageStore 上傳的食譜圖片
type ImageStore interface {
	PutImage(ctx context.Context, path, contentType string, data []byte) error
	GetImage(ctx context.Context, path string) ([]byte, string, error)
}

// Store 所有資料存取的集合
type Store interface {
	GroceryStore
	BaselineStore
	RecipeStore
	ImageStore
	Ping(ctx context.Context) error
	Close() error
}
