// Package grocery 購物清單：合併寫入、食譜加入、重設與匯出
package grocery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"grocery-tracker/internal/core/ingredient"
	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/pkg/common"
)

const defaultRecipeTitle = "Recipe"

// ScaledIngredient 依份量縮放後、準備合併進清單的食材
type ScaledIngredient struct {
	NameDisplay string
	Quantity    float64
	Unit        string
	RecipeID    string
	RecipeTitle string
}

// AddRecipeResult 食譜加入清單的結果
type AddRecipeResult struct {
	RecipeTitle      string `json:"recipe_title"`
	IngredientsCount int    `json:"ingredients_count"`
}

// Message 給使用者看的結果訊息
func (r *AddRecipeResult) Message() string {
	return fmt.Sprintf("Added %d ingredients from %s.", r.IngredientsCount, r.RecipeTitle)
}

// AddRecipeDeps 食譜加入清單所需的外部操作
type AddRecipeDeps struct {
	RunRemote       func(ctx context.Context) (*store.RemoteAggregateResult, error)
	LoadRecipe      func(ctx context.Context) (*common.Recipe, error)
	LoadIngredients func(ctx context.Context) ([]common.RecipeIngredient, error)
	MergeIngredient func(ctx context.Context, in ScaledIngredient) error
}

// AddRecipeToGroceries 將食譜依目標份量加入購物清單
//
// 先呼叫伺服器端函數；成功就直接回傳，不碰其他操作。
// 失敗時改在本地讀取食譜與食材，依份量比例縮放後逐一合併。
// 本地流程任何一步失敗都直接回傳錯誤，已合併的食材不回滾。
func AddRecipeToGroceries(ctx context.Context, targetServings float64, deps AddRecipeDeps) (*AddRecipeResult, error) {
	remote, remoteErr := deps.RunRemote(ctx)
	if remoteErr == nil {
		result := &AddRecipeResult{RecipeTitle: defaultRecipeTitle}
		if remote != nil {
			if remote.RecipeTitle != nil {
				result.RecipeTitle = *remote.RecipeTitle
			}
			if remote.IngredientsCount != nil {
				result.IngredientsCount = *remote.IngredientsCount
			}
		}
		return result, nil
	}

	common.LogWarn("伺服器端加入失敗，改用本地合併",
		zap.Float64("target_servings", targetServings),
		zap.Error(remoteErr),
	)

	recipe, err := deps.LoadRecipe(ctx)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, remoteErr
	}

	ingredients, err := deps.LoadIngredients(ctx)
	if err != nil {
		return nil, err
	}
	// nil 代表讀不到資料，與沒有食材的空清單不同
	if ingredients == nil {
		return nil, remoteErr
	}

	if recipe.Servings <= 0 {
		return nil, common.NewFieldError("servings", "Recipe servings must be positive.")
	}
	ratio := targetServings / recipe.Servings

	// 依序合併，同名食材會落在同一列，不能並行
	for _, ing := range ingredients {
		err := deps.MergeIngredient(ctx, ScaledIngredient{
			NameDisplay: ing.NameDisplay,
			Quantity:    ingredient.Round(ing.Quantity * ratio),
			Unit:        ing.Unit,
			RecipeID:    recipe.ID,
			RecipeTitle: recipe.Title,
		})
		if err != nil {
			return nil, err
		}
	}

	common.LogInfo("本地合併完成",
		zap.String("recipe_id", recipe.ID),
		zap.Int("ingredients", len(ingredients)),
		zap.Float64("ratio", ratio),
	)

	return &AddRecipeResult{
		RecipeTitle:      recipe.Title,
		IngredientsCount: len(ingredients),
	}, nil
}
