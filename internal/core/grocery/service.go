package grocery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"grocery-tracker/internal/core/ingredient"
	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/pkg/common"
)

const (
	// DefaultCategory 手動新增與食譜食材的分類
	DefaultCategory = "general"
	// BaselineCategory 由常備品帶入的分類
	BaselineCategory = "baseline"

	exportSheet = "Groceries"
)

// ResetMode 清單重設模式
type ResetMode string

const (
	ResetEmpty    ResetMode = "empty"
	ResetBaseline ResetMode = "baseline"
)

// ParseResetMode 只有 "baseline" 會重新帶入常備品，其餘一律清空
func ParseResetMode(s string) ResetMode {
	if strings.TrimSpace(strings.ToLower(s)) == string(ResetBaseline) {
		return ResetBaseline
	}
	return ResetEmpty
}

// SourceRef 數量來源
type SourceRef struct {
	Type  common.SourceType
	ID    string
	Label string
}

// MergeInput 合併進清單的一筆資料
type MergeInput struct {
	Name     string
	Quantity float64
	Unit     string
	Category string
	Source   *SourceRef
}

// UpdateInput 手動修改清單項目
type UpdateInput struct {
	Name     string
	Quantity float64
	Unit     string
}

// Service 購物清單服務
type Service struct {
	groceries store.GroceryStore
	baselines store.BaselineStore
	recipes   store.RecipeStore
}

// NewService 創建新的購物清單服務
func NewService(groceries store.GroceryStore, baselines store.BaselineStore, recipes store.RecipeStore) *Service {
	return &Service{
		groceries: groceries,
		baselines: baselines,
		recipes:   recipes,
	}
}

// MergeItem 將一筆食材合併進家庭的購物清單，回傳被更新或新增的項目 ID
//
// 同名（正規化後）、未勾選且仍需購買的項目中，第一個單位可換算的會被更新；
// 都不能換算時新增一列。有來源時，同一來源的貢獻量會累加。
func (s *Service) MergeItem(ctx context.Context, actor common.Actor, in MergeInput) (string, error) {
	displayName := ingredient.TitleCase(in.Name)
	if displayName == "" {
		return "", common.NewFieldError("name", "Item name is required.")
	}
	normalizedName := ingredient.Normalize(displayName)
	normalizedUnit := ingredient.NormalizeUnit(in.Unit)

	var existing []common.GroceryItem
	if normalizedName != "" {
		rows, err := s.groceries.ListOpenItemsByName(ctx, actor.HouseholdID, normalizedName)
		if err != nil {
			return "", fmt.Errorf("failed to load grocery items: %w", err)
		}
		existing = rows
	}

	candidates := make([]common.MergeCandidate, 0, len(existing))
	for _, row := range existing {
		candidates = append(candidates, common.MergeCandidate{ID: row.ID, Quantity: row.Quantity, Unit: row.Unit})
	}
	merge := ingredient.FindMergeTarget(candidates, in.Quantity, normalizedUnit)

	var itemID string
	contribution := in.Quantity
	if merge.TargetID != nil {
		itemID = *merge.TargetID
		if err := s.groceries.ApplyMerge(ctx, itemID, merge.MergedQuantity, merge.MergedUnit, displayName); err != nil {
			return "", fmt.Errorf("failed to update grocery item: %w", err)
		}
		// 貢獻量以目標列原本的單位計，未四捨五入
		for _, row := range existing {
			if row.ID == itemID {
				if converted, ok := ingredient.Convert(in.Quantity, normalizedUnit, row.Unit); ok {
					contribution = converted
				}
				break
			}
		}
	} else {
		category := strings.TrimSpace(in.Category)
		if category == "" {
			category = DefaultCategory
		}
		item := &common.GroceryItem{
			HouseholdID:    actor.HouseholdID,
			CreatedBy:      actor.UserID,
			NameDisplay:    displayName,
			NameNormalized: normalizedName,
			Quantity:       ingredient.Round(in.Quantity),
			Unit:           normalizedUnit,
			Category:       category,
			Status:         common.GroceryStatusNeeded,
		}
		if err := s.groceries.InsertItem(ctx, item); err != nil {
			return "", fmt.Errorf("failed to create grocery item: %w", err)
		}
		itemID = item.ID
	}

	if in.Source != nil && in.Source.ID != "" && in.Source.Label != "" {
		if err := s.attributeSource(ctx, itemID, *in.Source, contribution, merge.MergedUnit); err != nil {
			return "", err
		}
	}

	common.LogDebug("食材已合併",
		zap.String("item_id", itemID),
		zap.String("name", normalizedName),
		zap.Bool("merged", merge.TargetID != nil),
		zap.Float64("quantity", merge.MergedQuantity),
		zap.String("unit", merge.MergedUnit),
	)
	return itemID, nil
}

func (s *Service) attributeSource(ctx context.Context, itemID string, ref SourceRef, contribution float64, unit string) error {
	src, err := s.groceries.FindSource(ctx, itemID, ref.Type, ref.ID)
	switch {
	case err == nil:
		if err := s.groceries.UpdateSource(ctx, src.ID, ingredient.Round(src.QuantityContributed+contribution), unit); err != nil {
			return fmt.Errorf("failed to update grocery source: %w", err)
		}
		return nil
	case errors.Is(err, common.ErrNotFound):
		err := s.groceries.InsertSource(ctx, &common.GroceryItemSource{
			GroceryItemID:       itemID,
			SourceType:          ref.Type,
			SourceID:            ref.ID,
			SourceLabel:         ref.Label,
			QuantityContributed: ingredient.Round(contribution),
			Unit:                unit,
		})
		if err != nil {
			return fmt.Errorf("failed to record grocery source: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to load grocery source: %w", err)
	}
}

// AddManualItem 手動新增，數量不合法時視為 1
func (s *Service) AddManualItem(ctx context.Context, actor common.Actor, name string, quantity float64, unit string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", common.NewFieldError("name", "Item name is required.")
	}
	return s.MergeItem(ctx, actor, MergeInput{
		Name:     name,
		Quantity: positiveOr(quantity, 1),
		Unit:     unitOrDefault(unit),
		Category: DefaultCategory,
	})
}

// AddBaselineItem 將一個常備品加入購物清單
func (s *Service) AddBaselineItem(ctx context.Context, actor common.Actor, baselineID string) (string, error) {
	b, err := s.baselines.GetBaseline(ctx, actor.HouseholdID, baselineID)
	if err != nil {
		return "", err
	}
	return s.mergeBaseline(ctx, actor, *b, b.Category)
}

func (s *Service) mergeBaseline(ctx context.Context, actor common.Actor, b common.BaselineItem, category string) (string, error) {
	return s.MergeItem(ctx, actor, MergeInput{
		Name:     b.NameDisplay,
		Quantity: b.DefaultQuantity,
		Unit:     b.DefaultUnit,
		Category: category,
		Source: &SourceRef{
			Type:  common.SourceTypeBaseline,
			ID:    b.ID,
			Label: b.NameDisplay,
		},
	})
}

// ListItems 列出清單項目與來源
func (s *Service) ListItems(ctx context.Context, actor common.Actor) ([]common.GroceryItemWithSources, error) {
	items, err := s.groceries.ListItems(ctx, actor.HouseholdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grocery items: %w", err)
	}
	return items, nil
}

// ToggleItem 勾選或取消勾選
func (s *Service) ToggleItem(ctx context.Context, actor common.Actor, id string, checked bool) error {
	if strings.TrimSpace(id) == "" {
		return common.NewFieldError("groceryItemId", "Grocery item is required.")
	}
	return s.groceries.SetChecked(ctx, actor.HouseholdID, id, checked)
}

// UpdateItem 修改名稱、數量與單位，所有來源改用新單位
func (s *Service) UpdateItem(ctx context.Context, actor common.Actor, id string, in UpdateInput) error {
	name := strings.TrimSpace(in.Name)
	if strings.TrimSpace(id) == "" || name == "" {
		return common.NewValidationError("Grocery item and name are required.")
	}

	current, err := s.groceries.GetItem(ctx, actor.HouseholdID, id)
	if err != nil {
		return err
	}

	displayName := ingredient.TitleCase(name)
	unit := ingredient.NormalizeUnit(unitOrDefault(in.Unit))
	err = s.groceries.UpdateItem(ctx, actor.HouseholdID, id, store.ItemUpdate{
		NameDisplay:    displayName,
		NameNormalized: ingredient.Normalize(displayName),
		Quantity:       positiveOr(in.Quantity, 1),
		Unit:           unit,
		Category:       current.Category,
		Notes:          current.Notes,
	})
	if err != nil {
		return err
	}

	if err := s.groceries.UpdateSourcesUnit(ctx, id, unit); err != nil {
		return fmt.Errorf("failed to update grocery sources: %w", err)
	}
	return nil
}

// ResetList 清空清單；baseline 模式會重新帶入所有啟用中的常備品
func (s *Service) ResetList(ctx context.Context, actor common.Actor, mode ResetMode) error {
	if err := s.groceries.DeleteAllItems(ctx, actor.HouseholdID); err != nil {
		return fmt.Errorf("failed to clear grocery list: %w", err)
	}
	if mode != ResetBaseline {
		return nil
	}

	baselines, err := s.baselines.ListBaseline(ctx, actor.HouseholdID, true)
	if err != nil {
		return fmt.Errorf("failed to load baseline items: %w", err)
	}
	for _, b := range baselines {
		if _, err := s.mergeBaseline(ctx, actor, b, BaselineCategory); err != nil {
			return err
		}
	}

	common.LogInfo("購物清單已重設",
		zap.String("household_id", actor.HouseholdID),
		zap.String("mode", string(mode)),
		zap.Int("baseline_items", len(baselines)),
	)
	return nil
}

// AddRecipe 將已儲存的食譜依目標份量加入清單
func (s *Service) AddRecipe(ctx context.Context, actor common.Actor, recipeID string, targetServings float64) (*AddRecipeResult, error) {
	if strings.TrimSpace(recipeID) == "" {
		return nil, common.NewFieldError("recipeId", "Recipe id is required.")
	}
	targetServings = positiveOr(targetServings, 1)

	return AddRecipeToGroceries(ctx, targetServings, AddRecipeDeps{
		RunRemote: func(ctx context.Context) (*store.RemoteAggregateResult, error) {
			return s.groceries.RunAddRecipeAggregate(ctx, actor, recipeID, targetServings)
		},
		LoadRecipe: func(ctx context.Context) (*common.Recipe, error) {
			return s.recipes.GetRecipe(ctx, actor.HouseholdID, recipeID)
		},
		LoadIngredients: func(ctx context.Context) ([]common.RecipeIngredient, error) {
			return s.recipes.ListIngredients(ctx, recipeID)
		},
		MergeIngredient: func(ctx context.Context, in ScaledIngredient) error {
			_, err := s.MergeItem(ctx, actor, MergeInput{
				Name:     in.NameDisplay,
				Quantity: in.Quantity,
				Unit:     in.Unit,
				Category: DefaultCategory,
				Source: &SourceRef{
					Type:  common.SourceTypeRecipe,
					ID:    in.RecipeID,
					Label: in.RecipeTitle,
				},
			})
			return err
		},
	})
}

// ExportXLSX 將購物清單寫成 Excel 檔
func (s *Service) ExportXLSX(ctx context.Context, actor common.Actor, w io.Writer) error {
	items, err := s.ListItems(ctx, actor)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			common.LogWarn("關閉 Excel 檔失敗", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := []interface{}{"Item", "Quantity", "Unit", "Category", "Status", "Checked", "Sources"}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, it := range items {
		labels := make([]string, 0, len(it.Sources))
		for _, src := range it.Sources {
			labels = append(labels, src.SourceLabel)
		}
		row := []interface{}{
			it.NameDisplay, it.Quantity, it.Unit, it.Category, string(it.Status), it.Checked, strings.Join(labels, "; "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func positiveOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func unitOrDefault(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return ingredient.DefaultUnit
	}
	return unit
}
