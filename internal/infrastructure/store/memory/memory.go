// Package memory 記憶體儲存，供本機開發與測試使用，重啟後資料消失
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/pkg/common"
)

type storedImage struct {
	contentType string
	data        []byte
}

// Store 記憶體儲存
type Store struct {
	mu sync.RWMutex

	items       []*common.GroceryItem
	sources     []*common.GroceryItemSource
	baselines   []*common.BaselineItem
	recipes     []*common.Recipe
	ingredients []*common.RecipeIngredient
	importLogs  []*common.RecipeImportLog
	images      map[string]storedImage

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New 創建記憶體儲存
func New() *Store {
	return &Store{
		images: make(map[string]storedImage),
		now:    time.Now,
	}
}

// Ping 永遠可用
func (s *Store) Ping(context.Context) error { return nil }

// Close 無需釋放
func (s *Store) Close() error { return nil }

// ---- groceries ----

func (s *Store) ListOpenItemsByName(_ context.Context, householdID, nameNormalized string) ([]common.GroceryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []common.GroceryItem
	for _, it := range s.items {
		if it.HouseholdID == householdID && it.NameNormalized == nameNormalized &&
			!it.Checked && it.Status == common.GroceryStatusNeeded {
			out = append(out, *it)
		}
	}
	// items 依插入順序保存，stable sort 讓同時間建立的項目維持原順序
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertItem(_ context.Context, item *common.GroceryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	cp := *item
	s.items = append(s.items, &cp)
	return nil
}

func (s *Store) ApplyMerge(_ context.Context, id string, quantity float64, unit, nameDisplay string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.findItem("", id)
	if it == nil {
		return common.ErrGroceryNotFound
	}
	it.Quantity = quantity
	it.Unit = unit
	it.NameDisplay = nameDisplay
	return nil
}

func (s *Store) GetItem(_ context.Context, householdID, id string) (*common.GroceryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it := s.findItem(householdID, id)
	if it == nil {
		return nil, common.ErrGroceryNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *Store) ListItems(_ context.Context, householdID string) ([]common.GroceryItemWithSources, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.GroceryItemWithSources, 0)
	for _, it := range s.items {
		if it.HouseholdID != householdID {
			continue
		}
		row := common.GroceryItemWithSources{GroceryItem: *it, Sources: []common.GroceryItemSource{}}
		for _, src := range s.sources {
			if src.GroceryItemID == it.ID {
				row.Sources = append(row.Sources, *src)
			}
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Checked != out[j].Checked {
			return !out[i].Checked
		}
		return strings.ToLower(out[i].NameDisplay) < strings.ToLower(out[j].NameDisplay)
	})
	return out, nil
}

func (s *Store) SetChecked(_ context.Context, householdID, id string, checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.findItem(householdID, id)
	if it == nil {
		return common.ErrGroceryNotFound
	}
	it.Checked = checked
	return nil
}

func (s *Store) UpdateItem(_ context.Context, householdID, id string, update store.ItemUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.findItem(householdID, id)
	if it == nil {
		return common.ErrGroceryNotFound
	}
	it.NameDisplay = update.NameDisplay
	it.NameNormalized = update.NameNormalized
	it.Quantity = update.Quantity
	it.Unit = update.Unit
	it.Category = update.Category
	it.Notes = update.Notes
	return nil
}

func (s *Store) DeleteAllItems(_ context.Context, householdID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]struct{})
	kept := s.items[:0]
	for _, it := range s.items {
		if it.HouseholdID == householdID {
			removed[it.ID] = struct{}{}
			continue
		}
		kept = append(kept, it)
	}
	s.items = kept

	keptSources := s.sources[:0]
	for _, src := range s.sources {
		if _, ok := removed[src.GroceryItemID]; !ok {
			keptSources = append(keptSources, src)
		}
	}
	s.sources = keptSources
	return nil
}

func (s *Store) FindSource(_ context.Context, itemID string, sourceType common.SourceType, sourceID string) (*common.GroceryItemSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, src := range s.sources {
		if src.GroceryItemID == itemID && src.SourceType == sourceType && src.SourceID == sourceID {
			cp := *src
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *Store) InsertSource(_ context.Context, source *common.GroceryItemSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range s.sources {
		if src.GroceryItemID == source.GroceryItemID && src.SourceType == source.SourceType && src.SourceID == source.SourceID {
			return common.NewError(common.ErrCodeConflict, "Source already recorded.", http.StatusConflict, nil)
		}
	}
	if source.ID == "" {
		source.ID = common.GenerateUUID()
	}
	cp := *source
	s.sources = append(s.sources, &cp)
	return nil
}

func (s *Store) UpdateSource(_ context.Context, id string, quantity float64, unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range s.sources {
		if src.ID == id {
			src.QuantityContributed = quantity
			src.Unit = unit
			return nil
		}
	}
	return common.ErrNotFound
}

func (s *Store) UpdateSourcesUnit(_ context.Context, itemID, unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range s.sources {
		if src.GroceryItemID == itemID {
			src.Unit = unit
		}
	}
	return nil
}

// RunAddRecipeAggregate 記憶體儲存沒有伺服器端函數，一律走本地流程
func (s *Store) RunAddRecipeAggregate(context.Context, common.Actor, string, float64) (*store.RemoteAggregateResult, error) {
	return nil, common.ErrRPCUnsupported
}

func (s *Store) findItem(householdID, id string) *common.GroceryItem {
	for _, it := range s.items {
		if it.ID == id && (householdID == "" || it.HouseholdID == householdID) {
			return it
		}
	}
	return nil
}

// ---- baseline ----

func (s *Store) UpsertBaseline(_ context.Context, item *common.BaselineItem) (*common.BaselineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.baselines {
		if b.HouseholdID == item.HouseholdID && b.NameNormalized == item.NameNormalized {
			b.NameDisplay = item.NameDisplay
			b.DefaultQuantity = item.DefaultQuantity
			b.DefaultUnit = item.DefaultUnit
			b.Category = item.Category
			b.IsActive = item.IsActive
			cp := *b
			return &cp, nil
		}
	}
	cp := *item
	if cp.ID == "" {
		cp.ID = common.GenerateUUID()
	}
	s.baselines = append(s.baselines, &cp)
	out := cp
	return &out, nil
}

func (s *Store) ListBaseline(_ context.Context, householdID string, activeOnly bool) ([]common.BaselineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.BaselineItem, 0)
	for _, b := range s.baselines {
		if b.HouseholdID == householdID && (!activeOnly || b.IsActive) {
			out = append(out, *b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].NameDisplay) < strings.ToLower(out[j].NameDisplay)
	})
	return out, nil
}

func (s *Store) GetBaseline(_ context.Context, householdID, id string) (*common.BaselineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.baselines {
		if b.HouseholdID == householdID && b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, common.ErrBaselineNotFound
}

func (s *Store) SetBaselineActive(_ context.Context, householdID, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.baselines {
		if b.HouseholdID == householdID && b.ID == id {
			b.IsActive = active
			return nil
		}
	}
	return common.ErrBaselineNotFound
}

// ---- recipes ----

func (s *Store) SaveRecipe(_ context.Context, recipe *common.Recipe, ingredients []common.RecipeIngredient, log *common.RecipeImportLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = s.now()
	}
	rcp := *recipe
	rcp.DietaryTags = append([]string(nil), recipe.DietaryTags...)
	s.recipes = append(s.recipes, &rcp)

	for i := range ingredients {
		ing := ingredients[i]
		if ing.ID == "" {
			ing.ID = common.GenerateUUID()
		}
		ing.RecipeID = recipe.ID
		ingredients[i] = ing
		cp := ing
		s.ingredients = append(s.ingredients, &cp)
	}

	if log != nil {
		if log.ID == "" {
			log.ID = common.GenerateUUID()
		}
		log.RecipeID = recipe.ID
		cp := *log
		s.importLogs = append(s.importLogs, &cp)
	}
	return nil
}

func (s *Store) ListRecipes(_ context.Context, householdID string) ([]common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Recipe, 0)
	for _, r := range s.recipes {
		if r.HouseholdID == householdID {
			out = append(out, *r)
		}
	}
	// 新的在前
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetRecipe(_ context.Context, householdID, id string) (*common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.recipes {
		if r.HouseholdID == householdID && r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrRecipeNotFound
}

func (s *Store) ListIngredients(_ context.Context, recipeID string) ([]common.RecipeIngredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.RecipeIngredient, 0)
	for _, ing := range s.ingredients {
		if ing.RecipeID == recipeID {
			out = append(out, *ing)
		}
	}
	return out, nil
}

func (s *Store) InsertIngredient(_ context.Context, ingredient *common.RecipeIngredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ingredient.ID == "" {
		ingredient.ID = common.GenerateUUID()
	}
	cp := *ingredient
	s.ingredients = append(s.ingredients, &cp)
	return nil
}

func (s *Store) GetIngredient(_ context.Context, recipeID, id string) (*common.RecipeIngredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ing := range s.ingredients {
		if ing.RecipeID == recipeID && ing.ID == id {
			cp := *ing
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("ingredient %s: %w", id, common.ErrNotFound)
}

func (s *Store) UpdateIngredient(_ context.Context, ingredient *common.RecipeIngredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ing := range s.ingredients {
		if ing.RecipeID == ingredient.RecipeID && ing.ID == ingredient.ID {
			cp := *ingredient
			s.ingredients[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("ingredient %s: %w", ingredient.ID, common.ErrNotFound)
}

func (s *Store) DeleteIngredient(_ context.Context, recipeID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ing := range s.ingredients {
		if ing.RecipeID == recipeID && ing.ID == id {
			s.ingredients = append(s.ingredients[:i], s.ingredients[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("ingredient %s: %w", id, common.ErrNotFound)
}

// ImportLogs 回傳匯入紀錄，僅供檢查
func (s *Store) ImportLogs() []common.RecipeImportLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.RecipeImportLog, 0, len(s.importLogs))
	for _, l := range s.importLogs {
		out = append(out, *l)
	}
	return out
}

// ---- images ----

func (s *Store) PutImage(_ context.Context, path, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images[path] = storedImage{contentType: contentType, data: append([]byte(nil), data...)}
	return nil
}

func (s *Store) GetImage(_ context.Context, path string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[path]
	if !ok {
		return nil, "", common.ErrImageNotFound
	}
	return append([]byte(nil), img.data...), img.contentType, nil
}
