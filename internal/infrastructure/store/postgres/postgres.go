// Package postgres 以 PostgreSQL 實作資料存取
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/pkg/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS grocery_items (
	id UUID PRIMARY KEY,
	household_id UUID NOT NULL,
	created_by UUID NOT NULL,
	name_display TEXT NOT NULL,
	name_normalized TEXT NOT NULL,
	quantity NUMERIC NOT NULL DEFAULT 1,
	unit TEXT NOT NULL DEFAULT 'unit',
	category TEXT NOT NULL DEFAULT 'general',
	status TEXT NOT NULL DEFAULT 'needed',
	checked BOOLEAN NOT NULL DEFAULT FALSE,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS grocery_items_merge_idx
	ON grocery_items (household_id, name_normalized, checked, status);

CREATE TABLE IF NOT EXISTS grocery_item_sources (
	id UUID PRIMARY KEY,
	grocery_item_id UUID NOT NULL REFERENCES grocery_items(id) ON DELETE CASCADE,
	source_type TEXT NOT NULL,
	source_id UUID NOT NULL,
	source_label TEXT NOT NULL,
	quantity_contributed NUMERIC NOT NULL,
	unit TEXT NOT NULL,
	UNIQUE (grocery_item_id, source_type, source_id)
);

CREATE TABLE IF NOT EXISTS baseline_items (
	id UUID PRIMARY KEY,
	household_id UUID NOT NULL,
	created_by UUID NOT NULL,
	name_display TEXT NOT NULL,
	name_normalized TEXT NOT NULL,
	default_quantity NUMERIC NOT NULL DEFAULT 1,
	default_unit TEXT NOT NULL DEFAULT 'unit',
	category TEXT NOT NULL DEFAULT 'baseline',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE (household_id, name_normalized)
);

CREATE TABLE IF NOT EXISTS recipes (
	id UUID PRIMARY KEY,
	household_id UUID NOT NULL,
	created_by UUID NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	source_type TEXT NOT NULL,
	source_url TEXT,
	source_image_path TEXT,
	servings NUMERIC NOT NULL DEFAULT 4,
	dietary_tags TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS recipe_ingredients (
	id UUID PRIMARY KEY,
	recipe_id UUID NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	position SERIAL,
	name_display TEXT NOT NULL,
	name_normalized TEXT NOT NULL,
	quantity NUMERIC NOT NULL,
	unit TEXT NOT NULL,
	is_optional BOOLEAN NOT NULL DEFAULT FALSE,
	notes TEXT
);

CREATE TABLE IF NOT EXISTS recipe_import_logs (
	id UUID PRIMARY KEY,
	household_id UUID NOT NULL,
	created_by UUID NOT NULL,
	recipe_id UUID NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	source_type TEXT NOT NULL,
	source_reference TEXT,
	model_provider TEXT NOT NULL,
	model_name TEXT NOT NULL,
	parsed_output JSONB NOT NULL,
	confidence NUMERIC,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS recipe_images (
	path TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	data BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// pq 的 undefined_function 錯誤代碼
const undefinedFunction = "42883"

// Store PostgreSQL 儲存
type Store struct {
	db     *sqlx.DB
	useRPC bool
}

var _ store.Store = (*Store)(nil)

// recipeRow dietary_tags 需要 pq 陣列型別
type recipeRow struct {
	common.Recipe
	Tags pq.StringArray `db:"dietary_tags"`
}

func (r recipeRow) toRecipe() common.Recipe {
	out := r.Recipe
	out.DietaryTags = []string(r.Tags)
	if out.DietaryTags == nil {
		out.DietaryTags = []string{}
	}
	return out
}

// New 連線並建立資料表
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	common.LogInfo("資料庫已連線", zap.Bool("use_rpc", cfg.UseRPC))
	return &Store{db: db, useRPC: cfg.UseRPC}, nil
}

// Ping 檢查連線
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 關閉連線池
func (s *Store) Close() error {
	return s.db.Close()
}

func notFound(err error, target error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return target
	}
	return err
}

func expectRows(res sql.Result, target error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return target
	}
	return nil
}

// ---- groceries ----

const groceryColumns = `id, household_id, created_by, name_display, name_normalized, quantity, unit, category, status, checked, notes, created_at`

func (s *Store) ListOpenItemsByName(ctx context.Context, householdID, nameNormalized string) ([]common.GroceryItem, error) {
	var items []common.GroceryItem
	err := s.db.SelectContext(ctx, &items,
		`SELECT `+groceryColumns+` FROM grocery_items
		 WHERE household_id = $1 AND name_normalized = $2 AND checked = FALSE AND status = 'needed'
		 ORDER BY created_at, id`,
		householdID, nameNormalized)
	if err != nil {
		return nil, fmt.Errorf("failed to list grocery items: %w", err)
	}
	return items, nil
}

func (s *Store) InsertItem(ctx context.Context, item *common.GroceryItem) error {
	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO grocery_items (`+groceryColumns+`)
		 VALUES (:id, :household_id, :created_by, :name_display, :name_normalized, :quantity, :unit, :category, :status, :checked, :notes, :created_at)`,
		item)
	if err != nil {
		return fmt.Errorf("failed to insert grocery item: %w", err)
	}
	return nil
}

func (s *Store) ApplyMerge(ctx context.Context, id string, quantity float64, unit, nameDisplay string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE grocery_items SET quantity = $2, unit = $3, name_display = $4 WHERE id = $1`,
		id, quantity, unit, nameDisplay)
	if err != nil {
		return fmt.Errorf("failed to update grocery item: %w", err)
	}
	return expectRows(res, common.ErrGroceryNotFound)
}

func (s *Store) GetItem(ctx context.Context, householdID, id string) (*common.GroceryItem, error) {
	var item common.GroceryItem
	err := s.db.GetContext(ctx, &item,
		`SELECT `+groceryColumns+` FROM grocery_items WHERE household_id = $1 AND id = $2`,
		householdID, id)
	if err != nil {
		return nil, notFound(err, common.ErrGroceryNotFound)
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, householdID string) ([]common.GroceryItemWithSources, error) {
	var items []common.GroceryItem
	err := s.db.SelectContext(ctx, &items,
		`SELECT `+groceryColumns+` FROM grocery_items
		 WHERE household_id = $1
		 ORDER BY checked, lower(name_display), created_at`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grocery items: %w", err)
	}

	var sources []common.GroceryItemSource
	err = s.db.SelectContext(ctx, &sources,
		`SELECT s.id, s.grocery_item_id, s.source_type, s.source_id, s.source_label, s.quantity_contributed, s.unit
		 FROM grocery_item_sources s
		 JOIN grocery_items g ON g.id = s.grocery_item_id
		 WHERE g.household_id = $1
		 ORDER BY s.source_label`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grocery sources: %w", err)
	}

	byItem := make(map[string][]common.GroceryItemSource, len(items))
	for _, src := range sources {
		byItem[src.GroceryItemID] = append(byItem[src.GroceryItemID], src)
	}

	out := make([]common.GroceryItemWithSources, 0, len(items))
	for _, it := range items {
		srcs := byItem[it.ID]
		if srcs == nil {
			srcs = []common.GroceryItemSource{}
		}
		out = append(out, common.GroceryItemWithSources{GroceryItem: it, Sources: srcs})
	}
	return out, nil
}

func (s *Store) SetChecked(ctx context.Context, householdID, id string, checked bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE grocery_items SET checked = $3 WHERE household_id = $1 AND id = $2`,
		householdID, id, checked)
	if err != nil {
		return fmt.Errorf("failed to toggle grocery item: %w", err)
	}
	return expectRows(res, common.ErrGroceryNotFound)
}

func (s *Store) UpdateItem(ctx context.Context, householdID, id string, update store.ItemUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE grocery_items
		 SET name_display = $3, name_normalized = $4, quantity = $5, unit = $6, category = $7, notes = $8
		 WHERE household_id = $1 AND id = $2`,
		householdID, id, update.NameDisplay, update.NameNormalized, update.Quantity, update.Unit, update.Category, update.Notes)
	if err != nil {
		return fmt.Errorf("failed to update grocery item: %w", err)
	}
	return expectRows(res, common.ErrGroceryNotFound)
}

func (s *Store) DeleteAllItems(ctx context.Context, householdID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM grocery_items WHERE household_id = $1`, householdID); err != nil {
		return fmt.Errorf("failed to reset grocery list: %w", err)
	}
	return nil
}

func (s *Store) FindSource(ctx context.Context, itemID string, sourceType common.SourceType, sourceID string) (*common.GroceryItemSource, error) {
	var src common.GroceryItemSource
	err := s.db.GetContext(ctx, &src,
		`SELECT id, grocery_item_id, source_type, source_id, source_label, quantity_contributed, unit
		 FROM grocery_item_sources
		 WHERE grocery_item_id = $1 AND source_type = $2 AND source_id = $3`,
		itemID, sourceType, sourceID)
	if err != nil {
		return nil, notFound(err, common.ErrNotFound)
	}
	return &src, nil
}

func (s *Store) InsertSource(ctx context.Context, source *common.GroceryItemSource) error {
	if source.ID == "" {
		source.ID = common.GenerateUUID()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO grocery_item_sources (id, grocery_item_id, source_type, source_id, source_label, quantity_contributed, unit)
		 VALUES (:id, :grocery_item_id, :source_type, :source_id, :source_label, :quantity_contributed, :unit)`,
		source)
	if err != nil {
		return fmt.Errorf("failed to insert grocery source: %w", err)
	}
	return nil
}

func (s *Store) UpdateSource(ctx context.Context, id string, quantity float64, unit string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE grocery_item_sources SET quantity_contributed = $2, unit = $3 WHERE id = $1`,
		id, quantity, unit)
	if err != nil {
		return fmt.Errorf("failed to update grocery source: %w", err)
	}
	return expectRows(res, common.ErrNotFound)
}

func (s *Store) UpdateSourcesUnit(ctx context.Context, itemID, unit string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE grocery_item_sources SET unit = $2 WHERE grocery_item_id = $1`, itemID, unit); err != nil {
		return fmt.Errorf("failed to update grocery sources: %w", err)
	}
	return nil
}

// RunAddRecipeAggregate 呼叫資料庫擁有者安裝的 add_recipe_to_groceries 函數
// 函數不存在或停用 RPC 時回傳 ErrRPCUnsupported，由呼叫端改走本地流程
func (s *Store) RunAddRecipeAggregate(ctx context.Context, actor common.Actor, recipeID string, targetServings float64) (*store.RemoteAggregateResult, error) {
	if !s.useRPC {
		return nil, common.ErrRPCUnsupported
	}

	var raw []byte
	err := s.db.QueryRowxContext(ctx,
		`SELECT add_recipe_to_groceries($1::uuid, $2::numeric, $3::uuid, $4::uuid)::jsonb`,
		recipeID, targetServings, actor.HouseholdID, actor.UserID).Scan(&raw)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == undefinedFunction {
			return nil, fmt.Errorf("%w: %s", common.ErrRPCUnsupported, pqErr.Message)
		}
		return nil, fmt.Errorf("add_recipe_to_groceries failed: %w", err)
	}

	var result store.RemoteAggregateResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("failed to decode add_recipe_to_groceries result: %w", err)
		}
	}
	return &result, nil
}

// ---- baseline ----

const baselineColumns = `id, household_id, created_by, name_display, name_normalized, default_quantity, default_unit, category, is_active`

func (s *Store) UpsertBaseline(ctx context.Context, item *common.BaselineItem) (*common.BaselineItem, error) {
	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}
	query, args, err := s.db.BindNamed(
		`INSERT INTO baseline_items (`+baselineColumns+`)
		 VALUES (:id, :household_id, :created_by, :name_display, :name_normalized, :default_quantity, :default_unit, :category, :is_active)
		 ON CONFLICT (household_id, name_normalized) DO UPDATE SET
			name_display = EXCLUDED.name_display,
			default_quantity = EXCLUDED.default_quantity,
			default_unit = EXCLUDED.default_unit,
			category = EXCLUDED.category,
			is_active = EXCLUDED.is_active
		 RETURNING `+baselineColumns,
		item)
	if err != nil {
		return nil, fmt.Errorf("failed to bind baseline upsert: %w", err)
	}

	var out common.BaselineItem
	if err := s.db.GetContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert baseline item: %w", err)
	}
	return &out, nil
}

func (s *Store) ListBaseline(ctx context.Context, householdID string, activeOnly bool) ([]common.BaselineItem, error) {
	items := []common.BaselineItem{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT `+baselineColumns+` FROM baseline_items
		 WHERE household_id = $1 AND ($2 = FALSE OR is_active = TRUE)
		 ORDER BY lower(name_display)`,
		householdID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list baseline items: %w", err)
	}
	return items, nil
}

func (s *Store) GetBaseline(ctx context.Context, householdID, id string) (*common.BaselineItem, error) {
	var item common.BaselineItem
	err := s.db.GetContext(ctx, &item,
		`SELECT `+baselineColumns+` FROM baseline_items WHERE household_id = $1 AND id = $2`,
		householdID, id)
	if err != nil {
		return nil, notFound(err, common.ErrBaselineNotFound)
	}
	return &item, nil
}

func (s *Store) SetBaselineActive(ctx context.Context, householdID, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE baseline_items SET is_active = $3 WHERE household_id = $1 AND id = $2`,
		householdID, id, active)
	if err != nil {
		return fmt.Errorf("failed to update baseline item: %w", err)
	}
	return expectRows(res, common.ErrBaselineNotFound)
}

// ---- recipes ----

const recipeColumns = `id, household_id, created_by, title, description, source_type, source_url, source_image_path, servings, dietary_tags, created_at`
const ingredientColumns = `id, recipe_id, name_display, name_normalized, quantity, unit, is_optional, notes`

func (s *Store) SaveRecipe(ctx context.Context, recipe *common.Recipe, ingredients []common.RecipeIngredient, log *common.RecipeImportLog) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now()
	}
	tags := recipe.DietaryTags
	if tags == nil {
		tags = []string{}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO recipes (`+recipeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		recipe.ID, recipe.HouseholdID, recipe.CreatedBy, recipe.Title, recipe.Description, recipe.SourceType,
		recipe.SourceURL, recipe.SourceImagePath, recipe.Servings, pq.Array(tags), recipe.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}

	for i := range ingredients {
		if ingredients[i].ID == "" {
			ingredients[i].ID = common.GenerateUUID()
		}
		ingredients[i].RecipeID = recipe.ID
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO recipe_ingredients (`+ingredientColumns+`)
			 VALUES (:id, :recipe_id, :name_display, :name_normalized, :quantity, :unit, :is_optional, :notes)`,
			ingredients[i]); err != nil {
			return fmt.Errorf("failed to insert recipe ingredient: %w", err)
		}
	}

	if log != nil {
		if log.ID == "" {
			log.ID = common.GenerateUUID()
		}
		log.RecipeID = recipe.ID
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO recipe_import_logs (id, household_id, created_by, recipe_id, source_type, source_reference, model_provider, model_name, parsed_output, confidence)
			 VALUES (:id, :household_id, :created_by, :recipe_id, :source_type, :source_reference, :model_provider, :model_name, :parsed_output, :confidence)`,
			log); err != nil {
			return fmt.Errorf("failed to insert import log: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recipe: %w", err)
	}
	return nil
}

func (s *Store) ListRecipes(ctx context.Context, householdID string) ([]common.Recipe, error) {
	var rows []recipeRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+recipeColumns+` FROM recipes WHERE household_id = $1 ORDER BY created_at DESC`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	out := make([]common.Recipe, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecipe())
	}
	return out, nil
}

func (s *Store) GetRecipe(ctx context.Context, householdID, id string) (*common.Recipe, error) {
	var row recipeRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+recipeColumns+` FROM recipes WHERE household_id = $1 AND id = $2`,
		householdID, id)
	if err != nil {
		return nil, notFound(err, common.ErrRecipeNotFound)
	}
	r := row.toRecipe()
	return &r, nil
}

func (s *Store) ListIngredients(ctx context.Context, recipeID string) ([]common.RecipeIngredient, error) {
	items := []common.RecipeIngredient{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT `+ingredientColumns+` FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY position`,
		recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe ingredients: %w", err)
	}
	return items, nil
}

func (s *Store) InsertIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error {
	if ingredient.ID == "" {
		ingredient.ID = common.GenerateUUID()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO recipe_ingredients (`+ingredientColumns+`)
		 VALUES (:id, :recipe_id, :name_display, :name_normalized, :quantity, :unit, :is_optional, :notes)`,
		ingredient)
	if err != nil {
		return fmt.Errorf("failed to insert recipe ingredient: %w", err)
	}
	return nil
}

func (s *Store) GetIngredient(ctx context.Context, recipeID, id string) (*common.RecipeIngredient, error) {
	var ing common.RecipeIngredient
	err := s.db.GetContext(ctx, &ing,
		`SELECT `+ingredientColumns+` FROM recipe_ingredients WHERE recipe_id = $1 AND id = $2`,
		recipeID, id)
	if err != nil {
		return nil, notFound(err, common.ErrNotFound)
	}
	return &ing, nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error {
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE recipe_ingredients
		 SET name_display = :name_display, name_normalized = :name_normalized, quantity = :quantity,
		     unit = :unit, is_optional = :is_optional, notes = :notes
		 WHERE recipe_id = :recipe_id AND id = :id`,
		ingredient)
	if err != nil {
		return fmt.Errorf("failed to update recipe ingredient: %w", err)
	}
	return expectRows(res, common.ErrNotFound)
}

func (s *Store) DeleteIngredient(ctx context.Context, recipeID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM recipe_ingredients WHERE recipe_id = $1 AND id = $2`, recipeID, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe ingredient: %w", err)
	}
	return expectRows(res, common.ErrNotFound)
}

// ---- images ----

func (s *Store) PutImage(ctx context.Context, path, contentType string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipe_images (path, content_type, data) VALUES ($1, $2, $3)
		 ON CONFLICT (path) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data`,
		path, contentType, data)
	if err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}
	return nil
}

func (s *Store) GetImage(ctx context.Context, path string) ([]byte, string, error) {
	var row struct {
		ContentType string `db:"content_type"`
		Data        []byte `db:"data"`
	}
	if err := s.db.GetContext(ctx, &row, `SELECT content_type, data FROM recipe_images WHERE path = $1`, path); err != nil {
		return nil, "", notFound(err, common.ErrImageNotFound)
	}
	return row.Data, row.ContentType, nil
}
