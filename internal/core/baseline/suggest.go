package baseline

import (
	"math"
	"regexp"
	"strings"

	"grocery-tracker/internal/core/ingredient"
	"grocery-tracker/internal/core/recipe"
	"grocery-tracker/internal/pkg/common"
)

const (
	minSuggestedQuantity = 1
	maxSuggestedQuantity = 10000
)

// leadingQuantityPattern 取出字串開頭的數量，例如 "1 1/2 kg" 取 "1 1/2"、"2-3" 取 "2"
var leadingQuantityPattern = regexp.MustCompile(`^\s*(\d+(?:\s+\d+/\d+|/\d+|\.\d+)?)`)

// RawSuggestedItem 模型回傳、尚未清理的常備品
type RawSuggestedItem struct {
	Name     any `json:"name"`
	Quantity any `json:"quantity"`
	Unit     any `json:"unit"`
}

// ToSafeQuantity 將模型給的數量轉成 [1, 10000] 之間的數字
// "1000g" 這類夾帶單位的字串只取開頭的數量，無法辨識時回傳 1
func ToSafeQuantity(v any) float64 {
	q, ok := recipe.ParseNumericLike(v)
	if !ok {
		if s, isString := v.(string); isString {
			if m := leadingQuantityPattern.FindStringSubmatch(s); m != nil {
				q, ok = recipe.ParseNumericLike(m[1])
			}
		}
	}
	if !ok || math.IsNaN(q) || q <= 0 {
		return minSuggestedQuantity
	}
	if q > maxSuggestedQuantity {
		return maxSuggestedQuantity
	}
	return q
}

// NormalizeSuggestedItems 清理建議清單：去空白、忽略大小寫去重（保留第一筆）、最多 maxItems 筆
// maxItems 小於等於 0 時回傳空清單
func NormalizeSuggestedItems(items []RawSuggestedItem, maxItems int) []common.SuggestedBaselineItem {
	if maxItems <= 0 {
		return []common.SuggestedBaselineItem{}
	}
	out := make([]common.SuggestedBaselineItem, 0, min(len(items), maxItems))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		if len(out) >= maxItems {
			break
		}
		name := strings.TrimSpace(stringValue(item.Name))
		key := strings.ToLower(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		unit := strings.TrimSpace(stringValue(item.Unit))
		if unit == "" {
			unit = ingredient.DefaultUnit
		}
		out = append(out, common.SuggestedBaselineItem{
			Name:     name,
			Quantity: ToSafeQuantity(item.Quantity),
			Unit:     unit,
		})
	}
	return out
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
