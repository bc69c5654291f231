package ingredient

import (
	"math"
	"strings"

	"grocery-tracker/internal/pkg/common"
)

// DefaultUnit 沒有填單位時視為「個」
const DefaultUnit = "unit"

// roundTolerance 相對誤差，修正 2.0005、4.0005 這類二進位誤差。
// 與 .0005 的差距在 1e-12 倍以內的值會被視為剛好落在中點。
const roundTolerance = 1e-12

// 單位別名表，初始化後唯讀
var unitAliases = func() map[string]common.CanonicalUnit {
	table := make(map[string]common.CanonicalUnit)
	register := func(canonical string, dim common.UnitDimension, toBase float64, aliases ...string) {
		u := common.CanonicalUnit{Canonical: canonical, Dimension: dim, ToBase: toBase}
		table[canonical] = u
		for _, alias := range aliases {
			table[alias] = u
		}
	}

	// 體積，基準 ml
	register("tsp", common.DimensionVolume, 4.92892, "teaspoon", "teaspoons")
	register("tbsp", common.DimensionVolume, 14.7868, "tablespoon", "tablespoons")
	register("cup", common.DimensionVolume, 240, "cups")
	register("ml", common.DimensionVolume, 1, "milliliter", "milliliters")
	register("l", common.DimensionVolume, 1000, "liter", "liters")
	register("fl oz", common.DimensionVolume, 29.5735, "floz")

	// 重量，基準 g
	register("g", common.DimensionWeight, 1, "gram", "grams")
	register("kg", common.DimensionWeight, 1000, "kilogram", "kilograms")
	register("oz", common.DimensionWeight, 28.3495, "ounce", "ounces")
	register("lb", common.DimensionWeight, 453.592, "lbs", "pound", "pounds")

	// 計數
	register(DefaultUnit, common.DimensionCount, 1, "units", "piece", "pieces", "pc", "pcs")
	register("clove", common.DimensionCount, 1, "cloves")
	register("egg", common.DimensionCount, 1, "eggs")

	return table
}()

func normalizeUnitToken(unit string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(unit), ".", ""))
}

// Canonicalize 將使用者或模型給的單位字串轉為標準單位
// 查不到的單位保留原字串（小寫），類別為 unknown
func Canonicalize(unit string) common.CanonicalUnit {
	token := normalizeUnitToken(unit)
	if token == "" {
		return unitAliases[DefaultUnit]
	}
	if u, ok := unitAliases[token]; ok {
		return u
	}
	return common.CanonicalUnit{Canonical: token, Dimension: common.DimensionUnknown, ToBase: 1}
}

// NormalizeUnit 回傳標準單位名稱
func NormalizeUnit(unit string) string {
	return Canonicalize(unit).Canonical
}

// CanConvert 判斷兩個單位之間能否換算
func CanConvert(from, to string) bool {
	a := Canonicalize(from)
	b := Canonicalize(to)

	if a.Dimension == common.DimensionUnknown || b.Dimension == common.DimensionUnknown {
		return a.Canonical == b.Canonical
	}
	if a.Dimension != b.Dimension {
		return false
	}
	if a.Dimension == common.DimensionCount {
		// clove 與 egg 不互通，但都可視為 unit
		return a.Canonical == b.Canonical || a.Canonical == DefaultUnit || b.Canonical == DefaultUnit
	}
	return true
}

// Convert 將數量從 from 換算為 to，無法換算時 ok 為 false
func Convert(quantity float64, from, to string) (float64, bool) {
	if !CanConvert(from, to) {
		return 0, false
	}
	a := Canonicalize(from)
	b := Canonicalize(to)
	if a.Canonical == b.Canonical {
		return quantity, true
	}
	return quantity * a.ToBase / b.ToBase, true
}

// Round 四捨五入到小數點後三位，中點遠離零
func Round(value float64) float64 {
	scaled := value * 1000
	nudge := math.Copysign(math.Abs(scaled)*roundTolerance, scaled)
	return math.Round(scaled+nudge) / 1000
}
