package ingredient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FuzzNormalizeIdempotent 正規化兩次的結果必須與一次相同
func FuzzNormalizeIdempotent(f *testing.F) {
	f.Add("Onions")
	f.Add("Fresh Large Tomatoes")
	f.Add("Jalapeño Peppers")
	f.Add("Crème Fraîche")
	f.Add("Sliced Mushrooms (optional)")
	f.Add("Cookies & Cream")
	f.Add("Extra-Virgin Olive Oil")
	f.Add("ies")
	f.Add("ss")
	f.Add("-s")
	f.Add("  ")
	f.Add("\xff\xfe broken utf8")
	f.Add("ＦＵＬＬＷＩＤＴＨ Ｅｇｇｓ")

	f.Fuzz(func(t *testing.T, name string) {
		once := Normalize(name)
		assert.Equal(t, once, Normalize(once), "input %q", name)
		assert.NotContains(t, once, "  ", "input %q", name)
	})
}

var convertibleUnits = [][]string{
	{"tsp", "tbsp", "cup", "ml", "l", "fl oz"},
	{"g", "kg", "oz", "lb"},
	{"unit", "clove"},
	{"unit", "egg"},
}

// FuzzConvertRoundTrip 同類單位互相換算後再換回，數量誤差需在相對 1e-9 以內
func FuzzConvertRoundTrip(f *testing.F) {
	f.Add(1.0, uint8(0), uint8(0), uint8(2))
	f.Add(0.25, uint8(0), uint8(2), uint8(4))
	f.Add(2.5, uint8(1), uint8(1), uint8(3))
	f.Add(1000.0, uint8(1), uint8(0), uint8(2))
	f.Add(17.0, uint8(2), uint8(0), uint8(1))
	f.Add(0.001, uint8(3), uint8(1), uint8(0))
	f.Add(-3.0, uint8(0), uint8(5), uint8(1))

	f.Fuzz(func(t *testing.T, quantity float64, group, from, to uint8) {
		if math.IsNaN(quantity) || math.IsInf(quantity, 0) || math.Abs(quantity) > 1e12 {
			return
		}
		units := convertibleUnits[int(group)%len(convertibleUnits)]
		a := units[int(from)%len(units)]
		b := units[int(to)%len(units)]

		there, ok := Convert(quantity, a, b)
		require.True(t, ok, "%s -> %s", a, b)
		back, ok := Convert(there, b, a)
		require.True(t, ok, "%s -> %s", b, a)

		tolerance := math.Max(math.Abs(quantity)*1e-9, 1e-12)
		assert.InDelta(t, quantity, back, tolerance, "%v %s via %s", quantity, a, b)
	})
}
