package ingredient

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TitleCase 將顯示名稱轉為每個單字首字母大寫，連字號兩側分別處理
// "  extra-virgin OLIVE oil " → "Extra-Virgin Olive Oil"
func TitleCase(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		segments := strings.Split(word, "-")
		for j, seg := range segments {
			segments[j] = capitalize(seg)
		}
		words[i] = strings.Join(segments, "-")
	}
	return strings.Join(words, " ")
}

func capitalize(seg string) string {
	if seg == "" {
		return seg
	}
	r, size := utf8.DecodeRuneInString(seg)
	return string(unicode.ToUpper(r)) + strings.ToLower(seg[size:])
}
