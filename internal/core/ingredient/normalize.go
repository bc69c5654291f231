// Package ingredient 食材名稱正規化、單位換算與合併判斷
//
// 本套件只包含純函數與不可變的查表資料，可安全地被多個 goroutine 同時使用。
package ingredient

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
	nonKeyCharPattern    = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespacePattern    = regexp.MustCompile(`\s+`)

	// 描述用詞，不影響購買的品項
	stopWords = map[string]struct{}{
		"fresh":    {},
		"large":    {},
		"small":    {},
		"medium":   {},
		"optional": {},
		"organic":  {},
		"ripe":     {},
		"chopped":  {},
		"sliced":   {},
		"diced":    {},
		"minced":   {},
	}
)

// foldAccents 去除重音符號：jalapeño → jalapeno
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func singularize(token string) string {
	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 3:
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "ss"):
		return token
	case strings.HasSuffix(token, "s"):
		return token[:len(token)-1]
	}
	return token
}

func isStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// Normalize 產生食材的比對鍵
// 兩個名稱的 Normalize 結果相同即視為同一個品項；空字串代表沒有可用的鍵
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = foldAccents(s)
	s = parentheticalPattern.ReplaceAllString(s, " ")
	s = nonKeyCharPattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}

	tokens := strings.Fields(s)
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if isStopWord(token) {
			continue
		}
		single := singularize(token)
		if single == "" || isStopWord(single) {
			continue
		}
		kept = append(kept, single)
	}
	return strings.Join(kept, " ")
}
