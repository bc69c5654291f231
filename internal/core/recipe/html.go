package recipe

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxPageTextRunes 送給模型的頁面內文上限
const maxPageTextRunes = 12000

var whitespacePattern = regexp.MustCompile(`\s+`)

// 影片或社群貼文常把食材清單放在這些 metadata 裡
var metadataSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="og:title"]`, "content"},
	{`meta[property="og:description"]`, "content"},
	{`meta[property="og:image:alt"]`, "content"},
	{`meta[name="twitter:description"]`, "content"},
	{`meta[property="twitter:description"]`, "content"},
	{`link[type="application/json+oembed"]`, "title"},
}

// PageText 從食譜網頁擷取的文字
type PageText struct {
	Title            string
	Description      string
	MetadataSnippets []string
	Text             string
}

// ExtractTextFromHTML 取出標題、描述、metadata 片段與主要內文（移除 script/style）
func ExtractTextFromHTML(html string) (*PageText, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript, template").Remove()

	page := &PageText{
		Title:            strings.TrimSpace(doc.Find("title").First().Text()),
		MetadataSnippets: make([]string, 0),
	}

	page.Description = attrOf(doc, `meta[name="description"]`, "content")
	if page.Description == "" {
		page.Description = attrOf(doc, `meta[property="og:description"]`, "content")
	}

	seen := make(map[string]struct{})
	for _, m := range metadataSelectors {
		doc.Find(m.selector).Each(func(_ int, sel *goquery.Selection) {
			v := collapseWhitespace(sel.AttrOr(m.attr, ""))
			if v == "" {
				return
			}
			if _, dup := seen[v]; dup {
				return
			}
			seen[v] = struct{}{}
			page.MetadataSnippets = append(page.MetadataSnippets, v)
		})
	}

	// article 與 main 都是 body 的一部分，取第一個有內容的即可
	for _, selector := range []string{"article", "main", "body"} {
		text := collapseWhitespace(doc.Find(selector).First().Text())
		if text != "" {
			page.Text = truncateRunes(text, maxPageTextRunes)
			break
		}
	}

	return page, nil
}

func attrOf(doc *goquery.Document, selector, attr string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr(attr, ""))
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
