package recipe

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextFromHTML_SocialMetadata(t *testing.T) {
	html := `
      <html>
        <head>
          <title>Video Post</title>
          <meta property="og:title" content="Arroz A La Cubana" />
          <meta property="og:image:alt" content="INGREDIENTS: - 1 onion - 2 cloves garlic - 1 tomato" />
          <link
            rel="alternate"
            type="application/json+oembed"
            title="INGREDIENTS: - 1 onion - 2 cloves garlic - 1 tomato - 1 cup peas"
          />
          <script>window.__noise = "very long script content";</script>
        </head>
        <body>
          <main>Watch this recipe video now.</main>
        </body>
      </html>
    `

	page, err := ExtractTextFromHTML(html)
	require.NoError(t, err)

	assert.Equal(t, "Video Post", page.Title)
	snippets := strings.Join(page.MetadataSnippets, " ")
	assert.Contains(t, snippets, "INGREDIENTS")
	assert.Contains(t, snippets, "1 cup peas")
	assert.Contains(t, snippets, "Arroz A La Cubana")
	assert.Contains(t, page.Text, "Watch this recipe video now.")
	assert.NotContains(t, page.Text, "window.__noise")
}

func TestExtractTextFromHTML_Description(t *testing.T) {
	html := `<html><head>
		<meta property="og:description" content="  A weeknight stew. " />
		<style>body { color: red; }</style>
	</head><body>
		<nav>Home</nav>
		<article><h1>Beef Stew</h1>
			<p>2 lb   beef</p>
			<p>3 carrots</p>
		</article>
	</body></html>`

	page, err := ExtractTextFromHTML(html)
	require.NoError(t, err)

	assert.Equal(t, "A weeknight stew.", page.Description)
	assert.Equal(t, "Beef Stew 2 lb beef 3 carrots", page.Text)
	assert.NotContains(t, page.Text, "Home")
	// og:description 同時是描述與 metadata 片段
	assert.Equal(t, []string{"A weeknight stew."}, page.MetadataSnippets)
}

func TestExtractTextFromHTML_PrefersNamedDescription(t *testing.T) {
	html := `<html><head>
		<meta name="description" content="Named" />
		<meta property="og:description" content="Open Graph" />
	</head><body>text</body></html>`

	page, err := ExtractTextFromHTML(html)
	require.NoError(t, err)
	assert.Equal(t, "Named", page.Description)
}

func TestExtractTextFromHTML_CapsText(t *testing.T) {
	body := strings.Repeat("é", maxPageTextRunes+500)
	page, err := ExtractTextFromHTML("<html><body><p>" + body + "</p></body></html>")
	require.NoError(t, err)
	assert.Equal(t, maxPageTextRunes, utf8.RuneCountInString(page.Text))
}
