package recipe

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-tracker/internal/core/ai/provider"
	imagesvc "grocery-tracker/internal/core/image"
	"grocery-tracker/internal/infrastructure/store/memory"
	"grocery-tracker/internal/pkg/common"
)

const adoboJSON = `{"title":"Chicken Adobo","servings":4,"dietaryTags":["Gluten-Free"],` +
	`"ingredients":[{"name":"chicken thighs","quantity":"1 1/2","unit":"kg"},{"name":"Vinegar","quantity":"1/2","unit":"cup"}],"confidence":0.8}`

var testActor = common.Actor{
	UserID:      "3b1f7c2e-2222-4000-8000-000000000001",
	HouseholdID: "3b1f7c2e-2222-4000-8000-0000000000cc",
}

type fakeGenerator struct {
	content  string
	err      error
	requests []*provider.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content, Model: "fake-model"}, nil
}

func (f *fakeGenerator) ProviderName() string { return "fake" }

func (f *fakeGenerator) ModelName(vision bool) string {
	if vision {
		return "fake-vision"
	}
	return "fake-text"
}

func newExtractService(t *testing.T, gen Generator) (*ExtractService, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := NewExtractService(gen, st, imagesvc.NewService(8*1024*1024, 64), 5*time.Second)
	httpmock.ActivateNonDefault(svc.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return svc, st
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y % 255), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFromURL(t *testing.T) {
	gen := &fakeGenerator{content: adoboJSON}
	svc, _ := newExtractService(t, gen)

	httpmock.RegisterResponder(http.MethodGet, "https://recipes.test/adobo",
		func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.Header.Get("User-Agent"), "GroceriesTrackerBot")
			return httpmock.NewStringResponse(http.StatusOK,
				`<html><head><title>Adobo</title></head><body><article>Braise chicken in vinegar.</article></body></html>`), nil
		})

	draft, err := svc.FromURL(context.Background(), " https://recipes.test/adobo ")
	require.NoError(t, err)

	assert.Equal(t, "Chicken Adobo", draft.Title)
	assert.Equal(t, common.RecipeSourceURL, draft.SourceType)
	require.NotNil(t, draft.SourceURL)
	assert.Equal(t, "https://recipes.test/adobo", *draft.SourceURL)
	assert.Equal(t, []string{"gluten-free"}, draft.DietaryTags)
	require.Len(t, draft.Ingredients, 2)
	assert.Equal(t, "Chicken Thighs", draft.Ingredients[0].NameDisplay)
	assert.Equal(t, "chicken thigh", draft.Ingredients[0].NameNormalized)
	assert.Equal(t, 1.5, draft.Ingredients[0].Quantity)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.True(t, req.JSON)
	assert.False(t, req.HasImage())
	assert.Contains(t, req.Prompt, "Source URL: https://recipes.test/adobo")
	assert.Contains(t, req.Prompt, "Page title: Adobo")
	assert.Contains(t, req.Prompt, "Page text snippet: Braise chicken in vinegar.")

	require.NotNil(t, req.Validate)
	assert.NoError(t, req.Validate(adoboJSON))
	assert.Error(t, req.Validate("Sorry, I cannot read that page."))
}

func TestFromURL_RejectsNonHTTP(t *testing.T) {
	svc, _ := newExtractService(t, &fakeGenerator{content: adoboJSON})

	for _, raw := range []string{"", "ftp://recipes.test/x", "file:///etc/passwd", "not a url"} {
		_, err := svc.FromURL(context.Background(), raw)
		require.Error(t, err, raw)
		assert.True(t, common.IsValidationError(err), raw)
	}
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestFromURL_FetchFailure(t *testing.T) {
	gen := &fakeGenerator{content: adoboJSON}
	svc, _ := newExtractService(t, gen)

	httpmock.RegisterResponder(http.MethodGet, "https://recipes.test/missing",
		httpmock.NewStringResponder(http.StatusNotFound, "nope"))

	_, err := svc.FromURL(context.Background(), "https://recipes.test/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to fetch recipe URL (404).")
	assert.Equal(t, http.StatusBadGateway, common.StatusOf(err))
	assert.Empty(t, gen.requests)
}

func TestFromURL_BadModelOutput(t *testing.T) {
	svc, _ := newExtractService(t, &fakeGenerator{content: "Sorry, no recipe here."})
	httpmock.RegisterResponder(http.MethodGet, "https://recipes.test/blog",
		httpmock.NewStringResponder(http.StatusOK, "<html><body>blog</body></html>"))

	_, err := svc.FromURL(context.Background(), "https://recipes.test/blog")
	assert.ErrorIs(t, err, common.ErrAIServiceError)
}

func TestFromURL_NotConfigured(t *testing.T) {
	svc, _ := newExtractService(t, nil)
	httpmock.RegisterResponder(http.MethodGet, "https://recipes.test/adobo",
		httpmock.NewStringResponder(http.StatusOK, "<html><body>x</body></html>"))

	_, err := svc.FromURL(context.Background(), "https://recipes.test/adobo")
	assert.ErrorIs(t, err, common.ErrAINotConfigured)
}

func TestUploadAndExtractImage(t *testing.T) {
	gen := &fakeGenerator{content: adoboJSON}
	svc, st := newExtractService(t, gen)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	path, err := svc.UploadImage(ctx, testActor, "Dinner.PNG", testPNG(t, 200, 100))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, testActor.HouseholdID+"/"+testActor.UserID+"/1700000000000-"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	_, contentType, err := st.GetImage(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	draft, err := svc.FromImage(ctx, testActor, path, common.RecipeSourceImageMeal)
	require.NoError(t, err)
	assert.Equal(t, common.RecipeSourceImageMeal, draft.SourceType)
	require.NotNil(t, draft.SourceImagePath)
	assert.Equal(t, path, *draft.SourceImagePath)

	require.Len(t, gen.requests, 1)
	assert.True(t, gen.requests[0].HasImage())
	assert.True(t, strings.HasPrefix(gen.requests[0].ImageDataURI, "data:image/jpeg;base64,"))
	assert.Equal(t, mealPhotoPrompt, gen.requests[0].Prompt)
}

func TestUploadImage_Rejects(t *testing.T) {
	svc, _ := newExtractService(t, &fakeGenerator{})
	ctx := context.Background()

	_, err := svc.UploadImage(ctx, testActor, "empty.png", nil)
	assert.True(t, common.IsValidationError(err))

	_, err = svc.UploadImage(ctx, testActor, "notes.png", []byte("just some text"))
	assert.ErrorIs(t, err, common.ErrInvalidImageFormat)
}

func TestFromImage_Rejects(t *testing.T) {
	svc, st := newExtractService(t, &fakeGenerator{content: adoboJSON})
	ctx := context.Background()

	_, err := svc.FromImage(ctx, testActor, "a/b/c.png", common.RecipeSourceURL)
	assert.True(t, common.IsValidationError(err))

	// 其他家庭的照片
	other := "someone-else/u/1-x.png"
	require.NoError(t, st.PutImage(ctx, other, "image/png", testPNG(t, 10, 10)))
	_, err = svc.FromImage(ctx, testActor, other, common.RecipeSourceImageRecipePage)
	assert.ErrorIs(t, err, common.ErrImageNotFound)

	_, err = svc.FromImage(ctx, testActor, testActor.HouseholdID+"/missing.png", common.RecipeSourceImageRecipePage)
	assert.ErrorIs(t, err, common.ErrImageNotFound)
}
