package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/recipe-service/internal/entity"
)

func imageURLs(items []entity.MediaItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.URL)
	}
	return out
}

func TestSelectImagesFiltersAndRanks(t *testing.T) {
	page := `<html><head>
	<meta property="og:image" content="https://cdn.example.com/stew.jpg?w=1200">
	</head><body><article>
	<img src="/img/site-logo.png">
	<img src="/img/tiny.jpg" width="50" height="50">
	<img data-src="/img/stew-step-1.jpg" src="data:image/gif;base64,R0lGOD">
	<img src="https://cdn.example.com/stew.jpg?w=600" alt="Beef stew">
	<img src="/img/chicken-dinner.jpg">
	<img class="share-button" src="/img/pin.jpg">
	</article></body></html>`
	doc, err := NewHTMLDocument("https://example.com/stew", page, entity.SourceWebsite)
	require.NoError(t, err)

	items := SelectImages(doc, nil, nil)
	assert.Equal(t, []string{
		"https://cdn.example.com/stew.jpg?w=1200",
		"https://example.com/img/chicken-dinner.jpg",
		"https://example.com/img/stew-step-1.jpg",
	}, imageURLs(items))
	assert.Equal(t, "meta", items[0].Source)
	assert.Equal(t, entity.MediaImage, items[1].Role)
}

func TestSelectImagesCapsAtThree(t *testing.T) {
	doc, err := NewHTMLDocument("https://example.com/", `<body></body>`, entity.SourceWebsite)
	require.NoError(t, err)

	items := SelectImages(doc, []string{"/a.jpg", "/b.jpg", "/c.jpg", "/d.jpg"}, nil)
	assert.Equal(t, []string{
		"https://example.com/a.jpg",
		"https://example.com/b.jpg",
		"https://example.com/c.jpg",
	}, imageURLs(items))
}
