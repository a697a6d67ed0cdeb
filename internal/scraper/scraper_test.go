package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vadimbarashkov/linkhub/internal/models"
)

func TestScraper_Scrape(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   models.Metadata
	}{
		{
			name:   "full metadata",
			status: http.StatusOK,
			body: `<!DOCTYPE html>
<html>
<head>
	<title>Example Page</title>
	<meta name="description" content="An example page for testing.">
	<meta property="og:image" content="https://example.com/preview.png">
</head>
<body></body>
</html>`,
			want: models.Metadata{
				Title:       "Example Page",
				Description: "An example page for testing.",
				ImageURL:    "https://example.com/preview.png",
			},
		},
		{
			name:   "title only with entities and whitespace",
			status: http.StatusOK,
			body:   "<html><head><title>\n\tFish &amp; Chips\n</title></head></html>",
			want: models.Metadata{
				Title: "Fish & Chips",
			},
		},
		{
			name:   "title with attributes spans lines",
			status: http.StatusOK,
			body:   "<TITLE data-test=\"x\">Upper\nCase</TITLE>",
			want: models.Metadata{
				Title: "Upper\nCase",
			},
		},
		{
			name:   "no metadata",
			status: http.StatusOK,
			body:   "<html><body>nothing here</body></html>",
			want:   models.Metadata{},
		},
		{
			name:   "non-success status",
			status: http.StatusNotFound,
			body:   "<html><head><title>Not Found</title></head></html>",
			want:   models.Metadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			meta := New().Scrape(context.Background(), server.URL)

			assert.Equal(t, tt.want, meta)
		})
	}
}

func TestScraper_Scrape_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	meta := New().Scrape(context.Background(), server.URL)

	assert.Equal(t, models.Metadata{}, meta)
}

func TestScraper_Scrape_InvalidURL(t *testing.T) {
	meta := New().Scrape(context.Background(), "://not-a-url")

	assert.Equal(t, models.Metadata{}, meta)
}
