// Package scraper extracts page metadata (title, description, preview image)
// from a URL. Scraping is a best-effort enrichment: any failure yields an
// empty result instead of an error.
package scraper

import (
	"context"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/vadimbarashkov/linkhub/internal/models"
)

const (
	fetchTimeout = 10 * time.Second
	maxBodySize  = 1 << 20
)

// First-match pattern extraction over the raw body. Deliberately not a full
// HTML parser: the patterns tolerate malformed markup.
var (
	titlePattern       = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descriptionPattern = regexp.MustCompile(`(?i)<meta[^>]+name=["']description["'][^>]+content=["']([^"']+)["'][^>]*>`)
	ogImagePattern     = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']+)["'][^>]*>`)
)

// Scraper fetches pages with a bounded timeout and pulls metadata out of
// their markup. Safe for concurrent use.
type Scraper struct {
	client *http.Client
}

func New() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// Scrape fetches rawURL and returns whatever metadata the page exposes.
// Timeouts, non-success statuses and transport errors all degrade to an
// empty result.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) models.Metadata {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.Metadata{}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Metadata{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return models.Metadata{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return models.Metadata{}
	}

	var meta models.Metadata

	if m := titlePattern.FindSubmatch(body); m != nil {
		meta.Title = strings.TrimSpace(html.UnescapeString(string(m[1])))
	}
	if m := descriptionPattern.FindSubmatch(body); m != nil {
		meta.Description = strings.TrimSpace(html.UnescapeString(string(m[1])))
	}
	if m := ogImagePattern.FindSubmatch(body); m != nil {
		meta.ImageURL = strings.TrimSpace(string(m[1]))
	}

	return meta
}
