package models

import (
	"net/url"
	"time"
)

// Link represents a saved URL and its associated metadata. Links created
// through the shortening service additionally carry a stub, the short code
// under which the destination URL is reachable.
type Link struct {
	// ID is the unique identifier for the link record.
	ID int64
	// OwnerID references the user that owns the link; nil for links
	// created anonymously through the shortener.
	OwnerID *int64
	// CategoryID references the category the link belongs to.
	CategoryID int64
	// LinkTypeID references the type of the link.
	LinkTypeID int64
	// Title is the display title of the link.
	Title string
	// OriginalURL is the full-length destination URL.
	OriginalURL string
	// Description is a short free-form description.
	Description string
	// Stub is the short code associated with the link; empty for links
	// that were never shortened. Immutable once assigned.
	Stub string
	// IsPublic reports whether the link is visible without authentication.
	// Shortener-created links are always public.
	IsPublic bool
	// ClickCount tracks the number of times the short link has been visited.
	ClickCount int64
	// MetaTitle, MetaDescription and MetaImage hold metadata scraped from
	// the destination page, when available.
	MetaTitle       string
	MetaDescription string
	MetaImage       string
	// LastAccessedAt is the timestamp of the most recent visit; nil until
	// the short link is visited for the first time.
	LastAccessedAt *time.Time
	// CreatedAt is the timestamp indicating when the link was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the link was last updated.
	UpdatedAt time.Time
}

// Domain returns the host component of the destination URL, or an empty
// string if the URL doesn't parse.
func (l *Link) Domain() string {
	u, err := url.Parse(l.OriginalURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// FaviconURL returns a favicon URL for the destination's host via Google's
// favicon service, or an empty string if the host is unknown.
func (l *Link) FaviconURL() string {
	domain := l.Domain()
	if domain == "" {
		return ""
	}
	return "https://www.google.com/s2/favicons?domain=" + domain
}

// CreateLinkParams carries the fields required to persist a new link.
type CreateLinkParams struct {
	OwnerID     *int64
	CategoryID  int64
	LinkTypeID  int64
	Title       string
	OriginalURL string
	Description string
	Stub        string
	IsPublic    bool
}

// LinkPage is a single page of a user's shortened links.
type LinkPage struct {
	Links       []Link
	CurrentPage int
	LastPage    int
	PerPage     int
	Total       int64
}

// Category groups links for display and filtering. A category is owned by a
// user, or system-wide when OwnerID is nil.
type Category struct {
	ID          int64
	OwnerID     *int64
	Name        string
	Description string
	Color       string
	Icon        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryDefaults holds the attributes applied when a category is created
// by a get-or-create lookup miss.
type CategoryDefaults struct {
	Description string
	Color       string
	Icon        string
}

// LinkType classifies links (e.g. article, video, short link). Types are
// shared across users.
type LinkType struct {
	ID          int64
	Name        string
	Description string
	Icon        string
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LinkTypeDefaults holds the attributes applied when a link type is created
// by a get-or-create lookup miss.
type LinkTypeDefaults struct {
	Description string
	Icon        string
	SortOrder   int
}

// Metadata is the result of scraping a destination page.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}
