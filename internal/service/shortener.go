package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vadimbarashkov/linkhub/internal/database"
	"github.com/vadimbarashkov/linkhub/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// stubAlphabet is the character set random stubs are drawn from. Custom
// stubs may additionally contain '-' and '_'.
const stubAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	minStubLength = 3
	maxStubLength = 20

	// maxStubRetries bounds the random stub allocation loop. Collisions at
	// the default length are astronomically unlikely, so after a handful of
	// them the generated length starts growing instead of retrying forever.
	maxStubRetries = 10
	stubGrowAfter  = 5

	defaultPerPage = 20
)

const (
	ownedCategoryName     = "Shortened URLs"
	anonymousCategoryName = "Anonymous Short Links"
	shortLinkTypeName     = "Short Link"

	shortLinkDescription = "Shortened URL"
)

// reservedStubs are stub values that would shadow static application routes.
// Matched case-insensitively.
var reservedStubs = map[string]struct{}{
	"api": {}, "admin": {}, "dashboard": {}, "login": {}, "register": {},
	"logout": {}, "profile": {}, "settings": {}, "links": {}, "categories": {},
	"auth": {}, "password": {}, "email": {}, "verification": {}, "app": {},
	"www": {}, "ftp": {}, "mail": {}, "pop": {}, "pop3": {}, "imap": {},
	"smtp": {}, "stage": {}, "staging": {}, "test": {}, "testing": {},
	"dev": {}, "development": {},
}

var (
	// ErrStubUnavailable is returned when a requested custom stub fails
	// validation or is already taken.
	ErrStubUnavailable = errors.New("custom stub is not available")
	// ErrMaxRetriesExceeded is returned when the maximum number of retries
	// for generating a random stub is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating stub")
)

// LinkRepository defines the interface for working with links at the
// business logic layer.
type LinkRepository interface {
	// Create inserts a new link into the repository.
	// Returns database.ErrStubExists if the stub is already taken.
	Create(ctx context.Context, params models.CreateLinkParams) (*models.Link, error)

	// GetByStub retrieves a link by its stub without changing it.
	GetByStub(ctx context.Context, stub string) (*models.Link, error)

	// RecordVisit atomically increments the click count and sets the
	// last-accessed timestamp for the link with the given stub.
	// Returns the updated link.
	RecordVisit(ctx context.Context, stub string) (*models.Link, error)

	// StubExists reports whether a link with the given stub exists.
	StubExists(ctx context.Context, stub string) (bool, error)

	// ListShortened retrieves one page of the owner's shortened links,
	// newest first, along with the total count.
	ListShortened(ctx context.Context, ownerID int64, limit, offset int) ([]models.Link, int64, error)

	// DeleteShortened removes the short link owned by ownerID.
	// Returns database.ErrLinkNotFound when no such link is owned by them.
	DeleteShortened(ctx context.Context, stub string, ownerID int64) error
}

// CategoryRepository provides get-or-create access to link categories.
type CategoryRepository interface {
	GetOrCreate(ctx context.Context, name string, ownerID *int64, defaults models.CategoryDefaults) (*models.Category, error)
}

// LinkTypeRepository provides get-or-create access to link types.
type LinkTypeRepository interface {
	GetOrCreate(ctx context.Context, name string, defaults models.LinkTypeDefaults) (*models.LinkType, error)
}

// ShortenParams carries the inputs of a shortening request.
type ShortenParams struct {
	OriginalURL string
	// CustomStub, when non-empty, is the caller-chosen stub. It must pass
	// availability checks or the request fails with ErrStubUnavailable.
	CustomStub string
	// OwnerID identifies the authenticated caller; nil for anonymous ones.
	OwnerID *int64
}

// Shortener provides the URL shortening operations: stub allocation,
// redirect resolution, previews and owner management of short links.
type Shortener struct {
	links      LinkRepository
	categories CategoryRepository
	linkTypes  LinkTypeRepository
	stubLength int
	baseURL    string
}

// NewShortener creates a new Shortener backed by the given repositories.
// Random stubs are generated with stubLength characters; baseURL is the
// public prefix short links are served under.
func NewShortener(links LinkRepository, categories CategoryRepository, linkTypes LinkTypeRepository, stubLength int, baseURL string) *Shortener {
	return &Shortener{
		links:      links,
		categories: categories,
		linkTypes:  linkTypes,
		stubLength: stubLength,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func isStubCharset(stub string) bool {
	for _, c := range stub {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// CheckStub reports whether the stub can be claimed: allowed characters,
// length within bounds, not a reserved word, and not already taken. The
// checks short-circuit in that order.
func (s *Shortener) CheckStub(ctx context.Context, stub string) (bool, error) {
	const op = "service.Shortener.CheckStub"

	if !isStubCharset(stub) {
		return false, nil
	}

	if len(stub) < minStubLength || len(stub) > maxStubLength {
		return false, nil
	}

	if _, ok := reservedStubs[strings.ToLower(stub)]; ok {
		return false, nil
	}

	exists, err := s.links.StubExists(ctx, stub)
	if err != nil {
		return false, fmt.Errorf("%s: failed to check stub: %w", op, err)
	}

	return !exists, nil
}

// Shorten creates a short link for the destination URL. A custom stub is
// validated first; otherwise a random stub is allocated. The link is filed
// under the caller's "Shortened URLs" category (or the shared anonymous one)
// and the shared "Short Link" type, both created on first use.
func (s *Shortener) Shorten(ctx context.Context, params ShortenParams) (*models.Link, error) {
	const op = "service.Shortener.Shorten"

	// A rejected custom stub must leave no trace: validate before the
	// category and link type get-or-create calls.
	if params.CustomStub != "" {
		available, err := s.CheckStub(ctx, params.CustomStub)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !available {
			return nil, fmt.Errorf("%s: %w", op, ErrStubUnavailable)
		}
	}

	category, err := s.defaultCategory(ctx, params.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	linkType, err := s.linkTypes.GetOrCreate(ctx, shortLinkTypeName, models.LinkTypeDefaults{
		Description: "Shortened URL links",
		Icon:        "link",
		SortOrder:   100,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve link type: %w", op, err)
	}

	createParams := models.CreateLinkParams{
		OwnerID:     params.OwnerID,
		CategoryID:  category.ID,
		LinkTypeID:  linkType.ID,
		Title:       titleFromURL(params.OriginalURL),
		OriginalURL: params.OriginalURL,
		Description: shortLinkDescription,
		IsPublic:    true,
	}

	if params.CustomStub != "" {
		createParams.Stub = params.CustomStub

		link, err := s.links.Create(ctx, createParams)
		if err != nil {
			// The availability check isn't atomic with the insert; a
			// concurrent writer claiming the same stub surfaces here as a
			// uniqueness violation.
			if errors.Is(err, database.ErrStubExists) {
				return nil, fmt.Errorf("%s: %w", op, ErrStubUnavailable)
			}

			return nil, fmt.Errorf("%s: failed to create short link: %w", op, err)
		}

		return link, nil
	}

	for attempt := 0; attempt < maxStubRetries; attempt++ {
		length := s.stubLength
		if attempt >= stubGrowAfter {
			length += attempt - stubGrowAfter + 1
		}

		stub, err := gonanoid.Generate(stubAlphabet, length)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate stub: %w", op, err)
		}

		exists, err := s.links.StubExists(ctx, stub)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to check stub: %w", op, err)
		}
		if exists {
			continue
		}

		createParams.Stub = stub

		link, err := s.links.Create(ctx, createParams)
		if err != nil {
			if errors.Is(err, database.ErrStubExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to create short link: %w", op, err)
		}

		return link, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

func (s *Shortener) defaultCategory(ctx context.Context, ownerID *int64) (*models.Category, error) {
	name := anonymousCategoryName
	description := "Short links created by anonymous users"
	if ownerID != nil {
		name = ownedCategoryName
		description = "URLs created via the shortening service"
	}

	category, err := s.categories.GetOrCreate(ctx, name, ownerID, models.CategoryDefaults{
		Description: description,
		Color:       "#6366f1",
		Icon:        "link",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	return category, nil
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return shortLinkDescription
	}
	return "Link from " + u.Host
}

// Resolve records a visit against the stub and returns the link so the
// caller can redirect to its destination. The click count and last-accessed
// timestamp change as one atomic operation.
func (s *Shortener) Resolve(ctx context.Context, stub string) (*models.Link, error) {
	const op = "service.Shortener.Resolve"

	link, err := s.links.RecordVisit(ctx, stub)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve stub: %w", op, err)
	}

	return link, nil
}

// Preview returns the link associated with the stub without counting a visit.
func (s *Shortener) Preview(ctx context.Context, stub string) (*models.Link, error) {
	const op = "service.Shortener.Preview"

	link, err := s.links.GetByStub(ctx, stub)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to preview stub: %w", op, err)
	}

	return link, nil
}

// ListOwned retrieves one page of the owner's shortened links.
// Pages are numbered from 1.
func (s *Shortener) ListOwned(ctx context.Context, ownerID int64, page int) (*models.LinkPage, error) {
	const op = "service.Shortener.ListOwned"

	if page < 1 {
		page = 1
	}

	links, total, err := s.links.ListShortened(ctx, ownerID, defaultPerPage, (page-1)*defaultPerPage)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list short links: %w", op, err)
	}

	lastPage := int((total + defaultPerPage - 1) / defaultPerPage)
	if lastPage < 1 {
		lastPage = 1
	}

	return &models.LinkPage{
		Links:       links,
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     defaultPerPage,
		Total:       total,
	}, nil
}

// Delete removes the owner's short link.
func (s *Shortener) Delete(ctx context.Context, stub string, ownerID int64) error {
	const op = "service.Shortener.Delete"

	if err := s.links.DeleteShortened(ctx, stub, ownerID); err != nil {
		return fmt.Errorf("%s: failed to delete short link: %w", op, err)
	}

	return nil
}

// FullShortURL returns the absolute short URL for the stub.
func (s *Shortener) FullShortURL(stub string) string {
	return s.baseURL + "/" + stub
}
