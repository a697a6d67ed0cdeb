package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/linkhub/internal/models"
	"github.com/vadimbarashkov/linkhub/internal/service"
)

// ShortenerService defines the interface for the core URL shortening
// business logic.
type ShortenerService interface {
	// Shorten creates a short link for the destination URL, allocating a
	// random stub unless the caller requested a custom one.
	Shorten(ctx context.Context, params service.ShortenParams) (*models.Link, error)

	// CheckStub reports whether the stub can still be claimed.
	CheckStub(ctx context.Context, stub string) (bool, error)

	// Resolve returns the link for the stub, counting the visit.
	Resolve(ctx context.Context, stub string) (*models.Link, error)

	// Preview returns the link for the stub without counting a visit.
	Preview(ctx context.Context, stub string) (*models.Link, error)

	// ListOwned retrieves one page of the owner's shortened links.
	ListOwned(ctx context.Context, ownerID int64, page int) (*models.LinkPage, error)

	// Delete removes the owner's short link.
	Delete(ctx context.Context, stub string, ownerID int64) error

	// FullShortURL returns the absolute short URL for the stub.
	FullShortURL(stub string) string
}

// MetadataScraper fetches page metadata for a URL, best-effort.
type MetadataScraper interface {
	Scrape(ctx context.Context, rawURL string) models.Metadata
}

// getValidate initializes a new validator instance for validating incoming
// request payloads. It customizes tag name extraction from struct fields to
// match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and
// middleware configured. The top-level "/{stub}" route performs redirects;
// everything else lives under /api.
func NewRouter(logger *httplog.Logger, svc ShortenerService, scr MetadataScraper, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	r.Get("/ping", handlePing)

	r.Route("/api", func(r chi.Router) {
		validate := getValidate()

		r.Route("/shorten", func(r chi.Router) {
			r.With(identify(jwtSecret)).Post("/", handleShorten(svc, validate))
			r.Post("/check-stub", handleCheckStub(svc, validate))
			r.Get("/preview/{stub}", handlePreview(svc))

			r.Group(func(r chi.Router) {
				r.Use(authenticate(jwtSecret))

				r.Get("/my-links", handleMyLinks(svc))
				r.Delete("/{stub}", handleDeleteShortLink(svc))
			})
		})

		r.With(authenticate(jwtSecret)).Post("/scrape-meta", handleScrapeMeta(scr, validate))
	})

	r.Get("/{stub}", handleRedirect(svc))

	return r
}
