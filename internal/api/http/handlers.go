package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/linkhub/internal/database"
	"github.com/vadimbarashkov/linkhub/internal/models"
	"github.com/vadimbarashkov/linkhub/internal/service"
	"github.com/vadimbarashkov/linkhub/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// shortenRequest represents the request payload for creating a short link.
// The custom stub is validated by the shortening service, not here, so a bad
// stub surfaces as "not available" rather than a validation error.
type shortenRequest struct {
	URL        string `json:"url" validate:"required,url,max=2048"`
	CustomStub string `json:"custom_stub"`
}

// shortLinkResponse represents the response payload for a short link.
type shortLinkResponse struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	OriginalURL    string     `json:"original_url"`
	ShortURL       string     `json:"short_url"`
	FullShortURL   string     `json:"full_short_url"`
	ClickCount     int64      `json:"click_count"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

func toShortLinkResponse(svc ShortenerService, link *models.Link) shortLinkResponse {
	return shortLinkResponse{
		ID:           link.ID,
		Title:        link.Title,
		OriginalURL:  link.OriginalURL,
		ShortURL:     link.Stub,
		FullShortURL: svc.FullShortURL(link.Stub),
		ClickCount:   link.ClickCount,
		CreatedAt:    link.CreatedAt,
	}
}

// handleShorten handles POST requests to shorten a URL.
//
// The request must contain a valid destination URL and may carry a custom
// stub. Authenticated callers own the created link; anonymous creation is
// allowed.
func handleShorten(svc ShortenerService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShorten"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		params := service.ShortenParams{
			OriginalURL: req.URL,
			CustomStub:  req.CustomStub,
		}
		if userID, ok := userIDFrom(r.Context()); ok {
			params.OwnerID = &userID
		}

		link, err := svc.Shorten(r.Context(), params)
		if err != nil {
			if errors.Is(err, service.ErrStubUnavailable) {
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, response.StubUnavailableResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toShortLinkResponse(svc, link)))
	}
}

// stubCheckRequest represents the request payload for a stub availability
// check.
type stubCheckRequest struct {
	Stub string `json:"stub" validate:"required"`
}

// stubCheckResponse represents the response payload for a stub availability
// check. Deliberately unwrapped: clients poll this while typing.
type stubCheckResponse struct {
	Available bool   `json:"available"`
	Stub      string `json:"stub"`
}

// handleCheckStub handles POST requests to check whether a custom stub can
// still be claimed.
func handleCheckStub(svc ShortenerService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCheckStub"

	return func(w http.ResponseWriter, r *http.Request) {
		var req stubCheckRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		available, err := svc.CheckStub(r.Context(), req.Stub)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, stubCheckResponse{
			Available: available,
			Stub:      req.Stub,
		})
	}
}

// previewResponse represents the response payload for a short link preview.
type previewResponse struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OriginalURL string    `json:"original_url"`
	ShortURL    string    `json:"short_url"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
	Domain      string    `json:"domain"`
	FaviconURL  string    `json:"favicon_url"`
}

// handlePreview handles GET requests for short link previews.
//
// The handler returns the link's metadata without counting a visit, or a 404
// error if the stub is unknown.
func handlePreview(svc ShortenerService) http.HandlerFunc {
	const op = "api.http.handlePreview"
	const successMsg = "The short link preview retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		stub := chi.URLParam(r, "stub")

		link, err := svc.Preview(r.Context(), stub)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := previewResponse{
			Title:       link.Title,
			Description: link.Description,
			OriginalURL: link.OriginalURL,
			ShortURL:    link.Stub,
			ClickCount:  link.ClickCount,
			CreatedAt:   link.CreatedAt,
			Domain:      link.Domain(),
			FaviconURL:  link.FaviconURL(),
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// handleRedirect handles GET requests on the top-level stub route.
//
// The handler counts the visit and redirects to the destination URL. Visit
// details land on the request log entry; logging can't fail the redirect.
func handleRedirect(svc ShortenerService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		stub := chi.URLParam(r, "stub")

		link, err := svc.Resolve(r.Context(), stub)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		httplog.LogEntrySetFields(r.Context(), map[string]any{
			"stub":       stub,
			"user_agent": r.UserAgent(),
			"ip":         r.RemoteAddr,
			"referrer":   r.Referer(),
		})

		http.Redirect(w, r, link.OriginalURL, http.StatusFound)
	}
}

// paginationResponse describes the position of a page within a listing.
type paginationResponse struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

// handleMyLinks handles GET requests for the caller's shortened links.
//
// The listing is newest first and paginated; the page is selected with the
// "page" query parameter.
func handleMyLinks(svc ShortenerService) http.HandlerFunc {
	const op = "api.http.handleMyLinks"
	const successMsg = "The short links retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.AuthenticationRequiredResponse)
			return
		}

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		linkPage, err := svc.ListOwned(r.Context(), userID, page)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]shortLinkResponse, 0, len(linkPage.Links))
		for i := range linkPage.Links {
			item := toShortLinkResponse(svc, &linkPage.Links[i])
			item.LastAccessedAt = linkPage.Links[i].LastAccessedAt
			data = append(data, item)
		}

		resp := response.SuccessResponse(successMsg, data)
		resp.Pagination = paginationResponse{
			CurrentPage: linkPage.CurrentPage,
			LastPage:    linkPage.LastPage,
			PerPage:     linkPage.PerPage,
			Total:       linkPage.Total,
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, resp)
	}
}

// handleDeleteShortLink handles DELETE requests for the caller's short links.
//
// A stub that doesn't exist and a stub owned by someone else both yield 404,
// so unauthorized callers can't probe which stubs are taken.
func handleDeleteShortLink(svc ShortenerService) http.HandlerFunc {
	const op = "api.http.handleDeleteShortLink"
	const successMsg = "Shortened URL deleted successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.AuthenticationRequiredResponse)
			return
		}

		stub := chi.URLParam(r, "stub")

		err := svc.Delete(r.Context(), stub, userID)
		if err != nil {
			if errors.Is(err, database.ErrLinkNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// scrapeMetaRequest represents the request payload for a metadata scrape.
type scrapeMetaRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// handleScrapeMeta handles POST requests to scrape page metadata for a URL.
//
// Scraping is best-effort: an unreachable or uncooperative page yields an
// empty object, not an error.
func handleScrapeMeta(scr MetadataScraper, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrapeMetaRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		meta := scr.Scrape(r.Context(), req.URL)

		render.Status(r, http.StatusOK)
		render.JSON(w, r, meta)
	}
}
