package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/linkhub/internal/database"
	"github.com/vadimbarashkov/linkhub/internal/models"
)

type linkRecord struct {
	ID              int64          `db:"id"`
	UserID          *int64         `db:"user_id"`
	CategoryID      int64          `db:"category_id"`
	LinkTypeID      int64          `db:"link_type_id"`
	Title           string         `db:"title"`
	URL             string         `db:"url"`
	Description     string         `db:"description"`
	Stub            sql.NullString `db:"stub"`
	IsPublic        bool           `db:"is_public"`
	ClickCount      int64          `db:"click_count"`
	MetaTitle       sql.NullString `db:"meta_title"`
	MetaDescription sql.NullString `db:"meta_description"`
	MetaImage       sql.NullString `db:"meta_image"`
	LastAccessedAt  sql.NullTime   `db:"last_accessed_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *linkRecord) ToLink() *models.Link {
	link := &models.Link{
		ID:              r.ID,
		OwnerID:         r.UserID,
		CategoryID:      r.CategoryID,
		LinkTypeID:      r.LinkTypeID,
		Title:           r.Title,
		OriginalURL:     r.URL,
		Description:     r.Description,
		Stub:            r.Stub.String,
		IsPublic:        r.IsPublic,
		ClickCount:      r.ClickCount,
		MetaTitle:       r.MetaTitle.String,
		MetaDescription: r.MetaDescription.String,
		MetaImage:       r.MetaImage.String,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}

	if r.LastAccessedAt.Valid {
		t := r.LastAccessedAt.Time
		link.LastAccessedAt = &t
	}

	return link
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
	}
}

func (r *LinkRepository) Create(ctx context.Context, params models.CreateLinkParams) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Create"

	rec := new(linkRecord)
	query := `INSERT INTO links(user_id, category_id, link_type_id, title, url, description, stub, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`

	stub := sql.NullString{String: params.Stub, Valid: params.Stub != ""}

	err := r.db.GetContext(ctx, rec, query,
		params.OwnerID, params.CategoryID, params.LinkTypeID,
		params.Title, params.OriginalURL, params.Description,
		stub, params.IsPublic,
	)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrStubExists)
		}

		return nil, fmt.Errorf("%s: failed to create link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

func (r *LinkRepository) GetByStub(ctx context.Context, stub string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.GetByStub"

	rec := new(linkRecord)
	query := `SELECT * FROM links
		WHERE stub = $1`

	err := r.db.GetContext(ctx, rec, query, stub)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// RecordVisit counts one visit against the stub: the click counter and the
// last-accessed timestamp change in a single atomic statement, so concurrent
// visits can't lose updates.
func (r *LinkRepository) RecordVisit(ctx context.Context, stub string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.RecordVisit"

	rec := new(linkRecord)
	query := `UPDATE links
		SET click_count = click_count + 1,
			last_accessed_at = now(),
			updated_at = now()
		WHERE stub = $1
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, stub)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to record visit: %w", op, err)
	}

	return rec.ToLink(), nil
}

func (r *LinkRepository) StubExists(ctx context.Context, stub string) (bool, error) {
	const op = "database.postgres.LinkRepository.StubExists"

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE stub = $1)`

	if err := r.db.GetContext(ctx, &exists, query, stub); err != nil {
		return false, fmt.Errorf("%s: failed to check stub: %w", op, err)
	}

	return exists, nil
}

// ListShortened returns one page of the owner's shortened links, newest
// first, along with the total number of shortened links the owner has.
func (r *LinkRepository) ListShortened(ctx context.Context, ownerID int64, limit, offset int) ([]models.Link, int64, error) {
	const op = "database.postgres.LinkRepository.ListShortened"

	var total int64
	countQuery := `SELECT count(*) FROM links
		WHERE user_id = $1 AND stub IS NOT NULL`

	if err := r.db.GetContext(ctx, &total, countQuery, ownerID); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to count link records: %w", op, err)
	}

	var recs []linkRecord
	query := `SELECT * FROM links
		WHERE user_id = $1 AND stub IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &recs, query, ownerID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to list link records: %w", op, err)
	}

	links := make([]models.Link, 0, len(recs))
	for i := range recs {
		links = append(links, *recs[i].ToLink())
	}

	return links, total, nil
}

// DeleteShortened removes the owner's short link. A stub owned by someone
// else is indistinguishable from a missing one.
func (r *LinkRepository) DeleteShortened(ctx context.Context, stub string, ownerID int64) error {
	const op = "database.postgres.LinkRepository.DeleteShortened"

	query := `DELETE FROM links
		WHERE stub = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, stub, ownerID)
	if err != nil {
		return fmt.Errorf("%s: failed to delete link record: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
	}

	return nil
}
