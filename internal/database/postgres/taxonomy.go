package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/linkhub/internal/models"
)

type categoryRecord struct {
	ID          int64     `db:"id"`
	UserID      *int64    `db:"user_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Color       string    `db:"color"`
	Icon        string    `db:"icon"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *categoryRecord) ToCategory() *models.Category {
	return &models.Category{
		ID:          r.ID,
		OwnerID:     r.UserID,
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
		Icon:        r.Icon,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{
		db: db,
	}
}

// GetOrCreate returns the category identified by name and owner, creating it
// with the given defaults on a lookup miss. A concurrent creation of the same
// key is resolved by re-fetching after the insert conflicts, so the category
// is created at most once per key without external locking.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, name string, ownerID *int64, defaults models.CategoryDefaults) (*models.Category, error) {
	const op = "database.postgres.CategoryRepository.GetOrCreate"

	rec := new(categoryRecord)
	selectQuery := `SELECT * FROM categories
		WHERE name = $1 AND user_id IS NOT DISTINCT FROM $2`

	err := r.db.GetContext(ctx, rec, selectQuery, name, ownerID)
	if err == nil {
		return rec.ToCategory(), nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%s: failed to get category record: %w", op, err)
	}

	insertQuery := `INSERT INTO categories(name, user_id, description, color, icon)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING *`

	err = r.db.GetContext(ctx, rec, insertQuery, name, ownerID, defaults.Description, defaults.Color, defaults.Icon)
	if err == nil {
		return rec.ToCategory(), nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%s: failed to create category record: %w", op, err)
	}

	// Lost the insert race; the row exists now.
	if err := r.db.GetContext(ctx, rec, selectQuery, name, ownerID); err != nil {
		return nil, fmt.Errorf("%s: failed to re-fetch category record: %w", op, err)
	}

	return rec.ToCategory(), nil
}

type linkTypeRecord struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Icon        string    `db:"icon"`
	SortOrder   int       `db:"sort_order"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *linkTypeRecord) ToLinkType() *models.LinkType {
	return &models.LinkType{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Icon:        r.Icon,
		SortOrder:   r.SortOrder,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type LinkTypeRepository struct {
	db *sqlx.DB
}

func NewLinkTypeRepository(db *sqlx.DB) *LinkTypeRepository {
	return &LinkTypeRepository{
		db: db,
	}
}

// GetOrCreate returns the link type with the given name, creating it with
// the given defaults on a lookup miss. Races are handled the same way as in
// CategoryRepository.GetOrCreate.
func (r *LinkTypeRepository) GetOrCreate(ctx context.Context, name string, defaults models.LinkTypeDefaults) (*models.LinkType, error) {
	const op = "database.postgres.LinkTypeRepository.GetOrCreate"

	rec := new(linkTypeRecord)
	selectQuery := `SELECT * FROM link_types
		WHERE name = $1`

	err := r.db.GetContext(ctx, rec, selectQuery, name)
	if err == nil {
		return rec.ToLinkType(), nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%s: failed to get link type record: %w", op, err)
	}

	insertQuery := `INSERT INTO link_types(name, description, icon, sort_order)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING *`

	err = r.db.GetContext(ctx, rec, insertQuery, name, defaults.Description, defaults.Icon, defaults.SortOrder)
	if err == nil {
		return rec.ToLinkType(), nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%s: failed to create link type record: %w", op, err)
	}

	if err := r.db.GetContext(ctx, rec, selectQuery, name); err != nil {
		return nil, fmt.Errorf("%s: failed to re-fetch link type record: %w", op, err)
	}

	return rec.ToLinkType(), nil
}
