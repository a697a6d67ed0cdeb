package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/linkhub/internal/config"
	"github.com/vadimbarashkov/linkhub/internal/database"
	"github.com/vadimbarashkov/linkhub/internal/database/postgres"
	"github.com/vadimbarashkov/linkhub/internal/models"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func setupPostgres(t testing.TB) config.Postgres {
	t.Helper()

	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "linkhub"

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForExposedPort(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	pgPort, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}
}

func runMigrations(t testing.TB, cfg config.Postgres) {
	t.Helper()

	migrationPath := "file://../../../../migrations"

	m, err := migrate.New(migrationPath, cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to initialize migrations: %v", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			t.Fatalf("Failed to rollback migrations: %v", err)
		}
	})
}

func setupRepositories(t testing.TB) (*postgres.LinkRepository, *postgres.CategoryRepository, *postgres.LinkTypeRepository) {
	t.Helper()

	cfg := setupPostgres(t)
	runMigrations(t, cfg)

	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})

	return postgres.NewLinkRepository(db), postgres.NewCategoryRepository(db), postgres.NewLinkTypeRepository(db)
}

func setupTaxonomy(t testing.TB, ctx context.Context, cats *postgres.CategoryRepository, types *postgres.LinkTypeRepository, ownerID *int64) (*models.Category, *models.LinkType) {
	t.Helper()

	category, err := cats.GetOrCreate(ctx, "Shortened URLs", ownerID, models.CategoryDefaults{
		Description: "URLs created via the shortening service",
		Color:       "#6366f1",
		Icon:        "link",
	})
	require.NoError(t, err)

	linkType, err := types.GetOrCreate(ctx, "Short Link", models.LinkTypeDefaults{
		Description: "Shortened URL links",
		Icon:        "link",
		SortOrder:   100,
	})
	require.NoError(t, err)

	return category, linkType
}

func createLink(t testing.TB, ctx context.Context, repo *postgres.LinkRepository, category *models.Category, linkType *models.LinkType, ownerID *int64, stub, url string) *models.Link {
	t.Helper()

	link, err := repo.Create(ctx, models.CreateLinkParams{
		OwnerID:     ownerID,
		CategoryID:  category.ID,
		LinkTypeID:  linkType.ID,
		Title:       "Link from example.com",
		OriginalURL: url,
		Description: "Shortened URL",
		Stub:        stub,
		IsPublic:    true,
	})
	require.NoError(t, err)

	return link
}

func TestLinkRepository_Create(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("stub exists", func(t *testing.T) {
		ctx := context.Background()
		repo, cats, types := setupRepositories(t)
		category, linkType := setupTaxonomy(t, ctx, cats, types, nil)

		_ = createLink(t, ctx, repo, category, linkType, nil, "abc123", "https://example.com")

		link, err := repo.Create(ctx, models.CreateLinkParams{
			CategoryID:  category.ID,
			LinkTypeID:  linkType.ID,
			Title:       "Link from example.org",
			OriginalURL: "https://example.org",
			Description: "Shortened URL",
			Stub:        "abc123",
			IsPublic:    true,
		})

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrStubExists)
		assert.Nil(t, link)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, cats, types := setupRepositories(t)
		ownerID := int64(42)
		category, linkType := setupTaxonomy(t, ctx, cats, types, &ownerID)

		link, err := repo.Create(ctx, models.CreateLinkParams{
			OwnerID:     &ownerID,
			CategoryID:  category.ID,
			LinkTypeID:  linkType.ID,
			Title:       "Link from example.com",
			OriginalURL: "https://example.com",
			Description: "Shortened URL",
			Stub:        "abc123",
			IsPublic:    true,
		})

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, "abc123", link.Stub)
		assert.Equal(t, "https://example.com", link.OriginalURL)
		assert.NotNil(t, link.OwnerID)
		assert.Equal(t, ownerID, *link.OwnerID)
		assert.Zero(t, link.ClickCount)
		assert.Nil(t, link.LastAccessedAt)
	})
}

func TestLinkRepository_RecordVisit(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("link not found", func(t *testing.T) {
		ctx := context.Background()
		repo, _, _ := setupRepositories(t)

		link, err := repo.RecordVisit(ctx, "abc123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, cats, types := setupRepositories(t)
		category, linkType := setupTaxonomy(t, ctx, cats, types, nil)

		_ = createLink(t, ctx, repo, category, linkType, nil, "abc123", "https://example.com")

		link, err := repo.RecordVisit(ctx, "abc123")

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, int64(1), link.ClickCount)
		assert.NotNil(t, link.LastAccessedAt)

		link, err = repo.RecordVisit(ctx, "abc123")

		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Equal(t, int64(2), link.ClickCount)
	})
}

func TestLinkRepository_StubExists(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("missing stub", func(t *testing.T) {
		ctx := context.Background()
		repo, _, _ := setupRepositories(t)

		exists, err := repo.StubExists(ctx, "abc123")

		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("existing stub", func(t *testing.T) {
		ctx := context.Background()
		repo, cats, types := setupRepositories(t)
		category, linkType := setupTaxonomy(t, ctx, cats, types, nil)

		_ = createLink(t, ctx, repo, category, linkType, nil, "abc123", "https://example.com")

		exists, err := repo.StubExists(ctx, "abc123")

		assert.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestLinkRepository_ListShortened(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("empty", func(t *testing.T) {
		ctx := context.Background()
		repo, _, _ := setupRepositories(t)

		links, total, err := repo.ListShortened(ctx, 42, 20, 0)

		assert.NoError(t, err)
		assert.Empty(t, links)
		assert.Zero(t, total)
	})

	t.Run("only the owner's links", func(t *testing.T) {
		ctx := context.Background()
		repo, cats, types := setupRepositories(t)
		ownerID := int64(42)
		otherID := int64(7)
		category, linkType := setupTaxonomy(t, ctx, cats, types, &ownerID)

		_ = createLink(t, ctx, repo, category, linkType, &ownerID, "abc123", "https://example.com")
		_ = createLink(t, ctx, repo, category, linkType, &ownerID, "def456", "https://example.org")
		_ = createLink(t, ctx, repo, category, linkType, &otherID, "ghi789", "https://example.net")

		links, total, err := repo.ListShortened(ctx, ownerID, 20, 0)

		assert.NoError(t, err)
		assert.Len(t, links, 2)
		assert.Equal(t, int64(2), total)
	})
}

func TestLinkRepository_DeleteShortened(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("link not found", func(t *testing.T) {
		ctx := context.Background()
		repo, _, _ := setupRepositories(t)

		err := repo.DeleteShortened(ctx, "abc123", 42)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)
	})

	t.Run("owned by someone else", func(t *testing.T) {
		ctx := context.Background()
		repo, cats, types := setupRepositories(t)
		ownerID := int64(42)
		category, linkType := setupTaxonomy(t, ctx, cats, types, &ownerID)

		_ = createLink(t, ctx, repo, category, linkType, &ownerID, "abc123", "https://example.com")

		err := repo.DeleteShortened(ctx, "abc123", 7)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrLinkNotFound)

		exists, err := repo.StubExists(ctx, "abc123")
		assert.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("success", func(t *testing.T) {
		ctx := context.Background()
		repo, cats, types := setupRepositories(t)
		ownerID := int64(42)
		category, linkType := setupTaxonomy(t, ctx, cats, types, &ownerID)

		_ = createLink(t, ctx, repo, category, linkType, &ownerID, "abc123", "https://example.com")

		err := repo.DeleteShortened(ctx, "abc123", ownerID)

		assert.NoError(t, err)

		exists, err := repo.StubExists(ctx, "abc123")
		assert.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestCategoryRepository_GetOrCreate(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("idempotent per owner", func(t *testing.T) {
		ctx := context.Background()
		_, cats, _ := setupRepositories(t)
		ownerID := int64(42)

		defaults := models.CategoryDefaults{
			Description: "URLs created via the shortening service",
			Color:       "#6366f1",
			Icon:        "link",
		}

		first, err := cats.GetOrCreate(ctx, "Shortened URLs", &ownerID, defaults)
		assert.NoError(t, err)
		assert.NotNil(t, first)

		second, err := cats.GetOrCreate(ctx, "Shortened URLs", &ownerID, defaults)
		assert.NoError(t, err)
		assert.NotNil(t, second)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("same name for different owners", func(t *testing.T) {
		ctx := context.Background()
		_, cats, _ := setupRepositories(t)
		ownerID := int64(42)

		defaults := models.CategoryDefaults{
			Description: "URLs created via the shortening service",
			Color:       "#6366f1",
			Icon:        "link",
		}

		owned, err := cats.GetOrCreate(ctx, "Shortened URLs", &ownerID, defaults)
		assert.NoError(t, err)
		assert.NotNil(t, owned)

		anonymous, err := cats.GetOrCreate(ctx, "Shortened URLs", nil, defaults)
		assert.NoError(t, err)
		assert.NotNil(t, anonymous)
		assert.NotEqual(t, owned.ID, anonymous.ID)
		assert.Nil(t, anonymous.OwnerID)
	})
}

func TestLinkTypeRepository_GetOrCreate(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	t.Run("idempotent", func(t *testing.T) {
		ctx := context.Background()
		_, _, types := setupRepositories(t)

		defaults := models.LinkTypeDefaults{
			Description: "Shortened URL links",
			Icon:        "link",
			SortOrder:   100,
		}

		first, err := types.GetOrCreate(ctx, "Short Link", defaults)
		assert.NoError(t, err)
		assert.NotNil(t, first)
		assert.Equal(t, 100, first.SortOrder)

		second, err := types.GetOrCreate(ctx, "Short Link", defaults)
		assert.NoError(t, err)
		assert.NotNil(t, second)
		assert.Equal(t, first.ID, second.ID)
	})
}
