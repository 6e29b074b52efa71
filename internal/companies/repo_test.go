package companies

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/shared/apperr"
)

func TestMemoryRepoResolve(t *testing.T) {
	repo := NewMemoryRepo(Company{ID: "c-1", Slug: "Acme", Name: "Acme Corp"})
	ctx := context.Background()

	id, err := repo.Resolve(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)

	id, err = repo.Resolve(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)

	_, err = repo.Resolve(ctx, "globex")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.Resolve(ctx, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPGRepoResolve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT id FROM companies").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-1"))
	mock.ExpectQuery("SELECT id FROM companies").
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	id, err := repo.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)

	_, err = repo.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
