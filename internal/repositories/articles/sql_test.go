package articles

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/models"
	"github.com/dmitrijs2005/newsnexus/internal/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	r := NewSQLRepository(repotest.NewDB(t))
	ctx := context.Background()

	img := "https://cdn.example.com/a.jpg"
	a := &models.Article{Title: "Go 1.25", URL: "https://go.dev/blog", Summary: "release", ImageURL: &img}
	require.NoError(t, r.Insert(ctx, a))
	require.NotEmpty(t, a.ID)

	got, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go 1.25", got.Title)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, img, *got.ImageURL)
}

func TestGet_NoImage(t *testing.T) {
	r := NewSQLRepository(repotest.NewDB(t))
	ctx := context.Background()

	a := &models.Article{Title: "t"}
	require.NoError(t, r.Insert(ctx, a))

	got, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ImageURL)
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLRepository(repotest.NewDB(t))
	_, err := r.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
