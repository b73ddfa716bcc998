package movies

import (
	"path/filepath"
	"testing"

	"studyhub/internal/database/dto"
	"studyhub/internal/jsonstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	return NewCatalog(jsonstore.Open(filepath.Join(t.TempDir(), "data.json")))
}

var fixtures = []dto.MovieRequest{
	{Title: "Spirited Away", Genre: "Animation", Year: 2001, Rating: 8.6},
	{Title: "Alien", Genre: "Sci-Fi", Year: 1979, Rating: 8.5, Description: "In space no one can hear you scream"},
	{Title: "Arrival", Genre: "sci-fi", Year: 2016, Rating: 7.9},
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	c := newCatalog(t)

	wrote, err := c.Seed(fixtures)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = c.Seed(fixtures)
	require.NoError(t, err)
	assert.False(t, wrote)

	_, total, err := c.List(dto.MovieQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestListFiltersAndSorts(t *testing.T) {
	c := newCatalog(t)
	_, err := c.Seed(fixtures)
	require.NoError(t, err)

	got, total, err := c.List(dto.MovieQuery{Genre: "SCI-FI", SortBy: "year", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "Arrival", got[0].Title)

	got, _, err = c.List(dto.MovieQuery{Q: "space"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alien", got[0].Title)

	got, total, err = c.List(dto.MovieQuery{Page: dto.Page{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Arrival", got[0].Title)

	got, _, err = c.List(dto.MovieQuery{Page: dto.Page{Limit: 5, Offset: 10}})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, _, err = c.List(dto.MovieQuery{SortBy: "rating", Order: "desc", Year: 2001})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Spirited Away", got[0].Title)
}

func TestCreateUpdateDelete(t *testing.T) {
	c := newCatalog(t)

	m, err := c.Create(dto.MovieRequest{Title: "  Heat ", Genre: "Crime", Year: 1995, Rating: 8.3})
	require.NoError(t, err)
	assert.Equal(t, "Heat", m.Title)

	updated, err := c.Update(m.ID, dto.MovieRequest{Title: "Heat", Genre: "Thriller", Year: 1995, Rating: 8.4})
	require.NoError(t, err)
	assert.Equal(t, "Thriller", updated.Genre)
	assert.True(t, m.CreatedAt.Equal(updated.CreatedAt))

	got, err := c.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 8.4, got.Rating)

	require.NoError(t, c.Delete(m.ID))
	_, err = c.Get(m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Update(uuid.New(), dto.MovieRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}
