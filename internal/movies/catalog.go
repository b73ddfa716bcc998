// Package movies keeps the movie catalog in the flat JSON data file.
package movies

import (
	"sort"
	"strings"
	"time"

	"studyhub/internal/database/dto"
	"studyhub/internal/database/models"
	"studyhub/internal/jsonstore"

	"github.com/google/uuid"
)

var ErrNotFound = jsonstore.ErrNotFound

type Catalog struct {
	movies *jsonstore.Collection[models.Movie]
	now    func() time.Time
}

func NewCatalog(f *jsonstore.File) *Catalog {
	return &Catalog{
		movies: jsonstore.NewCollection(f, "movies", func(m models.Movie) string { return m.ID.String() }),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List filters, sorts and pages the whole catalog in memory. It returns the
// requested page and the number of matches before paging.
func (c *Catalog) List(q dto.MovieQuery) ([]models.Movie, int, error) {
	all, err := c.movies.All()
	if err != nil {
		return nil, 0, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	matches := all[:0]
	for _, m := range all {
		if needle != "" && !strings.Contains(strings.ToLower(m.Title), needle) &&
			!strings.Contains(strings.ToLower(m.Description), needle) {
			continue
		}
		if q.Genre != "" && !strings.EqualFold(m.Genre, q.Genre) {
			continue
		}
		if q.Year != 0 && m.Year != q.Year {
			continue
		}
		matches = append(matches, m)
	}

	less := movieOrder(q.SortBy)
	desc := strings.EqualFold(q.Order, "desc")
	sort.SliceStable(matches, func(i, j int) bool {
		if desc {
			return less(matches[j], matches[i])
		}
		return less(matches[i], matches[j])
	})

	total := len(matches)
	start := min(q.Offset, total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	page := make([]models.Movie, end-start)
	copy(page, matches[start:end])
	return page, total, nil
}

func movieOrder(sortBy string) func(a, b models.Movie) bool {
	switch sortBy {
	case "year":
		return func(a, b models.Movie) bool { return a.Year < b.Year }
	case "rating":
		return func(a, b models.Movie) bool { return a.Rating < b.Rating }
	default:
		return func(a, b models.Movie) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	}
}

func (c *Catalog) Get(id uuid.UUID) (models.Movie, error) {
	return c.movies.Get(id.String())
}

func (c *Catalog) Create(req dto.MovieRequest) (models.Movie, error) {
	ts := c.now()
	m := models.Movie{ID: uuid.New(), CreatedAt: ts, UpdatedAt: ts}
	apply(&m, req)
	if err := c.movies.Insert(m); err != nil {
		return models.Movie{}, err
	}
	return m, nil
}

func (c *Catalog) Update(id uuid.UUID, req dto.MovieRequest) (models.Movie, error) {
	return c.movies.Update(id.String(), func(m *models.Movie) error {
		apply(m, req)
		m.UpdatedAt = c.now()
		return nil
	})
}

func (c *Catalog) Delete(id uuid.UUID) error {
	return c.movies.Delete(id.String())
}

// Seed stores movies only when the catalog is empty. It reports whether it
// wrote anything.
func (c *Catalog) Seed(movies []dto.MovieRequest) (bool, error) {
	existing, err := c.movies.All()
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	ts := c.now()
	items := make([]models.Movie, 0, len(movies))
	for _, req := range movies {
		m := models.Movie{ID: uuid.New(), CreatedAt: ts, UpdatedAt: ts}
		apply(&m, req)
		items = append(items, m)
	}
	return true, c.movies.Replace(items)
}

func apply(m *models.Movie, req dto.MovieRequest) {
	m.Title = strings.TrimSpace(req.Title)
	m.Genre = strings.TrimSpace(req.Genre)
	m.Year = req.Year
	m.Rating = req.Rating
	m.Description = req.Description
}
