package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"studyhub/internal/database/models"

	"github.com/google/uuid"
)

type SearchRepository interface {
	SearchQuery(ctx context.Context, query string, userID uuid.UUID, admin bool, limit int) (*models.SearchResult, error)
}

type searchRepository struct {
	db *sql.DB
}

func NewSearchRepository(db *sql.DB) SearchRepository {
	return &searchRepository{db: db}
}

// SearchQuery matches the caller's tasks and the reviews they may see: their
// own plus approved ones, or every review for admins. Every word of query
// must appear in one of the searched columns.
func (s *searchRepository) SearchQuery(ctx context.Context, query string, userID uuid.UUID, admin bool, limit int) (*models.SearchResult, error) {
	words := formatWordPatterns(query)
	if len(words) == 0 {
		return &models.SearchResult{Tasks: []models.Task{}, Reviews: []models.Review{}}, nil
	}

	var tb queryBuilder
	tb.where("user_id = ?", userID)
	for _, w := range words {
		tb.where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, w, w)
	}
	tasksQuery := `SELECT ` + taskColumns + ` FROM tasks` + tb.clause() + ` ORDER BY updated_at DESC, id LIMIT ` + tb.arg(limit)

	tasksRows, err := s.db.QueryContext(ctx, tasksQuery, tb.args...)
	if err != nil {
		return nil, fmt.Errorf("error searching tasks: %w", err)
	}
	defer tasksRows.Close()

	tasks := []models.Task{}
	for tasksRows.Next() {
		task, err := scanTask(tasksRows)
		if err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := tasksRows.Err(); err != nil {
		return nil, err
	}

	var rb queryBuilder
	if !admin {
		rb.where("(user_id = ? OR status = ?)", userID, models.ReviewApproved)
	}
	for _, w := range words {
		rb.where(`(LOWER(place_name) LIKE ? ESCAPE '\' OR LOWER(comment) LIKE ? ESCAPE '\')`, w, w)
	}
	reviewsQuery := `SELECT ` + reviewColumns + ` FROM reviews` + rb.clause() + ` ORDER BY updated_at DESC, id LIMIT ` + rb.arg(limit)

	reviewsRows, err := s.db.QueryContext(ctx, reviewsQuery, rb.args...)
	if err != nil {
		return nil, fmt.Errorf("error searching reviews: %w", err)
	}
	defer reviewsRows.Close()

	reviews := []models.Review{}
	for reviewsRows.Next() {
		review, err := scanReview(reviewsRows)
		if err != nil {
			return nil, fmt.Errorf("error scanning review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := reviewsRows.Err(); err != nil {
		return nil, err
	}

	return &models.SearchResult{
		Tasks:   tasks,
		Reviews: reviews,
	}, nil
}

// formatWordPatterns turns each word of the query into its own LIKE pattern.
func formatWordPatterns(query string) []string {
	words := strings.Fields(query)
	for i, word := range words {
		words[i] = containsPattern(word)
	}
	return words
}
