package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"studyhub/internal/database"
	"studyhub/internal/database/models"

	"github.com/google/uuid"
)

// ReviewFilter lists reviews as seen by ViewerID. Non-admin viewers get
// their own reviews plus approved ones.
type ReviewFilter struct {
	ViewerID uuid.UUID
	Admin    bool
	Mine     bool
	Status   string
	Q        string
	Limit    int
	Offset   int
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	List(ctx context.Context, f ReviewFilter) ([]models.Review, int, error)
	Update(ctx context.Context, review *models.Review) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

const reviewColumns = `id, place_name, rating, comment, status, user_id, created_at, updated_at`

func scanReview(row scanner) (*models.Review, error) {
	var r models.Review
	if err := row.Scan(&r.ID, &r.PlaceName, &r.Rating, &r.Comment, &r.Status, &r.UserID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if review.Status == "" {
		review.Status = models.ReviewPending
	}
	review.CreatedAt = now()
	review.UpdatedAt = review.CreatedAt

	query := `
		INSERT INTO reviews (id, place_name, rating, comment, status, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, review.ID, review.PlaceName, review.Rating, review.Comment, review.Status,
		review.UserID, review.CreatedAt, review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating review: %w", database.Classify(err))
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("error getting review: %w", database.Classify(err))
	}
	return review, nil
}

func (r *reviewRepository) List(ctx context.Context, f ReviewFilter) ([]models.Review, int, error) {
	var b queryBuilder
	switch {
	case f.Mine:
		b.where("user_id = ?", f.ViewerID)
	case !f.Admin:
		b.where("(user_id = ? OR status = ?)", f.ViewerID, models.ReviewApproved)
	}
	if f.Status != "" {
		b.where("status = ?", f.Status)
	}
	if f.Q != "" {
		p := containsPattern(f.Q)
		b.where(`(LOWER(place_name) LIKE ? ESCAPE '\' OR LOWER(comment) LIKE ? ESCAPE '\')`, p, p)
	}

	total, err := count(r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`+b.clause(), b.args...))
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews` + b.clause() + ` ORDER BY created_at DESC, id` + b.page(f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating reviews: %w", err)
	}
	return reviews, total, nil
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	review.UpdatedAt = now()
	query := `
		UPDATE reviews
		SET place_name = $1, rating = $2, comment = $3, status = $4, updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(ctx, query, review.PlaceName, review.Rating, review.Comment, review.Status, review.UpdatedAt, review.ID)
	if err != nil {
		return fmt.Errorf("error updating review: %w", database.Classify(err))
	}
	return affected(result)
}

func (r *reviewRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.Review, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE reviews SET status = $1, updated_at = $2 WHERE id = $3`, status, now(), id)
	if err != nil {
		return nil, fmt.Errorf("error moderating review: %w", database.Classify(err))
	}
	if err := affected(result); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting review: %w", err)
	}
	return affected(result)
}
