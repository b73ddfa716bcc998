package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studyhub/internal/database"
	"studyhub/internal/database/models"
	"studyhub/internal/utils"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, q string, limit, offset int) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	// ResetPassword replaces the password after checking the old one.
	ResetPassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	SetPassword(ctx context.Context, userID uuid.UUID, hash string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, password, role, is_active, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Password, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt

	query := `
		INSERT INTO users (id, email, first_name, last_name, password, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.FirstName, user.LastName, user.Password,
		user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating user: %w", database.Classify(err))
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", database.Classify(err))
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", database.Classify(err))
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, q string, limit, offset int) ([]models.User, int, error) {
	var b queryBuilder
	if q != "" {
		p := containsPattern(q)
		b.where(`(LOWER(email) LIKE ? ESCAPE '\' OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\')`, p, p, p)
	}

	total, err := count(r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+b.clause(), b.args...))
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + b.clause() + ` ORDER BY created_at DESC, id` + b.page(limit, offset)
	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`, role, now(), id)
	if err != nil {
		return nil, fmt.Errorf("error updating role: %w", database.Classify(err))
	}
	if err := affected(result); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`, active, now(), id)
	if err != nil {
		return nil, fmt.Errorf("error updating status: %w", err)
	}
	if err := affected(result); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) ResetPassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	var storedPasswordHash string
	err := r.db.QueryRowContext(ctx, `SELECT password FROM users WHERE id = $1`, userID).Scan(&storedPasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrNotFound
		}
		return fmt.Errorf("failed to retrieve user password: %w", err)
	}

	if !utils.CheckPasswordHash(oldPassword, storedPasswordHash) {
		return ErrIncorrectPassword
	}

	hashedNewPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}
	return r.SetPassword(ctx, userID, hashedNewPassword)
}

func (r *userRepository) SetPassword(ctx context.Context, userID uuid.UUID, hash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET password = $1, updated_at = $2 WHERE id = $3`, hash, now(), userID)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return affected(result)
}
