package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"studyhub/internal/database"
	"studyhub/internal/database/models"

	"github.com/google/uuid"
)

// TaskFilter narrows a task listing. A zero UserID lists every owner.
type TaskFilter struct {
	UserID   uuid.UUID
	Q        string
	Status   string
	Priority string
	SortBy   string
	Order    string
	Limit    int
	Offset   int
}

// TaskRepository methods taking a userID restrict the row to that owner;
// uuid.Nil lifts the restriction for admins. A row owned by someone else is
// reported as database.ErrNotFound.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Task, error)
	List(ctx context.Context, f TaskFilter) ([]models.Task, int, error)
	GetPending(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task, userID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, userID uuid.UUID) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date, user_id, created_at, updated_at`

var taskSorts = map[string]string{
	"created_at": "created_at",
	"title":      "LOWER(title)",
	"priority":   "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END",
}

func scanTask(row scanner) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	task.CreatedAt = now()
	task.UpdatedAt = task.CreatedAt

	query := `
		INSERT INTO tasks (id, title, description, status, priority, due_date, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, task.ID, task.Title, task.Description, task.Status, task.Priority,
		utcPtr(task.DueDate), task.UserID, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating task: %w", database.Classify(err))
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Task, error) {
	var b queryBuilder
	b.where("id = ?", id)
	if userID != uuid.Nil {
		b.where("user_id = ?", userID)
	}
	task, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks`+b.clause(), b.args...))
	if err != nil {
		return nil, fmt.Errorf("error getting task: %w", database.Classify(err))
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, f TaskFilter) ([]models.Task, int, error) {
	var b queryBuilder
	if f.UserID != uuid.Nil {
		b.where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		b.where("status = ?", f.Status)
	}
	if f.Priority != "" {
		b.where("priority = ?", f.Priority)
	}
	if f.Q != "" {
		p := containsPattern(f.Q)
		b.where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, p, p)
	}

	total, err := count(r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+b.clause(), b.args...))
	if err != nil {
		return nil, 0, err
	}

	dir := direction(f.Order)
	var orderBy string
	if f.SortBy == "due_date" {
		// Tasks without a due date go last in either direction.
		orderBy = "(due_date IS NULL) ASC, due_date " + dir
	} else {
		col, ok := taskSorts[f.SortBy]
		if !ok {
			col = taskSorts["created_at"]
		}
		orderBy = col + " " + dir
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + b.clause() + ` ORDER BY ` + orderBy + `, id` + b.page(f.Limit, f.Offset)
	tasks, err := r.query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *taskRepository) GetPending(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	var b queryBuilder
	if userID != uuid.Nil {
		b.where("user_id = ?", userID)
	}
	b.where("status <> ?", models.TaskDone)
	return r.query(ctx, `SELECT `+taskColumns+` FROM tasks`+b.clause()+` ORDER BY (due_date IS NULL) ASC, due_date ASC, created_at DESC`, b.args...)
}

func (r *taskRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	result, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying tasks: %w", err)
	}
	defer result.Close()

	tasks := []models.Task{}
	for result.Next() {
		task, err := scanTask(result)
		if err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task, userID uuid.UUID) error {
	task.UpdatedAt = now()

	var b queryBuilder
	set := fmt.Sprintf("title = %s, description = %s, status = %s, priority = %s, due_date = %s, updated_at = %s",
		b.arg(task.Title), b.arg(task.Description), b.arg(task.Status), b.arg(task.Priority), b.arg(utcPtr(task.DueDate)), b.arg(task.UpdatedAt))
	b.where("id = ?", task.ID)
	if userID != uuid.Nil {
		b.where("user_id = ?", userID)
	}

	result, err := r.db.ExecContext(ctx, `UPDATE tasks SET `+set+b.clause(), b.args...)
	if err != nil {
		return fmt.Errorf("error updating task: %w", database.Classify(err))
	}
	if err := affected(result); err != nil {
		return err
	}

	stored, err := r.GetByID(ctx, task.ID, uuid.Nil)
	if err != nil {
		return err
	}
	*task = *stored
	return nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, userID uuid.UUID) (*models.Task, error) {
	var b queryBuilder
	set := fmt.Sprintf("status = %s, updated_at = %s", b.arg(status), b.arg(now()))
	b.where("id = ?", id)
	if userID != uuid.Nil {
		b.where("user_id = ?", userID)
	}

	result, err := r.db.ExecContext(ctx, `UPDATE tasks SET `+set+b.clause(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("error updating task status: %w", database.Classify(err))
	}
	if err := affected(result); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id, uuid.Nil)
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	var b queryBuilder
	b.where("id = ?", id)
	if userID != uuid.Nil {
		b.where("user_id = ?", userID)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks`+b.clause(), b.args...)
	if err != nil {
		return fmt.Errorf("error deleting task: %w", err)
	}
	return affected(result)
}
