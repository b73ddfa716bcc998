package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyhub/internal/database"
	"studyhub/internal/database/models"

	"github.com/google/uuid"
)

type EventFilter struct {
	Q string
	// Upcoming restricts the listing to events starting at or after From.
	Upcoming bool
	From     time.Time
	Limit    int
	Offset   int
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, f EventFilter) ([]models.Event, int, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `e.id, e.title, e.description, e.location, e.starts_at, e.capacity, e.created_by, e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM bookings b WHERE b.event_id = e.id AND b.status = 'confirmed') AS booked`

func scanEvent(row scanner) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.Capacity, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt, &e.Booked)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.StartsAt = event.StartsAt.UTC()
	event.CreatedAt = now()
	event.UpdatedAt = event.CreatedAt
	event.Booked = 0

	query := `
		INSERT INTO events (id, title, description, location, starts_at, capacity, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, event.ID, event.Title, event.Description, event.Location, event.StartsAt,
		event.Capacity, event.CreatedBy, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating event: %w", database.Classify(err))
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return getEvent(ctx, r.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getEvent(ctx context.Context, q queryRower, id uuid.UUID) (*models.Event, error) {
	event, err := scanEvent(q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("error getting event: %w", database.Classify(err))
	}
	return event, nil
}

func (r *eventRepository) List(ctx context.Context, f EventFilter) ([]models.Event, int, error) {
	var b queryBuilder
	if f.Upcoming {
		b.where("e.starts_at >= ?", f.From.UTC())
	}
	if f.Q != "" {
		p := containsPattern(f.Q)
		b.where(`(LOWER(e.title) LIKE ? ESCAPE '\' OR LOWER(e.location) LIKE ? ESCAPE '\')`, p, p)
	}

	total, err := count(r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e`+b.clause(), b.args...))
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events e` + b.clause() + ` ORDER BY e.starts_at ASC, e.id` + b.page(f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating events: %w", err)
	}
	return events, total, nil
}

// Update rejects a capacity lower than the confirmed bookings already held.
func (r *eventRepository) Update(ctx context.Context, event *models.Event) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getEvent(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if event.Capacity < current.Booked {
			return ErrCapacityTooLow
		}

		query := `
			UPDATE events
			SET title = $1, description = $2, location = $3, starts_at = $4, capacity = $5, updated_at = $6
			WHERE id = $7`
		_, err = tx.ExecContext(ctx, query, event.Title, event.Description, event.Location, event.StartsAt.UTC(),
			event.Capacity, now(), event.ID)
		if err != nil {
			return fmt.Errorf("error updating event: %w", database.Classify(err))
		}

		stored, err := getEvent(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		*event = *stored
		return nil
	})
	return err
}

// Delete removes the event; its bookings go with it through the foreign key.
func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting event: %w", err)
	}
	return affected(result)
}
