package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studyhub/internal/database"
	"studyhub/internal/database/models"

	"github.com/google/uuid"
)

type BookingRepository interface {
	// Create books a seat for the user. A previously cancelled booking for
	// the same event is confirmed again instead of inserting a second row.
	Create(ctx context.Context, eventID, userID uuid.UUID) (*models.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type bookingRepository struct {
	db     *sql.DB
	driver string
}

// NewBookingRepository needs the driver name because Postgres locks the
// event row while seats are counted; SQLite serialises writers already.
func NewBookingRepository(db *sql.DB, driver string) BookingRepository {
	return &bookingRepository{db: db, driver: driver}
}

const bookingColumns = `id, event_id, user_id, status, created_at, updated_at`

func scanBooking(row scanner) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(&b.ID, &b.EventID, &b.UserID, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// reserveSeat fails with ErrEventFull when the event has no free seat. It
// must run inside the booking transaction.
func (r *bookingRepository) reserveSeat(ctx context.Context, tx *sql.Tx, eventID uuid.UUID) error {
	lock := ""
	if r.driver == database.DriverPostgres {
		lock = " FOR UPDATE"
	}
	var capacity int
	err := tx.QueryRowContext(ctx, `SELECT capacity FROM events WHERE id = $1`+lock, eventID).Scan(&capacity)
	if err != nil {
		return fmt.Errorf("error getting event: %w", database.Classify(err))
	}

	booked, err := count(tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE event_id = $1 AND status = $2`, eventID, models.BookingConfirmed))
	if err != nil {
		return err
	}
	if booked >= capacity {
		return ErrEventFull
	}
	return nil
}

func (r *bookingRepository) Create(ctx context.Context, eventID, userID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanBooking(tx.QueryRowContext(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE event_id = $1 AND user_id = $2`, eventID, userID))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("error getting booking: %w", err)
		}
		if existing != nil && existing.Status == models.BookingConfirmed {
			return database.ErrUniqueViolation
		}

		if err := r.reserveSeat(ctx, tx, eventID); err != nil {
			return err
		}

		if existing != nil {
			existing.Status = models.BookingConfirmed
			existing.UpdatedAt = now()
			_, err = tx.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`,
				existing.Status, existing.UpdatedAt, existing.ID)
			if err != nil {
				return fmt.Errorf("error rebooking: %w", database.Classify(err))
			}
			booking = existing
			return nil
		}

		b := &models.Booking{
			ID:        uuid.New(),
			EventID:   eventID,
			UserID:    userID,
			Status:    models.BookingConfirmed,
			CreatedAt: now(),
		}
		b.UpdatedAt = b.CreatedAt
		query := `
			INSERT INTO bookings (id, event_id, user_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, query, b.ID, b.EventID, b.UserID, b.Status, b.CreatedAt, b.UpdatedAt); err != nil {
			return fmt.Errorf("error creating booking: %w", database.Classify(err))
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("error getting booking: %w", database.Classify(err))
	}
	return b, nil
}

// List returns the user's bookings, or every booking for uuid.Nil.
func (r *bookingRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, int, error) {
	var qb queryBuilder
	if userID != uuid.Nil {
		qb.where("user_id = ?", userID)
	}

	total, err := count(r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+qb.clause(), qb.args...))
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + qb.clause() + ` ORDER BY created_at DESC, id` + qb.page(limit, offset)
	rows, err := r.db.QueryContext(ctx, query, qb.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, total, nil
}

// UpdateStatus re-checks capacity when a cancelled booking is confirmed.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Booking, error) {
	var booking *models.Booking
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
		if err != nil {
			return fmt.Errorf("error getting booking: %w", database.Classify(err))
		}
		if b.Status == status {
			booking = b
			return nil
		}
		if status == models.BookingConfirmed {
			if err := r.reserveSeat(ctx, tx, b.EventID); err != nil {
				return err
			}
		}
		b.Status = status
		b.UpdatedAt = now()
		_, err = tx.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`, b.Status, b.UpdatedAt, b.ID)
		if err != nil {
			return fmt.Errorf("error updating booking: %w", database.Classify(err))
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *bookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting booking: %w", err)
	}
	return affected(result)
}
