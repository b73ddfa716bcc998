//go:build integration

package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"studyhub/internal/config"
	"studyhub/internal/database"
	"studyhub/internal/database/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) database.Service {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("studyhub"),
		postgres.WithUsername("studyhub"),
		postgres.WithPassword("studyhub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(ctx, config.DatabaseConfig{Driver: database.DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func TestPostgresConcurrentBookings(t *testing.T) {
	ctx := context.Background()
	svc := startPostgres(t)
	db := svc.DB()

	events := NewEventRepository(db)
	bookings := NewBookingRepository(db, svc.Driver())

	event := &models.Event{Title: "Hackathon", StartsAt: time.Now().Add(48 * time.Hour), Capacity: 3}
	require.NoError(t, events.Create(ctx, event))

	const attendees = 10
	users := make([]*models.User, attendees)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("p%d@example.com", i))
	}

	var (
		wg              sync.WaitGroup
		mu              sync.Mutex
		confirmed, full int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			_, err := bookings.Create(ctx, event.ID, u.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				confirmed++
			case errors.Is(err, ErrEventFull):
				full++
			default:
				t.Errorf("unexpected booking error: %v", err)
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 3, confirmed)
	assert.Equal(t, attendees-3, full)

	got, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Booked)
}

func TestPostgresSearchAndErrors(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(t).DB()
	repo := NewUserRepository(db)

	owner := createUser(t, db, "dup@example.com")
	err := repo.Create(ctx, &models.User{Email: "dup@example.com", FirstName: "A", LastName: "B", Password: "x"})
	assert.ErrorIs(t, err, database.ErrUniqueViolation)

	_, err = repo.UpdateRole(ctx, owner.ID, "root")
	assert.ErrorIs(t, err, database.ErrCheckViolation)

	tasks := NewTaskRepository(db)
	require.NoError(t, tasks.Create(ctx, &models.Task{Title: "100% organic chemistry", UserID: owner.ID}))
	require.NoError(t, tasks.Create(ctx, &models.Task{Title: "1000 chemistry problems", UserID: owner.ID}))

	res, err := NewSearchRepository(db).SearchQuery(ctx, "100% chemistry", owner.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "100% organic chemistry", res.Tasks[0].Title)
}
