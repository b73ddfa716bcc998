// Package seed fills an empty installation with demo accounts, events and
// movies. Running it again leaves existing data alone.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyhub/internal/database"
	"studyhub/internal/database/dto"
	"studyhub/internal/database/models"
	"studyhub/internal/database/repositories"
	"studyhub/internal/movies"
	"studyhub/internal/utils"

	"go.uber.org/zap"
)

const DefaultPassword = "password123"

type account struct {
	email     string
	firstName string
	lastName  string
	role      string
}

var accounts = []account{
	{"admin@example.com", "Admin", "User", models.RoleAdmin},
	{"user1@example.com", "John", "Doe", models.RoleUser},
	{"user2@example.com", "Jane", "Smith", models.RoleUser},
}

var sampleTasks = []models.Task{
	{Title: "Finish calculus problem set", Description: "Chapter 7, exercises 1-20", Priority: models.PriorityHigh},
	{Title: "Review lecture notes", Priority: models.PriorityMedium, Status: models.TaskInProgress},
	{Title: "Return library books", Priority: models.PriorityLow, Status: models.TaskDone},
}

var sampleMovies = []dto.MovieRequest{
	{Title: "The Shawshank Redemption", Genre: "Drama", Year: 1994, Rating: 9.3},
	{Title: "Spirited Away", Genre: "Animation", Year: 2001, Rating: 8.6},
	{Title: "Inception", Genre: "Sci-Fi", Year: 2010, Rating: 8.8},
	{Title: "Parasite", Genre: "Thriller", Year: 2019, Rating: 8.5},
}

type Seeder struct {
	db      database.Service
	catalog *movies.Catalog
	log     *zap.Logger
	now     func() time.Time
}

func New(db database.Service, catalog *movies.Catalog, log *zap.Logger) *Seeder {
	return &Seeder{db: db, catalog: catalog, log: log, now: time.Now}
}

func (s *Seeder) Run(ctx context.Context) error {
	admin, err := s.users(ctx)
	if err != nil {
		return err
	}
	if err := s.events(ctx, admin); err != nil {
		return err
	}
	wrote, err := s.catalog.Seed(sampleMovies)
	if err != nil {
		return fmt.Errorf("seed movies: %w", err)
	}
	if wrote {
		s.log.Info("seeded movies", zap.Int("count", len(sampleMovies)))
	}
	return nil
}

// users creates the demo accounts that are missing and returns the admin.
func (s *Seeder) users(ctx context.Context) (*models.User, error) {
	repo := repositories.NewUserRepository(s.db.DB())
	tasks := repositories.NewTaskRepository(s.db.DB())

	hash, err := utils.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}

	var admin *models.User
	for _, a := range accounts {
		u, err := repo.GetByEmail(ctx, a.email)
		if errors.Is(err, database.ErrNotFound) {
			u = &models.User{
				Email:     a.email,
				FirstName: a.firstName,
				LastName:  a.lastName,
				Password:  hash,
				Role:      a.role,
				IsActive:  true,
			}
			if err := repo.Create(ctx, u); err != nil {
				return nil, fmt.Errorf("seed user %s: %w", a.email, err)
			}
			s.log.Info("seeded user", zap.String("email", a.email), zap.String("role", a.role))

			if a.role == models.RoleUser {
				for _, t := range sampleTasks {
					t.UserID = u.ID
					if err := tasks.Create(ctx, &t); err != nil {
						return nil, fmt.Errorf("seed tasks: %w", err)
					}
				}
			}
		} else if err != nil {
			return nil, err
		}
		if u.IsAdmin() {
			admin = u
		}
	}
	return admin, nil
}

func (s *Seeder) events(ctx context.Context, admin *models.User) error {
	repo := repositories.NewEventRepository(s.db.DB())
	_, total, err := repo.List(ctx, repositories.EventFilter{Limit: 1})
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	start := s.now().UTC().Truncate(time.Hour)
	samples := []models.Event{
		{Title: "Exam prep workshop", Location: "Library, room 2", StartsAt: start.Add(72 * time.Hour), Capacity: 20},
		{Title: "Career fair", Location: "Main hall", StartsAt: start.Add(7 * 24 * time.Hour), Capacity: 200},
		{Title: "Coding dojo", Location: "Lab 3", StartsAt: start.Add(10 * 24 * time.Hour), Capacity: 2},
	}
	for i := range samples {
		if admin != nil {
			samples[i].CreatedBy = &admin.ID
		}
		if err := repo.Create(ctx, &samples[i]); err != nil {
			return fmt.Errorf("seed events: %w", err)
		}
	}
	s.log.Info("seeded events", zap.Int("count", len(samples)))
	return nil
}
