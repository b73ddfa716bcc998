package server

import (
	"runtime"
	"strconv"
	"time"

	"studyhub/internal/apperr"
	"studyhub/internal/database/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Get("/", s.rootHandler)
	s.App.Get("/health", s.healthHandler)
	// endpoint to monitor memory
	s.App.Get("/health/memory", s.memoryHandler)

	window := s.cfg.Limits.Window
	api := s.App.Group("/api/v1", limiter.New(limiter.Config{
		Max:        s.cfg.Limits.MaxRequests,
		Expiration: window,
		LimitReached: limitReached(window),
	}))

	authenticated := s.authenticate()
	adminOnly := authorize(models.RoleAdmin)

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", s.signup)
	authGroup.Post("/login", s.attemptLimit("login"), s.login)
	authGroup.Post("/refresh", s.refresh)
	authGroup.Post("/logout", s.logout)
	authGroup.Post("/forgot-password", s.attemptLimit("forgot-password"), s.forgotPassword)
	authGroup.Post("/reset-password", s.resetPassword)
	authGroup.Get("/me", authenticated, s.me)
	authGroup.Post("/change-password", authenticated, s.changePassword)

	users := api.Group("/users", authenticated, adminOnly)
	users.Get("/", s.listUsers)
	users.Patch("/:id/role", s.updateUserRole)
	users.Patch("/:id/status", s.updateUserStatus)

	tasks := api.Group("/tasks", authenticated)
	tasks.Get("/", s.getAllTasks)
	tasks.Get("/pending", s.getPendingTasks)
	tasks.Post("/", s.createTask)
	tasks.Get("/:id", s.getSingleTask)
	tasks.Put("/:id", s.updateTask)
	tasks.Patch("/:id/status", s.updateTaskStatus)
	tasks.Delete("/:id", s.deleteTask)

	reviews := api.Group("/reviews", authenticated)
	reviews.Get("/", s.getAllReviews)
	reviews.Post("/", s.createReview)
	reviews.Get("/:id", s.getSingleReview)
	reviews.Put("/:id", s.updateReview)
	reviews.Patch("/:id/moderate", adminOnly, s.moderateReview)
	reviews.Delete("/:id", s.deleteReview)

	api.Get("/events", s.listEvents)
	api.Get("/events/:id", s.getEvent)
	api.Post("/events", authenticated, adminOnly, s.createEvent)
	api.Put("/events/:id", authenticated, adminOnly, s.updateEvent)
	api.Delete("/events/:id", authenticated, adminOnly, s.deleteEvent)
	api.Post("/events/:id/bookings", authenticated, s.createBooking)

	bookings := api.Group("/bookings", authenticated)
	bookings.Get("/", s.listBookings)
	bookings.Patch("/:id", s.updateBooking)
	bookings.Delete("/:id", s.deleteBooking)

	api.Get("/movies", s.listMovies)
	api.Get("/movies/:id", s.getMovie)
	api.Post("/movies", authenticated, adminOnly, s.createMovie)
	api.Put("/movies/:id", authenticated, adminOnly, s.updateMovie)
	api.Delete("/movies/:id", authenticated, adminOnly, s.deleteMovie)

	api.Get("/search", authenticated, s.searchHandler)
}

// limitReached keeps the Retry-After the limiter computed for the current
// window and only falls back to the full window when it is missing.
func limitReached(window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		retry, err := strconv.Atoi(c.GetRespHeader(fiber.HeaderRetryAfter))
		if err != nil || retry < 1 {
			retry = max(1, int(window.Seconds()))
		}
		return apperr.TooManyRequests(retry)
	}
}

func (s *FiberServer) rootHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":        s.cfg.AppName,
		"environment": s.cfg.AppEnv,
		"endpoints": fiber.Map{
			"auth":     "/api/v1/auth",
			"users":    "/api/v1/users",
			"tasks":    "/api/v1/tasks",
			"reviews":  "/api/v1/reviews",
			"events":   "/api/v1/events",
			"bookings": "/api/v1/bookings",
			"movies":   "/api/v1/movies",
			"search":   "/api/v1/search",
			"health":   "/health",
		},
	})
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	stats := s.db.Health()
	if stats["status"] != "up" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(stats)
	}
	return c.JSON(stats)
}

func (s *FiberServer) memoryHandler(c *fiber.Ctx) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return c.JSON(fiber.Map{
		"alloc_mib":       bToMb(m.Alloc),
		"total_alloc_mib": bToMb(m.TotalAlloc),
		"sys_mib":         bToMb(m.Sys),
		"num_gc":          m.NumGC,
		"goroutines":      runtime.NumGoroutine(),
	})
}
