package server

import (
	"studyhub/internal/auth"
	"studyhub/internal/config"
	"studyhub/internal/database"
	"studyhub/internal/database/repositories"
	"studyhub/internal/events"
	"studyhub/internal/jsonstore"
	"studyhub/internal/movies"
	"studyhub/internal/notify"
	"studyhub/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// MailQueue accepts outgoing mail without blocking the request.
type MailQueue interface {
	Enqueue(msg notify.Message) bool
}

// Deps are the collaborators the server is built from. Config and DB are
// required; the rest fall back to logging, in-memory or file-backed
// versions when nil.
type Deps struct {
	Config      *config.Config
	DB          database.Service
	Log         *zap.Logger
	Catalog     *movies.Catalog
	Mail        MailQueue
	Publisher   events.Publisher
	AuthLimiter ratelimit.Limiter
}

type FiberServer struct {
	*fiber.App

	db        database.Service
	cfg       *config.Config
	log       *zap.Logger
	tokens    *auth.TokenService
	catalog   *movies.Catalog
	mail      MailQueue
	publisher events.Publisher
	limiter   ratelimit.Limiter

	users     repositories.UserRepository
	authStore repositories.TokenRepository
	tasks     repositories.TaskRepository
	reviews   repositories.ReviewRepository
	events    repositories.EventRepository
	bookings  repositories.BookingRepository
	search    repositories.SearchRepository
}

func New(d Deps) *FiberServer {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	mail := d.Mail
	if mail == nil {
		mail = inlineMail{mailer: notify.NewLogMailer(log)}
	}
	publisher := d.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(log)
	}
	catalog := d.Catalog
	if catalog == nil {
		catalog = movies.NewCatalog(jsonstore.Open(d.Config.DataFile))
	}
	limiter := d.AuthLimiter
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(d.Config.Limits.AuthWindow, d.Config.Limits.AuthMax)
	}

	db := d.DB.DB()
	server := &FiberServer{
		db:        d.DB,
		cfg:       d.Config,
		log:       log,
		tokens:    auth.NewTokenService(d.Config.JWT, d.Config.AppName),
		catalog:   catalog,
		mail:      mail,
		publisher: publisher,
		limiter:   limiter,

		users:     repositories.NewUserRepository(db),
		authStore: repositories.NewTokenRepository(db),
		tasks:     repositories.NewTaskRepository(db),
		reviews:   repositories.NewReviewRepository(db),
		events:    repositories.NewEventRepository(db),
		bookings:  repositories.NewBookingRepository(db, d.DB.Driver()),
		search:    repositories.NewSearchRepository(db),
	}

	server.App = fiber.New(fiber.Config{
		ServerHeader: d.Config.AppName,
		AppName:      d.Config.AppName,
		BodyLimit:    d.Config.BodyLimit,
		ErrorHandler: server.errorHandler,

		DisableStartupMessage: d.Config.IsTest(),
	})

	server.App.Use(recover.New())
	server.App.Use(requestid.New())
	server.App.Use(helmet.New())
	server.App.Use(favicon.New())
	server.App.Use(cors.New(cors.Config{
		AllowOrigins: d.Config.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		MaxAge:       3600,
	}))
	if !d.Config.IsTest() {
		server.App.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	if d.Config.EnablePprof {
		server.App.Use(pprof.New())
	}
	return server
}
