package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"studyhub/internal/database"
	"studyhub/internal/database/repositories"
	"studyhub/internal/events"
	"studyhub/internal/notify"
	"studyhub/internal/ratelimit"
	"studyhub/internal/seed"
	"studyhub/internal/server"

	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second
	purgeInterval   = time.Hour
)

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := database.Migrate(a.db); err != nil {
		return err
	}
	if a.cfg.SeedOnStart {
		if err := seed.New(a.db, a.catalog, a.log).Run(ctx); err != nil {
			return err
		}
	}

	limiter, err := a.authLimiter(ctx)
	if err != nil {
		return err
	}

	var mailer notify.Mailer = notify.NewLogMailer(a.log)
	if a.cfg.Mail.SendGridAPIKey != "" {
		mailer = notify.NewSendGridMailer(a.cfg.Mail.SendGridAPIKey, a.cfg.Mail.From, a.cfg.AppName)
	}
	mail := notify.NewDispatcher(mailer, a.cfg.Mail.Workers, a.log, notify.WithRate(a.cfg.Mail.RatePerSecond))
	defer mail.Close()

	var publisher events.Publisher = events.NewLogPublisher(a.log)
	if a.cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(a.cfg.NATSURL, a.log)
		if err != nil {
			return err
		}
		publisher = p
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			a.log.Error("close publisher", zap.Error(err))
		}
	}()

	go a.purgeTokens(ctx)

	srv := server.New(server.Deps{
		Config:      a.cfg,
		DB:          a.db,
		Log:         a.log,
		Catalog:     a.catalog,
		Mail:        mail,
		Publisher:   publisher,
		AuthLimiter: limiter,
	})
	srv.RegisterFiberRoutes()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(fmt.Sprintf(":%s", a.cfg.Port))
	}()
	a.log.Info("server started", zap.String("port", a.cfg.Port), zap.String("env", a.cfg.AppEnv))

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down gracefully, press Ctrl+C again to force")
	stop()
	if err := srv.ShutdownWithTimeout(shutdownTimeout); err != nil {
		a.log.Error("server forced to shutdown", zap.Error(err))
	}
	a.log.Info("server exiting")
	return nil
}

// authLimiter counts login attempts in Redis when it is configured so that
// several instances share one budget.
func (a *app) authLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	window, max := a.cfg.Limits.AuthWindow, a.cfg.Limits.AuthMax
	if a.cfg.RedisAddr == "" {
		m := ratelimit.NewMemoryLimiter(window, max)
		go m.Run(ctx, time.Minute)
		return m, nil
	}

	client := ratelimit.NewRedisClient(a.cfg.RedisAddr, a.cfg.RedisPass)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	go func() {
		<-ctx.Done()
		client.Close()
	}()
	a.log.Info("using redis rate limiter", zap.String("addr", a.cfg.RedisAddr))
	return ratelimit.NewRedisLimiter(client, "studyhub:auth", window, max), nil
}

func (a *app) purgeTokens(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			n, err := repositories.PurgeExpired(ctx, a.db.DB(), t.UTC())
			if err != nil {
				a.log.Warn("purge expired tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				a.log.Info("purged expired tokens", zap.Int64("count", n))
			}
		}
	}
}
