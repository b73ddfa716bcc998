package main

import (
	"context"
	"fmt"
	"strconv"

	"studyhub/internal/config"
	"studyhub/internal/database"
	"studyhub/internal/jsonstore"
	"studyhub/internal/logging"
	"studyhub/internal/movies"
	"studyhub/internal/seed"
	"studyhub/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "studyhub",
	Short: "StudyHub API server",
	Long:  `StudyHub serves tasks, place reviews, event bookings and a movie catalog over a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		if err := database.Migrate(a.db); err != nil {
			return err
		}
		return a.reportVersion()
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Revert migrations, one step by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		if err := database.Rollback(a.db, steps); err != nil {
			return err
		}
		return a.reportVersion()
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo users, events and movies",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		if err := database.Migrate(a.db); err != nil {
			return err
		}
		return seed.New(a.db, a.catalog, a.log).Run(cmd.Context())
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// app holds what every command needs: settings, logger, database and the
// movie catalog.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      database.Service
	catalog *movies.Catalog
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	utils.HashCost = cfg.BcryptCost

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Sync()
		return nil, err
	}
	log.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		catalog: movies.NewCatalog(jsonstore.Open(cfg.DataFile)),
	}, nil
}

func (a *app) reportVersion() error {
	v, dirty, err := database.Version(a.db)
	if err != nil {
		return err
	}
	a.log.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Error("close database", zap.Error(err))
	}
	_ = a.log.Sync()
}
