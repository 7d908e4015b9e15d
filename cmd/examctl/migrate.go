package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/urfave/cli/v3"
)

func migrateCommand(cfg *config.Config) *cli.Command {
	var m *migrate.Migrate

	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or inspect database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Value: "migrations", Usage: "path to migration files"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cfg.DatabaseURL == "" {
				return ctx, errors.New("DATABASE_URL is not set")
			}
			var err error
			m, err = migrate.New("file://"+cmd.String("path"), cfg.DatabaseURL)
			if err != nil {
				return ctx, fmt.Errorf("initialize migrations: %w", err)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if m == nil {
				return nil
			}
			srcErr, dbErr := m.Close()
			return errors.Join(srcErr, dbErr)
		},
		Commands: []*cli.Command{
			{
				Name: "up",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("up: %w", err)
					}
					fmt.Println("Migrated up successfully")
					return nil
				},
			},
			{
				Name: "down",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("down: %w", err)
					}
					fmt.Println("Migrated down successfully")
					return nil
				},
			},
			{
				Name: "version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					version, dirty, err := m.Version()
					if err != nil {
						return fmt.Errorf("version: %w", err)
					}
					fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
					return nil
				},
			},
			{
				Name:      "force",
				ArgsUsage: "<version>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					v, err := strconv.Atoi(cmd.Args().First())
					if err != nil {
						return fmt.Errorf("invalid version %q: %w", cmd.Args().First(), err)
					}
					if err := m.Force(v); err != nil {
						return fmt.Errorf("force: %w", err)
					}
					fmt.Printf("Forced version to %d\n", v)
					return nil
				},
			},
		},
	}
}
