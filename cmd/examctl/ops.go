package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/app"
	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/stemsi/olympiad-backend/internal/database"
	"github.com/stemsi/olympiad-backend/internal/logger"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// withServices connects to PostgreSQL and Redis, runs fn and disconnects.
func withServices(ctx context.Context, cfg *config.Config, fn func(s *app.Services, log zerolog.Logger) error) error {
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	return fn(app.NewServices(cfg, pool, rdb, log), log)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func createOrganizerCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "create-organizer",
		Usage: "create an organizer account interactively",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			reader := bufio.NewReader(os.Stdin)

			fmt.Println("=== Create New Organizer ===")
			fmt.Print("Enter Username: ")
			username, _ := reader.ReadString('\n')
			username = strings.TrimSpace(username)
			if username == "" {
				return errors.New("username is required")
			}

			fmt.Print("Enter Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if len(bytePassword) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			return withServices(ctx, cfg, func(s *app.Services, _ zerolog.Logger) error {
				user, err := s.Auth.CreateOrganizer(ctx, username, string(bytePassword))
				if err != nil {
					return err
				}
				fmt.Printf("Organizer %q created with id %d\n", user.Username, user.ID)
				return nil
			})
		},
	}
}

func generateParticipantsCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "generate-participants",
		Usage: "mint a group of participant accounts and print their credentials",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "organizer", Required: true, Usage: "owning organizer id"},
			&cli.StringFlag{Name: "name", Required: true, Usage: "group name"},
			&cli.IntFlag{Name: "count", Required: true, Usage: "number of participants"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withServices(ctx, cfg, func(s *app.Services, _ zerolog.Logger) error {
				res, err := s.Participants.GenerateGroup(ctx, cmd.Int64("organizer"), cmd.String("name"), cmd.Int("count"))
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
}

func enrollGroupCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "enroll-group",
		Usage: "enroll every member of a group into an exam",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "exam", Required: true},
			&cli.Int64Flag{Name: "group", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withServices(ctx, cfg, func(s *app.Services, _ zerolog.Logger) error {
				res, err := s.Enrollment.EnrollGroup(ctx, cmd.Int64("exam"), cmd.Int64("group"))
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
}

func allocationCommand(cfg *config.Config) *cli.Command {
	exerciseFlag := &cli.Int64Flag{Name: "exercise", Required: true}
	run := func(op func(ctx context.Context, s *app.Services, exerciseID int64) (any, error)) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			return withServices(ctx, cfg, func(s *app.Services, _ zerolog.Logger) error {
				res, err := op(ctx, s, cmd.Int64("exercise"))
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		}
	}

	return &cli.Command{
		Name:  "test-cases",
		Usage: "allocate, redistribute or clear an exercise's test cases",
		Commands: []*cli.Command{
			{
				Name:  "allocate",
				Usage: "assign test cases to enrollments that have none",
				Flags: []cli.Flag{exerciseFlag},
				Action: run(func(ctx context.Context, s *app.Services, id int64) (any, error) {
					return s.Allocator.AllocateUnassigned(ctx, id)
				}),
			},
			{
				Name:  "redistribute",
				Usage: "reassign every enrollment from a fresh shuffle",
				Flags: []cli.Flag{exerciseFlag},
				Action: run(func(ctx context.Context, s *app.Services, id int64) (any, error) {
					return s.Allocator.RedistributeAll(ctx, id)
				}),
			},
			{
				Name:  "clear",
				Usage: "remove the pool and every assignment",
				Flags: []cli.Flag{exerciseFlag},
				Action: run(func(ctx context.Context, s *app.Services, id int64) (any, error) {
					return s.Allocator.ClearAssignments(ctx, id)
				}),
			},
		},
	}
}
