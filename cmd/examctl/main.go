package main

import (
	"context"
	"fmt"
	"os"

	"github.com/stemsi/olympiad-backend/internal/config"
	"github.com/urfave/cli/v3"
)

func main() {
	cfg := config.Load()

	cmd := &cli.Command{
		Name:  "examctl",
		Usage: "operate the olympiad backend",
		Commands: []*cli.Command{
			migrateCommand(cfg),
			createOrganizerCommand(cfg),
			generateParticipantsCommand(cfg),
			enrollGroupCommand(cfg),
			allocationCommand(cfg),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
