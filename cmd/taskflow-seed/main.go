// Command taskflow-seed loads the demo dataset into the configured database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"taskflow/cmd/internal/app"
	"taskflow/cmd/internal/seed"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("taskflow-seed: TASKFLOW_DATABASE_URL is required; in-memory stores do not outlive the process")
	}
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := seed.Run(ctx, logger, a.Users(), a.Tasks(), seed.Default())
	if err != nil {
		return err
	}

	fmt.Printf("users: %d created, %d existing\n", rep.UsersCreated, rep.UsersExisting)
	fmt.Printf("tags:  %d created, %d existing\n", rep.TagsCreated, rep.TagsExisting)
	fmt.Printf("tasks: %d created, %d existing\n", rep.TasksCreated, rep.TasksExisting)
	fmt.Println("login with admin/admin123 or demo/demo123")
	return nil
}
