package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/arklim/account-service/internal/infra/app"
	"github.com/arklim/account-service/internal/infra/config"
)

const defaultEnvFile = ".env"

func main() {
	envFile := flag.String("env-file", defaultEnvFile, "dotenv file applied before ACCOUNT_* variables are read")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *envFile); err != nil {
		log.Printf("account-service: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile string) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("read account configuration: %w", err)
	}

	svc, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("assemble account service: %w", err)
	}
	return svc.Run(ctx)
}

// loadEnvFile applies path without overriding variables already set.
// Only an explicitly requested file has to exist.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || (path == defaultEnvFile && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}
