// Package main provides the entry point for the tracker CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A .env file is optional; TRACKER_* variables may come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "tracker",
		Short:   "A curated archive of cultural influence claims with a moderation queue",
		Version: version,
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newListCmd(),
		newShowCmd(),
		newTagsCmd(),
		newSubmitCmd(),
		newQueueCmd(),
		newApproveCmd(),
		newRejectCmd(),
		newHistoryCmd(),
		newImportCmd(),
		newExportCmd(),
		newServeCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
