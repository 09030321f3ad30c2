package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
)

func newInitCmd() *cobra.Command {
	var opts handlers.InitOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new tracker workspace",
		Long:  "Creates a .tracker directory with configuration. The store is created and seeded on first use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts)
		},
	}

	cmd.Flags().StringVar(&opts.AdminPassword, "password", "", "Admin password (default: demo password)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "HTTP listen address for serve")
	cmd.Flags().StringVar(&opts.StorePath, "store", "", "SQLite file, relative to .tracker")

	return cmd
}

func runInit(opts handlers.InitOptions) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	result, err := handlers.NewInitHandler().Handle(cwd, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", result.ConfigPath)
	fmt.Printf("Store: %s\n", result.StorePath)
	fmt.Println("Tracker initialized successfully!")

	return nil
}
