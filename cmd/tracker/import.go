package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
)

type importFlags struct {
	format string
	dryRun bool
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import curated entries from JSON or CSV",
		Long:  "Imports entries from a structured file. Entries whose ID already exists are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		opts := handlers.ImportOptions{
			Format: flags.format,
			DryRun: flags.dryRun,
		}

		fmt.Printf("Importing %s...\n", filePath)

		result, err := d.Import.Handle(ctx, filePath, opts)
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		if len(result.Errors) > 0 {
			fmt.Printf("\nValidation errors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Printf("  %s\n", e.Error())
			}
		}

		fmt.Println()
		if flags.dryRun {
			fmt.Printf("Dry run: %d entries would be imported", result.Imported)
		} else {
			fmt.Printf("Imported: %d entries", result.Imported)
		}

		if result.Skipped > 0 {
			fmt.Printf(", %d skipped (already exist)", result.Skipped)
		}

		if len(result.Errors) > 0 {
			fmt.Printf(", %d errors", len(result.Errors))
		}

		fmt.Println()

		return nil
	})
}
