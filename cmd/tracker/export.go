package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/infrastructure/parsers"
)

type exportFlags struct {
	format   string
	output   string
	category string
	query    string
}

// exportColumns matches the columns the CSV importer reads.
var exportColumns = []string{"id", "title", "category", "claim", "context", "verdict", "confidence", "tags", "evidence", "links"}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries to file",
		Long:  "Exports entries to JSON, CSV, or markdown. JSON and CSV output can be re-imported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "json", "Output format (json, csv, markdown)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&flags.category, "category", "c", "", "Filter by category")
	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "Case-insensitive text search")

	return cmd
}

func runExport(cmd *cobra.Command, flags exportFlags) error {
	if !slices.Contains(validFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, validFormats)
	}

	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		result, err := d.Archive.HandleList(ctx, flags.category, flags.query)
		if err != nil {
			return err
		}
		if result.Total == 0 {
			return errors.New("no entries found to export")
		}

		return exportEntries(flags.format, flags.output, result.Entries)
	})
}

func exportEntries(format, output string, entries []entities.Entry) (err error) {
	var w io.Writer
	var f *os.File

	if output != "" {
		f, err = os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("creating file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing file: %w", cerr)
			}
		}()
		w = f
	} else {
		w = os.Stdout
	}

	if err := formatEntries(w, format, entries); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if output != "" {
		fmt.Printf("Exported %d entries to %s\n", len(entries), output)
	}

	return nil
}

func formatEntries(w io.Writer, format string, entries []entities.Entry) error {
	switch format {
	case "json":
		return formatJSON(w, entries)
	case "csv":
		return formatCSV(w, entries)
	case "markdown":
		return formatMarkdown(w, entries)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func formatJSON(w io.Writer, entries []entities.Entry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

func formatCSV(w io.Writer, entries []entities.Entry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportColumns); err != nil {
		return err
	}

	for _, e := range entries {
		row := []string{
			e.ID,
			e.Title,
			e.Category,
			e.Claim,
			e.Context,
			string(e.Verdict),
			e.Confidence,
			parsers.JoinList(e.Tags),
			parsers.JoinList(e.Evidence),
			parsers.JoinList(e.Links),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatMarkdown(w io.Writer, entries []entities.Entry) error {
	if _, err := fmt.Fprintf(w, "# Exported Entries\n\nTotal: %d entries\n\n", len(entries)); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, "| Title | Category | Verdict | Claim | Tags |\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "|-------|----------|---------|-------|------|\n"); err != nil {
		return err
	}

	for _, e := range entries {
		claim := e.Claim
		if r := []rune(claim); len(r) > 80 {
			claim = string(r[:77]) + "..."
		}
		if _, err := fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
			escapeMarkdown(e.Title),
			escapeMarkdown(e.Category),
			e.Verdict,
			escapeMarkdown(claim),
			escapeMarkdown(strings.Join(e.Tags, ", ")),
		); err != nil {
			return err
		}
	}

	return nil
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
