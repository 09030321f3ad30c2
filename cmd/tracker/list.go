package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
	"github.com/ersonp/influence-tracker/internal/domain/entities"
)

func newListCmd() *cobra.Command {
	var (
		limit    int
		category string
		query    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archive entries",
		Long:  "Lists entries newest first, optionally filtered by category and free-text query.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, limit, category, query)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultListLimit, "Maximum number of entries to display")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category (default: All)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive text search")

	return cmd
}

func runList(cmd *cobra.Command, limit int, category, query string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		result, err := d.Archive.HandleList(ctx, category, query)
		if err != nil {
			return err
		}

		if result.Total == 0 {
			fmt.Println("No entries found.")
			return nil
		}

		entries := result.Entries
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}

		fmt.Printf("Showing %d of %d entries:\n\n", len(entries), result.Total)
		for _, e := range entries {
			displayEntry(e)
		}
		return nil
	})
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show an entry in full",
		Long:  "Shows every field of an entry and counts the view.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}
}

func runShow(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		detail, err := d.Archive.HandleShow(ctx, id)
		if err != nil {
			return err
		}
		if detail == nil {
			return fmt.Errorf("entry %q not found", id)
		}

		displayEntryDetail(detail)
		return nil
	})
}

func newTagsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Show trending tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				tags, err := d.Archive.HandleTrending(ctx, limit)
				if err != nil {
					return err
				}
				if len(tags) == 0 {
					fmt.Println("No tags yet.")
					return nil
				}
				for i, tag := range tags {
					fmt.Printf("%d. #%s\n", i+1, tag)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", handlers.DefaultTrendingLimit, "Number of tags to show")

	return cmd
}

func displayEntry(e entities.Entry) {
	fmt.Printf("ID: %s\n", e.ID)
	fmt.Printf("  [%s] %s (%s)\n", e.Verdict, e.Title, e.Category)
	fmt.Printf("  Claim: %s\n", e.Claim)
	if len(e.Tags) > 0 {
		fmt.Printf("  Tags: %s\n", formatTags(e.Tags))
	}
	fmt.Println()
}

func displayEntryDetail(d *handlers.EntryDetail) {
	e := d.Entry
	fmt.Printf("%s\n", e.Title)
	fmt.Printf("%s\n\n", strings.Repeat("=", len(e.Title)))
	fmt.Printf("ID:         %s\n", e.ID)
	fmt.Printf("Category:   %s\n", e.Category)
	fmt.Printf("Verdict:    %s\n", e.Verdict)
	fmt.Printf("Confidence: %s\n", e.Confidence)
	fmt.Printf("Created:    %s\n", e.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Views:      %d\n\n", d.Views)
	fmt.Printf("Claim:\n  %s\n", e.Claim)
	if e.Context != "" {
		fmt.Printf("\nContext:\n  %s\n", e.Context)
	}
	if len(e.Evidence) > 0 {
		fmt.Println("\nEvidence:")
		for _, ev := range e.Evidence {
			fmt.Printf("  - %s\n", ev)
		}
	}
	if len(e.Links) > 0 {
		fmt.Println("\nLinks:")
		for _, l := range e.Links {
			fmt.Printf("  - %s\n", l)
		}
	}
	if len(e.Tags) > 0 {
		fmt.Printf("\nTags: %s\n", formatTags(e.Tags))
	}
}

func formatTags(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = "#" + t
	}
	return strings.Join(out, " ")
}
