package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
)

func newSubmitCmd() *cobra.Command {
	var (
		form  handlers.SubmitForm
		links []string
	)

	cmd := &cobra.Command{
		Use:   "submit <claim>",
		Short: "Submit a claim for review",
		Long:  "Queues a claim for the curators. It appears in the archive once approved.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			form.Claim = args[0]
			form.Links = strings.Join(links, "\n")

			return withDeps(ctx, func(d *Deps) error {
				sub, err := d.Submit.Handle(ctx, form)
				if err != nil {
					return err
				}

				fmt.Printf("Submitted %s\n", sub.ID)
				fmt.Printf("  Title: %s\n", sub.Title)
				fmt.Println("Thank you! Your claim is waiting for review.")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&form.Title, "title", "t", "", "Title (default: derived from the claim)")
	cmd.Flags().StringVarP(&form.Category, "category", "c", "", "Category (default: "+handlers.DefaultCategory+")")
	cmd.Flags().StringVar(&form.Confidence, "confidence", "", "How sure you are (default: "+handlers.DefaultConfidence+")")
	cmd.Flags().StringVar(&form.Tags, "tags", "", "Comma separated tags")
	cmd.Flags().StringArrayVar(&links, "link", nil, "Supporting link (repeatable)")

	return cmd
}
