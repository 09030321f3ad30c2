package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
	"github.com/ersonp/influence-tracker/internal/domain/entities"
)

func addPasswordFlag(cmd *cobra.Command, password *string) {
	cmd.Flags().StringVarP(password, "password", "p", "", "Admin password")
}

func newQueueCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List pending submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withAdmin(ctx, password, func(token string, admin *handlers.AdminHandler) error {
				result, err := admin.HandleQueue(ctx, token)
				if err != nil {
					return err
				}
				if result.Total == 0 {
					fmt.Println("No pending submissions.")
					return nil
				}

				fmt.Printf("%d pending submissions:\n\n", result.Total)
				for _, s := range result.Submissions {
					displaySubmission(s)
				}
				return nil
			})
		},
	}

	addPasswordFlag(cmd, &password)
	return cmd
}

func newApproveCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "approve <submission-id>",
		Short: "Publish a submission as an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withAdmin(ctx, password, func(token string, admin *handlers.AdminHandler) error {
				result, err := admin.HandleApprove(ctx, token, args[0])
				if err != nil {
					return err
				}
				if result.Warning != "" {
					fmt.Fprintf(os.Stderr, "Warning: %s\n", result.Warning)
				}
				if !result.Applied {
					fmt.Printf("Submission %s is not pending; nothing to do.\n", args[0])
					return nil
				}
				fmt.Printf("Approved %s as entry %s\n", args[0], result.Entry.ID)
				return nil
			})
		},
	}

	addPasswordFlag(cmd, &password)
	return cmd
}

func newRejectCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reject <submission-id>",
		Short: "Discard a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withAdmin(ctx, password, func(token string, admin *handlers.AdminHandler) error {
				result, err := admin.HandleReject(ctx, token, args[0])
				if err != nil {
					return err
				}
				if result.Warning != "" {
					fmt.Fprintf(os.Stderr, "Warning: %s\n", result.Warning)
				}
				if !result.Applied {
					fmt.Printf("Submission %s is not pending; nothing to do.\n", args[0])
					return nil
				}
				fmt.Printf("Rejected %s\n", args[0])
				return nil
			})
		},
	}

	addPasswordFlag(cmd, &password)
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		password   string
		action     string
		submission string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent moderation decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withAdmin(ctx, password, func(token string, admin *handlers.AdminHandler) error {
				var (
					history []entities.AuditEntry
					err     error
				)
				if submission != "" {
					history, err = admin.HandleSubmissionHistory(ctx, token, submission)
				} else {
					history, err = admin.HandleHistory(ctx, token, action, limit)
				}
				if err != nil {
					return err
				}

				if len(history) == 0 {
					fmt.Println("No decisions recorded.")
					return nil
				}
				for _, h := range history {
					fmt.Printf("%s  %-20s %s\n", h.CreatedAt.Format("2006-01-02 15:04:05"), h.Action, h.SubjectID)
				}
				return nil
			})
		},
	}

	addPasswordFlag(cmd, &password)
	cmd.Flags().StringVarP(&action, "action", "a", "", "Filter by action ("+entities.ActionApproved+", "+entities.ActionRejected+")")
	cmd.Flags().StringVarP(&submission, "submission", "s", "", "Show decisions for one submission")
	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultHistoryLimit, "Maximum number of decisions to show")

	return cmd
}

func displaySubmission(s entities.Submission) {
	fmt.Printf("ID: %s\n", s.ID)
	fmt.Printf("  %s (%s, %s)\n", s.Title, s.Category, s.Confidence)
	fmt.Printf("  Claim: %s\n", s.Claim)
	if len(s.Tags) > 0 {
		fmt.Printf("  Tags: %s\n", formatTags(s.Tags))
	}
	for _, l := range s.Links {
		fmt.Printf("  Link: %s\n", l)
	}
	fmt.Println()
}
