package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"adcheck/internal/bootstrap"
	"adcheck/internal/bootstrap/logging"
	"adcheck/internal/errs"
	"adcheck/internal/usecase/check"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage organization phrase dictionaries",
}

var dictAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a phrase rule to an organization's dictionary",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *check.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		org, _ := cmd.Flags().GetString("org")
		orgName, _ := cmd.Flags().GetString("org-name")
		phrase, _ := cmd.Flags().GetString("phrase")
		category, _ := cmd.Flags().GetString("category")
		notes, _ := cmd.Flags().GetString("notes")

		entry, err := svc.AddDictionaryEntry(ctx, check.AddDictionaryEntryInput{
			OrganizationID:   org,
			OrganizationName: orgName,
			Phrase:           phrase,
			Category:         category,
			Notes:            notes,
		})
		if err != nil {
			return errs.Wrap(err, "add dictionary entry")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "entry added: %s [%s] %s\n", entry.EntryID, entry.Category, entry.Phrase); err != nil {
			return errs.Wrap(err, "write add output")
		}
		return nil
	}),
}

var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an organization's dictionary entries",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *check.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		org, _ := cmd.Flags().GetString("org")
		entries, err := svc.ListDictionaryEntries(ctx, org)
		if err != nil {
			return errs.Wrap(err, "list dictionary entries")
		}

		out := cmd.OutOrStdout()
		for _, entry := range entries {
			vectorMark := " "
			if len(entry.Embedding) > 0 {
				vectorMark = "v"
			}
			if _, err := fmt.Fprintf(out, "%s [%s]%s %s\n", entry.EntryID, entry.Category, vectorMark, entry.Phrase); err != nil {
				return errs.Wrap(err, "write list output")
			}
		}
		if _, err := fmt.Fprintf(out, "%d entries\n", len(entries)); err != nil {
			return errs.Wrap(err, "write list output")
		}
		return nil
	}),
}

var dictEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Precompute embeddings for entries missing a vector",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *check.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		org, _ := cmd.Flags().GetString("org")
		embedded, err := svc.PrecomputeEmbeddings(ctx, org)
		if err != nil {
			return errs.Wrap(err, "precompute embeddings")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "embeddings computed: %d\n", embedded); err != nil {
			return errs.Wrap(err, "write embed output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(dictCmd)
	dictCmd.AddCommand(dictAddCmd)
	dictCmd.AddCommand(dictListCmd)
	dictCmd.AddCommand(dictEmbedCmd)

	dictAddCmd.Flags().String("org", "", "Organization id")
	dictAddCmd.Flags().String("org-name", "", "Organization display name")
	dictAddCmd.Flags().String("phrase", "", "Phrase to register")
	dictAddCmd.Flags().String("category", "NG", "Category: NG or ALLOW")
	dictAddCmd.Flags().String("notes", "", "Reviewer notes for the phrase")
	_ = dictAddCmd.MarkFlagRequired("org")
	_ = dictAddCmd.MarkFlagRequired("phrase")

	dictListCmd.Flags().String("org", "", "Organization id")
	_ = dictListCmd.MarkFlagRequired("org")

	dictEmbedCmd.Flags().String("org", "", "Organization id")
	_ = dictEmbedCmd.MarkFlagRequired("org")
}
