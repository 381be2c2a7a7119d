package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"adcheck/internal/bootstrap"
	"adcheck/internal/bootstrap/logging"
	"adcheck/internal/errs"
	"adcheck/internal/usecase/check"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Submit and inspect compliance checks",
}

var checkSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a check and print its id",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *check.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		org, _ := cmd.Flags().GetString("org")
		user, _ := cmd.Flags().GetString("user")
		inputType, _ := cmd.Flags().GetString("type")
		text, _ := cmd.Flags().GetString("text")
		imageRef, _ := cmd.Flags().GetString("image")

		res, err := svc.SubmitCheck(ctx, check.SubmitCheckInput{
			OrganizationID: org,
			UserID:         user,
			InputType:      inputType,
			Text:           text,
			ImageRef:       imageRef,
		})
		if err != nil {
			return errs.Wrap(err, "submit check")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "check submitted: %s (%s)\n", res.CheckID, res.Status); err != nil {
			return errs.Wrap(err, "write submit output")
		}
		return nil
	}),
}

var checkGetCmd = &cobra.Command{
	Use:   "get <check-id>",
	Short: "Print a check's status and violations as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *check.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		detail, err := svc.GetCheck(ctx, cmd.Flags().Args()[0])
		if err != nil {
			return errs.Wrap(err, "get check")
		}
		return printJSON(cmd, detail)
	}),
}

var checkQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Print an organization's queue status as JSON",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *check.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		org, _ := cmd.Flags().GetString("org")
		detail, err := svc.QueueStatus(ctx, org)
		if err != nil {
			return errs.Wrap(err, "get queue status")
		}
		return printJSON(cmd, detail)
	}),
}

func printJSON(cmd *cobra.Command, body any) error {
	raw, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return errs.Wrap(err, "encode output")
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(raw)); err != nil {
		return errs.Wrap(err, "write output")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.AddCommand(checkSubmitCmd)
	checkCmd.AddCommand(checkGetCmd)
	checkCmd.AddCommand(checkQueueCmd)

	checkSubmitCmd.Flags().String("org", "", "Organization id")
	checkSubmitCmd.Flags().String("user", "", "User id")
	checkSubmitCmd.Flags().String("type", "text", "Input type: text or image")
	checkSubmitCmd.Flags().String("text", "", "Ad copy to check (text input)")
	checkSubmitCmd.Flags().String("image", "", "Image reference to check (image input)")
	_ = checkSubmitCmd.MarkFlagRequired("org")
	_ = checkSubmitCmd.MarkFlagRequired("user")

	checkQueueCmd.Flags().String("org", "", "Organization id")
	_ = checkQueueCmd.MarkFlagRequired("org")
}
