package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

func newGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <syllabus-id>",
		Short: "Show a syllabus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.API.GetSyllabus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
}

func newTransitionCmd(app *App) *cobra.Command {
	var reason, effectiveDate, summary string

	cmd := &cobra.Command{
		Use:   "transition <syllabus-id> <action>",
		Short: "Execute a lifecycle action (submit, approve, reject, publish, ...)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := models.SyllabusAction(strings.ToLower(strings.TrimSpace(args[1])))
			if !action.Valid() {
				return fmt.Errorf("unknown action %q", args[1])
			}
			doc, err := app.API.Transition(cmd.Context(), args[0], dto.TransitionRequest{
				Action:        action,
				Reason:        reason,
				EffectiveDate: effectiveDate,
				Summary:       summary,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s (version %d)\n", doc.ID, doc.Status, doc.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason (required for reject, unpublish, start_revision, request_revision)")
	cmd.Flags().StringVar(&effectiveDate, "effective-date", "", "Effective date YYYY-MM-DD (publish only)")
	cmd.Flags().StringVar(&summary, "summary", "", "Change summary (submit_revision only)")

	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history <syllabus-id>",
		Short: "Show the approval history of a syllabus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.API.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history yet.")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  %-16s %s -> %s  by %s (%s)",
					e.CreatedAt.Format("2006-01-02 15:04"), e.Action, e.FromStatus, e.ToStatus, e.ActorID, e.ActorRole)
				if e.Comment != nil && *e.Comment != "" {
					line += ": " + *e.Comment
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
