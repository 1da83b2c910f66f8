package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
)

func newAssignCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <syllabus-id> <user-id>...",
		Short: "Assign peer reviewers to a draft",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.API.AssignCollaborators(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned %d new reviewer(s) to %s: %s\n",
				res.Created, res.SyllabusVersionID, strings.Join(res.CollaboratorIDs, ", "))
			return nil
		},
	}
}

func newAssignmentsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "assignments",
		Short: "List drafts waiting for your review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.API.MyAssignments(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No open review assignments.")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(out, "%s  subject=%s term=%s owner=%s v%d\n",
					item.SyllabusVersionID, item.SubjectID, item.AcademicTermID, item.OwnerID, item.Version)
			}
			return nil
		},
	}
}

func newCommentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Read and write review comments",
	}

	cmd.AddCommand(
		newCommentAddCmd(app),
		newCommentListCmd(app),
	)

	return cmd
}

func newCommentAddCmd(app *App) *cobra.Command {
	var content, section string

	cmd := &cobra.Command{
		Use:   "add <syllabus-id>",
		Short: "Post a review comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.AddCommentRequest{Content: content}
			if section != "" {
				req.Section = &section
			}
			comment, err := app.API.AddComment(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s comment %s\n", comment.Kind, comment.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "Comment text")
	cmd.Flags().StringVar(&section, "section", "", "Syllabus section the comment refers to")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func newCommentListCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <syllabus-id>",
		Short: "Show the discussion timeline of a syllabus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comments, err := app.API.ListComments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, comments)
			}
			for _, c := range comments {
				where := ""
				if c.Section != nil {
					where = " [" + *c.Section + "]"
				}
				fmt.Fprintf(out, "%s  %s (%s)%s %s: %s\n",
					c.CreatedAt.Format("2006-01-02 15:04"), c.AuthorID, c.AuthorRole, where, c.Kind, c.Content)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")

	return cmd
}
