package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

func newTokenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Development token helpers",
	}

	cmd.AddCommand(newTokenIssueCmd(app))

	return cmd
}

func newTokenIssueCmd(app *App) *cobra.Command {
	var userID, role, email, name string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token with the local JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Tokens == nil {
				return fmt.Errorf("token issuing is not configured")
			}
			identity := models.Identity{UserID: userID, Role: models.UserRole(strings.ToUpper(role))}
			if !identity.Role.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			token, expires, err := app.Tokens.IssueToken(identity, email, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Subject user id")
	cmd.Flags().StringVar(&role, "role", "", "ADMIN, LECTURER, HOD, AA, PRINCIPAL or STUDENT")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&name, "name", "", "Full name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
