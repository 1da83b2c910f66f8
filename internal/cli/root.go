// Package cli implements syllabusctl, a command-line client for the syllabus workflow API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	"github.com/noah-isme/smd-syllabus-api/pkg/taskpoll"
)

// API is the subset of the HTTP client the commands rely on.
type API interface {
	taskpoll.StatusFetcher
	GetSyllabus(ctx context.Context, id string) (*models.Syllabus, error)
	Transition(ctx context.Context, syllabusID string, req dto.TransitionRequest) (*models.Syllabus, error)
	History(ctx context.Context, syllabusID string) ([]models.ApprovalHistory, error)
	AssignCollaborators(ctx context.Context, syllabusID string, ids []string) (*dto.AssignCollaboratorsResponse, error)
	MyAssignments(ctx context.Context) ([]models.CollaborationQueueItem, error)
	AddComment(ctx context.Context, syllabusID string, req dto.AddCommentRequest) (*models.ReviewComment, error)
	ListComments(ctx context.Context, syllabusID string) ([]models.ReviewComment, error)
	StartAITask(ctx context.Context, req dto.StartAITaskRequest) (*dto.AITaskAcceptedResponse, error)
	AITaskStatus(ctx context.Context, taskID string) (*dto.AITaskStatusResponse, error)
}

// TokenIssuer mints development tokens.
type TokenIssuer interface {
	IssueToken(identity models.Identity, email, fullName string, ttl time.Duration) (string, time.Time, error)
}

// App holds the dependencies shared by every command.
type App struct {
	API    API
	Tokens TokenIssuer
	Poll   taskpoll.Config
	Logger *zap.Logger
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// NewRootCmd creates the top-level "syllabusctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "syllabusctl",
		Short:         "Drive syllabus reviews and AI analyses from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newGetCmd(app),
		newTransitionCmd(app),
		newHistoryCmd(app),
		newAssignCmd(app),
		newAssignmentsCmd(app),
		newCommentCmd(app),
		newAICmd(app),
		newTokenCmd(app),
	)

	return root
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
