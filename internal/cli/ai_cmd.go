package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	"github.com/noah-isme/smd-syllabus-api/pkg/taskpoll"
)

func newAICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Run AI analyses on syllabi",
	}

	cmd.AddCommand(
		newAIStartCmd(app),
		newAIStatusCmd(app),
		newAIWaitCmd(app),
	)

	return cmd
}

func newAIStartCmd(app *App) *cobra.Command {
	var params models.AITaskParams
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "start <CLO_PLO_CHECK|VERSION_COMPARE|SUMMARIZE>",
		Short: "Start an AI analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := models.AITaskKind(strings.ToUpper(strings.TrimSpace(args[0])))
			accepted, err := app.API.StartAITask(cmd.Context(), dto.StartAITaskRequest{Kind: kind, Params: params})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task %s %s\n", accepted.TaskID, accepted.Status)
			if !wait {
				return nil
			}
			return waitForTask(cmd.Context(), app, out, accepted.TaskID, timeout)
		},
	}

	cmd.Flags().StringVar(&params.SyllabusID, "syllabus", "", "Syllabus id (CLO_PLO_CHECK, SUMMARIZE)")
	cmd.Flags().StringVar(&params.CurriculumID, "curriculum", "", "Curriculum id (CLO_PLO_CHECK)")
	cmd.Flags().StringVar(&params.OldVersionID, "old", "", "Older version id (VERSION_COMPARE)")
	cmd.Flags().StringVar(&params.NewVersionID, "new", "", "Newer version id (VERSION_COMPARE)")
	cmd.Flags().StringVar(&params.SubjectID, "subject", "", "Subject id (VERSION_COMPARE)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the task finishes")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Polling ceiling (defaults to POLL_TIMEOUT)")

	return cmd
}

func newAIStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Query an AI task once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := app.API.AITaskStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}

func newAIWaitCmd(app *App) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait <task-id>",
		Short: "Poll an AI task until it succeeds, fails, or times out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return waitForTask(cmd.Context(), app, cmd.OutOrStdout(), args[0], timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Polling ceiling (defaults to POLL_TIMEOUT)")

	return cmd
}

func waitForTask(ctx context.Context, app *App, out io.Writer, taskID string, timeout time.Duration) error {
	cfg := app.Poll
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = app.logger()
	}

	poller := taskpoll.New(app.API, cfg)
	defer poller.Stop()
	poller.Watch(taskID)

	outcome, err := poller.Wait(ctx)
	snap := poller.Snapshot()
	app.logger().Debug("ai task wait finished",
		zap.String("task_id", taskID),
		zap.Int("queries", snap.Queries),
		zap.Error(err))
	if err != nil {
		return err
	}
	return printJSON(out, outcome.Result)
}
