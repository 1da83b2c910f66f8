// Package apiclient is a thin HTTP client for the syllabus workflow API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
	"github.com/noah-isme/smd-syllabus-api/pkg/taskpoll"
)

// Client calls the API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client for the API mounted at baseURL (including the API prefix).
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

// GetSyllabus fetches one syllabus.
func (c *Client) GetSyllabus(ctx context.Context, id string) (*models.Syllabus, error) {
	var out models.Syllabus
	if err := c.do(ctx, http.MethodGet, "/syllabi/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transition executes a lifecycle action and returns the updated syllabus.
func (c *Client) Transition(ctx context.Context, syllabusID string, req dto.TransitionRequest) (*models.Syllabus, error) {
	var out models.Syllabus
	if err := c.do(ctx, http.MethodPost, "/syllabi/"+url.PathEscape(syllabusID)+"/transitions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists the approval history of a syllabus.
func (c *Client) History(ctx context.Context, syllabusID string) ([]models.ApprovalHistory, error) {
	var out []models.ApprovalHistory
	if err := c.do(ctx, http.MethodGet, "/syllabi/"+url.PathEscape(syllabusID)+"/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignCollaborators grants review access on a draft.
func (c *Client) AssignCollaborators(ctx context.Context, syllabusID string, ids []string) (*dto.AssignCollaboratorsResponse, error) {
	var out dto.AssignCollaboratorsResponse
	req := dto.AssignCollaboratorsRequest{CollaboratorIDs: ids}
	if err := c.do(ctx, http.MethodPost, "/syllabi/"+url.PathEscape(syllabusID)+"/collaborators", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyAssignments lists the caller's active review queue.
func (c *Client) MyAssignments(ctx context.Context) ([]models.CollaborationQueueItem, error) {
	var out []models.CollaborationQueueItem
	if err := c.do(ctx, http.MethodGet, "/collaborations/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddComment posts a review note.
func (c *Client) AddComment(ctx context.Context, syllabusID string, req dto.AddCommentRequest) (*models.ReviewComment, error) {
	var out models.ReviewComment
	if err := c.do(ctx, http.MethodPost, "/syllabi/"+url.PathEscape(syllabusID)+"/comments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListComments returns the discussion timeline.
func (c *Client) ListComments(ctx context.Context, syllabusID string) ([]models.ReviewComment, error) {
	var out []models.ReviewComment
	if err := c.do(ctx, http.MethodGet, "/syllabi/"+url.PathEscape(syllabusID)+"/comments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartAITask starts an analysis job and returns its id.
func (c *Client) StartAITask(ctx context.Context, req dto.StartAITaskRequest) (*dto.AITaskAcceptedResponse, error) {
	var out dto.AITaskAcceptedResponse
	if err := c.do(ctx, http.MethodPost, "/ai/tasks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AITaskStatus performs one get-status request.
func (c *Client) AITaskStatus(ctx context.Context, taskID string) (*dto.AITaskStatusResponse, error) {
	var out dto.AITaskStatusResponse
	if err := c.do(ctx, http.MethodGet, "/ai/tasks/"+url.PathEscape(taskID)+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchStatus adapts AITaskStatus to taskpoll.StatusFetcher.
func (c *Client) FetchStatus(ctx context.Context, taskID string) (*taskpoll.Response, error) {
	status, err := c.AITaskStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &taskpoll.Response{
		Status:   taskpoll.Status(status.Status),
		Progress: status.Progress,
		Result:   status.Result,
		Error:    status.Error,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		if resp.StatusCode >= 400 {
			return appErrors.New(http.StatusText(resp.StatusCode), resp.StatusCode, fmt.Sprintf("%s %s failed", method, path))
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		if env.Error.Status == 0 {
			env.Error.Status = resp.StatusCode
		}
		return env.Error
	}
	if resp.StatusCode >= 400 {
		return appErrors.New(http.StatusText(resp.StatusCode), resp.StatusCode, fmt.Sprintf("%s %s failed", method, path))
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	return nil
}
