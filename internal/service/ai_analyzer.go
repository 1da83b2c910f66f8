package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
)

const analyzePath = "/api/ai/analyze"

// HTTPAnalyzer forwards analysis jobs to the AI backend. The backend is opaque: whatever JSON it
// returns becomes the task result.
type HTTPAnalyzer struct {
	endpoint string
	http     *http.Client
}

// NewHTTPAnalyzer builds an analyzer for the backend rooted at endpoint.
func NewHTTPAnalyzer(endpoint string, timeout time.Duration) *HTTPAnalyzer {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &HTTPAnalyzer{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
	}
}

type analyzeRequest struct {
	AnalysisType models.AITaskKind   `json:"analysisType"`
	Params       models.AITaskParams `json:"params"`
}

// Analyze posts the job to the backend and returns the raw response body.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, kind models.AITaskKind, params models.AITaskParams) (json.RawMessage, error) {
	data, err := json.Marshal(analyzeRequest{AnalysisType: kind, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+analyzePath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai backend unavailable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ai backend returned status %d: %s", resp.StatusCode, truncate(string(body), 256))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("ai backend returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
