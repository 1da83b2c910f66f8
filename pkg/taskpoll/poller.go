// Package taskpoll turns a fire-and-forget server job into a bounded, cancellable,
// progress-reporting operation by polling its status on an escalating schedule.
package taskpoll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

// State of the poller's state machine.
type State string

const (
	StateIdle    State = "IDLE"
	StatePolling State = "POLLING"
	StateDone    State = "DONE"
)

// Status is the server-reported job status.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
	StatusNotFound   Status = "NOT_FOUND"
)

// DefaultTimeout is the wall-clock ceiling measured from activation.
const DefaultTimeout = 30 * time.Second

var (
	ErrTimeout    = appErrors.Clone(appErrors.ErrTimeout, "task did not finish in time")
	ErrTaskFailed = appErrors.Clone(appErrors.ErrTaskFailed, "task failed")
	ErrNotFound   = appErrors.Clone(appErrors.ErrNotFound, "task not found")
	// ErrSuperseded is returned to waiters whose watch was cancelled or replaced.
	ErrSuperseded = errors.New("taskpoll: watch superseded")
)

// Response is one get-status answer.
type Response struct {
	Status   Status          `json:"status"`
	Progress int             `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// StatusFetcher performs a single get-status request.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, taskID string) (*Response, error)
}

// Outcome is the terminal result of one watched task.
type Outcome struct {
	TaskID string
	Result json.RawMessage
	Err    error
}

// Snapshot is a point-in-time view of the poller.
type Snapshot struct {
	TaskID   string
	State    State
	Status   Status
	Progress int
	Queries  int
	Elapsed  time.Duration
	Err      error
}

// Config tunes a Poller. Zero values fall back to defaults.
type Config struct {
	Timeout        time.Duration
	RequestTimeout time.Duration
	Clock          Clock
	Logger         *zap.Logger
	// OnComplete receives each outcome exactly once, outside the poller's lock.
	OnComplete func(Outcome)
}

// Poller watches one task at a time. Watching a new task or disabling the poller cancels the
// pending query and discards any in-flight response for the previous task.
type Poller struct {
	fetcher StatusFetcher
	clock   Clock
	logger  *zap.Logger
	cfg     Config

	mu        sync.Mutex
	enabled   bool
	taskID    string
	gen       uint64
	state     State
	startedAt time.Time
	timer     Timer
	status    Status
	progress  int
	queries   int
	outcome   *Outcome
	done      chan struct{}
	cancel    context.CancelFunc
	waiters   int
}

// New builds an enabled, idle poller.
func New(fetcher StatusFetcher, cfg Config) *Poller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Poller{
		fetcher: fetcher,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		cfg:     cfg,
		enabled: true,
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// NextInterval returns the delay before the next query given the time elapsed since activation.
func NextInterval(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < 5*time.Second:
		return time.Second
	case elapsed < 15*time.Second:
		return 2 * time.Second
	default:
		return 5 * time.Second
	}
}

// Watch starts polling taskID, replacing whatever was watched before. An empty id just resets.
func (p *Poller) Watch(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	p.taskID = taskID
	p.activateLocked()
}

// SetEnabled toggles the poller. Disabling cancels the current watch; re-enabling restarts the
// watched task from scratch unless it already finished.
func (p *Poller) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled == enabled {
		return
	}
	p.enabled = enabled
	if !enabled {
		if p.state == StatePolling {
			p.logger.Debug("task poller disabled", zap.String("task_id", p.taskID))
			p.resetLocked()
		}
		return
	}
	if p.state == StateIdle {
		p.activateLocked()
	}
}

// Stop cancels any pending or in-flight query and returns the poller to IDLE.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	p.taskID = ""
}

// Snapshot reports the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := Snapshot{
		TaskID:   p.taskID,
		State:    p.state,
		Status:   p.status,
		Progress: p.progress,
		Queries:  p.queries,
	}
	if !p.startedAt.IsZero() && p.state == StatePolling {
		snap.Elapsed = p.clock.Now().Sub(p.startedAt)
	}
	if p.outcome != nil {
		snap.Err = p.outcome.Err
	}
	return snap
}

// Wait blocks until the currently watched task reaches DONE, the watch is superseded, or ctx ends.
func (p *Poller) Wait(ctx context.Context) (Outcome, error) {
	p.mu.Lock()
	done, gen := p.done, p.gen
	p.waiters++
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		p.mu.Lock()
		p.waiters--
		p.mu.Unlock()
		return Outcome{}, ctx.Err()
	case <-done:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.waiters--
	if gen != p.gen || p.outcome == nil {
		return Outcome{}, ErrSuperseded
	}
	return *p.outcome, p.outcome.Err
}

// resetLocked invalidates the current generation: pending timers are stopped, in-flight
// responses become stale and waiters of the old generation are released.
func (p *Poller) resetLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.state != StateDone {
		close(p.done)
	}
	p.done = make(chan struct{})
	p.state = StateIdle
	p.startedAt = time.Time{}
	p.status = ""
	p.progress = 0
	p.queries = 0
	p.outcome = nil
}

func (p *Poller) activateLocked() {
	if !p.enabled || p.taskID == "" {
		return
	}
	p.state = StatePolling
	p.startedAt = p.clock.Now()
	gen := p.gen
	p.logger.Debug("task poller activated", zap.String("task_id", p.taskID))
	go p.poll(gen)
}

func (p *Poller) poll(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state != StatePolling {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	if p.clock.Now().Sub(p.startedAt) >= p.cfg.Timeout {
		outcome := p.finishLocked(ErrTimeout, nil)
		p.mu.Unlock()
		p.complete(*outcome)
		return
	}
	taskID := p.taskID
	p.queries++
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.RequestTimeout)
	p.cancel = cancel
	p.mu.Unlock()

	resp, err := p.fetcher.FetchStatus(ctx, taskID)
	cancel()

	p.mu.Lock()
	if gen != p.gen || p.state != StatePolling {
		p.mu.Unlock()
		p.logger.Debug("stale task status discarded", zap.String("task_id", taskID))
		return
	}
	p.cancel = nil

	var outcome *Outcome
	switch {
	case err != nil:
		outcome = p.finishLocked(fmt.Errorf("query task %s: %w", taskID, err), nil)
	case resp == nil:
		outcome = p.finishLocked(fmt.Errorf("query task %s: empty response", taskID), nil)
	default:
		p.status = resp.Status
		if resp.Progress > p.progress {
			p.progress = resp.Progress
		}
		switch resp.Status {
		case StatusSuccess:
			p.progress = 100
			outcome = p.finishLocked(nil, resp.Result)
		case StatusFailed:
			msg := resp.Error
			if msg == "" {
				msg = ErrTaskFailed.Message
			}
			outcome = p.finishLocked(appErrors.Clone(ErrTaskFailed, msg), nil)
		case StatusNotFound:
			outcome = p.finishLocked(ErrNotFound, nil)
		case StatusQueued, StatusProcessing:
			elapsed := p.clock.Now().Sub(p.startedAt)
			if elapsed >= p.cfg.Timeout {
				outcome = p.finishLocked(ErrTimeout, nil)
				break
			}
			p.timer = p.clock.AfterFunc(NextInterval(elapsed), func() { p.poll(gen) })
		default:
			outcome = p.finishLocked(fmt.Errorf("query task %s: unexpected status %q", taskID, resp.Status), nil)
		}
	}
	p.mu.Unlock()

	if outcome != nil {
		p.complete(*outcome)
	}
}

func (p *Poller) finishLocked(err error, result json.RawMessage) *Outcome {
	outcome := &Outcome{TaskID: p.taskID, Result: result, Err: err}
	p.outcome = outcome
	p.state = StateDone
	close(p.done)

	fields := []zap.Field{
		zap.String("task_id", p.taskID),
		zap.Int("queries", p.queries),
		zap.Duration("elapsed", p.clock.Now().Sub(p.startedAt)),
	}
	if err != nil {
		p.logger.Warn("task polling finished with error", append(fields, zap.Error(err))...)
	} else {
		p.logger.Info("task polling succeeded", fields...)
	}
	return outcome
}

func (p *Poller) complete(outcome Outcome) {
	if p.cfg.OnComplete != nil {
		p.cfg.OnComplete(outcome)
	}
}
