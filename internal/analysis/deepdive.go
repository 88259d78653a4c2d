package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

// DeepDiveAPI is the collaborator contract for the long-running re-analysis
// job. Trigger fails if the brief does not exist or the user lacks
// entitlement; Status is idempotent and safe to call repeatedly.
type DeepDiveAPI interface {
	Trigger(ctx context.Context, briefID uuid.UUID, caseID *uuid.UUID) error
	Status(ctx context.Context, briefID uuid.UUID) (*types.DeepDiveStatus, error)
}

type JobState string

const (
	JobIdle     JobState = "idle"
	JobRunning  JobState = "running"
	JobComplete JobState = "complete"
	JobError    JobState = "error"
)

const DefaultPollInterval = 8 * time.Second

// DeepDiveController manages one fire-and-poll background job. At most one
// job is live at a time; the poll loop is strictly serialized (the next tick
// is armed only after the in-flight status call settles).
type DeepDiveController struct {
	mu       sync.Mutex
	log      *logger.Logger
	api      DeepDiveAPI
	interval time.Duration

	state  JobState
	gen    uint64
	cancel context.CancelFunc
}

func NewDeepDiveController(log *logger.Logger, api DeepDiveAPI, interval time.Duration) *DeepDiveController {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &DeepDiveController{
		log:      log.With("component", "DeepDiveController"),
		api:      api,
		interval: interval,
		state:    JobIdle,
	}
}

func (c *DeepDiveController) State() JobState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Trigger starts the job and, on success, the polling loop. Calling Trigger
// while a job is running is a programming error; callers must wait for a
// terminal state or Cancel first.
func (c *DeepDiveController) Trigger(ctx context.Context, briefID uuid.UUID, caseID *uuid.UUID, onComplete func(*types.DeepDiveAnalysis), onError func(error)) error {
	c.mu.Lock()
	if c.state == JobRunning {
		c.mu.Unlock()
		return ErrDeepDiveActive
	}
	c.gen++
	myGen := c.gen
	c.state = JobRunning
	c.mu.Unlock()

	if err := c.api.Trigger(ctx, briefID, caseID); err != nil {
		// No job was created; nothing to poll.
		c.settle(myGen, JobError)
		if onError != nil {
			onError(err)
		}
		return err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.gen != myGen {
		// Cancelled while the trigger call was in flight.
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.cancel = cancel
	c.mu.Unlock()

	go c.pollLoop(pollCtx, myGen, briefID, onComplete, onError)
	return nil
}

// Cancel stops the poll loop and resets to idle. Safe to call from any
// state, idempotent.
func (c *DeepDiveController) Cancel() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.state = JobIdle
	c.mu.Unlock()
}

func (c *DeepDiveController) pollLoop(ctx context.Context, myGen uint64, briefID uuid.UUID, onComplete func(*types.DeepDiveAnalysis), onError func(error)) {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		st, err := c.api.Status(ctx, briefID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// Transient poll failure; a single failed tick does not kill the job.
			c.log.Warn("deep dive status poll failed, retrying", "briefID", briefID, "error", err)
			timer.Reset(c.interval)
			continue
		}

		switch st.Status {
		case "complete":
			if st.Analysis == nil {
				// Completed upstream but payload not visible yet; poll again.
				timer.Reset(c.interval)
				continue
			}
			if c.settle(myGen, JobComplete) && onComplete != nil {
				onComplete(st.Analysis)
			}
			return
		case "error":
			if c.settle(myGen, JobError) && onError != nil {
				onError(fmt.Errorf("deep dive failed: %s", st.Error))
			}
			return
		default:
			timer.Reset(c.interval)
		}
	}
}

// settle moves a still-current job to a terminal state. Returns false when
// the job was superseded or cancelled meanwhile, in which case the caller
// must drop its callbacks.
func (c *DeepDiveController) settle(myGen uint64, state JobState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != myGen {
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = state
	return true
}
