package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

type statusReply struct {
	status *types.DeepDiveStatus
	err    error
}

// fakeDeepDiveAPI walks through scripted status replies; the last one
// repeats. Tracks how many status calls overlap.
type fakeDeepDiveAPI struct {
	mu         sync.Mutex
	triggerErr error
	replies    []statusReply
	next       int

	statusDelay time.Duration
	inFlight    int32
	maxInFlight int32
	statusCalls int32
}

func (f *fakeDeepDiveAPI) Trigger(ctx context.Context, briefID uuid.UUID, caseID *uuid.UUID) error {
	return f.triggerErr
}

func (f *fakeDeepDiveAPI) Status(ctx context.Context, briefID uuid.UUID) (*types.DeepDiveStatus, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}
	atomic.AddInt32(&f.statusCalls, 1)

	if f.statusDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.statusDelay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.replies[f.next]
	if f.next < len(f.replies)-1 {
		f.next++
	}
	return r.status, r.err
}

func running() statusReply {
	return statusReply{status: &types.DeepDiveStatus{Status: "running", Pass: "issues", Progress: 10}}
}

func completeWith(a *types.DeepDiveAnalysis) statusReply {
	return statusReply{status: &types.DeepDiveStatus{Status: "complete", Analysis: a}}
}

func newTestController(api DeepDiveAPI, interval time.Duration) *DeepDiveController {
	return NewDeepDiveController(logger.NewNop(), api, interval)
}

func TestDeepDiveController_TriggerWhileRunningRejected(t *testing.T) {
	api := &fakeDeepDiveAPI{replies: []statusReply{running()}}
	c := newTestController(api, 10*time.Millisecond)

	if err := c.Trigger(context.Background(), uuid.New(), nil, nil, nil); err != nil {
		t.Fatalf("first trigger failed: %v", err)
	}
	err := c.Trigger(context.Background(), uuid.New(), nil, nil, nil)
	if !errors.Is(err, ErrDeepDiveActive) {
		t.Fatalf("expected ErrDeepDiveActive, got %v", err)
	}
	c.Cancel()
}

func TestDeepDiveController_AtMostOneStatusCallInFlight(t *testing.T) {
	api := &fakeDeepDiveAPI{
		replies:     []statusReply{running()},
		statusDelay: 30 * time.Millisecond, // slower than the poll interval
	}
	c := newTestController(api, 5*time.Millisecond)

	if err := c.Trigger(context.Background(), uuid.New(), nil, nil, nil); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	c.Cancel()

	if calls := atomic.LoadInt32(&api.statusCalls); calls < 2 {
		t.Fatalf("expected multiple polls, got %d", calls)
	}
	if max := atomic.LoadInt32(&api.maxInFlight); max != 1 {
		t.Fatalf("poll loop overlapped: max in-flight %d", max)
	}
}

func TestDeepDiveController_CompleteDeliversPayloadOnce(t *testing.T) {
	payload := &types.DeepDiveAnalysis{
		Narrative: types.NarrativeAnalysis{Summary: "deep summary"},
	}
	api := &fakeDeepDiveAPI{replies: []statusReply{running(), completeWith(payload)}}
	c := newTestController(api, 5*time.Millisecond)

	got := make(chan *types.DeepDiveAnalysis, 2)
	err := c.Trigger(context.Background(), uuid.New(), nil,
		func(a *types.DeepDiveAnalysis) { got <- a },
		func(err error) { t.Errorf("unexpected onError: %v", err) },
	)
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	select {
	case a := <-got:
		if a.Narrative.Summary != "deep summary" {
			t.Fatalf("wrong payload: %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("onComplete never fired")
	}
	if st := c.State(); st != JobComplete {
		t.Fatalf("expected JobComplete, got %q", st)
	}

	select {
	case <-got:
		t.Fatalf("onComplete fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeepDiveController_CompleteWithoutPayloadKeepsPolling(t *testing.T) {
	payload := &types.DeepDiveAnalysis{Narrative: types.NarrativeAnalysis{Summary: "late payload"}}
	api := &fakeDeepDiveAPI{replies: []statusReply{completeWith(nil), completeWith(payload)}}
	c := newTestController(api, 5*time.Millisecond)

	got := make(chan *types.DeepDiveAnalysis, 1)
	if err := c.Trigger(context.Background(), uuid.New(), nil,
		func(a *types.DeepDiveAnalysis) { got <- a }, nil); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	select {
	case a := <-got:
		if a.Narrative.Summary != "late payload" {
			t.Fatalf("wrong payload: %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("controller settled without the payload or never settled")
	}
	if calls := atomic.LoadInt32(&api.statusCalls); calls < 2 {
		t.Fatalf("expected a re-poll after the payloadless complete, got %d calls", calls)
	}
}

func TestDeepDiveController_TransientStatusErrorDoesNotKillJob(t *testing.T) {
	payload := &types.DeepDiveAnalysis{Narrative: types.NarrativeAnalysis{Summary: "ok"}}
	api := &fakeDeepDiveAPI{replies: []statusReply{
		{err: errors.New("network blip")},
		completeWith(payload),
	}}
	c := newTestController(api, 5*time.Millisecond)

	got := make(chan struct{}, 1)
	if err := c.Trigger(context.Background(), uuid.New(), nil,
		func(*types.DeepDiveAnalysis) { got <- struct{}{} },
		func(err error) { t.Errorf("transient poll error surfaced: %v", err) },
	); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not survive the transient poll error")
	}
}

func TestDeepDiveController_TriggerFailureSettlesError(t *testing.T) {
	api := &fakeDeepDiveAPI{
		triggerErr: errors.New("entitlement denied"),
		replies:    []statusReply{running()},
	}
	c := newTestController(api, 5*time.Millisecond)

	var gotErr error
	err := c.Trigger(context.Background(), uuid.New(), nil, nil, func(e error) { gotErr = e })
	if err == nil {
		t.Fatalf("expected trigger error")
	}
	if gotErr == nil {
		t.Fatalf("onError not invoked")
	}
	if st := c.State(); st != JobError {
		t.Fatalf("expected JobError, got %q", st)
	}
	if calls := atomic.LoadInt32(&api.statusCalls); calls != 0 {
		t.Fatalf("no poll loop should start after a failed trigger, got %d calls", calls)
	}
}

func TestDeepDiveController_ErrorStatusReportsUpstreamMessage(t *testing.T) {
	api := &fakeDeepDiveAPI{replies: []statusReply{
		{status: &types.DeepDiveStatus{Status: "error", Error: "citation service unavailable"}},
	}}
	c := newTestController(api, 5*time.Millisecond)

	errCh := make(chan error, 1)
	if err := c.Trigger(context.Background(), uuid.New(), nil, nil,
		func(e error) { errCh <- e }); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	select {
	case e := <-errCh:
		if e == nil || e.Error() != "deep dive failed: citation service unavailable" {
			t.Fatalf("unexpected error: %v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("onError never fired")
	}
	if st := c.State(); st != JobError {
		t.Fatalf("expected JobError, got %q", st)
	}
}

func TestDeepDiveController_CancelIsIdempotentAndDropsCallbacks(t *testing.T) {
	api := &fakeDeepDiveAPI{
		replies:     []statusReply{completeWith(&types.DeepDiveAnalysis{})},
		statusDelay: 50 * time.Millisecond,
	}
	c := newTestController(api, 5*time.Millisecond)

	completed := make(chan struct{}, 1)
	if err := c.Trigger(context.Background(), uuid.New(), nil,
		func(*types.DeepDiveAnalysis) { completed <- struct{}{} }, nil); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	c.Cancel()
	c.Cancel()
	if st := c.State(); st != JobIdle {
		t.Fatalf("expected JobIdle after cancel, got %q", st)
	}

	select {
	case <-completed:
		t.Fatalf("callback fired after cancel")
	case <-time.After(150 * time.Millisecond):
	}

	// A fresh job can start after cancel.
	if err := c.Trigger(context.Background(), uuid.New(), nil, nil, nil); err != nil {
		t.Fatalf("retrigger after cancel failed: %v", err)
	}
	c.Cancel()
}
