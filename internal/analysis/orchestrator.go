package analysis

import (
	"context"
	"strings"
	"sync"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

type Mode string

const (
	ModeBasic Mode = "basic"
	ModeAI    Mode = "ai"
)

type State string

const (
	StateIdle               State = "idle"
	StateSubmitting         State = "submitting"
	StateBasicPath          State = "basic_path"
	StateAIAwaitingProgress State = "ai_awaiting_progress"
	StateSettled            State = "settled"
	StateDeepDiveRunning    State = "deep_dive_running"
	StateDeepDiveSettled    State = "deep_dive_settled"
	StateError              State = "error"
)

// BasicAnalyzer is the synchronous pattern-matching pass. It returns
// statute/precedent matches and heuristic guesses only; no narrative.
type BasicAnalyzer interface {
	Analyze(ctx context.Context, text string) (*types.AnalysisResult, error)
}

// AIOutcome carries both halves of a successful AI pass so the reconciler
// remains the single merge point.
type AIOutcome struct {
	Regex *types.AnalysisResult
	AI    *types.AnalysisResult
}

// AIAnalyzer runs the regex and LLM passes for one brief, invoking
// onProgress zero or more times before returning.
type AIAnalyzer interface {
	Analyze(ctx context.Context, text string, onProgress func(types.AnalysisProgress)) (*AIOutcome, error)
}

// Hooks let the owning session bind side effects (SSE broadcast, diary
// persistence) without the state machine knowing about them.
type Hooks struct {
	OnProgress func(gen uint64, p types.AnalysisProgress)
	OnSettled  func(state State, result *types.AnalysisResult)
	OnError    func(state State, err error)
}

// Snapshot is a point-in-time copy of the orchestrator's visible state.
type Snapshot struct {
	State       State
	Generation  uint64
	Result      *types.AnalysisResult
	Progress    *types.AnalysisProgress
	Err         error
	DeepDiveErr error
}

// Orchestrator owns the analysis lifecycle for one brief session:
// Idle -> Submitting -> (BasicPath | AiAwaitingProgress) -> Settled
// [-> DeepDiveRunning -> DeepDiveSettled], with Error reachable from the
// mandatory path. Every async completion is tagged with the request
// generation it belongs to; completions from superseded generations are
// dropped silently.
type Orchestrator struct {
	mu sync.Mutex

	log      *logger.Logger
	basic    BasicAnalyzer
	ai       AIAnalyzer
	deepDive *DeepDiveController
	hooks    Hooks

	state       State
	gen         uint64
	cancelRun   context.CancelFunc
	result      *types.AnalysisResult
	progress    *types.AnalysisProgress
	lastErr     error
	deepDiveErr error
}

func NewOrchestrator(log *logger.Logger, basic BasicAnalyzer, ai AIAnalyzer, deepDive *DeepDiveController, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		log:      log.With("component", "Orchestrator"),
		basic:    basic,
		ai:       ai,
		deepDive: deepDive,
		hooks:    hooks,
		state:    StateIdle,
	}
}

// Submit starts a new analysis pass over text. It supersedes any in-flight
// work: stale progress and results from the previous generation will be
// ignored when they arrive. The returned channel closes when this
// generation settles (success or error) or is itself superseded.
func (o *Orchestrator) Submit(ctx context.Context, text string, mode Mode) (uint64, <-chan struct{}, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil, ErrValidation
	}

	o.mu.Lock()
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.gen++
	myGen := o.gen
	o.state = StateSubmitting
	o.result = nil
	o.progress = nil
	o.lastErr = nil
	o.deepDiveErr = nil

	// The run must outlive the submitting request; only CancelActive or a
	// newer Submit stops it.
	runCtx, cancel := context.WithCancel(context.Background())
	o.cancelRun = cancel
	o.mu.Unlock()

	o.deepDive.Cancel()

	done := make(chan struct{})
	go o.run(runCtx, myGen, text, mode, done)
	return myGen, done, nil
}

func (o *Orchestrator) run(ctx context.Context, myGen uint64, text string, mode Mode, done chan struct{}) {
	defer close(done)

	switch mode {
	case ModeAI:
		o.setStateIfCurrent(myGen, StateAIAwaitingProgress)
		outcome, err := o.ai.Analyze(ctx, text, func(p types.AnalysisProgress) {
			o.applyProgress(myGen, p)
		})
		if err != nil {
			o.commitError(myGen, err)
			return
		}
		o.commitResult(myGen, MergeAI(outcome.Regex, outcome.AI))
	default:
		o.setStateIfCurrent(myGen, StateBasicPath)
		res, err := o.basic.Analyze(ctx, text)
		if err != nil {
			o.commitError(myGen, err)
			return
		}
		o.commitResult(myGen, res)
	}
}

// StartDeepDive begins the optional enrichment job. It is a no-op unless
// the session is Settled with a brief id; deep dive is enrichment, not a
// requirement, so ineligibility is not an error.
func (o *Orchestrator) StartDeepDive(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateSettled || o.result == nil || o.result.BriefID == nil {
		o.mu.Unlock()
		return nil
	}
	myGen := o.gen
	briefID := *o.result.BriefID
	caseID := o.result.CaseID
	o.state = StateDeepDiveRunning
	o.deepDiveErr = nil
	o.mu.Unlock()

	return o.deepDive.Trigger(ctx, briefID, caseID,
		func(dd *types.DeepDiveAnalysis) {
			o.commitDeepDive(myGen, dd)
		},
		func(err error) {
			o.failDeepDive(myGen, err)
		},
	)
}

// CancelActive invalidates the current generation and stops all timers.
// Called on teardown and before every new submission. Idempotent.
func (o *Orchestrator) CancelActive() {
	o.mu.Lock()
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.gen++
	switch o.state {
	case StateSubmitting, StateBasicPath, StateAIAwaitingProgress:
		o.state = StateIdle
		o.progress = nil
	case StateDeepDiveRunning:
		// The settled result stays on display.
		o.state = StateSettled
	}
	o.mu.Unlock()

	o.deepDive.Cancel()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State:       o.state,
		Generation:  o.gen,
		Result:      cloneResult(o.result),
		Err:         o.lastErr,
		DeepDiveErr: o.deepDiveErr,
	}
	if o.progress != nil {
		p := *o.progress
		snap.Progress = &p
	}
	return snap
}

func (o *Orchestrator) setStateIfCurrent(myGen uint64, state State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != myGen {
		return
	}
	o.state = state
}

func (o *Orchestrator) applyProgress(myGen uint64, p types.AnalysisProgress) {
	o.mu.Lock()
	if o.gen != myGen {
		// Stale event from a superseded request.
		o.mu.Unlock()
		return
	}
	progress := p
	o.progress = &progress
	o.mu.Unlock()

	if o.hooks.OnProgress != nil {
		o.hooks.OnProgress(myGen, p)
	}
}

func (o *Orchestrator) commitResult(myGen uint64, res *types.AnalysisResult) {
	o.mu.Lock()
	if o.gen != myGen {
		o.mu.Unlock()
		o.log.Debug("discarding stale analysis result", "generation", myGen)
		return
	}
	o.result = res
	o.state = StateSettled
	o.progress = nil
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.mu.Unlock()

	if o.hooks.OnSettled != nil {
		o.hooks.OnSettled(StateSettled, res)
	}
}

func (o *Orchestrator) commitError(myGen uint64, err error) {
	o.mu.Lock()
	if o.gen != myGen {
		o.mu.Unlock()
		o.log.Debug("discarding stale analysis failure", "generation", myGen, "error", err)
		return
	}
	o.state = StateError
	o.lastErr = err
	o.result = nil
	o.progress = nil
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.mu.Unlock()

	if o.hooks.OnError != nil {
		o.hooks.OnError(StateError, err)
	}
}

func (o *Orchestrator) commitDeepDive(myGen uint64, dd *types.DeepDiveAnalysis) {
	o.mu.Lock()
	if o.gen != myGen {
		o.mu.Unlock()
		return
	}
	merged := MergeDeepDive(o.result, dd)
	o.result = merged
	o.state = StateDeepDiveSettled
	o.mu.Unlock()

	if o.hooks.OnSettled != nil {
		o.hooks.OnSettled(StateDeepDiveSettled, merged)
	}
}

// failDeepDive records the failure and returns to Settled: the enrichment
// path never hides or reverts a result already on display, and the caller
// keeps the retry affordance.
func (o *Orchestrator) failDeepDive(myGen uint64, err error) {
	o.mu.Lock()
	if o.gen != myGen {
		o.mu.Unlock()
		return
	}
	o.deepDiveErr = err
	if o.state == StateDeepDiveRunning {
		o.state = StateSettled
	}
	o.mu.Unlock()

	if o.hooks.OnError != nil {
		o.hooks.OnError(StateDeepDiveRunning, err)
	}
}
