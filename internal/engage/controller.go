package engage

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"kindred/internal/ai"
	"kindred/internal/cyclelog"
	"kindred/internal/model"
)

// State is the controller's coarse phase, exposed on the status surface.
type State string

const (
	StateIdle              State = "IDLE"
	StateScanning          State = "SCANNING"
	StatePolicyEvaluation  State = "POLICY_EVALUATION"
	StateDispatchScheduled State = "DISPATCH_SCHEDULED"
	StateExecuting         State = "EXECUTING"
)

// Timing holds the naturalistic dispatch-delay windows. A user's first-ever
// response gets the wide window so it feels organic; follow-ups in an active
// conversation arrive sooner. Testing mode collapses everything.
type Timing struct {
	FirstDelayMin   time.Duration
	FirstDelayMax   time.Duration
	FollowDelayMin  time.Duration
	FollowDelayMax  time.Duration
	TestingDelayMax time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		FirstDelayMin:   5 * time.Minute,
		FirstDelayMax:   time.Hour,
		FollowDelayMin:  time.Minute,
		FollowDelayMax:  10 * time.Minute,
		TestingDelayMax: 2 * time.Second,
	}
}

// ControllerConfig is the process-scoped configuration object passed in at
// construction; nothing here is ambient global state.
type ControllerConfig struct {
	MainInterval      time.Duration
	ImmediateInterval time.Duration
	AnalyticsInterval time.Duration
	CycleTimeout      time.Duration

	Scan                ScanConfig
	BombardmentCooldown time.Duration
	MaxPersonasPerEntry int
	GenTimeout          time.Duration
	Timing              Timing

	TestingMode bool
	// Seed for the roll/delay rng; zero means time-seeded.
	Seed int64
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		MainInterval:        30 * time.Minute,
		ImmediateInterval:   2 * time.Minute,
		AnalyticsInterval:   2 * time.Hour,
		CycleTimeout:        3 * time.Minute,
		Scan:                DefaultScanConfig(),
		BombardmentCooldown: 30 * time.Minute,
		MaxPersonasPerEntry: 2,
		GenTimeout:          25 * time.Second,
		Timing:              DefaultTiming(),
	}
}

// Controller drives the engagement loop: scan, evaluate, guard, schedule,
// execute. One Controller per process; Run starts the periodic cadences.
type Controller struct {
	cfg     ControllerConfig
	scanner *Scanner
	guard   *Guard
	exec    *Executor

	insights Insights
	clog     *cyclelog.Log

	mu       sync.Mutex
	state    State
	testing  bool
	rng      *rand.Rand
	rollFn   func(p float64) bool // test hook; nil means rng-backed Roll
	inFlight map[model.CycleKind]bool
	runCtx   context.Context // set by Run; bounds delayed dispatch execution

	executing int // dispatches currently inside the executor

	analyticsMu   sync.Mutex
	insightsToday int
}

// NewController wires the loop. Fails fast if the persona affinity table is
// inconsistent with the closed persona set.
func NewController(cfg ControllerConfig, journal Journal, insights Insights, profiles Profiles, provider ai.Provider, clog *cyclelog.Log) (*Controller, error) {
	if err := ValidateAffinities(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Controller{
		cfg:      cfg,
		scanner:  NewScanner(journal, insights, profiles, cfg.Scan),
		guard:    NewGuard(insights, cfg.BombardmentCooldown, cfg.MaxPersonasPerEntry),
		exec:     NewExecutor(insights, profiles, provider, cfg.GenTimeout),
		insights: insights,
		clog:     clog,
		state:    StateIdle,
		testing:  cfg.TestingMode,
		rng:      rand.New(rand.NewSource(seed)),
		inFlight: make(map[model.CycleKind]bool),
	}, nil
}

// Run starts the three periodic cadences and blocks until ctx is done.
// A failed cycle never stops the loop; the next tick always fires.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	mainT := time.NewTicker(c.cfg.MainInterval)
	immT := time.NewTicker(c.cfg.ImmediateInterval)
	anaT := time.NewTicker(c.cfg.AnalyticsInterval)
	defer mainT.Stop()
	defer immT.Stop()
	defer anaT.Stop()

	log.Printf("[ENGAGE] controller running main=%s immediate=%s analytics=%s",
		c.cfg.MainInterval, c.cfg.ImmediateInterval, c.cfg.AnalyticsInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[ENGAGE] controller stopped")
			return
		case <-immT.C:
			c.spawnCycle(ctx, model.CycleImmediate)
		case <-mainT.C:
			c.spawnCycle(ctx, model.CycleMain)
		case <-anaT.C:
			c.spawnCycle(ctx, model.CycleAnalytics)
		}
	}
}

// spawnCycle runs one cycle in its own goroutine unless the same kind is
// still in flight (cycles of one kind never overlap themselves).
func (c *Controller) spawnCycle(ctx context.Context, kind model.CycleKind) {
	c.mu.Lock()
	if c.inFlight[kind] {
		c.mu.Unlock()
		log.Printf("[ENGAGE] cycle kind=%s still in flight, skipping tick", kind)
		return
	}
	c.inFlight[kind] = true
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.inFlight, kind)
			c.mu.Unlock()
		}()
		c.runCycle(ctx, kind, false)
	}()
}

// TriggerCycle forces one out-of-band cycle and waits for its dispatches
// (bounded by the cycle timeout). It goes through the same policy engine and
// guard as a scheduled cycle; safety invariants cannot be bypassed here.
func (c *Controller) TriggerCycle(ctx context.Context) model.CycleRecord {
	return c.runCycle(ctx, model.CycleManual, true)
}

// runCycle executes one full cycle. Panics are contained: a bad cycle logs a
// partial record and the controller carries on.
func (c *Controller) runCycle(baseCtx context.Context, kind model.CycleKind, wait bool) (rec model.CycleRecord) {
	start := time.Now()
	testing := c.TestingMode() // read once; consistent within the cycle
	handle := c.clog.Append(model.CycleRecord{Kind: kind, StartedAt: start})

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ENGAGE] cycle kind=%s panic: %v", kind, r)
			handle.Finalize(model.CycleRecord{EndedAt: time.Now(), Partial: true})
			rec = handle.Record()
		}
		c.setState(StateIdle)
	}()

	ctx, cancel := context.WithTimeout(baseCtx, c.cfg.CycleTimeout)
	defer cancel()

	if kind == model.CycleAnalytics {
		c.runAnalytics(ctx)
		handle.Finalize(model.CycleRecord{EndedAt: time.Now()})
		return handle.Record()
	}

	c.setState(StateScanning)
	candidates, err := c.scanner.Scan(ctx, kind, start)
	if err != nil {
		log.Printf("[ENGAGE] cycle kind=%s scan failed: %v", kind, err)
		handle.MarkError()
		handle.Finalize(model.CycleRecord{EndedAt: time.Now(), Partial: true})
		return handle.Record()
	}

	c.setState(StatePolicyEvaluation)
	var rolled []Dispatch
	for _, cand := range candidates {
		rctx := ContextReaction
		if cand.ReplyContext {
			rctx = ContextReply
		}
		for _, p := range PersonasToRoll(cand.Profile.Tier, cand.Eligible) {
			prob := ShouldRespond(cand.Profile.Tier, cand.Profile.Level, cand.DailyOrdinal, rctx)
			if c.roll(prob) {
				rolled = append(rolled, Dispatch{Candidate: cand, Persona: p})
			}
		}
	}

	accepted := c.guard.Filter(ctx, rolled, testing, start)

	c.setState(StateDispatchScheduled)
	// The delay window may outlive both the cycle and, for manual triggers,
	// the caller's request context. Execution is bounded by the controller
	// lifecycle instead; only process shutdown lets a scheduled window lapse.
	execCtx := c.execContext(baseCtx)
	var wg sync.WaitGroup
	for _, d := range accepted {
		delay := c.dispatchDelay(d.Candidate.Profile.LastResponseAt.IsZero(), testing)
		log.Printf("[ENGAGE] scheduled entry=%s persona=%s delay=%s", d.Candidate.Entry.ID, d.Persona, delay)
		wg.Add(1)
		go func(d Dispatch, delay time.Duration) {
			defer wg.Done()
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-execCtx.Done():
				return
			case <-timer.C:
			}
			c.runDispatch(execCtx, handle, d)
		}(d, delay)
	}

	if wait {
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-ctx.Done():
			log.Printf("[ENGAGE] cycle kind=%s ended before all dispatches completed", kind)
		}
	}

	end := model.CycleRecord{EndedAt: time.Now(), CandidatesFound: len(candidates)}
	if ctx.Err() != nil {
		end.Partial = true
	}
	handle.Finalize(end)

	out := handle.Record()
	log.Printf("[ENGAGE] cycle kind=%s done found=%d scheduled=%d took=%s",
		kind, len(candidates), len(accepted), time.Since(start))
	return out
}

func (c *Controller) runDispatch(ctx context.Context, handle *cyclelog.Handle, d Dispatch) {
	c.mu.Lock()
	c.executing++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.executing--
		c.mu.Unlock()
	}()

	_, err := c.exec.Execute(ctx, d)
	switch {
	case err == nil:
		handle.MarkExecuted()
	case errors.Is(err, ErrDropped):
		log.Printf("[ENGAGE] dispatch dropped entry=%s persona=%s (already answered)", d.Candidate.Entry.ID, d.Persona)
	default:
		log.Printf("[ENGAGE] dispatch failed entry=%s persona=%s: %v", d.Candidate.Entry.ID, d.Persona, err)
		handle.MarkError()
	}
}

// runAnalytics rolls up today's output for the status surface. No dispatch.
func (c *Controller) runAnalytics(ctx context.Context) {
	_, dayStart := localDay(time.Now())
	n, err := c.insights.InsightsSince(ctx, dayStart)
	if err != nil {
		log.Printf("[ENGAGE] analytics rollup failed: %v", err)
		return
	}
	c.analyticsMu.Lock()
	c.insightsToday = n
	c.analyticsMu.Unlock()
	cycles, executed, errs := c.clog.Summary()
	log.Printf("[ENGAGE] analytics insights_today=%d window_cycles=%d executed=%d errors=%d", n, cycles, executed, errs)
}

// execContext returns the context that bounds delayed dispatch execution:
// the Run loop's context once the loop is up, otherwise the trigger context
// stripped of its cancellation (a finished HTTP request must not abort
// dispatches it scheduled).
func (c *Controller) execContext(baseCtx context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runCtx != nil {
		return c.runCtx
	}
	return context.WithoutCancel(baseCtx)
}

func (c *Controller) dispatchDelay(firstEver, testing bool) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if testing {
		if c.cfg.Timing.TestingDelayMax <= 0 {
			return 10 * time.Millisecond
		}
		return 10*time.Millisecond + time.Duration(c.rng.Int63n(int64(c.cfg.Timing.TestingDelayMax)))
	}
	min, max := c.cfg.Timing.FollowDelayMin, c.cfg.Timing.FollowDelayMax
	if firstEver {
		min, max = c.cfg.Timing.FirstDelayMin, c.cfg.Timing.FirstDelayMax
	}
	if max <= min {
		return min
	}
	return min + time.Duration(c.rng.Int63n(int64(max-min)))
}

func (c *Controller) roll(p float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rollFn != nil {
		return c.rollFn(p)
	}
	return Roll(p, c.rng)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// CurrentState reports EXECUTING whenever any dispatch is inside the
// executor, regardless of the cycle phase.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.executing > 0 {
		return StateExecuting
	}
	return c.state
}

// TestingMode reads the override toggle.
func (c *Controller) TestingMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.testing
}

// SetTestingMode flips the override toggle. Takes effect from the next cycle
// start; in-flight cycles keep the value they read.
func (c *Controller) SetTestingMode(on bool) {
	c.mu.Lock()
	c.testing = on
	c.mu.Unlock()
	log.Printf("[ENGAGE] testing mode = %v", on)
}

// Status is the health snapshot served by the admin surface.
type Status struct {
	State         State               `json:"state"`
	TestingMode   bool                `json:"testing_mode"`
	InsightsToday int                 `json:"insights_today"`
	WindowCycles  int                 `json:"window_cycles"`
	WindowExec    int                 `json:"window_executed"`
	WindowErrors  int                 `json:"window_errors"`
	RecentCycles  []model.CycleRecord `json:"recent_cycles"`
}

func (c *Controller) Status() Status {
	cycles, executed, errs := c.clog.Summary()
	c.analyticsMu.Lock()
	today := c.insightsToday
	c.analyticsMu.Unlock()
	return Status{
		State:         c.CurrentState(),
		TestingMode:   c.TestingMode(),
		InsightsToday: today,
		WindowCycles:  cycles,
		WindowExec:    executed,
		WindowErrors:  errs,
		RecentCycles:  c.clog.Recent(10),
	}
}
