package graph

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// CircuitState is the state of a RetryPolicy's circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal state: attempts are let through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects attempts immediately until ResetTimeout elapses.
	CircuitOpen
	// CircuitHalfOpen is entered once ResetTimeout has elapsed. Execute
	// calls are not rejected in this state and their number is not
	// limited; the next call to end in success closes the breaker, and the
	// next to end in failure reopens it.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the optional circuit breaker wrapping a
// RetryPolicy's attempts.
type CircuitBreakerConfig struct {
	// Enabled turns the breaker on. Disabled by default: Execute never
	// fails fast with KindCircuitOpen unless this is true.
	Enabled bool
	// FailureThreshold is the number of Execute calls that must end in
	// failure (consecutively, since the last success) before the breaker
	// trips to CircuitOpen.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays OPEN before Execute calls
	// are let through again in HALF_OPEN.
	ResetTimeout time.Duration
}

// RetryBudgetConfig configures the optional sliding-window retry budget
// shared by every Execute call against the same RetryPolicy.
type RetryBudgetConfig struct {
	// Enabled turns the budget on.
	Enabled bool
	// MaxRetriesPerWindow caps the number of retry attempts (not initial
	// attempts) allowed within WindowDuration, counted across every node
	// sharing this policy.
	MaxRetriesPerWindow int
	// WindowDuration is the sliding window length.
	WindowDuration time.Duration
}

// SleepFunc performs an interruptible delay; it must return ctx.Err() if ctx
// is cancelled before d elapses. Injectable so tests can collapse real time.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicyConfig configures a RetryPolicy.
type RetryPolicyConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first,
	// i.e. total attempts are bounded by 1 + MaxRetries. A node's own
	// Retries field, when positive, overrides this per node.
	MaxRetries int
	// BaseDelay is the backoff base: delay(k) = min(BaseDelay *
	// Multiplier^k, MaxDelay) for the k-th retry (k starting at 0).
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff growth factor. Defaults to 2
	// when <= 0.
	Multiplier float64
	// JitterFraction perturbs each computed delay by up to +/-
	// JitterFraction * delay, clamped to [0, MaxDelay].
	JitterFraction float64
	// Timeout, if > 0, bounds each individual attempt; an attempt that
	// exceeds it fails with KindOperationTimeout and the retry loop stops
	// (the remaining retry budget is not consulted).
	Timeout time.Duration
	// RetryCondition decides whether a failure is retryable. Defaults to
	// DefaultRetryCondition, which treats this package's own timeout and
	// cancellation kinds as retryable (except KindCancelled) and
	// everything else as not.
	RetryCondition func(error) bool
	// CircuitBreaker configures the optional fail-fast breaker.
	CircuitBreaker CircuitBreakerConfig
	// RetryBudget configures the optional shared sliding-window budget.
	RetryBudget RetryBudgetConfig
	// Sleep is the delay primitive used between retries. Defaults to a
	// context-aware real-time sleep; tests inject a fast fake.
	Sleep SleepFunc
}

// DefaultRetryCondition treats node/operation timeouts as retryable and
// everything else, including plain user errors, as not.
func DefaultRetryCondition(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindNodeTimeout || kind == KindOperationTimeout
}

// DefaultRetryPolicyConfig returns a conservative, ready-to-use
// configuration: 3 retries, 100ms base delay doubling up to 5s, 20% jitter,
// no circuit breaker, no retry budget, no per-attempt operation timeout.
func DefaultRetryPolicyConfig() RetryPolicyConfig {
	return RetryPolicyConfig{
		MaxRetries:     3,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.2,
		RetryCondition: DefaultRetryCondition,
		Sleep:          defaultSleep,
	}
}

// Validate reports whether cfg can produce a coherent backoff schedule.
func (c RetryPolicyConfig) Validate() error {
	if c.MaxRetries < 0 {
		return ErrInvalidRetryPolicy
	}
	if c.MaxDelay > 0 && c.BaseDelay > 0 && c.MaxDelay < c.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	if c.JitterFraction < 0 {
		return ErrInvalidRetryPolicy
	}
	if c.CircuitBreaker.Enabled && c.CircuitBreaker.FailureThreshold < 1 {
		return ErrInvalidRetryPolicy
	}
	if c.RetryBudget.Enabled && c.RetryBudget.MaxRetriesPerWindow < 0 {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// RetryMetrics is a point-in-time snapshot of a RetryPolicy's shared state.
type RetryMetrics struct {
	State           CircuitState
	ConsecutiveFail int
	RetriesInWindow int
	// Config is the configuration this policy was built with, so a caller
	// inspecting metrics can see the thresholds/windows they're measured
	// against without holding a separate reference to the policy.
	Config RetryPolicyConfig
}

// RetryPolicy governs retry, backoff, circuit-breaking, and budget
// enforcement for one or more nodes that share it. A single RetryPolicy
// instance may be attached to many nodes; its circuit breaker and retry
// budget state are shared across every Execute call against it, which is
// what lets an engine-wide default policy cap total retries across an
// entire DAG execution.
type RetryPolicy struct {
	cfg RetryPolicyConfig

	mu              sync.Mutex
	state           CircuitState
	consecutiveFail int
	openedAt        time.Time
	retryWindow     []time.Time

	rng *rand.Rand
}

// NewRetryPolicy builds a RetryPolicy from cfg, filling unset fields (zero
// Multiplier, nil RetryCondition, nil Sleep) with their defaults.
func NewRetryPolicy(cfg RetryPolicyConfig) *RetryPolicy {
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if cfg.RetryCondition == nil {
		cfg.RetryCondition = DefaultRetryCondition
	}
	if cfg.Sleep == nil {
		cfg.Sleep = defaultSleep
	}
	return &RetryPolicy{
		cfg:   cfg,
		state: CircuitClosed,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AttemptFunc is a single attempt governed by a RetryPolicy.
type AttemptFunc func(ctx context.Context) (any, error)

// retryObserver receives notifications about retry attempts and circuit
// breaker transitions as Execute runs. It is attached to a context via
// withRetryObserver, not stored on the policy, since a single RetryPolicy
// instance may be shared across many concurrently-running nodes that each
// need their own correlation id and node id on the events they emit.
type retryObserver struct {
	onRetry         func(attempt int, delay time.Duration, err error)
	onCircuitChange func(from, to CircuitState, reason string)
}

type retryObserverKeyType struct{}

var retryObserverKey = retryObserverKeyType{}

func withRetryObserver(ctx context.Context, obs retryObserver) context.Context {
	return context.WithValue(ctx, retryObserverKey, obs)
}

func retryObserverFromContext(ctx context.Context) (retryObserver, bool) {
	obs, ok := ctx.Value(retryObserverKey).(retryObserver)
	return obs, ok
}

// Execute runs f, retrying on retryable failures per the policy's backoff,
// circuit breaker, and retry budget rules. maxRetriesOverride, when > 0,
// replaces the policy's configured MaxRetries for this call only (used to
// apply a node's own Retries field). Returns the successful value, the
// total number of attempts made, and an error whose Kind is one of
// KindCircuitOpen, KindOperationTimeout, KindRetryExhausted,
// KindRetryBudgetExhausted, or the original failure's own kind when the
// retry condition rejects it.
func (p *RetryPolicy) Execute(ctx context.Context, maxRetriesOverride int, f AttemptFunc) (any, int, error) {
	maxRetries := p.cfg.MaxRetries
	if maxRetriesOverride > 0 {
		maxRetries = maxRetriesOverride
	}

	if err := p.checkCircuit(ctx); err != nil {
		return nil, 0, err
	}

	attempts := 0
	var lastErr error
	for {
		attempts++

		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		}
		val, err := f(attemptCtx)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			p.recordSuccess(ctx)
			return val, attempts, nil
		}
		lastErr = err

		if p.cfg.Timeout > 0 && attemptCtx.Err() == context.DeadlineExceeded {
			p.recordFailure(ctx)
			return nil, attempts, &Error{Kind: KindOperationTimeout, Attempts: attempts, Cause: err,
				Message: "attempt exceeded retry policy timeout"}
		}

		if !p.cfg.RetryCondition(err) {
			p.recordFailure(ctx)
			return nil, attempts, err
		}

		if attempts > maxRetries {
			p.recordFailure(ctx)
			return nil, attempts, &Error{Kind: KindRetryExhausted, Attempts: attempts, Cause: lastErr,
				Message: fmt.Sprintf("exhausted %d retries", maxRetries)}
		}

		if p.cfg.RetryBudget.Enabled {
			if !p.tryConsumeBudget() {
				p.recordFailure(ctx)
				return nil, attempts, &Error{Kind: KindRetryBudgetExhausted, Attempts: attempts, Cause: lastErr,
					Message: "shared retry budget exhausted"}
			}
		}

		delay := computeBackoffDelay(attempts-1, p.cfg, p.rng)
		if obs, ok := retryObserverFromContext(ctx); ok && obs.onRetry != nil {
			obs.onRetry(attempts, delay, lastErr)
		}
		if err := p.cfg.Sleep(ctx, delay); err != nil {
			p.recordFailure(ctx)
			return nil, attempts, &Error{Kind: KindCancelled, Attempts: attempts, Cause: err,
				Message: "cancelled while waiting to retry"}
		}
	}
}

// checkCircuit fails fast if the breaker is open and ResetTimeout has not
// yet elapsed; otherwise it transitions an expired OPEN breaker to
// HALF_OPEN and lets the caller proceed.
func (p *RetryPolicy) checkCircuit(ctx context.Context) error {
	if !p.cfg.CircuitBreaker.Enabled {
		return nil
	}
	p.mu.Lock()
	from := p.state
	var transitioned bool
	switch p.state {
	case CircuitOpen:
		if time.Since(p.openedAt) < p.cfg.CircuitBreaker.ResetTimeout {
			p.mu.Unlock()
			return &Error{Kind: KindCircuitOpen, Message: "circuit breaker open"}
		}
		p.state = CircuitHalfOpen
		transitioned = true
	}
	p.mu.Unlock()

	if transitioned {
		p.notifyCircuitChange(ctx, from, CircuitHalfOpen, "reset-timeout")
	}
	return nil
}

func (p *RetryPolicy) recordSuccess(ctx context.Context) {
	if !p.cfg.CircuitBreaker.Enabled {
		return
	}
	p.mu.Lock()
	// Success while CLOSED does not alter the failure counter; only a
	// HALF_OPEN trial success resets the breaker.
	from := p.state
	transitioned := p.state == CircuitHalfOpen
	if transitioned {
		p.state = CircuitClosed
		p.consecutiveFail = 0
	}
	p.mu.Unlock()

	if transitioned {
		p.notifyCircuitChange(ctx, from, CircuitClosed, "half-open-success")
	}
}

func (p *RetryPolicy) recordFailure(ctx context.Context) {
	if !p.cfg.CircuitBreaker.Enabled {
		return
	}
	p.mu.Lock()
	p.consecutiveFail++
	from := p.state
	wasHalfOpen := p.state == CircuitHalfOpen
	transitioned := wasHalfOpen || p.consecutiveFail >= p.cfg.CircuitBreaker.FailureThreshold
	if transitioned {
		p.state = CircuitOpen
		p.openedAt = time.Now()
	}
	p.mu.Unlock()

	if transitioned && from != CircuitOpen {
		reason := "threshold"
		if wasHalfOpen {
			reason = "half-open-failure"
		}
		p.notifyCircuitChange(ctx, from, CircuitOpen, reason)
	}
}

func (p *RetryPolicy) notifyCircuitChange(ctx context.Context, from, to CircuitState, reason string) {
	if from == to {
		return
	}
	if obs, ok := retryObserverFromContext(ctx); ok && obs.onCircuitChange != nil {
		obs.onCircuitChange(from, to, reason)
	}
}

// tryConsumeBudget trims expired entries from the sliding window and, if
// capacity remains, records a new retry timestamp and returns true.
func (p *RetryPolicy) tryConsumeBudget() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-p.cfg.RetryBudget.WindowDuration)
	kept := p.retryWindow[:0]
	for _, ts := range p.retryWindow {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	p.retryWindow = kept

	if len(p.retryWindow) >= p.cfg.RetryBudget.MaxRetriesPerWindow {
		return false
	}
	p.retryWindow = append(p.retryWindow, now)
	return true
}

// IsCircuitOpen reports whether the breaker is currently rejecting
// attempts.
func (p *RetryPolicy) IsCircuitOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == CircuitOpen
}

// Metrics returns a snapshot of the policy's shared circuit/budget state.
func (p *RetryPolicy) Metrics() RetryMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return RetryMetrics{
		State:           p.state,
		ConsecutiveFail: p.consecutiveFail,
		RetriesInWindow: len(p.retryWindow),
		Config:          p.cfg,
	}
}

// Reset clears circuit breaker and retry budget state, returning the
// policy to CLOSED with an empty window. Intended for tests.
func (p *RetryPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = CircuitClosed
	p.consecutiveFail = 0
	p.retryWindow = nil
}

// computeBackoffDelay calculates the delay before the (attempt+1)-th retry,
// using exponential backoff with multiplicative jitter:
//
//	delay = min(baseDelay * multiplier^attempt, maxDelay)
//	delay = delay +/- (jitterFraction * delay), clamped to [0, maxDelay]
func computeBackoffDelay(attempt int, cfg RetryPolicyConfig, rng *rand.Rand) time.Duration {
	raw := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if cfg.MaxDelay > 0 && raw > float64(cfg.MaxDelay) {
		raw = float64(cfg.MaxDelay)
	}

	if cfg.JitterFraction > 0 && rng != nil {
		jitterRange := raw * cfg.JitterFraction
		raw += (rng.Float64()*2 - 1) * jitterRange
	}
	if raw < 0 {
		raw = 0
	}
	if cfg.MaxDelay > 0 && raw > float64(cfg.MaxDelay) {
		raw = float64(cfg.MaxDelay)
	}
	return time.Duration(raw)
}
