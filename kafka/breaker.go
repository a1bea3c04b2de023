package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/logger"
)

// ErrCircuitOpen is returned while the breaker rejects publishes
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// halfOpenSuccesses is how many trial publishes close the circuit again
const halfOpenSuccesses = 3

// EventPublisher is the downstream a breaker guards
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// BreakerPublisher stops calling a failing broker for a cool-down period.
// Committed notifications are delivered while the registry holds its lock, so
// an unreachable broker must not stall every operation on producer retries.
type BreakerPublisher struct {
	next        EventPublisher
	maxFailures int
	timeout     time.Duration
	now         func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failures        int
	successCount    int
	lastStateChange time.Time
}

// NewBreakerPublisher opens after maxFailures consecutive failures and probes
// again after timeout
func NewBreakerPublisher(next EventPublisher, maxFailures int, timeout time.Duration) *BreakerPublisher {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &BreakerPublisher{
		next:            next,
		maxFailures:     maxFailures,
		timeout:         timeout,
		now:             time.Now,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// Publish forwards event unless the circuit is open
func (b *BreakerPublisher) Publish(ctx context.Context, event domain.Event) error {
	b.mu.Lock()
	if b.state == StateOpen && b.now().Sub(b.lastStateChange) > b.timeout {
		b.transition(ctx, StateHalfOpen)
	}
	state := b.state
	b.mu.Unlock()

	if state == StateOpen {
		return fmt.Errorf("%w: dropping %s for index %d", ErrCircuitOpen, event.EventType(), event.ProductIndex())
	}

	err := b.next.Publish(ctx, event)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(ctx)
	} else {
		b.onSuccess(ctx)
	}
	return err
}

// State returns the current circuit state
func (b *BreakerPublisher) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BreakerPublisher) onFailure(ctx context.Context) {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.transition(ctx, StateOpen)
	}
}

func (b *BreakerPublisher) onSuccess(ctx context.Context) {
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= halfOpenSuccesses {
			b.transition(ctx, StateClosed)
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *BreakerPublisher) transition(ctx context.Context, to CircuitState) {
	from := b.state
	b.state = to
	b.lastStateChange = b.now()
	b.successCount = 0
	if to == StateClosed {
		b.failures = 0
	}

	log := logger.Info
	if to == StateOpen {
		log = logger.Error
	}
	log(ctx).
		Str("from", string(from)).
		Str("to", string(to)).
		Int("failures", b.failures).
		Int("threshold", b.maxFailures).
		Msg("Publisher circuit breaker changed state")
}
