// Package breaker guards repeated Child.Open claim attempts against a
// chronically-faulting child with a per-child circuit breaker, so a
// hanging or consistently failing block-device claim doesn't get
// re-attempted on every orchestrator retry.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"k8s.io/klog/v2"
)

const (
	// DefaultConsecutiveFailures is the number of consecutive open() claim
	// failures before the breaker trips for a child.
	DefaultConsecutiveFailures = 3

	// DefaultTimeout is how long the breaker stays open before allowing a
	// single probe attempt (half-open).
	DefaultTimeout = 5 * time.Minute

	// DefaultInterval is the cyclic period in the closed state after which
	// failure counts are cleared.
	DefaultInterval = 1 * time.Minute
)

// ErrBreakerOpen is returned when a child's circuit breaker has tripped and
// is refusing further claim attempts.
var ErrBreakerOpen = errors.New("child circuit breaker is open")

// ChildBreaker manages one gobreaker.CircuitBreaker per child name,
// guarding the block-device claim step of Child.Open.
type ChildBreaker struct {
	breakers map[string]*gobreaker.CircuitBreaker
	mu       sync.RWMutex
}

// NewChildBreaker creates an empty per-child breaker registry.
func NewChildBreaker() *ChildBreaker {
	return &ChildBreaker{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (cb *ChildBreaker) getBreaker(childName string) *gobreaker.CircuitBreaker {
	cb.mu.RLock()
	b, ok := cb.breakers[childName]
	cb.mu.RUnlock()
	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if b, ok := cb.breakers[childName]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        childName,
		MaxRequests: 1,
		Interval:    DefaultInterval,
		Timeout:     DefaultTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= DefaultConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			klog.Infof("child breaker %s: %s -> %s", name, from, to)
		},
	}

	b = gobreaker.NewCircuitBreaker(settings)
	cb.breakers[childName] = b
	return b
}

// Guard runs fn under the per-child breaker. If the breaker is open or in
// a saturated half-open state, fn is not invoked and ErrBreakerOpen is
// returned instead — the caller (Child.Open) must not mutate state based on
// this error, since it means the claim was never attempted.
func (cb *ChildBreaker) Guard(childName string, fn func() error) error {
	b := cb.getBreaker(childName)
	_, err := b.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	return err
}

// Reset clears the breaker for a child, e.g. after an operator intervenes.
func (cb *ChildBreaker) Reset(childName string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if _, ok := cb.breakers[childName]; ok {
		delete(cb.breakers, childName)
		return true
	}
	return false
}

// State returns the breaker's current state name for a child, or "closed"
// if no breaker has been created for it yet.
func (cb *ChildBreaker) State(childName string) string {
	cb.mu.RLock()
	b, ok := cb.breakers[childName]
	cb.mu.RUnlock()
	if !ok {
		return "closed"
	}
	return b.State().String()
}
