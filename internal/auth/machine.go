package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/banners/internal/logger"
)

const (
	// DefaultCheckTimeout bounds one full policy evaluation.
	DefaultCheckTimeout = 10 * time.Second

	// ReasonCheckFailed is shown when a policy could not be evaluated.
	ReasonCheckFailed = "auth check failed"
)

// Machine drives the Session from identity provider change events.
//
// Events are queued and handled one at a time by the loop Start runs, so a new identity is
// only looked at once the previous evaluation has been accepted or denied.
// Provider callbacks only enqueue, which lets the machine call SignOut from
// inside an evaluation without re-entering itself.
type Machine struct {
	provider     Provider
	policies     []Policy
	logger       logger.Logger
	checkTimeout time.Duration

	mu        sync.Mutex
	session   Session
	queue     []*Identity
	pending   int           // queued or in-flight events
	idle      chan struct{} // closed while pending == 0
	wake      chan struct{}
	observers []func(Session)

	unsubscribe func()
	stopCh      chan struct{}
	stopped     chan struct{}
}

// NewMachine creates a machine in the SignedOut state. Call Start to run it.
func NewMachine(provider Provider, policies []Policy, log logger.Logger, checkTimeout time.Duration) *Machine {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Machine{
		provider:     provider,
		policies:     policies,
		logger:       log,
		checkTimeout: checkTimeout,
		session:      signedOut(""),
		idle:         closedChan(),
		wake:         make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Observe registers fn to receive every new session. fn runs on the
// machine goroutine and must not block.
func (m *Machine) Observe(fn func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Session returns the current session snapshot.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Start subscribes to the provider and handles events in the background
// until Stop is called or ctx is done. The subscription is in place when
// Start returns.
func (m *Machine) Start(ctx context.Context) error {
	m.unsubscribe = m.provider.Subscribe(m.notify)

	go func() {
		defer close(m.stopped)
		for {
			id, ok := m.next()
			if !ok {
				select {
				case <-m.wake:
					continue
				case <-m.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
			m.handle(ctx, id)
			m.done()
		}
	}()

	m.logger.Info("auth state machine started", logger.Int("policies", len(m.policies)))
	return nil
}

// Stop unsubscribes from the provider and waits for the loop to exit.
func (m *Machine) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	close(m.stopCh)
	<-m.stopped
}

// Settle blocks until the queue is drained and no evaluation is running,
// including events queued by the evaluations themselves (the sign-out that
// follows a denial).
func (m *Machine) Settle(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify is the provider callback. It never blocks.
func (m *Machine) notify(id *Identity) {
	if id != nil {
		cp := *id
		id = &cp
	}
	m.mu.Lock()
	m.queue = append(m.queue, id)
	if m.pending == 0 {
		m.idle = make(chan struct{})
	}
	m.pending++
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Machine) next() (*Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	id := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return id, true
}

func (m *Machine) done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	if m.pending == 0 {
		close(m.idle)
	}
}

func (m *Machine) set(s Session) {
	m.mu.Lock()
	prev := m.session.State
	m.session = s
	observers := m.observers
	m.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}

	if prev != s.State {
		m.logger.Debug("session transition",
			logger.String("from", prev.String()),
			logger.String("to", s.State.String()))
	}
}

func (m *Machine) handle(ctx context.Context, ev *Identity) {
	if ev == nil {
		// The forced sign-out after a denial keeps its reason visible.
		reason := ""
		if prev := m.Session(); prev.State == StateDenied {
			reason = prev.DenialReason
		}
		m.set(signedOut(reason))
		return
	}

	id := *ev
	m.set(pending(id))

	decision, err := m.evaluate(ctx, id)
	if err != nil {
		m.logger.Warn("auth check failed",
			logger.String("subject", id.Subject),
			logger.Error(err))
		decision = deny(ReasonCheckFailed)
	}

	if decision.Allowed {
		m.set(authorized(id))
		m.logger.Info("session authorized", logger.String("subject", id.Subject))
		return
	}

	m.set(denied(id, decision.Reason))
	m.logger.Warn("session denied",
		logger.String("subject", id.Subject),
		logger.String("reason", decision.Reason))

	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Error("forced sign-out failed",
			logger.String("subject", id.Subject),
			logger.Error(err))
	}
}

// evaluate runs every policy, even after a denial, and reports the reason
// of the first one that said no.
func (m *Machine) evaluate(ctx context.Context, id Identity) (Decision, error) {
	checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
	defer cancel()

	var (
		reason string
		errs   []error
	)
	for _, p := range m.policies {
		d, err := evaluatePolicy(checkCtx, p, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if !d.Allowed && reason == "" {
			reason = d.Reason
			if reason == "" {
				reason = p.Name() + " check failed"
			}
		}
	}

	if len(errs) > 0 {
		return Decision{}, errors.Join(errs...)
	}
	if reason != "" {
		return deny(reason), nil
	}
	return allow(), nil
}

func evaluatePolicy(ctx context.Context, p Policy, id Identity) (d Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Evaluate(ctx, id)
}
