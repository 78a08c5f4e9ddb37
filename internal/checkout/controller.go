package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/payment"
	"github.com/josh-kwaku/estate-checkout/internal/retry"
	"github.com/josh-kwaku/estate-checkout/internal/retry/backoff"
)

type payments interface {
	CreatePayment(ctx context.Context, req domain.PaymentRequest) payment.Result[payment.CreatedPayment]
	GetPaymentDetails(ctx context.Context, reference string) payment.Result[domain.Payment]
}

type Option func(*Controller)

func WithSleeper(s retry.Sleeper) Option {
	return func(c *Controller) { c.sleeper = s }
}

func WithPollProfile(p PollProfile) Option {
	return func(c *Controller) { c.profile = p }
}

// Controller drives one checkout: create the payment, hand back the
// redirect URL, then poll until the payment settles, polling times out or a
// poll fails. Each terminal outcome is delivered to OnOutcome listeners once.
type Controller struct {
	payments payments
	sleeper  retry.Sleeper
	profile  PollProfile

	mu          sync.Mutex
	state       State
	created     *payment.CreatedPayment
	latest      *domain.Payment
	outcome     *Outcome
	active      *Poll
	transitions []func(Transition)
	outcomes    []func(Outcome)
}

func NewController(p payments, opts ...Option) *Controller {
	c := &Controller{
		payments: p,
		sleeper:  retry.DefaultSleeper,
		profile:  StandardPolling,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) OnTransition(fn func(Transition)) {
	c.mu.Lock()
	c.transitions = append(c.transitions, fn)
	c.mu.Unlock()
}

func (c *Controller) OnOutcome(fn func(Outcome)) {
	c.mu.Lock()
	c.outcomes = append(c.outcomes, fn)
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Payment returns the most recent view of the payment, nil before creation.
func (c *Controller) Payment() *domain.Payment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return nil
	}
	p := *c.latest
	return &p
}

func (c *Controller) RedirectURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.created == nil {
		return ""
	}
	return c.created.RedirectURL
}

func (c *Controller) Outcome() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Submit validates req and creates the payment. Invalid requests are
// rejected without a network call and leave the controller idle. A
// cancelled creation also returns to idle.
func (c *Controller) Submit(ctx context.Context, req domain.PaymentRequest) (*payment.CreatedPayment, error) {
	log := logging.FromContext(ctx)

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("Submit: %w", err)
	}
	if err := c.transition(StateIdle, StateCreating); err != nil {
		return nil, fmt.Errorf("Submit: %w", err)
	}

	res := c.payments.CreatePayment(ctx, req)
	switch {
	case res.Cancelled:
		c.move(StateIdle)
		return nil, fmt.Errorf("Submit: %w", domain.ErrCancelled)
	case !res.Success:
		log.Warn("checkout payment creation failed", "status", res.StatusCode, "message", res.Message)
		c.finish(Outcome{State: StateFailed, Message: res.Message})
		return nil, fmt.Errorf("Submit: %s", res.Message)
	}

	created := res.Data
	c.mu.Lock()
	c.created = &created
	p := created.Payment
	c.latest = &p
	c.mu.Unlock()

	c.move(StateAwaitingRedirect)
	log.Info("checkout awaiting redirect", "reference", created.Reference)
	return &created, nil
}

// StartPolling begins watching the created payment. The returned Poll must
// be stopped or allowed to finish; Close stops whichever poll is active.
func (c *Controller) StartPolling(ctx context.Context) (*Poll, error) {
	c.mu.Lock()
	if c.state != StateAwaitingRedirect {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("StartPolling: %w: %s", domain.ErrInvalidState, state)
	}
	reference := c.created.Reference

	pollCtx, cancel := context.WithCancel(ctx)
	poll := &Poll{cancel: cancel, done: make(chan struct{})}
	c.active = poll
	c.state = StatePolling
	transitions := append([]func(Transition){}, c.transitions...)
	c.mu.Unlock()

	for _, fn := range transitions {
		fn(Transition{From: StateAwaitingRedirect, To: StatePolling})
	}
	go c.run(pollCtx, poll, reference)
	return poll, nil
}

// Close tears down any active poll. The controller goes back to awaiting
// redirect without reporting an outcome.
func (c *Controller) Close() {
	c.mu.Lock()
	poll := c.active
	c.mu.Unlock()

	if poll != nil {
		poll.Stop()
	}
}

// Reset returns a finished or abandoned controller to idle so another
// payment can be submitted.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateCreating, StatePolling:
		return fmt.Errorf("Reset: %w: %s", domain.ErrInvalidState, c.state)
	}
	c.state = StateIdle
	c.created = nil
	c.latest = nil
	c.outcome = nil
	return nil
}

func (c *Controller) run(ctx context.Context, poll *Poll, reference string) {
	defer close(poll.done)
	ctx = logging.With(ctx, "reference", reference)
	log := logging.FromContext(ctx)

	var last domain.Payment
	attempts, err := retry.Until(ctx, c.sleeper, backoff.Constant(c.profile.Interval), c.profile.MaxAttempts,
		func(ctx context.Context, attempt uint) (bool, error) {
			res := c.payments.GetPaymentDetails(ctx, reference)
			if res.Cancelled {
				return false, context.Canceled
			}
			if !res.Success {
				return false, errors.New(res.Message)
			}

			last = res.Data
			c.mu.Lock()
			c.latest = &last
			c.mu.Unlock()

			log.Debug("payment polled", "attempt", attempt, "status", last.Status)
			return last.Status.IsTerminal(), nil
		},
	)

	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()

	var out Outcome
	switch {
	case err == nil:
		p := last
		out = Outcome{State: StateSettled, Status: last.Status, Payment: &p, Attempts: attempts}
	case errors.Is(err, retry.ErrExhausted):
		out = Outcome{State: StateTimedOut, Message: MsgStillProcessing, Attempts: attempts}
		if last.Reference != "" {
			p := last
			out.Payment = &p
		}
	case errors.Is(err, context.Canceled):
		log.Info("payment polling stopped", "attempts", attempts)
		c.move(StateAwaitingRedirect)
		return
	default:
		out = Outcome{State: StateFailed, Message: err.Error(), Attempts: attempts}
	}

	log.Info("checkout finished", "state", out.State, "status", out.Status, "attempts", attempts)
	poll.setOutcome(out)
	c.finish(out)
}

// finish records the terminal outcome and notifies listeners. A controller
// that already holds an outcome ignores later calls.
func (c *Controller) finish(out Outcome) {
	c.mu.Lock()
	if c.outcome != nil {
		c.mu.Unlock()
		return
	}
	c.outcome = &out
	from := c.state
	c.state = out.State
	transitions := append([]func(Transition){}, c.transitions...)
	outcomes := append([]func(Outcome){}, c.outcomes...)
	c.mu.Unlock()

	for _, fn := range transitions {
		fn(Transition{From: from, To: out.State})
	}
	for _, fn := range outcomes {
		fn(out)
	}
}

func (c *Controller) transition(from, to State) error {
	c.mu.Lock()
	if c.state != from {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, state, to)
	}
	c.state = to
	transitions := append([]func(Transition){}, c.transitions...)
	c.mu.Unlock()

	for _, fn := range transitions {
		fn(Transition{From: from, To: to})
	}
	return nil
}

func (c *Controller) move(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	transitions := append([]func(Transition){}, c.transitions...)
	c.mu.Unlock()

	for _, fn := range transitions {
		fn(Transition{From: from, To: to})
	}
}

// Poll is the handle for one polling run.
type Poll struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	outcome *Outcome
}

// Stop cancels the poll and waits for it to exit. Safe to call repeatedly
// and after the poll finished.
func (p *Poll) Stop() {
	p.cancel()
	<-p.done
}

func (p *Poll) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the poll exits or ctx is done. ok is false when the poll
// was stopped before reaching an outcome.
func (p *Poll) Wait(ctx context.Context) (Outcome, bool, error) {
	select {
	case <-ctx.Done():
		return Outcome{}, false, ctx.Err()
	case <-p.done:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcome == nil {
		return Outcome{}, false, nil
	}
	return *p.outcome, true, nil
}

func (p *Poll) setOutcome(out Outcome) {
	p.mu.Lock()
	p.outcome = &out
	p.mu.Unlock()
}
