package checkout

import (
	"time"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
)

type State string

const (
	StateIdle             State = "idle"
	StateCreating         State = "creating"
	StateAwaitingRedirect State = "awaiting_redirect"
	StatePolling          State = "polling"
	StateSettled          State = "settled"
	StateTimedOut         State = "timed_out"
	StateFailed           State = "failed"
)

func (s State) IsTerminal() bool {
	switch s {
	case StateSettled, StateTimedOut, StateFailed:
		return true
	}
	return false
}

// PollProfile bounds how long the controller watches a payment.
type PollProfile struct {
	Interval    time.Duration
	MaxAttempts uint
}

var (
	StandardPolling = PollProfile{Interval: 5 * time.Second, MaxAttempts: 12}
	ExtendedPolling = PollProfile{Interval: 5 * time.Second, MaxAttempts: 24}
)

const MsgStillProcessing = "Payment is still processing. Check its status again later."

// Outcome is the terminal result of a checkout. Status is set only when the
// payment settled; Message explains a timeout or failure.
type Outcome struct {
	State    State
	Status   domain.PaymentStatus
	Payment  *domain.Payment
	Message  string
	Attempts uint
}

type Transition struct {
	From State
	To   State
}
