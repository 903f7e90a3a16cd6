package payment

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State of a payment attempt. An attempt exists for the duration of one
// checkout interaction and is never reused: a retry starts a fresh
// attempt with a fresh gateway order.
type State string

const (
	StateIdle         State = "idle"
	StateCreated      State = "created"
	StateAwaitingUser State = "awaiting_user_action"
	StateVerifying    State = "verifying"
	StateVerified     State = "verified"
	StateFailed       State = "failed"
	StateDismissed    State = "dismissed"
)

var (
	ErrInvalidTransition = errors.New("invalid payment state transition")
	ErrAttemptFinished   = errors.New("payment attempt already reached a terminal state")
)

// validTransitions defines the allowed state machine edges. Failed is
// reachable from any non-terminal state; Dismissed only from the hosted
// UI being open.
var validTransitions = map[State][]State{
	StateIdle:         {StateCreated, StateFailed},
	StateCreated:      {StateAwaitingUser, StateFailed},
	StateAwaitingUser: {StateVerifying, StateDismissed, StateFailed},
	StateVerifying:    {StateVerified, StateFailed},
	StateVerified:     {}, // terminal
	StateFailed:       {}, // terminal
	StateDismissed:    {}, // terminal
}

func (s State) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// StateChange is one observed transition of an attempt.
type StateChange struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Contact prefills the hosted checkout UI.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Attempt is one run through the gateway order -> checkout -> verify
// lifecycle. All money on an attempt is in minor currency units.
type Attempt struct {
	ID      string
	Contact Contact

	mu          sync.Mutex
	state       State
	orderID     string
	keyID       string
	amountMinor int64
	currency    string
	paymentID   string
	signature   string
	err         error

	changes chan StateChange
}

func newAttempt(contact Contact) *Attempt {
	return &Attempt{
		ID:      uuid.New().String(),
		Contact: contact,
		state:   StateIdle,
		changes: make(chan StateChange, 8),
	}
}

// State returns the current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Changes exposes the attempt's transitions as a buffered event stream.
// The channel is closed when the attempt reaches a terminal state.
func (a *Attempt) Changes() <-chan StateChange {
	return a.changes
}

// OrderID is the gateway order backing this attempt, set once the order
// is created.
func (a *Attempt) OrderID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orderID
}

// PaymentID is the gateway payment identifier, set by the success
// callback.
func (a *Attempt) PaymentID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paymentID
}

// AmountMinor is the reserved amount in minor currency units.
func (a *Attempt) AmountMinor() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.amountMinor
}

// Err is the cause of a Failed terminal state, nil otherwise.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// transition moves the machine one edge, emitting the change. Callers
// hold a.mu.
func (a *Attempt) transition(to State) error {
	if a.state.Terminal() {
		return fmt.Errorf("%w: %s", ErrAttemptFinished, a.state)
	}
	allowed := false
	for _, s := range validTransitions[a.state] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, to)
	}

	change := StateChange{From: a.state, To: to, At: time.Now()}
	a.state = to

	select {
	case a.changes <- change:
	default:
		// Slow observer; the state itself stays authoritative.
	}
	if to.Terminal() {
		close(a.changes)
	}
	return nil
}

// CheckoutParams is everything the hosted checkout UI needs to open.
type CheckoutParams struct {
	KeyID       string  `json:"key_id"`
	OrderID     string  `json:"order_id"`
	AmountMinor int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Prefill     Contact `json:"prefill"`
}

// CheckoutParams returns the hosted-UI parameters for a created attempt.
func (a *Attempt) CheckoutParams() CheckoutParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	return CheckoutParams{
		KeyID:       a.keyID,
		OrderID:     a.orderID,
		AmountMinor: a.amountMinor,
		Currency:    a.currency,
		Prefill:     a.Contact,
	}
}
