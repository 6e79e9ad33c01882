package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

// ActionGate holds at most one sensitive action waiting for, or granted by,
// the security PIN. A grant is consumed by the first matching operation.
type ActionGate struct {
	mu       sync.Mutex
	verifier *PINVerifier
	notifier *Notifier
	ttl      time.Duration
	now      func() time.Time

	state     models.GateState
	grantedAt time.Time
}

// NewActionGate constructs an idle gate.
func NewActionGate(verifier *PINVerifier, notifier *Notifier, ttl time.Duration, now func() time.Time) *ActionGate {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &ActionGate{
		verifier: verifier,
		notifier: notifier,
		ttl:      ttl,
		now:      now,
		state:    models.GateState{Status: models.GateIdle},
	}
}

// Request opens a PIN challenge for action on recordID, replacing any
// previous one.
func (g *ActionGate) Request(recordID int64, action models.SensitiveAction) (models.GateState, error) {
	if !action.Valid() {
		return models.GateState{}, appErrors.Clone(appErrors.ErrValidation, "acción no reconocida")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = models.GateState{
		Status:      models.GateAwaiting,
		ChallengeID: uuid.NewString(),
		RecordID:    recordID,
		Action:      action,
	}
	g.grantedAt = time.Time{}
	return g.state, nil
}

// Confirm checks pin against the pending challenge. A wrong PIN keeps the
// challenge open.
func (g *ActionGate) Confirm(pin string) (models.GateState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Status != models.GateAwaiting {
		return g.state, appErrors.ErrNoPendingAction
	}
	if pin == "" {
		return g.state, appErrors.ErrPINRequired
	}
	if !g.verifier.Verify(pin) {
		g.notifier.Error(appErrors.ErrPINInvalid.Message)
		return g.state, appErrors.ErrPINInvalid
	}
	g.grantedAt = g.now()
	expires := g.grantedAt.Add(g.ttl)
	g.state.Status = models.GateAuthorized
	g.state.ExpiresAt = &expires
	return g.state, nil
}

// Cancel drops any pending or granted action.
func (g *ActionGate) Cancel() {
	g.mu.Lock()
	g.reset()
	g.mu.Unlock()
}

// State returns the current gate state, expiring stale grants.
func (g *ActionGate) State() models.GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	return g.state
}

// Consume uses the grant for action on recordID.
func (g *ActionGate) Consume(recordID int64, action models.SensitiveAction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	if g.state.Status != models.GateAuthorized || g.state.RecordID != recordID || g.state.Action != action {
		return appErrors.ErrPINRequired
	}
	g.reset()
	return nil
}

func (g *ActionGate) expireLocked() {
	if g.state.Status == models.GateAuthorized && g.now().Sub(g.grantedAt) > g.ttl {
		g.reset()
	}
}

func (g *ActionGate) reset() {
	g.state = models.GateState{Status: models.GateIdle}
	g.grantedAt = time.Time{}
}
