package service

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

func TestActionGateGrantIsSingleUse(t *testing.T) {
	clock := newFakeClock(testNow)
	gate := NewActionGate(newTestVerifier("1234"), nil, time.Minute, clock.Now)

	state, err := gate.Request(7, models.ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, models.GateAwaiting, state.Status)
	assert.NotEmpty(t, state.ChallengeID)

	state, err = gate.Confirm("1234")
	require.NoError(t, err)
	assert.Equal(t, models.GateAuthorized, state.Status)
	require.NotNil(t, state.ExpiresAt)

	require.NoError(t, gate.Consume(7, models.ActionDelete))
	assert.True(t, stderrors.Is(gate.Consume(7, models.ActionDelete), appErrors.ErrPINRequired))
	assert.Equal(t, models.GateIdle, gate.State().Status)
}

func TestActionGateWrongPINKeepsChallenge(t *testing.T) {
	clock := newFakeClock(testNow)
	notifier := NewNotifier(6*time.Second, clock.Now)
	gate := NewActionGate(newTestVerifier("1234"), notifier, time.Minute, clock.Now)

	_, err := gate.Request(7, models.ActionEdit)
	require.NoError(t, err)

	state, err := gate.Confirm("0000")
	assert.True(t, stderrors.Is(err, appErrors.ErrPINInvalid))
	assert.Equal(t, models.GateAwaiting, state.Status)
	require.Len(t, notifier.Active(), 1)
	assert.Equal(t, models.NotificationError, notifier.Active()[0].Kind)

	_, err = gate.Confirm("")
	assert.True(t, stderrors.Is(err, appErrors.ErrPINRequired))

	_, err = gate.Confirm("1234")
	assert.NoError(t, err)
}

func TestActionGateConfirmWithoutRequest(t *testing.T) {
	gate := NewActionGate(newTestVerifier("1234"), nil, time.Minute, nil)
	_, err := gate.Confirm("1234")
	assert.True(t, stderrors.Is(err, appErrors.ErrNoPendingAction))
}

func TestActionGateGrantMustMatchRecordAndAction(t *testing.T) {
	clock := newFakeClock(testNow)
	gate := NewActionGate(newTestVerifier("1234"), nil, time.Minute, clock.Now)

	_, _ = gate.Request(7, models.ActionEdit)
	_, err := gate.Confirm("1234")
	require.NoError(t, err)

	assert.Error(t, gate.Consume(8, models.ActionEdit))
	assert.Error(t, gate.Consume(7, models.ActionDelete))
	assert.NoError(t, gate.Consume(7, models.ActionEdit))
}

func TestActionGateGrantExpires(t *testing.T) {
	clock := newFakeClock(testNow)
	gate := NewActionGate(newTestVerifier("1234"), nil, time.Minute, clock.Now)

	_, _ = gate.Request(7, models.ActionFinalize)
	_, err := gate.Confirm("1234")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, models.GateIdle, gate.State().Status)
	assert.True(t, stderrors.Is(gate.Consume(7, models.ActionFinalize), appErrors.ErrPINRequired))
}

func TestActionGateCancelAndInvalidAction(t *testing.T) {
	gate := NewActionGate(newTestVerifier("1234"), nil, time.Minute, nil)

	_, err := gate.Request(7, models.SensitiveAction("archive"))
	assert.True(t, stderrors.Is(err, appErrors.ErrValidation))

	_, _ = gate.Request(7, models.ActionEdit)
	gate.Cancel()
	assert.Equal(t, models.GateIdle, gate.State().Status)
}

func TestActionGateRejectsEverythingWithoutConfiguredPIN(t *testing.T) {
	verifier, err := NewPINVerifier("", "")
	require.NoError(t, err)
	assert.False(t, verifier.Configured())

	gate := NewActionGate(verifier, nil, time.Minute, nil)
	_, _ = gate.Request(1, models.ActionEdit)
	_, err = gate.Confirm("1234")
	assert.True(t, stderrors.Is(err, appErrors.ErrPINInvalid))
}
