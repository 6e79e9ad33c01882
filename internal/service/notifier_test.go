package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ayudas-panel/internal/models"
)

func TestNotifierExpiresAlerts(t *testing.T) {
	clock := newFakeClock(testNow)
	n := NewNotifier(6*time.Second, clock.Now)

	first := n.Success("guardado")
	clock.Advance(3 * time.Second)
	n.Error("falló")

	active := n.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, models.NotificationError, active[1].Kind)

	clock.Advance(4 * time.Second)
	active = n.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "falló", active[0].Message)

	clock.Advance(3 * time.Second)
	assert.Empty(t, n.Active())
}

func TestNotifierDismiss(t *testing.T) {
	n := NewNotifier(time.Minute, nil)
	item := n.Notify(models.NotificationInfo, "hola")

	assert.True(t, n.Dismiss(item.ID))
	assert.False(t, n.Dismiss(item.ID))
	assert.Empty(t, n.Active())
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.Success("x")
		n.Error("y")
		_ = n.Active()
		_ = n.Dismiss("z")
	})
}
