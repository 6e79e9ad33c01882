package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/ayudas-panel/internal/models"
)

// Notifier keeps the transient alerts shown to the operator.
type Notifier struct {
	mu    sync.Mutex
	items []models.Notification
	ttl   time.Duration
	now   func() time.Time
}

// NewNotifier constructs a notifier whose alerts live for ttl.
func NewNotifier(ttl time.Duration, now func() time.Time) *Notifier {
	if ttl <= 0 {
		ttl = 6 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Notifier{ttl: ttl, now: now}
}

// Notify records a new alert.
func (n *Notifier) Notify(kind models.NotificationKind, message string) models.Notification {
	if n == nil {
		return models.Notification{}
	}
	created := n.now()
	item := models.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: created,
		ExpiresAt: created.Add(n.ttl),
	}
	n.mu.Lock()
	n.pruneLocked(created)
	n.items = append(n.items, item)
	n.mu.Unlock()
	return item
}

// Success records a success alert.
func (n *Notifier) Success(message string) models.Notification {
	return n.Notify(models.NotificationSuccess, message)
}

// Error records an error alert.
func (n *Notifier) Error(message string) models.Notification {
	return n.Notify(models.NotificationError, message)
}

// Active returns the alerts that have not expired, oldest first.
func (n *Notifier) Active() []models.Notification {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pruneLocked(n.now())
	out := make([]models.Notification, len(n.items))
	copy(out, n.items)
	return out
}

// Dismiss removes an alert before it expires.
func (n *Notifier) Dismiss(id string) bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Notifier) pruneLocked(now time.Time) {
	kept := n.items[:0]
	for _, item := range n.items {
		if now.Before(item.ExpiresAt) {
			kept = append(kept, item)
		}
	}
	n.items = kept
}
