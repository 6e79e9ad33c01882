package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/repository"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

// MessageDataUpdated is shown once after a background pass replaced the cache.
const MessageDataUpdated = "Los datos fueron actualizados"

type recordLister interface {
	List(ctx context.Context) ([]models.AidRecord, error)
}

// RecordCacheConfig tunes a RecordCache.
type RecordCacheConfig struct {
	Key              string
	TTL              time.Duration
	ReconcileTimeout time.Duration
	// Scope restricts the cached records; nil keeps everything.
	Scope func(models.AidRecord) bool
}

// RecordCache serves the record list from a persisted snapshot and keeps it
// in step with the remote through background reconciliation.
type RecordCache struct {
	source   recordLister
	store    repository.KVStore
	notifier *Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      RecordCacheConfig
	now      func() time.Time

	inFlight atomic.Bool
	subMu    sync.RWMutex
	subs     []func([]models.AidRecord)
}

// NewRecordCache constructs a record cache.
func NewRecordCache(source recordLister, store repository.KVStore, notifier *Notifier, metrics *MetricsService, logger *zap.Logger, cfg RecordCacheConfig) *RecordCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Key == "" {
		cfg.Key = "ayudas_cache"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.ReconcileTimeout <= 0 {
		cfg.ReconcileTimeout = 5 * time.Second
	}
	return &RecordCache{
		source:   source,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With(zap.String("cache_key", cfg.Key)),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Key returns the storage key of this cache.
func (c *RecordCache) Key() string { return c.cfg.Key }

// Subscribe registers fn to receive the records whenever reconciliation
// replaces the cache.
func (c *RecordCache) Subscribe(fn func([]models.AidRecord)) {
	c.subMu.Lock()
	c.subs = append(c.subs, fn)
	c.subMu.Unlock()
}

// Load returns the records. A fresh entry is returned at once and a
// background reconciliation is started; otherwise the remote is queried and
// the snapshot rewritten.
func (c *RecordCache) Load(ctx context.Context, force bool) ([]models.AidRecord, error) {
	if !force {
		entry, err := c.read(ctx)
		if err == nil && c.fresh(entry) {
			c.metrics.RecordCacheOperation(true)
			c.ReconcileAsync(ctx)
			return entry.Data, nil
		}
		if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("record cache read failed", zap.Error(err))
		}
	}
	c.metrics.RecordCacheOperation(false)

	records, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.write(ctx, records); err != nil {
		c.logger.Warn("record cache write failed", zap.Error(err))
	}
	return records, nil
}

// Cached returns the stored snapshot regardless of age.
func (c *RecordCache) Cached(ctx context.Context) ([]models.AidRecord, error) {
	entry, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	return entry.Data, nil
}

// ReconcileAsync starts a detached reconciliation pass. Its outcome is only
// logged.
func (c *RecordCache) ReconcileAsync(ctx context.Context) {
	detached := context.WithoutCancel(ctx)
	go func() {
		if _, err := c.Reconcile(detached); err != nil && !errors.Is(err, appErrors.ErrReconcileInFlight) {
			c.logger.Warn("background reconciliation failed", zap.Error(err))
		}
	}()
}

// Reconcile compares the snapshot with the remote and replaces it when they
// differ. Overlapping passes are skipped.
func (c *RecordCache) Reconcile(ctx context.Context) (string, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.metrics.ObserveReconcile(ReconcileSkipped)
		return ReconcileSkipped, appErrors.ErrReconcileInFlight
	}
	defer c.inFlight.Store(false)

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.ReconcileTimeout)
	defer cancel()

	fresh, err := c.fetch(fetchCtx)
	if err != nil {
		c.metrics.ObserveReconcile(ReconcileFailed)
		return ReconcileFailed, err
	}

	var cached []models.AidRecord
	entry, err := c.read(ctx)
	switch {
	case err == nil:
		cached = entry.Data
	case !errors.Is(err, appErrors.ErrCacheMiss):
		c.logger.Warn("record cache read failed during reconciliation", zap.Error(err))
	}

	if !Changed(cached, fresh) {
		c.metrics.ObserveReconcile(ReconcileUnchanged)
		return ReconcileUnchanged, nil
	}

	if err := c.write(ctx, fresh); err != nil {
		c.metrics.ObserveReconcile(ReconcileFailed)
		return ReconcileFailed, err
	}
	c.publish(fresh)
	c.notifier.Success(MessageDataUpdated)
	c.metrics.ObserveReconcile(ReconcileReplaced)
	c.logger.Info("record cache replaced", zap.Int("records", len(fresh)))
	return ReconcileReplaced, nil
}

// Changed reports whether fresh differs from cached: a different length, or
// a cached record with no remote record of the same id and identical
// serialization.
func Changed(cached, fresh []models.AidRecord) bool {
	if len(cached) != len(fresh) {
		return true
	}
	byID := make(map[int64][]byte, len(fresh))
	for _, r := range fresh {
		raw, _ := json.Marshal(r)
		byID[r.ID] = raw
	}
	for _, r := range cached {
		remote, ok := byID[r.ID]
		if !ok {
			return true
		}
		raw, _ := json.Marshal(r)
		if !bytes.Equal(raw, remote) {
			return true
		}
	}
	return false
}

func (c *RecordCache) fetch(ctx context.Context) ([]models.AidRecord, error) {
	records, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.AidRecord, 0, len(records))
	for _, r := range records {
		r = NormalizeRecord(r)
		if c.cfg.Scope != nil && !c.cfg.Scope(r) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *RecordCache) read(ctx context.Context) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	if err := repository.GetJSON(ctx, c.store, c.cfg.Key, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *RecordCache) write(ctx context.Context, records []models.AidRecord) error {
	return repository.SetJSON(ctx, c.store, c.cfg.Key, models.CacheEntry{
		Data:      records,
		Timestamp: c.now().UnixMilli(),
	})
}

func (c *RecordCache) fresh(entry *models.CacheEntry) bool {
	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	return age < c.cfg.TTL
}

func (c *RecordCache) publish(records []models.AidRecord) {
	c.subMu.RLock()
	subs := make([]func([]models.AidRecord), len(c.subs))
	copy(subs, c.subs)
	c.subMu.RUnlock()
	for _, fn := range subs {
		snapshot := make([]models.AidRecord, len(records))
		copy(snapshot, records)
		fn(snapshot)
	}
}

// StructureScope keeps only records whose structure is listed.
func StructureScope(structures []string) func(models.AidRecord) bool {
	allowed := make(map[string]struct{}, len(structures))
	for _, s := range structures {
		allowed[s] = struct{}{}
	}
	return func(r models.AidRecord) bool {
		_, ok := allowed[r.Estructura]
		return ok
	}
}
