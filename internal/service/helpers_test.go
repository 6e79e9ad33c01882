package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/repository"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

type fakeRecordRepo struct {
	mu        sync.Mutex
	records   []models.AidRecord
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	listCalls int
	created   []models.AidRecord
	updated   []models.AidRecord
	deleted   []int64
	nextID    int64
	// beforeCreate runs inside Create before it answers.
	beforeCreate func()
	// createReply replaces the stored record as the Create answer.
	createReply func(stored models.AidRecord) *models.AidRecord
}

func (f *fakeRecordRepo) List(context.Context) ([]models.AidRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.AidRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeRecordRepo) Create(_ context.Context, r models.AidRecord) (*models.AidRecord, error) {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	r.ID = 1000 + f.nextID
	f.created = append(f.created, r)
	f.records = append(f.records, r)
	if f.createReply != nil {
		return f.createReply(r), nil
	}
	return &r, nil
}

func (f *fakeRecordRepo) Update(_ context.Context, id int64, r models.AidRecord) (*models.AidRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	r.ID = id
	f.updated = append(f.updated, r)
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i] = r
		}
	}
	return &r, nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.records[:0]
	for _, r := range f.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return nil
}

func (f *fakeRecordRepo) setRecords(records []models.AidRecord) {
	f.mu.Lock()
	f.records = records
	f.mu.Unlock()
}

func (f *fakeRecordRepo) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testNow = time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

func sampleRecord(id int64, code, cedula, registered string) models.AidRecord {
	return models.AidRecord{
		ID:            id,
		Codigo:        code,
		Cedula:        cedula,
		Nacionalidad:  "V",
		Nombre:        "Beneficiario " + code,
		Sexo:          "F",
		Municipio:     "Libertador",
		Parroquia:     "Catedral",
		Estructura:    "UBCH-1",
		Institucion:   "Alcaldía",
		Responsable:   "Ana",
		TipoAyuda:     "Medicinas",
		Estatus:       models.StatusRegistered,
		FechaRegistro: registered,
	}
}

type recordingWebhook struct {
	mu   sync.Mutex
	sent []WebhookPayload
}

func (w *recordingWebhook) Notify(action string, record models.AidRecord, user *models.User) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, WebhookPayload{Accion: action, Ayuda: record, Usuario: user})
}

func newTestCache(repo *fakeRecordRepo, store repository.KVStore, notifier *Notifier, clock *fakeClock) *RecordCache {
	cache := NewRecordCache(repo, store, notifier, nil, nil, RecordCacheConfig{Key: "ayudas_cache", TTL: time.Hour, ReconcileTimeout: time.Second})
	cache.now = clock.Now
	return cache
}

var errRemoteDown = appErrors.Clone(appErrors.ErrUnreachable, "")

func newTestVerifier(pin string) *PINVerifier {
	v, err := NewPINVerifier(pin, "")
	if err != nil {
		panic(err)
	}
	return v
}
