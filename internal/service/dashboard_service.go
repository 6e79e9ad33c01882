package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

// Operator facing messages.
const (
	MessageRecordCreated   = "Ayuda registrada correctamente"
	MessageRecordUpdated   = "Ayuda actualizada correctamente"
	MessageRecordDeleted   = "Ayuda eliminada correctamente"
	MessageRecordFinalized = "Ayuda finalizada correctamente"
)

type recordWriter interface {
	Create(ctx context.Context, record models.AidRecord) (*models.AidRecord, error)
	Update(ctx context.Context, id int64, record models.AidRecord) (*models.AidRecord, error)
	Delete(ctx context.Context, id int64) error
}

type webhookNotifier interface {
	Notify(action string, record models.AidRecord, user *models.User)
}

// CreateRecordRequest carries a new record and the PIN for repeat applicants.
type CreateRecordRequest struct {
	Record models.AidRecord `json:"record"`
	PIN    string           `json:"pin,omitempty"`
}

// RepeatStatus tells the form whether a PIN will be needed.
type RepeatStatus struct {
	Cedula      string `json:"cedula"`
	RecentCount int    `json:"recent_count"`
	PINRequired bool   `json:"pin_required"`
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	ReconcileInterval time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Cache     *RecordCache
	Writer    recordWriter
	Gate      *ActionGate
	Verifier  *PINVerifier
	Notifier  *Notifier
	Webhook   webhookNotifier
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// DashboardService holds the working set of records shown to the operator
// and runs the record workflows against it.
type DashboardService struct {
	cache     *RecordCache
	writer    recordWriter
	gate      *ActionGate
	verifier  *PINVerifier
	notifier  *Notifier
	webhook   webhookNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig

	mu      sync.RWMutex
	records []models.AidRecord
	loaded  bool

	tickMu sync.Mutex
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	webhook := params.Webhook
	if webhook == nil {
		webhook = noopWebhook{}
	}
	s := &DashboardService{
		cache:     params.Cache,
		writer:    params.Writer,
		gate:      params.Gate,
		verifier:  params.Verifier,
		notifier:  params.Notifier,
		webhook:   webhook,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
	if s.cache != nil {
		s.cache.Subscribe(s.setRecords)
	}
	return s
}

// Start loads the records and begins periodic reconciliation.
func (s *DashboardService) Start(ctx context.Context) error {
	_, err := s.Load(ctx, false)

	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if s.stop == nil {
		s.stop = make(chan struct{})
		s.wg.Add(1)
		go s.reconcileLoop(context.WithoutCancel(ctx), s.stop)
	}
	return err
}

// Stop halts periodic reconciliation.
func (s *DashboardService) Stop() {
	s.tickMu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.tickMu.Unlock()
	s.wg.Wait()
}

// Load refreshes the working set from the cache, or from the remote when
// force is set.
func (s *DashboardService) Load(ctx context.Context, force bool) ([]models.AidRecord, error) {
	records, err := s.cache.Load(ctx, force)
	if err != nil {
		return nil, err
	}
	s.setRecords(records)
	return s.Records(), nil
}

// Records returns a copy of the working set.
func (s *DashboardService) Records() []models.AidRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AidRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Current returns the working set, loading it on first use.
func (s *DashboardService) Current(ctx context.Context) ([]models.AidRecord, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return s.Records(), nil
	}
	return s.Load(ctx, false)
}

// VisibilityChanged reconciles in the background when the panel becomes visible.
func (s *DashboardService) VisibilityChanged(ctx context.Context, visible bool) {
	if visible {
		s.cache.ReconcileAsync(ctx)
	}
}

// Reconcile runs one reconciliation pass synchronously.
func (s *DashboardService) Reconcile(ctx context.Context) (string, error) {
	return s.cache.Reconcile(ctx)
}

// NextCode returns the code a new record will get.
func (s *DashboardService) NextCode(ctx context.Context) (string, error) {
	records, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	return NextCode(records), nil
}

// RepeatCheck reports how many recent records cedula already has.
func (s *DashboardService) RepeatCheck(ctx context.Context, cedula string) (*RepeatStatus, error) {
	records, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	count := RecentRegistrations(records, cedula, s.now())
	return &RepeatStatus{Cedula: cedula, RecentCount: count, PINRequired: count >= 2}, nil
}

// Find returns the record with id from the working set.
func (s *DashboardService) Find(ctx context.Context, id int64) (*models.AidRecord, error) {
	records, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "ayuda no encontrada")
}

// Create registers a new record optimistically: it shows up in the working
// set before the remote confirms and disappears again if the remote rejects it.
func (s *DashboardService) Create(ctx context.Context, req CreateRecordRequest, user *models.User) (*models.AidRecord, error) {
	record := req.Record
	record.Sexo = SexCode(record.Sexo)
	if record.Estatus == "" {
		record.Estatus = models.StatusRegistered
	}
	if err := s.validateRecord(record); err != nil {
		return nil, err
	}
	if !record.Estatus.Valid() || record.Estatus.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "estatus inicial no permitido")
	}

	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if RequiresPIN(current, record.Cedula, now) {
		if req.PIN == "" {
			return nil, appErrors.ErrPINRequired
		}
		if !s.verifier.Verify(req.PIN) {
			s.notifier.Error(appErrors.ErrPINInvalid.Message)
			return nil, appErrors.ErrPINInvalid
		}
	}

	tempID := now.UnixMilli()
	record.ID = tempID
	record.Codigo = NextCode(current)
	record.FechaRegistro = now.Format(dateLayout)
	record.FechaActualizacion = now.Format(time.RFC3339)

	var created *models.AidRecord
	mutation := Mutation{
		Apply: func() { s.prepend(NormalizeRecord(record)) },
		Commit: func(ctx context.Context) error {
			var err error
			created, err = s.writer.Create(ctx, toRemote(record))
			return err
		},
		Revert: func() { s.remove(tempID) },
	}
	if err := mutation.Run(ctx); err != nil {
		s.notifier.Error(errorMessage(err))
		return nil, err
	}

	result := NormalizeRecord(record)
	if created != nil {
		result = NormalizeRecord(mergeRecord(record, *created))
	}
	s.notifier.Success(MessageRecordCreated)
	s.webhook.Notify(WebhookCreate, result, user)
	s.refreshAfterWrite(ctx)
	return &result, nil
}

// Update replaces a record. It needs an edit grant from the PIN gate.
func (s *DashboardService) Update(ctx context.Context, id int64, record models.AidRecord, user *models.User) (*models.AidRecord, error) {
	existing, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Sexo = SexCode(record.Sexo)
	if err := s.validateRecord(record); err != nil {
		return nil, err
	}
	if existing.Estatus.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "una ayuda finalizada no puede modificarse")
	}
	if record.Estatus != existing.Estatus && !existing.Estatus.CanEditTo(record.Estatus) {
		return nil, appErrors.ErrInvalidTransition
	}
	if err := s.gate.Consume(id, models.ActionEdit); err != nil {
		return nil, err
	}

	record.ID = id
	record.Codigo = existing.Codigo
	record.FechaRegistro = existing.FechaRegistro
	record.FechaActualizacion = s.now().Format(time.RFC3339)
	return s.put(ctx, record, user, WebhookUpdate, MessageRecordUpdated)
}

// Finalize closes a record, appending the closing observation. It needs a
// finalize grant from the PIN gate.
func (s *DashboardService) Finalize(ctx context.Context, id int64, observation string, user *models.User) (*models.AidRecord, error) {
	existing, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Estatus.CanFinalize() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "la ayuda ya está finalizada")
	}
	if err := s.gate.Consume(id, models.ActionFinalize); err != nil {
		return nil, err
	}

	record := *existing
	record.Estatus = models.StatusFinalized
	if obs := strings.TrimSpace(observation); obs != "" {
		if strings.TrimSpace(record.Observacion) == "" {
			record.Observacion = obs
		} else {
			record.Observacion = record.Observacion + "\n" + obs
		}
	}
	record.FechaActualizacion = s.now().Format(time.RFC3339)
	return s.put(ctx, record, user, WebhookFinalize, MessageRecordFinalized)
}

// Delete removes a record. It needs a delete grant from the PIN gate.
func (s *DashboardService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Find(ctx, id); err != nil {
		return err
	}
	if err := s.gate.Consume(id, models.ActionDelete); err != nil {
		return err
	}
	if err := s.writer.Delete(ctx, id); err != nil {
		s.notifier.Error(errorMessage(err))
		return err
	}
	s.remove(id)
	s.notifier.Success(MessageRecordDeleted)
	s.refreshAfterWrite(ctx)
	return nil
}

func (s *DashboardService) put(ctx context.Context, record models.AidRecord, user *models.User, action, message string) (*models.AidRecord, error) {
	updated, err := s.writer.Update(ctx, record.ID, toRemote(record))
	if err != nil {
		s.notifier.Error(errorMessage(err))
		return nil, err
	}
	merged := mergeRecord(record, *updated)
	s.replace(merged)
	s.notifier.Success(message)
	s.webhook.Notify(action, merged, user)
	s.refreshAfterWrite(ctx)
	return &merged, nil
}

func (s *DashboardService) validateRecord(record models.AidRecord) error {
	if err := s.validator.Struct(record); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	return nil
}

// refreshAfterWrite reloads from the remote; the remote copy wins over any
// optimistic entry.
func (s *DashboardService) refreshAfterWrite(ctx context.Context) {
	if _, err := s.Load(ctx, true); err != nil {
		s.logger.Warn("refresh after write failed", zap.Error(err))
	}
}

func (s *DashboardService) reconcileLoop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.cache.Reconcile(ctx); err != nil && !errors.Is(err, appErrors.ErrReconcileInFlight) {
				s.logger.Warn("periodic reconciliation failed", zap.Error(err))
			}
		}
	}
}

func (s *DashboardService) setRecords(records []models.AidRecord) {
	s.mu.Lock()
	s.records = records
	s.loaded = true
	s.mu.Unlock()
}

func (s *DashboardService) prepend(record models.AidRecord) {
	s.mu.Lock()
	s.records = append([]models.AidRecord{record}, s.records...)
	s.mu.Unlock()
}

func (s *DashboardService) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]models.AidRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.records = kept
}

func (s *DashboardService) replace(record models.AidRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == record.ID {
			s.records[i] = record
			return
		}
	}
}

// mergeRecord overlays the non-empty fields of the remote answer on the sent record.
func mergeRecord(sent, remote models.AidRecord) models.AidRecord {
	merged := sent
	if remote.ID != 0 {
		merged.ID = remote.ID
	}
	overlay := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	overlay(&merged.Codigo, remote.Codigo)
	overlay(&merged.Cedula, remote.Cedula)
	overlay(&merged.Nacionalidad, remote.Nacionalidad)
	overlay(&merged.Nombre, remote.Nombre)
	overlay(&merged.Sexo, remote.Sexo)
	overlay(&merged.FechaNacimiento, remote.FechaNacimiento)
	overlay(&merged.Telefono, remote.Telefono)
	overlay(&merged.Municipio, remote.Municipio)
	overlay(&merged.Parroquia, remote.Parroquia)
	overlay(&merged.Estructura, remote.Estructura)
	overlay(&merged.Calle, remote.Calle)
	overlay(&merged.Direccion, remote.Direccion)
	overlay(&merged.Institucion, remote.Institucion)
	overlay(&merged.Responsable, remote.Responsable)
	overlay(&merged.TipoAyuda, remote.TipoAyuda)
	overlay(&merged.SubtipoAyuda, remote.SubtipoAyuda)
	overlay(&merged.Observacion, remote.Observacion)
	overlay(&merged.FechaRegistro, remote.FechaRegistro)
	overlay(&merged.FechaActualizacion, remote.FechaActualizacion)
	if remote.Estatus != "" {
		merged.Estatus = remote.Estatus
	}
	return NormalizeRecord(merged)
}

type noopWebhook struct{}

func (noopWebhook) Notify(string, models.AidRecord, *models.User) {}

func errorMessage(err error) string {
	return appErrors.FromError(err).Message
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return appErrors.ErrValidation.Message
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "campos inválidos: " + strings.Join(fields, ", ")
}
