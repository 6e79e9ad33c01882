package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ayudas-panel/internal/dto"
	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/service"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

type fakeWorkflow struct {
	records   []models.AidRecord
	createErr error
	created   *service.CreateRecordRequest
	createdBy *models.User
	finalized string
	visible   *bool
}

func (f *fakeWorkflow) Current(context.Context) ([]models.AidRecord, error) { return f.records, nil }

func (f *fakeWorkflow) Load(context.Context, bool) ([]models.AidRecord, error) { return f.records, nil }

func (f *fakeWorkflow) VisibilityChanged(_ context.Context, visible bool) { f.visible = &visible }

func (f *fakeWorkflow) Reconcile(context.Context) (string, error) {
	return service.ReconcileUnchanged, nil
}

func (f *fakeWorkflow) NextCode(context.Context) (string, error) {
	return service.NextCode(f.records), nil
}

func (f *fakeWorkflow) RepeatCheck(_ context.Context, cedula string) (*service.RepeatStatus, error) {
	return &service.RepeatStatus{Cedula: cedula, RecentCount: 2, PINRequired: true}, nil
}

func (f *fakeWorkflow) Find(_ context.Context, id int64) (*models.AidRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeWorkflow) Create(_ context.Context, req service.CreateRecordRequest, user *models.User) (*models.AidRecord, error) {
	f.created = &req
	f.createdBy = user
	if f.createErr != nil {
		return nil, f.createErr
	}
	r := req.Record
	r.ID = 99
	return &r, nil
}

func (f *fakeWorkflow) Update(_ context.Context, id int64, record models.AidRecord, _ *models.User) (*models.AidRecord, error) {
	record.ID = id
	return &record, nil
}

func (f *fakeWorkflow) Finalize(_ context.Context, id int64, observation string, _ *models.User) (*models.AidRecord, error) {
	f.finalized = observation
	return &models.AidRecord{ID: id, Estatus: models.StatusFinalized}, nil
}

func (f *fakeWorkflow) Delete(context.Context, int64) error { return appErrors.ErrPINRequired }

type fakeGate struct {
	state models.GateState
}

func (g *fakeGate) Request(id int64, action models.SensitiveAction) (models.GateState, error) {
	if !action.Valid() {
		return models.GateState{}, appErrors.ErrValidation
	}
	g.state = models.GateState{Status: models.GateAwaiting, RecordID: id, Action: action, ChallengeID: "c-1"}
	return g.state, nil
}

func (g *fakeGate) Confirm(pin string) (models.GateState, error) {
	if pin != "1234" {
		return g.state, appErrors.ErrPINInvalid
	}
	g.state.Status = models.GateAuthorized
	return g.state, nil
}

func (g *fakeGate) Cancel() { g.state = models.GateState{Status: models.GateIdle} }

func (g *fakeGate) State() models.GateState { return g.state }

type fakeSession struct {
	user *models.User
}

func (s *fakeSession) CurrentUser() (*models.User, error) {
	if s.user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.user, nil
}

func (s *fakeSession) Login(_ context.Context, req service.LoginRequest) (*models.SessionSnapshot, error) {
	if req.Password != "secreto" {
		return nil, appErrors.ErrInvalidCredentials
	}
	s.user = &models.User{Username: req.Username, Rol: models.RoleAdmin}
	return &models.SessionSnapshot{State: models.SessionAuthenticated, User: s.user}, nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.user = nil
	return nil
}

func (s *fakeSession) Snapshot(context.Context) models.SessionSnapshot {
	if s.user == nil {
		return models.SessionSnapshot{State: models.SessionUnauthenticated}
	}
	return models.SessionSnapshot{State: models.SessionAuthenticated, User: s.user}
}

type fakeReports struct{}

func (fakeReports) Records(context.Context, dto.ReportFilter) ([]models.AidRecord, error) {
	return []models.AidRecord{{ID: 1}}, nil
}

func (fakeReports) Summary(_ context.Context, f dto.ReportFilter) (*dto.ReportSummary, error) {
	if f.From == "bad" {
		return nil, appErrors.ErrValidation
	}
	return &dto.ReportSummary{Total: 1}, nil
}

func (fakeReports) Export(_ context.Context, _ dto.ReportFilter, format string) (*dto.ReportExport, error) {
	return &dto.ReportExport{Filename: "reporte." + format, ContentType: "text/csv", Payload: []byte("a,b\n")}, nil
}

type testEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type testServer struct {
	router   *gin.Engine
	session  *fakeSession
	workflow *fakeWorkflow
	gate     *fakeGate
	notifier *service.Notifier
}

func newTestServer(role models.UserRole) *testServer {
	gin.SetMode(gin.TestMode)
	session := &fakeSession{}
	if role != "" {
		session.user = &models.User{Cedula: "V1", Username: "ana", Rol: role}
	}
	workflow := &fakeWorkflow{records: []models.AidRecord{
		{ID: 1, Codigo: "AYU-001", Nombre: "Ana"},
		{ID: 2, Codigo: "AYU-002", Nombre: "Luis"},
	}}
	gate := &fakeGate{state: models.GateState{Status: models.GateIdle}}
	notifier := service.NewNotifier(0, nil)

	router := NewRouter(RouterConfig{APIPrefix: "/api/v1"}, RouterDeps{
		Session:       session,
		Auth:          NewAuthHandler(session),
		Records:       NewDashboardHandler(workflow, gate),
		Beneficiaries: NewBeneficiaryHandler(nil),
		Reports:       NewReportHandler(fakeReports{}, fakeReports{}),
		References:    NewReferenceHandler(nil),
		Users:         NewUserHandler(nil),
		Notifications: NewNotificationHandler(notifier),
		Observability: NewMetricsHandler(nil, nil),
	})
	return &testServer{router: router, session: session, workflow: workflow, gate: gate, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env testEnvelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "text/csv" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestSignedOutRequestsRedirectToLogin(t *testing.T) {
	s := newTestServer("")
	w, env := s.do(t, http.MethodGet, "/api/v1/records", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", env.Meta["redirect"])
}

func TestLoginThenSession(t *testing.T) {
	s := newTestServer("")

	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "ana", "password": "mal"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "ana", "password": "secreto"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.SessionSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, models.SessionAuthenticated, snap.State)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListRecordsPaginates(t *testing.T) {
	s := newTestServer(models.RoleConsultant)
	w, env := s.do(t, http.MethodGet, "/api/v1/records?sort=codigo&dir=desc&page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var records []models.AidRecord
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "AYU-002", records[0].Codigo)
	assert.EqualValues(t, 2, env.Pagination["total_count"])
	assert.EqualValues(t, 2, env.Meta["total_registros"])
}

func TestRecordWritesRequireWriterRole(t *testing.T) {
	s := newTestServer(models.RoleConsultant)
	w, _ := s.do(t, http.MethodPost, "/api/v1/records", service.CreateRecordRequest{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	s = newTestServer(models.RoleReception)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/records/1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "reception cannot delete")
}

func TestCreateRecord(t *testing.T) {
	s := newTestServer(models.RoleReception)
	w, _ := s.do(t, http.MethodPost, "/api/v1/records", service.CreateRecordRequest{Record: models.AidRecord{Cedula: "V5"}, PIN: "1234"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1234", s.workflow.created.PIN)
	assert.Equal(t, "ana", s.workflow.createdBy.Username)

	s.workflow.createErr = appErrors.ErrPINRequired
	w, env := s.do(t, http.MethodPost, "/api/v1/records", service.CreateRecordRequest{Record: models.AidRecord{Cedula: "V5"}})
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Equal(t, "PIN_REQUIRED", env.Error.Code)
}

func TestRepeatCheckNeedsCedula(t *testing.T) {
	s := newTestServer(models.RoleFollowUp)
	w, _ := s.do(t, http.MethodGet, "/api/v1/records/repeat-check", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/v1/records/repeat-check?cedula=V9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status service.RepeatStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.PINRequired)
}

func TestNextCodeAndVisibility(t *testing.T) {
	s := newTestServer(models.RoleAdmin)
	w, env := s.do(t, http.MethodGet, "/api/v1/records/next-code", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"codigo":"AYU-003"}`, string(env.Data))

	w, _ = s.do(t, http.MethodPost, "/api/v1/records/visibility", dto.VisibilityRequest{Visible: true})
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, s.workflow.visible)
	assert.True(t, *s.workflow.visible)
}

func TestActionGateFlow(t *testing.T) {
	s := newTestServer(models.RoleSupervisor)

	w, _ := s.do(t, http.MethodPost, "/api/v1/records/99/actions/delete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/records/1/actions/archive", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/records/1/actions/finalize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.GateAwaiting, s.gate.state.Status)

	w, _ = s.do(t, http.MethodPost, "/api/v1/records/actions/confirm", dto.ConfirmActionRequest{PIN: "0000"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/records/actions/confirm", dto.ConfirmActionRequest{PIN: "1234"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/records/1/finalize", dto.FinalizeRequest{Observacion: "listo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "listo", s.workflow.finalized)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/records/actions", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.GateIdle, s.gate.state.Status)
}

func TestInvalidRecordID(t *testing.T) {
	s := newTestServer(models.RoleAdmin)
	w, _ := s.do(t, http.MethodPut, "/api/v1/records/abc", models.AidRecord{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportsRoleAndExport(t *testing.T) {
	s := newTestServer(models.RoleReception)
	w, _ := s.do(t, http.MethodGet, "/api/v1/reports/summary", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	s = newTestServer(models.RoleAuditor)
	w, _ = s.do(t, http.MethodGet, "/api/v1/reports/summary?desde=bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/reports/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="reporte.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestUsersAreAdminOnly(t *testing.T) {
	s := newTestServer(models.RoleSupervisor)
	w, _ := s.do(t, http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotifications(t *testing.T) {
	s := newTestServer(models.RoleBasic)
	item := s.notifier.Success("guardado")

	w, env := s.do(t, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.Notification
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/notifications/"+item.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/notifications/"+item.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stateFunc func() models.SessionState

func (f stateFunc) State() models.SessionState { return f() }

func TestHealth(t *testing.T) {
	s := newTestServer("")
	w, _ := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	r := gin.New()
	h := NewMetricsHandler(nil, stateFunc(func() models.SessionState { return models.SessionAuthenticated }))
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Prometheus)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","session":"authenticated"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
