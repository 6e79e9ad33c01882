package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

type fakeReferenceRepo struct {
	items     map[models.ReferenceKind][]models.Reference
	created   []models.Reference
	createErr error
}

func (f *fakeReferenceRepo) List(_ context.Context, meta models.ReferenceMeta) ([]models.Reference, error) {
	return f.items[meta.Kind], nil
}

func (f *fakeReferenceRepo) Get(_ context.Context, meta models.ReferenceMeta, id int64) (*models.Reference, error) {
	for _, r := range f.items[meta.Kind] {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeReferenceRepo) Create(_ context.Context, _ models.ReferenceMeta, ref models.Reference) (*models.Reference, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	ref.ID = int64(len(f.created) + 100)
	f.created = append(f.created, ref)
	return &ref, nil
}

func (f *fakeReferenceRepo) Update(_ context.Context, _ models.ReferenceMeta, id int64, ref models.Reference) (*models.Reference, error) {
	ref.ID = id
	return &ref, nil
}

func (f *fakeReferenceRepo) Delete(context.Context, models.ReferenceMeta, int64) error { return nil }

func int64Ptr(v int64) *int64 { return &v }

func newReferenceFixture() (*ReferenceService, *fakeReferenceRepo, *Notifier) {
	repo := &fakeReferenceRepo{items: map[models.ReferenceKind][]models.Reference{
		models.KindParish: {{ID: 1, Nombre: "Catedral"}},
		models.KindBlock: {
			{ID: 10, Nombre: "Bloque 1", Parent: int64Ptr(1)},
			{ID: 11, Nombre: "Bloque 2", Parent: int64Ptr(2)},
		},
	}}
	notifier := NewNotifier(time.Minute, nil)
	return NewReferenceService(repo, notifier, nil, nil), repo, notifier
}

func TestReferenceListFiltersByParent(t *testing.T) {
	svc, _, _ := newReferenceFixture()

	all, err := svc.List(context.Background(), models.KindBlock, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := svc.List(context.Background(), models.KindBlock, int64Ptr(1))
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.EqualValues(t, 10, scoped[0].ID)

	_, err = svc.List(context.Background(), models.ReferenceKind("planetas"), nil)
	assert.True(t, stderrors.Is(err, appErrors.ErrNotFound))
}

func TestReferenceCreateChecksParent(t *testing.T) {
	svc, repo, notifier := newReferenceFixture()

	_, err := svc.Create(context.Background(), models.KindBlock, models.Reference{Nombre: "Bloque 3"})
	assert.True(t, stderrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), models.KindBlock, models.Reference{Nombre: "Bloque 3", Parent: int64Ptr(99)})
	assert.True(t, stderrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), models.KindBlock, models.Reference{Nombre: "  "})
	assert.True(t, stderrors.Is(err, appErrors.ErrValidation))

	created, err := svc.Create(context.Background(), models.KindBlock, models.Reference{Nombre: " Bloque 3 ", Parent: int64Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Bloque 3", created.Nombre)
	assert.Len(t, repo.created, 1)
	assert.Len(t, notifier.Active(), 1)

	created, err = svc.Create(context.Background(), models.KindInstitution, models.Reference{Nombre: "Alcaldía", Parent: int64Ptr(5)})
	require.NoError(t, err)
	assert.Nil(t, created.Parent, "flat catalogues drop the parent")
}

func TestReferenceCreateSurfacesRemoteMessage(t *testing.T) {
	svc, repo, notifier := newReferenceFixture()
	repo.createErr = appErrors.Clone(appErrors.ErrRemote, "nombre: ya existe")

	_, err := svc.Create(context.Background(), models.KindInstitution, models.Reference{Nombre: "Alcaldía"})
	require.Error(t, err)
	require.Len(t, notifier.Active(), 1)
	assert.Equal(t, "nombre: ya existe", notifier.Active()[0].Message)
}

type fakeUserRepo struct {
	users   []models.User
	created []models.User
	updated []models.User
	deleted []string
}

func (f *fakeUserRepo) List(context.Context) ([]models.User, error) { return f.users, nil }

func (f *fakeUserRepo) Create(_ context.Context, u models.User) (*models.User, error) {
	f.created = append(f.created, u)
	return &u, nil
}

func (f *fakeUserRepo) Update(_ context.Context, _ string, u models.User) (*models.User, error) {
	f.updated = append(f.updated, u)
	return &u, nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, cedula string, active bool) (*models.User, error) {
	for i := range f.users {
		if f.users[i].Cedula == cedula {
			f.users[i].Activo = active
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeUserRepo) Delete(_ context.Context, cedula string) error {
	f.deleted = append(f.deleted, cedula)
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := NewUserService(repo, nil, NewValidator(), nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{Cedula: "V1", Nombre: "Ana", Username: "ana", Rol: "jefe", Password: "secreto"})
	require.True(t, stderrors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, appErrors.FromError(err).Message, "rol")

	user, err := svc.Create(context.Background(), CreateUserRequest{Cedula: " V1 ", Nombre: "Ana", Username: "ana", Rol: models.RoleReception, Password: "secreto"})
	require.NoError(t, err)
	assert.Empty(t, user.Password)
	assert.True(t, user.Activo)
	assert.Equal(t, "V1", repo.created[0].Cedula)
	assert.Equal(t, "secreto", repo.created[0].Password)
}

func TestUserServiceUpdateKeepsActiveFlag(t *testing.T) {
	repo := &fakeUserRepo{users: []models.User{{Cedula: "V1", Username: "ana", Activo: false}}}
	svc := NewUserService(repo, nil, NewValidator(), nil)

	_, err := svc.Update(context.Background(), "V1", UpdateUserRequest{Nombre: "Ana", Username: "ana", Rol: models.RoleAuditor})
	require.NoError(t, err)
	assert.False(t, repo.updated[0].Activo)

	_, err = svc.Update(context.Background(), "V9", UpdateUserRequest{Nombre: "X", Username: "x", Rol: models.RoleAuditor})
	assert.True(t, IsNotFound(err))
}

func TestUserServiceToggleAndDelete(t *testing.T) {
	repo := &fakeUserRepo{users: []models.User{{Cedula: "V1", Activo: true}, {Cedula: "V2", Activo: true}}}
	svc := NewUserService(repo, nil, nil, nil)

	user, err := svc.ToggleActive(context.Background(), "V1")
	require.NoError(t, err)
	assert.False(t, user.Activo)

	err = svc.Delete(context.Background(), "V2", &models.User{Cedula: "V2"})
	assert.True(t, stderrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), "V2", &models.User{Cedula: "V1"}))
	assert.Equal(t, []string{"V2"}, repo.deleted)
}

type fakeRegistry struct {
	result *models.Beneficiary
	err    error
	calls  int
}

func (f *fakeRegistry) Lookup(context.Context, string) (*models.Beneficiary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	b := *f.result
	return &b, nil
}

func TestBeneficiaryLookup(t *testing.T) {
	registry := &fakeRegistry{result: &models.Beneficiary{Cedula: "E8123456", Nombre: "Luis", FechaNacimiento: "05/03/1980"}}
	svc := NewBeneficiaryService(registry)

	_, err := svc.Lookup(context.Background(), "abc")
	assert.True(t, stderrors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, registry.calls)

	b, err := svc.Lookup(context.Background(), "E8123456")
	require.NoError(t, err)
	assert.Equal(t, "E", b.Nacionalidad)
	assert.Equal(t, "1980-03-05", b.FechaNacimiento)

	registry.err = appErrors.ErrFeatureDisabled
	_, err = svc.Lookup(context.Background(), "12345678")
	assert.True(t, stderrors.Is(err, appErrors.ErrFeatureDisabled))
}

func TestWebhookServicePostsPayload(t *testing.T) {
	var mu sync.Mutex
	var received []WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewWebhookService(server.URL, time.Second, nil, nil)
	require.True(t, svc.Enabled())
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(WebhookFinalize, sampleRecord(1, "AYU-001", "V1", "2024-05-01"), &models.User{Username: "ana"})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, WebhookFinalize, received[0].Accion)
	assert.Equal(t, "AYU-001", received[0].Ayuda.Codigo)
	assert.Equal(t, "ana", received[0].Usuario.Username)
}

func TestWebhookServiceDisabled(t *testing.T) {
	svc := NewWebhookService("", 0, nil, nil)
	assert.False(t, svc.Enabled())
	assert.NotPanics(t, func() {
		svc.Start(context.Background())
		svc.Notify(WebhookCreate, models.AidRecord{}, nil)
		svc.Stop()
	})
}
