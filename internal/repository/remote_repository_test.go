package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/pkg/apiclient"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

func newRemote(t *testing.T, handler http.HandlerFunc) *apiclient.Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return apiclient.New(apiclient.Config{BaseURL: srv.URL}, NewTokenStore(NewMemoryStore()))
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestRecordRepositoryListAcceptsPagedAndBare(t *testing.T) {
	bodies := []string{
		`[{"id":1,"codigo":"AYU-001","cedula":"V1"}]`,
		`{"count":1,"results":[{"id":1,"codigo":"AYU-001","cedula":"V1"}]}`,
	}
	for _, body := range bodies {
		api := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/", r.URL.Path)
			respond(w, http.StatusOK, body)
		})
		records, err := NewRecordRepository(api, "/api/").List(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "AYU-001", records[0].Codigo)
	}
}

func TestRecordRepositoryCreateOmitsID(t *testing.T) {
	api := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasID := body["id"]
		assert.False(t, hasID)
		assert.Equal(t, "AYU-007", body["codigo"])
		respond(w, http.StatusCreated, `{"id":99,"codigo":"AYU-007"}`)
	})

	created, err := NewRecordRepository(api, "/api/").Create(context.Background(), models.AidRecord{ID: 1700000000000, Codigo: "AYU-007"})
	require.NoError(t, err)
	assert.EqualValues(t, 99, created.ID)
}

func TestRecordRepositoryUpdateAndDeletePaths(t *testing.T) {
	var seen []string
	api := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		respond(w, http.StatusOK, `{"id":5,"estatus":"EN PROCESO"}`)
	})
	repo := NewRecordRepository(api, "/api/")

	updated, err := repo.Update(context.Background(), 5, models.AidRecord{Estatus: models.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Estatus)
	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.Equal(t, []string{"PUT /api/5/", "DELETE /api/5/"}, seen)
}

func TestReferenceRepositoryDecodesParentField(t *testing.T) {
	api := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bloques/", r.URL.Path)
		respond(w, http.StatusOK, `[{"id":3,"codigo":"B1","nombre":"Bloque 1","parroquia":7},{"id":"4","nombre":"Bloque 2","parroquia":{"id":8}}]`)
	})
	meta, ok := models.LookupReference(models.KindBlock)
	require.True(t, ok)

	refs, err := NewReferenceRepository(api).List(context.Background(), meta)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.NotNil(t, refs[0].Parent)
	assert.EqualValues(t, 7, *refs[0].Parent)
	assert.EqualValues(t, 4, refs[1].ID)
	require.NotNil(t, refs[1].Parent)
	assert.EqualValues(t, 8, *refs[1].Parent)
}

func TestReferenceRepositoryCreateSendsParentField(t *testing.T) {
	api := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 2, body["tipo_ayuda"])
		respond(w, http.StatusCreated, `{"id":10,"codigo":"S1","nombre":"Medicinas","tipo_ayuda":2}`)
	})
	meta, _ := models.LookupReference(models.KindAidSubtype)
	parent := int64(2)

	created, err := NewReferenceRepository(api).Create(context.Background(), meta, models.Reference{Codigo: "S1", Nombre: "Medicinas", Parent: &parent})
	require.NoError(t, err)
	assert.EqualValues(t, 10, created.ID)
}

func TestUserRepositorySetActive(t *testing.T) {
	api := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/usuarios/V123/", r.URL.Path)
		respond(w, http.StatusOK, `{"cedula":"V123","activo":false}`)
	})

	user, err := NewUserRepository(api, "/usuarios/").SetActive(context.Background(), "V123", false)
	require.NoError(t, err)
	assert.False(t, user.Activo)
}

func TestRegistryRepositoryLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/V999" {
			respond(w, http.StatusNotFound, `{}`)
			return
		}
		respond(w, http.StatusOK, `{"cedula":"V123","nombre":"Luis Rojas","sexo":"M"}`)
	}))
	defer srv.Close()
	repo := NewRegistryRepository(srv.URL, 0, nil)

	found, err := repo.Lookup(context.Background(), "V123")
	require.NoError(t, err)
	assert.Equal(t, "Luis Rojas", found.Nombre)

	_, err = repo.Lookup(context.Background(), "V999")
	assert.True(t, stderrors.Is(err, appErrors.ErrNotFound))

	_, err = NewRegistryRepository("", 0, nil).Lookup(context.Background(), "V1")
	assert.True(t, stderrors.Is(err, appErrors.ErrFeatureDisabled))
}
