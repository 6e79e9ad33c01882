package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/service"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

type stubSession struct {
	user *models.User
}

func (s stubSession) CurrentUser() (*models.User, error) {
	if s.user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.user, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(session stubSession, handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{Session(session)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		response.JSON(c, http.StatusOK, gin.H{"user": CurrentUser(c).Username}, nil)
	})
	r.POST("/records/:id", chain...)
	return r
}

func TestSessionRejectsSignedOutOperator(t *testing.T) {
	r := newRouter(stubSession{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/records/1", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.LoginRoute, body.Meta["redirect"])
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		role models.UserRole
		want int
	}{
		{models.RoleAdmin, http.StatusOK},
		{models.RoleReception, http.StatusOK},
		{models.RoleConsultant, http.StatusForbidden},
	}
	for _, tc := range cases {
		r := newRouter(stubSession{user: &models.User{Username: "ana", Rol: tc.role}}, RequireRoles(models.RoleAdmin, models.RoleReception))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/records/1", nil))
		assert.Equal(t, tc.want, w.Code, "role %s", tc.role)
	}
}

func TestRequireRolesWithoutSession(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuditLogsSuccessfulWrites(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(stubSession{user: &models.User{Username: "ana", Rol: models.RoleAdmin}}, Audit(zap.New(core), "delete", "ayuda"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/records/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "delete", fields["action"])
	assert.Equal(t, "42", fields["resource_id"])
	assert.Equal(t, "ana", fields["username"])
}

func TestAuditSkipsFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.POST("/x", Audit(zap.New(core), "create", "ayuda"), func(c *gin.Context) {
		response.Error(c, appErrors.ErrValidation)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, logs.Len())
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	var captured map[string]interface{}
	r.GET("/", func(c *gin.Context) {
		SetMeta(c, "total", 3)
		captured = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 3, captured["total"])
	assert.Contains(t, captured, "processing_time_ms")
}

func TestMetricsCountsRefusedRequests(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.POST("/records/:id", Session(stubSession{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/records/1", "/records/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `panel_access_denied_total{path="/records/:id",reason="unauthenticated"} 2`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.Equal(t, uint64(3), metrics.Snapshot().Requests)
}
