package apiclient

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/middleware/requestid"
)

// TokenStore is the persistence the client needs for bearer auth and refresh.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string) error
	SetRefreshToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Observer receives remote call telemetry. Implementations must be nil safe.
type Observer interface {
	ObserveRemoteRequest(method, path string, status int, duration time.Duration)
	ObserveTokenRefresh(outcome string)
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	LoginPath   string
	RefreshPath string
	Logger      *zap.Logger
	Observer    Observer
}

// Request describes one call to the remote API.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   interface{}
	Result interface{}
}

// RemoteError keeps the raw remote answer behind an ErrRemote.
type RemoteError struct {
	Status int
	Body   []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote status %d", e.Status)
}

// Client talks to the municipal REST API with bearer tokens and a single
// refresh-and-retry on 401.
type Client struct {
	http        *resty.Client
	store       TokenStore
	loginPath   string
	refreshPath string
	authPaths   []string
	logger      *zap.Logger
	observer    Observer

	refreshMu sync.Mutex
	expiredMu sync.RWMutex
	onExpired func()
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// New builds a remote API client.
func New(cfg Config, store TokenStore) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login/"
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = "/auth/refresh/"
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetLogger(cfg.Logger.Sugar()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:        httpClient,
		store:       store,
		loginPath:   cfg.LoginPath,
		refreshPath: cfg.RefreshPath,
		authPaths:   []string{cfg.LoginPath, cfg.RefreshPath, "/token/refresh/"},
		logger:      cfg.Logger,
		observer:    cfg.Observer,
	}
}

// OnSessionExpired registers the callback run after a failed refresh.
func (c *Client) OnSessionExpired(fn func()) {
	c.expiredMu.Lock()
	c.onExpired = fn
	c.expiredMu.Unlock()
}

// LoginPath returns the token issue path.
func (c *Client) LoginPath() string { return c.loginPath }

// Get issues a GET decoding into result.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, result interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Result: result})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Result: result})
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body, Result: result})
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, result interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body, Result: result})
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// Do executes req. A 401 on a non-auth path triggers exactly one refresh
// and one resubmission.
func (c *Client) Do(ctx context.Context, req Request) error {
	resp, err := c.execute(ctx, req, true)
	if err != nil {
		return err
	}
	if resp.StatusCode() == http.StatusUnauthorized && !c.isAuthPath(req.Path) {
		refreshToken, _ := c.store.RefreshToken(ctx)
		if refreshToken == "" {
			return c.mapError(resp)
		}
		if err := c.refresh(ctx, refreshToken); err != nil {
			c.expire(ctx, err)
			return appErrors.Wrap(err, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, appErrors.ErrSessionExpired.Message)
		}
		resp, err = c.execute(ctx, req, true)
		if err != nil {
			return err
		}
	}
	if resp.IsError() {
		return c.mapError(resp)
	}
	return nil
}

// Refresh exchanges the stored refresh token for a new access token. The
// caller decides what a failure means for the session.
func (c *Client) Refresh(ctx context.Context) error {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil || refreshToken == "" {
		return appErrors.Clone(appErrors.ErrSessionExpired, "no hay token de actualización")
	}
	return c.refresh(ctx, refreshToken)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	var payload refreshResponse
	resp, err := c.execute(ctx, Request{
		Method: http.MethodPost,
		Path:   c.refreshPath,
		Body:   map[string]string{"refresh": refreshToken},
		Result: &payload,
	}, false)
	if err != nil {
		c.observeRefresh("failed")
		return err
	}
	if resp.IsError() || payload.Access == "" {
		c.observeRefresh("failed")
		if resp.IsError() {
			return c.mapError(resp)
		}
		return appErrors.Clone(appErrors.ErrRemote, "respuesta de actualización sin token")
	}

	if err := c.store.SetAccessToken(ctx, payload.Access); err != nil {
		c.observeRefresh("failed")
		return fmt.Errorf("persist access token: %w", err)
	}
	if payload.Refresh != "" {
		if err := c.store.SetRefreshToken(ctx, payload.Refresh); err != nil {
			c.observeRefresh("failed")
			return fmt.Errorf("persist refresh token: %w", err)
		}
	}
	c.observeRefresh("refreshed")
	return nil
}

func (c *Client) expire(ctx context.Context, cause error) {
	c.logger.Warn("token refresh failed, clearing session", zap.Error(cause))
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear token store", zap.Error(err))
	}
	c.expiredMu.RLock()
	fn := c.onExpired
	c.expiredMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) execute(ctx context.Context, req Request, withAuth bool) (*resty.Response, error) {
	r := c.http.R().SetContext(ctx)
	if id := requestid.FromContext(ctx); id != "" {
		r.SetHeader(requestid.Header, id)
	}
	if withAuth && !c.isAuthPath(req.Path) {
		if token, _ := c.store.AccessToken(ctx); token != "" {
			r.SetAuthToken(token)
		}
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if req.Result != nil {
		r.SetResult(req.Result)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		c.observe(req, 0, time.Since(start))
		c.logger.Warn("remote request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrUnreachable.Code, appErrors.ErrUnreachable.Status, appErrors.ErrUnreachable.Message)
	}
	c.observe(req, resp.StatusCode(), time.Since(start))
	return resp, nil
}

func (c *Client) observe(req Request, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRemoteRequest(req.Method, req.Path, status, d)
	}
}

func (c *Client) observeRefresh(outcome string) {
	if c.observer != nil {
		c.observer.ObserveTokenRefresh(outcome)
	}
}

func (c *Client) isAuthPath(path string) bool {
	for _, p := range c.authPaths {
		if strings.HasSuffix(strings.TrimRight(path, "/"), strings.TrimRight(p, "/")) {
			return true
		}
	}
	return false
}

func (c *Client) mapError(resp *resty.Response) error {
	status := resp.StatusCode()
	cause := &RemoteError{Status: status, Body: resp.Body()}
	message := ExtractMessage(resp.Body())

	base := appErrors.ErrRemote
	switch status {
	case http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case http.StatusForbidden:
		base = appErrors.ErrForbidden
	case http.StatusNotFound:
		base = appErrors.ErrNotFound
	}
	if message == "" {
		message = base.Message
	}
	wrapped := appErrors.Wrap(cause, base.Code, base.Status, message)
	if base == appErrors.ErrRemote && status >= 400 && status < 500 {
		wrapped.Status = status
	}
	return wrapped
}

// ExtractMessage picks the user-facing message out of a remote error body:
// detail, message, error, non_field_errors, then the first field error.
func ExtractMessage(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error", "non_field_errors"} {
		if msg := firstString(payload[key]); msg != "" {
			return msg
		}
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msg := firstString(payload[k]); msg != "" {
			return k + ": " + msg
		}
	}
	return ""
}

func firstString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		for _, item := range t {
			if s := firstString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// IsStatus reports whether err came from a remote answer with the given status.
func IsStatus(err error, status int) bool {
	var remote *RemoteError
	return stderrors.As(err, &remote) && remote.Status == status
}
