// internal/backend/client.go
//
// Adept Admin – marketplace REST client.
//
// Context
//   The console never talks to the database behind the marketplace.  It
//   talks to the marketplace REST API, authenticating with the bearer token
//   that lives in the calling browser's durable storage.  Client is the
//   process-wide transport (pool, retries, logging); API is a Client bound
//   to one browser's Store.
//
// Workflow
//   1.  Attach “Authorization: Bearer <token>” when the bound store has one.
//   2.  GET requests are retried on transport errors and 5xx, other methods
//       are sent once.
//   3.  A 401 on any call except login clears the token and user record
//       together, counts the reset, and returns ErrUnauthorized.  Callers
//       answer it with a redirect to the login route.
//   4.  2xx bodies are decoded into the {success, message, data} envelope.
//
// Notes
//   •  Bodies larger than maxBody are truncated and fail to decode.
//   •  Two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/metrics"
	"github.com/yanizio/adept-admin/internal/storage"
)

const maxBody = 10 << 20

// Config tunes the transport.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
}

// Client is safe for concurrent use.
type Client struct {
	base *url.URL
	http *retryablehttp.Client
	log  *zap.SugaredLogger
}

// New validates cfg and builds the pooled, retrying transport.
func New(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{log}

	return &Client{base: u, http: rc, log: log}, nil
}

// noRetryKey marks a request context whose request must be sent only once.
type noRetryKey struct{}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Value(noRetryKey{}) != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// API is a Client bound to one browser's storage.
type API struct {
	c     *Client
	store storage.Store
}

// Bind returns an API that reads its bearer token from store and clears
// store on 401.
func (c *Client) Bind(store storage.Store) *API {
	return &API{c: c, store: store}
}

// Envelope is the marketplace's standard response wrapper.  Success is a
// pointer because a few endpoints omit it.
type Envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination accompanies list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// OK reports whether the backend considers the call successful.
func (e *Envelope) OK() bool { return e.Success == nil || *e.Success }

// Decode unmarshals Data into v.  Empty or null data leaves v untouched.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("backend: decode data: %w", err)
	}
	return nil
}

// Raw is an undecoded response, used for downloads.
type Raw struct {
	ContentType        string
	ContentDisposition string
	Body               []byte
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	skipReset   bool // login: a 401 means bad credentials, not a stale token
}

// send performs one logical call and returns the raw 2xx response.
func (a *API) send(ctx context.Context, rq request) (*Raw, error) {
	u := a.c.base.JoinPath(rq.path)
	if len(rq.query) > 0 {
		u.RawQuery = rq.query.Encode()
	}

	if rq.method != http.MethodGet {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}

	var body any
	if rq.body != nil {
		body = rq.body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, rq.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if rq.contentType != "" {
		req.Header.Set("Content-Type", rq.contentType)
	}
	if tok := storage.Token(ctx, a.store); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := a.c.http.Do(req)
	if err != nil {
		metrics.BackendRequestTotal.WithLabelValues(rq.method, "error").Inc()
		a.c.log.Warnw("backend request failed", "method", rq.method, "path", rq.path, "err", err)
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.BackendRequestTotal.WithLabelValues(rq.method, "error").Inc()
		return nil, newNetworkError(err)
	}

	metrics.BackendRequestTotal.WithLabelValues(rq.method, statusClass(resp.StatusCode)).Inc()
	a.c.log.Debugw("backend request",
		"method", rq.method,
		"path", rq.path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized && !rq.skipReset {
		a.resetSession(ctx)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, data)
	}

	return &Raw{
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		Body:               data,
	}, nil
}

// resetSession clears the browser's token and user record.  The caller's
// context may already be cancelled, so the clear runs detached.
func (a *API) resetSession(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := storage.ClearSession(cctx, a.store); err != nil {
		a.c.log.Errorw("401 reset: clear storage", "err", err)
	}
	metrics.UnauthorizedResetTotal.Inc()
}

// call performs rq and decodes the envelope.  success:false surfaces as an
// APIError wrapping ErrRejected; the envelope is still returned.
func (a *API) call(ctx context.Context, rq request) (*Envelope, error) {
	raw, err := a.send(ctx, rq)
	if err != nil {
		return nil, err
	}
	env := &Envelope{}
	if len(raw.Body) > 0 {
		if err := json.Unmarshal(raw.Body, env); err != nil {
			return nil, fmt.Errorf("backend: decode envelope: %w", err)
		}
	}
	if !env.OK() {
		return env, &APIError{
			Status:      http.StatusOK,
			Code:        orDefault(env.Code, "REQUEST_FAILED"),
			Message:     orDefault(env.Message, MsgServer),
			BodyMessage: env.Message,
			Err:         ErrRejected,
		}
	}
	return env, nil
}

func (a *API) get(ctx context.Context, path string, q url.Values) (*Envelope, error) {
	return a.call(ctx, request{method: http.MethodGet, path: path, query: q})
}

// sendJSON marshals v (nil sends no body) and performs method on path.
func (a *API) sendJSON(ctx context.Context, method, path string, v any) (*Envelope, error) {
	rq := request{method: method, path: path}
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("backend: encode body: %w", err)
		}
		rq.body = b
		rq.contentType = "application/json"
	}
	return a.call(ctx, rq)
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

func seg(s string) string { return url.PathEscape(s) }

/*──────────────────────── retryablehttp logger ───────────────────────────*/

// leveledLogger routes retryablehttp's chatter through zap.
type leveledLogger struct{ s *zap.SugaredLogger }

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
