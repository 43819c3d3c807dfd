// components/assistant/assistant.go
//
// AI business assistant – a chat page and a JSON proxy in front of the
// backend's suggestion service.
//
// Context
// -------
// The page keeps the conversation in the browser's durable storage, tied
// to the admin who had it, so it survives reloads and is not shown to the
// next admin on the same browser.  Each message sends only the last few
// turns as context.  The helper tools (idea validation, category
// expansion, trending types) render their result on the same page.
//
// POST /admin/assistant/chat is the JSON form of the same call for
// scripted clients; it takes its CSRF token in the X-CSRF-Token header.
//
// Every call that reaches the AI service draws from a per-browser token
// bucket first.
//
//------------------------------------------------------------------------------

package assistant

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/auth"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component"
	"github.com/yanizio/adept-admin/internal/session"
	"github.com/yanizio/adept-admin/internal/storage"
)

const (
	basePath = "/admin/assistant"

	// historyWindow is how many earlier turns accompany a message.
	historyWindow = 5
	// maxStoredTurns caps the transcript kept per browser.
	maxStoredTurns = 40
	maxTurnRunes   = 4000
	maxJSONBody    = 64 << 10

	csrfHeader = "X-CSRF-Token"

	defaultReply      = "Here are my suggestions:"
	msgRateLimited    = "Too many requests. Please wait a moment and try again."
	msgIdeaRequired   = "Please describe the business idea."
	msgTypeRequired   = "Please choose a business type."
	msgCleared        = "Conversation cleared."
	msgInvalidRequest = "Invalid request"
)

// Prompt is a canned question offered as a one-click start.
type Prompt struct {
	Label   string
	Message string
}

// Prompts are shown above the input box.
var Prompts = []Prompt{
	{"Trending", "What are the trending business types in 2026?"},
	{"Restaurant", "Suggest categories for a restaurant business"},
	{"Services", "What service-based businesses work well in marketplaces?"},
	{"E-commerce", "Suggest product categories for an e-commerce vendor"},
}

//go:embed templates/*.html
var templates embed.FS

var validate = validator.New()

var _ component.Component = (*Component)(nil)

// Turn is one line of the transcript.  Error turns are shown but never
// sent back as context.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Error   bool      `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// history is the stored transcript.  Owner is the admin's user ID.
type history struct {
	Owner string `json:"owner"`
	Turns []Turn `json:"turns"`
}

// Reply is the decoded chat answer.
type Reply struct {
	Text             string `json:"conversationalResponse"`
	IsConversational bool   `json:"isConversational"`
}

// Result is a tool answer rendered under the chat.
type Result struct {
	Title string
	Body  any
}

type pageData struct {
	Turns      []Turn
	Prompts    []Prompt
	Configured bool
	Known      bool // Configured came from the backend
	Result     *Result
	Draft      string
}

type Component struct{}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string     { return "assistant" }
func (c *Component) Templates() fs.FS { return component.Sub(templates, "templates") }

func (c *Component) Routes(r chi.Router, d *component.Deps) {
	lim := newLimiter(d.Assistant.RatePerMinute, d.Assistant.Burst)
	r.Group(func(r chi.Router) {
		r.Use(d.Guard.Require(acl.TagAssistant))
		r.Get(basePath, c.page(d))
		r.Post(basePath, c.send(d, lim))
		r.Post(basePath+"/clear", c.clear(d))
		r.Post(basePath+"/validate", c.validateIdea(d, lim))
		r.Post(basePath+"/expand-categories", c.expand(d, lim))
		r.Get(basePath+"/trending", c.trending(d))
		r.Get(basePath+"/health", c.health(d))
		r.Post(basePath+"/chat", c.chatJSON(d, lim))
	})
}

/*──────────────────────────── page ─────────────────────────────────────────*/

func (c *Component) page(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.render(w, r, d, nil)
	}
}

// render draws the chat page with an optional tool result.
func (c *Component) render(w http.ResponseWriter, r *http.Request, d *component.Deps, res *Result) {
	p := d.Page(r, "AI Business Assistant", basePath)
	data := &pageData{
		Turns:   loadHistory(r).Turns,
		Prompts: Prompts,
		Result:  res,
		Draft:   r.URL.Query().Get("prompt"),
	}

	env, err := d.API(r).AIHealth(r.Context())
	if d.SessionLost(w, r, err) {
		return
	}
	if err == nil {
		var h struct {
			Configured bool `json:"configured"`
		}
		if env.Decode(&h) == nil {
			data.Configured, data.Known = h.Configured, true
		}
	} else {
		d.Logger().Warnw("assistant: health", "err", err)
	}

	p.Data = data
	d.Render(w, r, http.StatusOK, c.Name(), "chat", p)
}

/*──────────────────────────── chat ─────────────────────────────────────────*/

func (c *Component) send(d *component.Deps, lim *limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, basePath)
			return
		}
		if !lim.allow(browser(r)) {
			component.Redirect(w, r, basePath, component.ErrorParam, msgRateLimited)
			return
		}

		h := loadHistory(r)
		req := backend.ChatRequest{
			Message:             strings.TrimSpace(r.PostForm.Get("message")),
			ConversationHistory: window(h.Turns),
		}
		if err := check(&req); err != nil {
			component.Redirect(w, r, basePath, component.ErrorParam, err.Error())
			return
		}

		h.add(Turn{Role: "user", Content: req.Message})
		reply, err := chat(r.Context(), d.API(r), req)
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			d.Logger().Warnw("assistant: chat", "err", err)
			h.add(Turn{Role: "assistant", Content: backend.Message(err), Error: true})
		} else {
			h.add(Turn{Role: "assistant", Content: reply.Text})
		}
		if err := saveHistory(r, h); err != nil {
			d.Logger().Errorw("assistant: save history", "err", err)
		}
		http.Redirect(w, r, basePath, http.StatusSeeOther)
	}
}

func (c *Component) clear(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, basePath)
			return
		}
		if err := component.Store(r).Delete(r.Context(), storage.AssistantKey); err != nil {
			d.Logger().Errorw("assistant: clear history", "err", err)
		}
		component.Redirect(w, r, basePath, component.NoticeParam, msgCleared)
	}
}

// chatJSON answers in the backend's own envelope shape.
func (c *Component) chatJSON(d *component.Deps, lim *limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.CSRF != nil && !d.CSRF.Verify(r.Header.Get(csrfHeader)) {
			fail(w, http.StatusForbidden, component.MsgCSRF)
			return
		}
		if !lim.allow(browser(r)) {
			w.Header().Set("Retry-After", "60")
			fail(w, http.StatusTooManyRequests, msgRateLimited)
			return
		}

		var req backend.ChatRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
			fail(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}
		req.Message = strings.TrimSpace(req.Message)
		if n := len(req.ConversationHistory); n > historyWindow {
			req.ConversationHistory = req.ConversationHistory[n-historyWindow:]
		}
		if err := check(&req); err != nil {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}

		reply, err := chat(r.Context(), d.API(r), req)
		if errors.Is(err, backend.ErrUnauthorized) {
			fail(w, http.StatusUnauthorized, backend.MsgSessionExpired)
			return
		}
		if err != nil {
			d.Logger().Warnw("assistant: chat proxy", "err", err)
			status := backend.Status(err)
			if status < 400 {
				status = http.StatusBadGateway
			}
			fail(w, status, backend.Message(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": reply})
	}
}

func (c *Component) health(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := d.API(r).AIHealth(r.Context())
		if errors.Is(err, backend.ErrUnauthorized) {
			fail(w, http.StatusUnauthorized, backend.MsgSessionExpired)
			return
		}
		configured := false
		if err == nil {
			var h struct {
				Configured bool `json:"configured"`
			}
			_ = env.Decode(&h)
			configured = h.Configured
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]bool{"configured": configured}})
	}
}

/*──────────────────────────── tools ────────────────────────────────────────*/

func (c *Component) validateIdea(d *component.Deps, lim *limiter) http.HandlerFunc {
	return c.tool(d, lim, "Idea validation", func(r *http.Request, api *backend.API) (*backend.Envelope, string, error) {
		idea := strings.TrimSpace(r.PostForm.Get("businessIdea"))
		if idea == "" {
			return nil, msgIdeaRequired, nil
		}
		env, err := api.ValidateIdea(r.Context(), idea)
		return env, "", err
	})
}

func (c *Component) expand(d *component.Deps, lim *limiter) http.HandlerFunc {
	return c.tool(d, lim, "Category suggestions", func(r *http.Request, api *backend.API) (*backend.Envelope, string, error) {
		id := strings.TrimSpace(r.PostForm.Get("businessTypeId"))
		name := strings.TrimSpace(r.PostForm.Get("businessTypeName"))
		if id == "" && name == "" {
			return nil, msgTypeRequired, nil
		}
		env, err := api.ExpandCategories(r.Context(), id, name)
		return env, "", err
	})
}

// tool wraps the checks every helper form shares.  call returns either an
// envelope, a user error that skips the backend, or a backend error.
func (c *Component) tool(d *component.Deps, lim *limiter, title string, call func(*http.Request, *backend.API) (*backend.Envelope, string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, basePath)
			return
		}
		if !lim.allow(browser(r)) {
			component.Redirect(w, r, basePath, component.ErrorParam, msgRateLimited)
			return
		}
		env, bad, err := call(r, d.API(r))
		if bad != "" {
			component.Redirect(w, r, basePath, component.ErrorParam, bad)
			return
		}
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			d.Logger().Warnw("assistant: tool", "tool", title, "err", err)
			component.Redirect(w, r, basePath, component.ErrorParam, backend.Message(err))
			return
		}
		c.render(w, r, d, &Result{Title: title, Body: body(env)})
	}
}

func (c *Component) trending(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := d.API(r).Trending(r.Context())
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			d.Logger().Warnw("assistant: trending", "err", err)
			component.Redirect(w, r, basePath, component.ErrorParam, backend.Message(err))
			return
		}
		c.render(w, r, d, &Result{Title: "Trending business types", Body: body(env)})
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func chat(ctx context.Context, api *backend.API, req backend.ChatRequest) (*Reply, error) {
	env, err := api.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	reply := &Reply{}
	if err := env.Decode(reply); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply.Text) == "" {
		reply.Text = defaultReply
	}
	return reply, nil
}

// check runs the struct tags on req and flattens failures into one
// message.
func check(req *backend.ChatRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%s: %s", msgInvalidRequest, strings.Join(parts, ", "))
}

// window picks the context turns sent with a new message.
func window(turns []Turn) []backend.ChatTurn {
	out := make([]backend.ChatTurn, 0, historyWindow)
	for _, t := range turns {
		if t.Error || strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, backend.ChatTurn{Role: t.Role, Content: clip(t.Content)})
	}
	if len(out) > historyWindow {
		out = out[len(out)-historyWindow:]
	}
	return out
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxTurnRunes {
		return s
	}
	return string([]rune(s)[:maxTurnRunes])
}

func (h *history) add(t Turn) {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	h.Turns = append(h.Turns, t)
	if n := len(h.Turns); n > maxStoredTurns {
		h.Turns = h.Turns[n-maxStoredTurns:]
	}
}

// loadHistory returns the caller's transcript, or an empty one owned by
// the caller when none is stored, it is unreadable, or another admin
// owns it.
func loadHistory(r *http.Request) *history {
	who := owner(r)
	raw, ok, err := component.Store(r).Get(r.Context(), storage.AssistantKey)
	if err != nil || !ok {
		return &history{Owner: who}
	}
	h := &history{}
	if json.Unmarshal([]byte(raw), h) != nil || h.Owner != who {
		return &history{Owner: who}
	}
	return h
}

func saveHistory(r *http.Request, h *history) error {
	b, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return storage.Set(r.Context(), component.Store(r), storage.AssistantKey, string(b))
}

func owner(r *http.Request) string {
	if m := auth.FromContext(r.Context()); m != nil {
		if u := m.User(); u != nil {
			return string(u.UserID)
		}
	}
	return ""
}

func browser(r *http.Request) string {
	id, _ := session.BrowserID(r.Context())
	return id
}

// body decodes the envelope data for display, or nil.
func body(env *backend.Envelope) any {
	var v any
	if env == nil || env.Decode(&v) != nil {
		return nil
	}
	return v
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
