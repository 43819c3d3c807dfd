package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component/componenttest"
	"github.com/yanizio/adept-admin/internal/storage"
)

func seed(t *testing.T, h *componenttest.Harness, hist history) {
	t.Helper()
	b, err := json.Marshal(hist)
	require.NoError(t, err)
	require.NoError(t, storage.Set(context.Background(), h.Scoped(), storage.AssistantKey, string(b)))
}

func stored(t *testing.T, h *componenttest.Harness) history {
	t.Helper()
	raw, ok := h.Stored(storage.AssistantKey)
	require.True(t, ok)
	var hist history
	require.NoError(t, json.Unmarshal([]byte(raw), &hist))
	return hist
}

func chatBackend(t *testing.T, got *backend.ChatRequest, calls *atomic.Int32) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/ai-suggestions/chat", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		componenttest.OK(w, map[string]any{"conversationalResponse": "Try pet grooming.", "isConversational": true})
	})
	mux.HandleFunc("GET /admin/ai-suggestions/health", func(w http.ResponseWriter, r *http.Request) {
		componenttest.OK(w, map[string]bool{"configured": true})
	})
	return mux
}

func TestSend_AppendsTranscriptAndSendsWindow(t *testing.T) {
	var got backend.ChatRequest
	var calls atomic.Int32
	h := componenttest.New(t, chatBackend(t, &got, &calls), &Component{})
	h.SignIn(acl.RoleAdmin)

	prior := history{Owner: "1"}
	for i := 0; i < 6; i++ {
		prior.Turns = append(prior.Turns, Turn{Role: "user", Content: fmt.Sprintf("q%d", i)})
	}
	prior.Turns = append(prior.Turns, Turn{Role: "assistant", Content: "boom", Error: true})
	seed(t, h, prior)

	rec := h.Post(basePath, url.Values{"message": {"  Any ideas?  "}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, basePath, rec.Header().Get("Location"))

	assert.Equal(t, "Any ideas?", got.Message)
	require.Len(t, got.ConversationHistory, historyWindow)
	assert.Equal(t, "q1", got.ConversationHistory[0].Content)
	assert.Equal(t, "q5", got.ConversationHistory[4].Content)

	hist := stored(t, h)
	require.Len(t, hist.Turns, 9)
	assert.Equal(t, "Any ideas?", hist.Turns[7].Content)
	assert.Equal(t, "Try pet grooming.", hist.Turns[8].Content)
	assert.False(t, hist.Turns[8].Error)
}

func TestSend_BackendFailureRecordsErrorTurn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/ai-suggestions/chat", func(w http.ResponseWriter, r *http.Request) {
		componenttest.Fail(w, http.StatusBadRequest, "AI quota exceeded")
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Post(basePath, url.Values{"message": {"hello"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	hist := stored(t, h)
	require.Len(t, hist.Turns, 2)
	assert.True(t, hist.Turns[1].Error)
	assert.Equal(t, "AI quota exceeded", hist.Turns[1].Content)
}

func TestSend_EmptyMessageSkipsBackend(t *testing.T) {
	var got backend.ChatRequest
	var calls atomic.Int32
	h := componenttest.New(t, chatBackend(t, &got, &calls), &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Post(basePath, url.Values{"message": {"   "}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=")
	assert.Zero(t, calls.Load())
}

func TestSend_RateLimitedPerBrowser(t *testing.T) {
	var got backend.ChatRequest
	var calls atomic.Int32
	h := componenttest.New(t, chatBackend(t, &got, &calls), &Component{})
	h.SignIn(acl.RoleAdmin)

	for i := 0; i < 2; i++ {
		rec := h.Post(basePath, url.Values{"message": {"hi"}})
		require.Equal(t, basePath, rec.Header().Get("Location"))
	}
	rec := h.Post(basePath, url.Values{"message": {"hi"}})
	assert.Equal(t, basePath+"?error="+url.QueryEscape(msgRateLimited), rec.Header().Get("Location"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestPage_IgnoresAnotherAdminsTranscript(t *testing.T) {
	var got backend.ChatRequest
	var calls atomic.Int32
	h := componenttest.New(t, chatBackend(t, &got, &calls), &Component{})
	h.SignIn(acl.RoleAdmin)
	seed(t, h, history{Owner: "2", Turns: []Turn{{Role: "user", Content: "secret plan"}}})

	rec := h.Get(basePath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret plan")
	assert.Contains(t, rec.Body.String(), "Validate idea")
}

func TestPage_PrefillsPrompt(t *testing.T) {
	var got backend.ChatRequest
	var calls atomic.Int32
	h := componenttest.New(t, chatBackend(t, &got, &calls), &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Get(basePath + "?prompt=" + url.QueryEscape("Suggest categories"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "required>Suggest categories</textarea>")
}

func TestClear_RemovesTranscript(t *testing.T) {
	h := componenttest.New(t, nil, &Component{})
	h.SignIn(acl.RoleAdmin)
	seed(t, h, history{Owner: "1", Turns: []Turn{{Role: "user", Content: "x"}}})

	rec := h.Post(basePath+"/clear", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, ok := h.Stored(storage.AssistantKey)
	assert.False(t, ok)
}

func postJSON(h *componenttest.Harness, body, csrf string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, basePath+"/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if csrf != "" {
		req.Header.Set(csrfHeader, csrf)
	}
	return h.Do(req)
}

func TestChatJSON(t *testing.T) {
	var got backend.ChatRequest
	var calls atomic.Int32
	h := componenttest.New(t, chatBackend(t, &got, &calls), &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := postJSON(h, `{"message":"hi"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	turns := make([]backend.ChatTurn, 8)
	for i := range turns {
		turns[i] = backend.ChatTurn{Role: "user", Content: fmt.Sprintf("t%d", i)}
	}
	b, err := json.Marshal(backend.ChatRequest{Message: "hi", ConversationHistory: turns})
	require.NoError(t, err)

	rec = postJSON(h, string(b), h.CSRF())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, got.ConversationHistory, historyWindow)
	assert.Equal(t, "t3", got.ConversationHistory[0].Content)

	var out struct {
		Success bool  `json:"success"`
		Data    Reply `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "Try pet grooming.", out.Data.Text)
	assert.EqualValues(t, 1, calls.Load())
}

func TestChatJSON_RejectsBadRole(t *testing.T) {
	var got backend.ChatRequest
	var calls atomic.Int32
	h := componenttest.New(t, chatBackend(t, &got, &calls), &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := postJSON(h, `{"message":"hi","conversationHistory":[{"role":"system","content":"x"}]}`, h.CSRF())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Role (oneof)")
	assert.Zero(t, calls.Load())
}

func TestChatJSON_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/ai-suggestions/chat", func(w http.ResponseWriter, r *http.Request) {
		componenttest.Fail(w, http.StatusUnauthorized, "expired")
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := postJSON(h, `{"message":"hi"}`, h.CSRF())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, ok := h.Stored(storage.TokenKey)
	assert.False(t, ok)
}

func TestValidateIdea_RendersResult(t *testing.T) {
	var idea map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/ai-suggestions/validate", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&idea))
		componenttest.OK(w, map[string]any{"viable": true, "score": 8})
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Post(basePath+"/validate", url.Values{"businessIdea": {"Mobile dog wash"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mobile dog wash", idea["businessIdea"])
	assert.Contains(t, rec.Body.String(), "Idea validation")
	assert.Contains(t, rec.Body.String(), "&#34;viable&#34;: true")
}

func TestValidateIdea_BlankSkipsBackend(t *testing.T) {
	h := componenttest.New(t, nil, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Post(basePath+"/validate", url.Values{"businessIdea": {" "}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, basePath+"?error="+url.QueryEscape(msgIdeaRequired), rec.Header().Get("Location"))
}

func TestWindow_SkipsErrorsAndClips(t *testing.T) {
	long := strings.Repeat("é", maxTurnRunes+10)
	out := window([]Turn{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "oops", Error: true},
		{Role: "assistant", Content: long},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Content)
	assert.Equal(t, maxTurnRunes, len([]rune(out[1].Content)))
}

func TestLimiter(t *testing.T) {
	var off *limiter
	assert.True(t, off.allow("x"))
	assert.Nil(t, newLimiter(0, 5))

	l := newLimiter(1, 1)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))
}
