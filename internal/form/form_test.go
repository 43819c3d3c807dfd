package form

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*──────────────────────────── validation ──────────────────────────────────*/

func TestValidateField(t *testing.T) {
	cases := []struct {
		name, field string
		value       any
		want        string // "" == valid
	}{
		{"username too short", "username", "ab", "Username must be at least 3 characters"},
		{"username too long", "username", strings.Repeat("a", 21), "Username must not exceed 20 characters"},
		{"username bad chars", "username", "ab cd", "Username must be 3-20 characters with letters, numbers, underscores, or hyphens"},
		{"username ok", "username", "ab_cd-12", ""},
		{"username trimmed", "username", "  bob  ", ""},
		{"password short", "password", "12345", "Password must be at least 6 characters long"},
		{"password ok", "password", "123456", ""},
		{"email bad", "email", "not-an-email", "Please enter a valid email address"},
		{"email ok", "email", "a@b.co", ""},
		{"name short", "name", "A", "Name must be at least 2 characters"},
		{"name digits", "name", "R2D2", "Name must contain only letters, spaces, hyphens, or apostrophes"},
		{"fullName ok", "fullName", "Mary-Jane O'Neil", ""},
		{"name with no-break space", "name", "Mary\u00a0Jane", ""},
		{"email with no-break space", "email", "a\u00a0b@c.co", "Please enter a valid email address"},
		{"email with ideographic space", "email", "a@b\u3000c.co", "Please enter a valid email address"},
		{"name non-ascii letter", "name", "Zoë", "Name must contain only letters, spaces, hyphens, or apostrophes"},
		{"required blank", "username", "   ", "username is required"},
		{"required nil", "notes", nil, "notes is required"},
		{"required false", "agree", false, "agree is required"},
		{"unknown field present", "notes", "anything", ""},
		{"checkbox true", "agree", true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateField(tc.field, tc.value)
			if tc.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Len(t, got, 1)
			assert.Equal(t, tc.want, got[tc.field])
		})
	}
}

func TestValidateForm_OnlySnapshotKeys(t *testing.T) {
	errs := ValidateForm(Values{"username": "ab", "password": "secret1"})
	assert.Equal(t, map[string]string{"username": "Username must be at least 3 characters"}, errs)
	_, hasEmail := errs["email"]
	assert.False(t, hasEmail, "absent fields are not validated")
}

/*──────────────────────────── engine ──────────────────────────────────────*/

func TestChange_ClearsOnlyThatFieldsError(t *testing.T) {
	f := New(Values{"username": "", "password": ""}, nil, nil)
	f.Blur("username")
	f.Blur("password")
	require.Len(t, f.State().Errors, 2)

	f.Change(ChangeEvent{Name: "username", Kind: KindText, Value: "a"})
	st := f.State()
	assert.NotContains(t, st.Errors, "username", "cleared on edit, not revalidated")
	assert.Contains(t, st.Errors, "password")
	assert.Equal(t, "a", st.Values["username"])
}

func TestChange_Checkbox(t *testing.T) {
	f := New(Values{"remember": false}, nil, nil)
	f.Change(ChangeEvent{Name: "remember", Kind: KindCheckbox, Value: "on", Checked: true})
	assert.Equal(t, true, f.State().Values["remember"])
}

func TestBlur_MergesWithoutClearingOthers(t *testing.T) {
	f := New(Values{"username": "ab", "email": "x"}, nil, nil)
	f.Blur("email")
	f.Blur("username")
	st := f.State()
	assert.True(t, st.Touched["username"])
	assert.True(t, st.Touched["email"])
	assert.Len(t, st.Errors, 2)
}

func TestSubmit_InvalidNeverCallsCallback(t *testing.T) {
	var called bool
	f := New(Values{"username": "ab", "password": "secret1"}, func(context.Context, Values) error {
		called = true
		return nil
	}, nil)

	assert.Equal(t, OutcomeInvalid, f.Submit(context.Background()))
	st := f.State()
	assert.False(t, called)
	assert.False(t, st.IsSubmitting)
	assert.Contains(t, st.Errors, "username")
	assert.True(t, st.Touched["username"])
	assert.True(t, st.Touched["password"])
}

func TestSubmit_TrimsSnapshotNotState(t *testing.T) {
	var got Values
	var calls int
	var during State
	var f *Form
	f = New(Values{"name": "  bob  ", "password": "secret1"}, func(_ context.Context, v Values) error {
		calls++
		got = v
		during = f.State()
		return nil
	}, nil)

	assert.Equal(t, OutcomeSubmitted, f.Submit(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "bob", got["name"])
	assert.Equal(t, "  bob  ", f.State().Values["name"])
	assert.True(t, during.IsSubmitting)
	assert.False(t, f.State().IsSubmitting)
}

func TestSubmit_ReplacesErrors(t *testing.T) {
	f := New(Values{"username": "bob"}, nil, nil)
	f.SetErrors(map[string]string{"other": "from backend"})
	assert.Equal(t, OutcomeSubmitted, f.Submit(context.Background()))
	assert.Empty(t, f.State().Errors)
}

func TestSubmit_CallbackErrorAndPanicSwallowed(t *testing.T) {
	boom := errors.New("backend down")
	f := New(Values{"username": "bob"}, func(context.Context, Values) error { return boom }, nil)
	assert.Equal(t, OutcomeSubmitted, f.Submit(context.Background()))
	assert.ErrorIs(t, f.LastErr(), boom)
	assert.False(t, f.State().IsSubmitting)

	p := New(Values{"username": "bob"}, func(context.Context, Values) error { panic("nil map") }, nil)
	assert.NotPanics(t, func() { p.Submit(context.Background()) })
	assert.Error(t, p.LastErr())
	assert.False(t, p.State().IsSubmitting)
}

func TestSubmit_SecondConcurrentSubmitIsBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls int
	var mu sync.Mutex

	f := New(Values{"username": "bob"}, func(context.Context, Values) error {
		mu.Lock()
		calls++
		mu.Unlock()
		close(entered)
		<-release
		return nil
	}, nil)

	done := make(chan Outcome)
	go func() { done <- f.Submit(context.Background()) }()
	<-entered

	assert.Equal(t, OutcomeBusy, f.Submit(context.Background()))
	close(release)
	assert.Equal(t, OutcomeSubmitted, <-done)
	assert.Equal(t, 1, calls)
}

func TestReset_RestoresInitial(t *testing.T) {
	initial := Values{"username": "  bob  ", "password": ""}
	f := New(initial, func(context.Context, Values) error { return nil }, nil)

	f.Change(ChangeEvent{Name: "username", Value: "x"})
	f.Change(ChangeEvent{Name: "extra", Value: "y"})
	f.Blur("username")
	f.Submit(context.Background())
	f.SetValues(Values{"username": "zzz"})

	f.Reset()
	st := f.State()
	assert.Equal(t, initial, st.Values)
	assert.Empty(t, st.Errors)
	assert.Empty(t, st.Touched)

	// Mutating the caller's map must not leak into the reset target.
	initial["username"] = "mutated"
	f.Reset()
	assert.Equal(t, "  bob  ", f.State().Values["username"])
}

func TestState_IsACopy(t *testing.T) {
	f := New(Values{"username": "bob"}, nil, nil)
	st := f.State()
	st.Values["username"] = "eve"
	st.Errors["username"] = "x"
	assert.Equal(t, "bob", f.State().Values["username"])
	assert.Empty(t, f.State().Errors)
}

/*──────────────────────────── definitions ─────────────────────────────────*/

const loginYAML = `
id: test/login
title: Sign in
submit: Sign in
fields:
  - name: username
    label: Username
    autocomplete: username
  - name: password
    label: Password
    type: password
  - name: remember
    label: Remember me
    type: checkbox
`

func TestParseFormDef(t *testing.T) {
	fd, err := ParseFormDef([]byte(loginYAML), "login.yaml")
	require.NoError(t, err)
	assert.Equal(t, KindText, fd.Fields[0].Kind(), "type defaults to text")
	assert.Equal(t, Values{"username": "", "password": "", "remember": false}, fd.Initial())

	_, err = ParseFormDef([]byte("id: x\nfields:\n  - name: a\n    label: A\n  - name: a\n    label: B\n"), "dup.yaml")
	assert.ErrorContains(t, err, "duplicate")

	_, err = ParseFormDef([]byte("id: x\nfields:\n  - name: a\n    label: A\n    type: slider\n"), "kind.yaml")
	assert.ErrorContains(t, err, "unknown type")

	_, err = ParseFormDef([]byte("title: no id\n"), "noid.yaml")
	assert.Error(t, err)
}

func TestFromRequest(t *testing.T) {
	fd, err := ParseFormDef([]byte(loginYAML), "login.yaml")
	require.NoError(t, err)

	evs := FromRequest(fd, url.Values{"username": {"bob"}})
	assert.Equal(t, []ChangeEvent{
		{Name: "username", Kind: KindText, Value: "bob"},
		{Name: "remember", Kind: KindCheckbox, Checked: false},
	}, evs)
}

func TestHandleSubmit(t *testing.T) {
	fd, err := ParseFormDef([]byte(loginYAML), "login.yaml")
	require.NoError(t, err)
	csrf, _ := NewCSRF("")
	tok, err := csrf.Generate()
	require.NoError(t, err)

	post := func(v url.Values) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(v.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return r
	}

	var got Values
	submit := func(_ context.Context, v Values) error { got = v; return nil }

	_, out, err := HandleSubmit(fd, csrf, post(url.Values{
		"csrf_token": {tok}, "username": {" bob "}, "password": {"secret1"}, "remember": {"on"},
	}), submit, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, out)
	assert.Equal(t, Values{"username": "bob", "password": "secret1", "remember": true}, got)

	f, out, err := HandleSubmit(fd, csrf, post(url.Values{"username": {"bob"}}), submit, nil)
	assert.ErrorIs(t, err, ErrCSRF)
	assert.Equal(t, OutcomeInvalid, out)
	assert.Equal(t, "bob", f.State().Values["username"], "posted values kept for re-render")
}

func TestBlurHelper(t *testing.T) {
	fd, err := ParseFormDef([]byte(loginYAML), "login.yaml")
	require.NoError(t, err)

	res, ok := Blur(fd, "username", "ab", false)
	require.True(t, ok)
	assert.Equal(t, "Username must be at least 3 characters", res.Error)

	res, ok = Blur(fd, "username", "alice", false)
	require.True(t, ok)
	assert.Empty(t, res.Error)

	_, ok = Blur(fd, "nope", "", false)
	assert.False(t, ok)
}

/*──────────────────────────── CSRF ────────────────────────────────────────*/

func TestCSRF(t *testing.T) {
	c, ephemeral := NewCSRF("")
	assert.True(t, ephemeral)

	tok, err := c.Generate()
	require.NoError(t, err)
	assert.True(t, c.Verify(tok))
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	assert.False(t, c.Verify(base64.RawURLEncoding.EncodeToString(raw)), "tampered signature")
	assert.False(t, c.Verify(""))

	other, _ := NewCSRF("")
	assert.False(t, other.Verify(tok), "different key")

	// Expired.
	issued := time.Now().Add(-3 * time.Hour)
	old := &CSRF{key: c.key, now: func() time.Time { return issued }}
	stale, err := old.Generate()
	require.NoError(t, err)
	assert.False(t, c.Verify(stale))
}

func TestCSRF_ConfiguredKey(t *testing.T) {
	key := "dGhpcy1pcy1hLTMyLWJ5dGUtbG9uZy1zZWNyZXQta2V5"
	a, ephemeral := NewCSRF(key)
	assert.False(t, ephemeral)
	b, _ := NewCSRF(key)
	tok, err := a.Generate()
	require.NoError(t, err)
	assert.True(t, b.Verify(tok), "replicas sharing a key accept each other's tokens")
}
