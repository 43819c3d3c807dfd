package admins

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component/componenttest"
	"github.com/yanizio/adept-admin/internal/storage"
)

var validAdmin = url.Values{
	"name":     {"Grace Hopper"},
	"username": {"grace"},
	"email":    {"grace@example.test"},
	"password": {"cobol59"},
}

func TestList_SuperAdminOnly(t *testing.T) {
	h := componenttest.New(t, nil, &Component{})
	h.SignIn(acl.RoleAdmin)
	rec := h.Get(listPath)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/vendor-analytics", rec.Header().Get("Location"))
}

func TestList_Renders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/auth/admins", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+componenttest.Token, r.Header.Get("Authorization"))
		componenttest.OK(w, []Admin{
			{ID: "a1", Name: "Grace Hopper", Username: "grace", Role: "super_admin", IsActive: true, CreatedAt: "2024-03-01T12:00:00Z"},
			{ID: "a2", Name: "Alan Turing", Username: "alan", Role: "admin"},
		})
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleSuperAdmin)

	rec := h.Get(listPath)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Grace Hopper")
	assert.Contains(t, body, "Super Admin")
	assert.Contains(t, body, "Inactive")
	assert.Contains(t, body, "Never")
	assert.Contains(t, body, "Mar 1, 2024")
}

func TestList_BackendRejectsToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/auth/admins", func(w http.ResponseWriter, r *http.Request) {
		componenttest.Fail(w, http.StatusUnauthorized, "expired")
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleSuperAdmin)

	rec := h.Get(listPath)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/admin/login?error=")
	_, ok := h.Stored(storage.TokenKey)
	assert.False(t, ok)
}

func TestCreate_InvalidSkipsBackend(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/auth/create-admin", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleSuperAdmin)

	bad := url.Values{"name": {"G"}, "username": {"grace"}, "email": {"nope"}, "password": {"cobol59"}}
	rec := h.Post(createPath, bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Name must be at least 2 characters")
	assert.Contains(t, rec.Body.String(), "Please enter a valid email address")
	assert.NotContains(t, rec.Body.String(), "cobol59")
	assert.Zero(t, calls.Load())
}

func TestCreate_Success(t *testing.T) {
	var got backend.CreateAdminInput
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/auth/create-admin", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		componenttest.OK(w, map[string]string{"_id": "a3"})
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleSuperAdmin)

	rec := h.Post(createPath, validAdmin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, listPath+"?notice="+url.QueryEscape(msgCreated), rec.Header().Get("Location"))
	assert.Equal(t, backend.CreateAdminInput{Name: "Grace Hopper", Username: "grace", Email: "grace@example.test", Password: "cobol59"}, got)
}

func TestCreate_BackendConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/auth/create-admin", func(w http.ResponseWriter, r *http.Request) {
		componenttest.Fail(w, http.StatusConflict, "Username already exists")
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleSuperAdmin)

	rec := h.Post(createPath, validAdmin)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already exists")
	assert.Contains(t, rec.Body.String(), `value="grace"`)
}
