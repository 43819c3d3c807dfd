package submissions

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/component/componenttest"
)

func days(n int) *int { return &n }

func listBackend(t *testing.T, gotQuery *url.Values) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/vendor-business-types/submissions", func(w http.ResponseWriter, r *http.Request) {
		*gotQuery = r.URL.Query()
		componenttest.OKPage(w, []Submission{
			{ID: "s1", BusinessTypeName: "Pet Grooming", Status: "pending", DaysRemaining: days(2), SubmittedBy: &Vendor{Name: "Pat"}},
			{ID: "s2", BusinessTypeName: "Yoga Studio", Status: "rejected"},
		}, 1, 1, 2)
	})
	mux.HandleFunc("GET /admin/vendor-business-types/stats", func(w http.ResponseWriter, r *http.Request) {
		componenttest.OK(w, Stats{Total: 12, Pending: 4, Approved: 6, Rejected: 2, ExpiringSoon: 1})
	})
	mux.HandleFunc("GET /admin/system-config/vendor-submissions-status", func(w http.ResponseWriter, r *http.Request) {
		componenttest.OK(w, map[string]bool{"enabled": true})
	})
	return mux
}

func TestList_FiltersByStatus(t *testing.T) {
	var q url.Values
	h := componenttest.New(t, listBackend(t, &q), &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Get(basePath + "?status=pending")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", q.Get("status"))
	assert.Equal(t, "20", q.Get("limit"))

	body := rec.Body.String()
	assert.Contains(t, body, "Pet Grooming")
	assert.Contains(t, body, "2 days")
	assert.Contains(t, body, "Disable")
	assert.Contains(t, body, "<strong>12</strong>")
}

func TestList_AllSendsNoStatus(t *testing.T) {
	var q url.Values
	h := componenttest.New(t, listBackend(t, &q), &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Get(basePath + "?status=bogus")
	require.Equal(t, http.StatusOK, rec.Code)
	_, has := q["status"]
	assert.False(t, has)
}

func TestApprove_SendsConvertFlag(t *testing.T) {
	var got map[string]bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/vendor-business-types/submissions/s1/approve", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		componenttest.OK(w, nil)
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Post(basePath+"/s1/approve", url.Values{"convertToStandard": {"on"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, basePath+"?notice="+url.QueryEscape(msgApproved), rec.Header().Get("Location"))
	assert.Equal(t, map[string]bool{"convertToStandard": true}, got)
}

func TestReject_ShortReasonSkipsBackend(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/vendor-business-types/submissions/s1/reject", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Post(basePath+"/s1/reject", url.Values{"reason": {"  too short "}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, basePath+"/s1?error="+url.QueryEscape(msgReasonTooFew), rec.Header().Get("Location"))
	assert.Zero(t, calls.Load())
}

func TestReject_ForwardsTrimmedReason(t *testing.T) {
	var got map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/vendor-business-types/submissions/s1/reject", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		componenttest.OK(w, nil)
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Post(basePath+"/s1/reject", url.Values{"reason": {"  Duplicate of Pet Care  "}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Duplicate of Pet Care", got["reason"])
}

func TestToggle_SetsPostedValue(t *testing.T) {
	var got struct {
		Enabled bool   `json:"enabled"`
		Reason  string `json:"reason"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /admin/system-config/toggle-vendor-submissions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		componenttest.OK(w, nil)
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Post(basePath+"/toggle", url.Values{"enabled": {"false"}, "reason": {"holiday freeze"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape(msgDisabled))
	assert.False(t, got.Enabled)
	assert.Equal(t, "holiday freeze", got.Reason)
}

func TestDetail_BackendErrorReturnsToList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/vendor-business-types/submissions/gone", func(w http.ResponseWriter, r *http.Request) {
		componenttest.Fail(w, http.StatusNotFound, "missing")
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Get(basePath + "/gone")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), basePath+"?error=")
}

func TestDetail_Renders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/vendor-business-types/submissions/s1", func(w http.ResponseWriter, r *http.Request) {
		componenttest.OK(w, map[string]any{
			"_id":              "s1",
			"businessTypeName": "Pet Grooming",
			"status":           "pending",
			"daysRemaining":    5,
			"adminNotes":       "Check licence",
			"categories":       []map[string]any{{"categoryName": "Dogs", "subcategories": []map[string]string{{"subcategoryName": "Bath"}, {"subcategoryName": "Trim"}}}},
		})
	})
	h := componenttest.New(t, mux, &Component{})
	h.SignIn(acl.RoleAdmin)

	rec := h.Get(basePath + "/s1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Bath, Trim")
	assert.Contains(t, body, "Check licence")
	assert.Contains(t, body, "5 days")
	assert.Contains(t, body, "Reject")
}
