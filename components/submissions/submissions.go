// components/submissions/submissions.go
//
// Vendor business type submissions – review queue.
//
// Context
// -------
// Vendors may propose business types of their own.  Each proposal waits in
// a pending state until an administrator approves it (optionally promoting
// it into the standard catalogue), rejects it with a reason, or lets it
// expire.  The page also carries the platform switch that opens or closes
// vendor submissions, since it is the only place the switch matters.
//
// Every action is a plain POST that answers with a 303 back to the page it
// came from, carrying a notice or an error in the query string.
//
//------------------------------------------------------------------------------

package submissions

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component"
)

const (
	basePath = "/admin/vendor-submissions"
	pageSize = 20

	// MinReasonLength is the shortest rejection reason accepted.
	MinReasonLength = 10

	msgApproved      = "Business type approved and made available system-wide."
	msgRejected      = "Submission rejected successfully!"
	msgDeleted       = "Submission deleted successfully!"
	msgNotesSaved    = "Notes saved."
	msgExpired       = "Overdue submissions marked as expired."
	msgEnabled       = "Vendor submissions enabled successfully!"
	msgDisabled      = "Vendor submissions disabled successfully!"
	msgReasonTooFew  = "Please provide a rejection reason (minimum 10 characters)"
	msgLoadFailed    = "Failed to load submissions"
	msgDetailMissing = "Submission not found."
)

// Statuses are the filter tabs, in display order.  "all" sends no filter.
var Statuses = []string{"all", "pending", "approved", "rejected", "expired"}

//go:embed templates/*.html
var templates embed.FS

var _ component.Component = (*Component)(nil)

// Vendor is the submitting account.
type Vendor struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	VendorDetails *struct {
		BusinessName string `json:"businessName"`
	} `json:"vendorDetails"`
}

// BusinessName is "" when the vendor has no details on file.
func (v *Vendor) BusinessName() string {
	if v == nil || v.VendorDetails == nil {
		return ""
	}
	return v.VendorDetails.BusinessName
}

type Category struct {
	Name          string `json:"categoryName"`
	Subcategories []struct {
		Name string `json:"subcategoryName"`
	} `json:"subcategories"`
}

type CustomField struct {
	Label    string `json:"fieldLabel"`
	Type     string `json:"fieldType"`
	Required bool   `json:"required"`
}

// Submission is one vendor proposal.  DaysRemaining is nil once the
// submission has left the pending state.
type Submission struct {
	ID               string   `json:"_id"`
	BusinessTypeName string   `json:"businessTypeName"`
	Description      string   `json:"description"`
	Status           string   `json:"status"`
	DaysRemaining    *int     `json:"daysRemaining"`
	SubmittedAt      string   `json:"submittedAt"`
	SubmittedBy      *Vendor  `json:"submittedBy"`
	AdminNotes       string   `json:"adminNotes"`
	RejectionReason  string   `json:"rejectionReason"`
	ExcludedFields   []string `json:"excludedFields"`
	IconImage        *struct {
		URL string `json:"url"`
	} `json:"iconImage"`
	BaseTemplate *struct {
		Name     string `json:"templateName"`
		Category string `json:"category"`
	} `json:"baseTemplate"`
	Categories   []Category    `json:"categories"`
	CustomFields []CustomField `json:"customFields"`
}

// Pending reports whether the submission still awaits a decision.
func (s Submission) Pending() bool { return s.Status == "pending" }

// Urgent flags pending submissions that expire within three days.
func (s Submission) Urgent() bool {
	return s.Pending() && s.DaysRemaining != nil && *s.DaysRemaining <= 3
}

// Stats are the queue counters.
type Stats struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Approved     int `json:"approved"`
	Rejected     int `json:"rejected"`
	ExpiringSoon int `json:"expiringSoon"`
}

type listData struct {
	Items    []Submission
	Stats    *Stats
	Status   string
	Statuses []string
	Enabled  bool
	Known    bool // Enabled came from the backend
	Pager    *component.Pager
}

type Component struct{}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string     { return "submissions" }
func (c *Component) Templates() fs.FS { return component.Sub(templates, "templates") }

func (c *Component) Routes(r chi.Router, d *component.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(d.Guard.Require(acl.TagSubmissions))
		r.Get(basePath, c.list(d))
		r.Post(basePath+"/toggle", c.toggle(d))
		r.Post(basePath+"/mark-expired", c.markExpired(d))
		r.Get(basePath+"/{id}", c.detail(d))
		r.Post(basePath+"/{id}/approve", c.approve(d))
		r.Post(basePath+"/{id}/reject", c.reject(d))
		r.Post(basePath+"/{id}/notes", c.notes(d))
		r.Post(basePath+"/{id}/delete", c.remove(d))
	})
}

/*──────────────────────────── pages ────────────────────────────────────────*/

func (c *Component) list(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		api := d.API(r)
		p := d.Page(r, "Vendor Submissions", basePath)
		data := &listData{Status: statusFilter(r.URL.Query().Get("status")), Statuses: Statuses}

		q := component.ListQuery(r.URL.Query(), pageSize, "search")
		if data.Status != "all" {
			q.Set("status", data.Status)
		}
		env, err := api.Submissions(ctx, q)
		if d.SessionLost(w, r, err) {
			return
		}
		if err == nil {
			err = env.Decode(&data.Items)
		}
		if err != nil {
			d.Logger().Warnw("submissions: list", "err", err)
			p.Error = msgLoadFailed
		} else {
			data.Pager = component.NewPager(env.Pagination, r.URL)
		}

		// Stats and the feature switch are decoration; their failures are
		// logged and the page renders without them.
		if env, err := api.SubmissionStats(ctx); err == nil {
			st := &Stats{}
			if env.Decode(st) == nil {
				data.Stats = st
			}
		} else if d.SessionLost(w, r, err) {
			return
		} else {
			d.Logger().Warnw("submissions: stats", "err", err)
		}
		if env, err := api.VendorSubmissionsStatus(ctx); err == nil {
			var s struct {
				Enabled bool `json:"enabled"`
			}
			if env.Decode(&s) == nil {
				data.Enabled, data.Known = s.Enabled, true
			}
		} else if d.SessionLost(w, r, err) {
			return
		} else {
			d.Logger().Warnw("submissions: feature status", "err", err)
		}

		p.Data = data
		d.Render(w, r, http.StatusOK, c.Name(), "list", p)
	}
}

func (c *Component) detail(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := d.API(r).Submission(r.Context(), chi.URLParam(r, "id"))
		if d.SessionLost(w, r, err) {
			return
		}
		var s Submission
		if err == nil {
			err = env.Decode(&s)
		}
		if err != nil || s.ID == "" {
			msg := msgDetailMissing
			if err != nil {
				msg = backend.Message(err)
			}
			component.Redirect(w, r, basePath, component.ErrorParam, msg)
			return
		}
		p := d.Page(r, s.BusinessTypeName, basePath)
		p.Data = &s
		d.Render(w, r, http.StatusOK, c.Name(), "detail", p)
	}
}

/*──────────────────────────── actions ──────────────────────────────────────*/

// action wraps the CSRF check, the 401 redirect, and the result redirect
// every POST shares.  call returns the notice shown on success.
func (c *Component) action(d *component.Deps, back func(r *http.Request) string, call func(r *http.Request, api *backend.API) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		to := back(r)
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, to)
			return
		}
		notice, err := call(r, d.API(r))
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			d.Logger().Warnw("submissions: action failed", "path", r.URL.Path, "err", err)
			component.Redirect(w, r, to, component.ErrorParam, backend.Message(err))
			return
		}
		d.Logger().Infow("submissions: action", "path", r.URL.Path)
		component.Redirect(w, r, to, component.NoticeParam, notice)
	}
}

func toList(*http.Request) string { return basePath }

func toDetail(r *http.Request) string { return basePath + "/" + chi.URLParam(r, "id") }

func (c *Component) approve(d *component.Deps) http.HandlerFunc {
	return c.action(d, toList, func(r *http.Request, api *backend.API) (string, error) {
		_, convert := r.PostForm["convertToStandard"]
		_, err := api.ApproveSubmission(r.Context(), chi.URLParam(r, "id"), convert)
		return msgApproved, err
	})
}

func (c *Component) reject(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil && !validReason(r.PostForm.Get("reason")) {
			component.Redirect(w, r, toDetail(r), component.ErrorParam, msgReasonTooFew)
			return
		}
		c.action(d, toList, func(r *http.Request, api *backend.API) (string, error) {
			_, err := api.RejectSubmission(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(r.PostForm.Get("reason")))
			return msgRejected, err
		})(w, r)
	}
}

func (c *Component) notes(d *component.Deps) http.HandlerFunc {
	return c.action(d, toDetail, func(r *http.Request, api *backend.API) (string, error) {
		_, err := api.UpdateSubmissionNotes(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(r.PostForm.Get("adminNotes")))
		return msgNotesSaved, err
	})
}

func (c *Component) remove(d *component.Deps) http.HandlerFunc {
	return c.action(d, toList, func(r *http.Request, api *backend.API) (string, error) {
		_, err := api.DeleteSubmission(r.Context(), chi.URLParam(r, "id"))
		return msgDeleted, err
	})
}

func (c *Component) markExpired(d *component.Deps) http.HandlerFunc {
	return c.action(d, toList, func(r *http.Request, api *backend.API) (string, error) {
		env, err := api.MarkExpired(r.Context())
		if err == nil && env.Message != "" {
			return env.Message, nil
		}
		return msgExpired, err
	})
}

// toggle sets the switch to the posted value rather than flipping it, so a
// stale page cannot undo a colleague's change.
func (c *Component) toggle(d *component.Deps) http.HandlerFunc {
	return c.action(d, toList, func(r *http.Request, api *backend.API) (string, error) {
		enable := r.PostForm.Get("enabled") == "true"
		_, err := api.ToggleVendorSubmissions(r.Context(), enable, strings.TrimSpace(r.PostForm.Get("reason")))
		if enable {
			return msgEnabled, err
		}
		return msgDisabled, err
	})
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func statusFilter(s string) string {
	for _, known := range Statuses {
		if s == known {
			return s
		}
	}
	return "all"
}

func validReason(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= MinReasonLength
}
