// components/businesses/businesses.go
//
// Business type catalogue – list, publish toggle, delete, create, and edit.
//
// Context
// -------
// A business type is a named taxonomy (up to five categories, each with up
// to five subcategories) built on one of the backend's form templates.  The
// create and edit pages post multipart bodies because they carry icon
// uploads.  The console checks the few things the backend would otherwise
// answer with a terse 400, then forwards the body byte for byte, so icon
// files and unknown fields reach the backend exactly as the browser sent
// them.
//
// Routes
// ------
//   GET  /admin/businesses                       list, ?search=&page=
//   POST /admin/businesses/{id}/toggle-publish
//   POST /admin/businesses/{id}/delete
//   GET  /admin/business/create      POST same
//   GET  /admin/business/edit/{id}   POST same
//
//------------------------------------------------------------------------------

package businesses

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component"
	"github.com/yanizio/adept-admin/internal/form"
)

const (
	listPath   = "/admin/businesses"
	createPath = "/admin/business/create"
	editPath   = "/admin/business/edit/"

	pageSize = 10

	// MaxCategories bounds both categories per type and subcategories per
	// category.
	MaxCategories = 5

	maxUpload     = 20 << 20
	maxFormMemory = 8 << 20

	msgCreated   = "Business type created successfully"
	msgUpdated   = "Business type updated successfully"
	msgDeleted   = "Business type deleted successfully"
	msgToggled   = "Status updated successfully"
	msgSaveFail  = "Failed to save business type"
	msgTooLarge  = "Upload is too large."
	msgBadUpload = "Invalid upload."
)

//go:embed templates/*.html
var templates embed.FS

var _ component.Component = (*Component)(nil)

// Icon is an uploaded image as the backend stores it.
type Icon struct {
	URL string `json:"url"`
}

// Subcategory keeps its icon undecoded so an edit round-trips it intact.
type Subcategory struct {
	Name string          `json:"subcategoryName"`
	Icon json.RawMessage `json:"subcategoryIcon,omitempty"`
}

type Category struct {
	Name          string          `json:"categoryName"`
	Icon          json.RawMessage `json:"categoryIcon,omitempty"`
	Subcategories []Subcategory   `json:"subcategories"`
}

// TemplateRef is a populated baseTemplate.
type TemplateRef struct {
	ID   string `json:"_id"`
	Name string `json:"templateName"`
}

// BusinessType is one row of the catalogue.
type BusinessType struct {
	ID           string       `json:"_id"`
	Name         string       `json:"businessTypeName"`
	IconImage    *Icon        `json:"iconImage"`
	Categories   []Category   `json:"categories"`
	BaseTemplate *TemplateRef `json:"baseTemplate"`
	IsPublished  bool         `json:"isPublished"`
	CreatedAt    string       `json:"createdAt"`
}

// Subcount totals subcategories across categories.
func (b BusinessType) Subcount() int {
	n := 0
	for _, c := range b.Categories {
		n += len(c.Subcategories)
	}
	return n
}

type listData struct {
	Items     []BusinessType
	Search    string
	Published int
	Drafts    int
	Pager     *component.Pager
}

// editData backs both create and edit.  Categories and CustomFields are
// the JSON text shown in the textareas.
type editData struct {
	ID           string
	Action       string
	Editing      bool
	Name         string
	Template     string
	Categories   string
	CustomFields string
	IconURL      string
	Templates    []TemplateRef
	Slots        []int
}

type Component struct{}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string     { return "businesses" }
func (c *Component) Templates() fs.FS { return component.Sub(templates, "templates") }

func (c *Component) Routes(r chi.Router, d *component.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(d.Guard.Require(acl.TagBusinesses))
		r.Get(listPath, c.list(d))
		r.Post(listPath+"/{id}/toggle-publish", c.togglePublish(d))
		r.Post(listPath+"/{id}/delete", c.remove(d))
		r.Get(createPath, c.editGET(d, false))
		r.Post(createPath, c.save(d, false))
		r.Get(editPath+"{id}", c.editGET(d, true))
		r.Post(editPath+"{id}", c.save(d, true))
	})
}

/*──────────────────────────── list ─────────────────────────────────────────*/

func (c *Component) list(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := d.Page(r, "Business Types", listPath)
		data := &listData{Search: strings.TrimSpace(r.URL.Query().Get("search"))}

		env, err := d.API(r).BusinessTypes(r.Context(), component.ListQuery(r.URL.Query(), pageSize, "search"))
		if d.SessionLost(w, r, err) {
			return
		}
		if err == nil {
			err = env.Decode(&data.Items)
		}
		if err != nil {
			d.Logger().Warnw("businesses: list", "err", err)
			p.Error = backend.Message(err)
		} else {
			data.Pager = component.NewPager(env.Pagination, r.URL)
		}
		for _, b := range data.Items {
			if b.IsPublished {
				data.Published++
			} else {
				data.Drafts++
			}
		}
		p.Data = data
		d.Render(w, r, http.StatusOK, c.Name(), "list", p)
	}
}

func (c *Component) togglePublish(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, listPath)
			return
		}
		env, err := d.API(r).TogglePublish(r.Context(), chi.URLParam(r, "id"))
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			component.Redirect(w, r, listPath, component.ErrorParam, backend.Message(err))
			return
		}
		msg := msgToggled
		if env.Message != "" {
			msg = env.Message
		}
		component.Redirect(w, r, listPath, component.NoticeParam, msg)
	}
}

func (c *Component) remove(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, listPath)
			return
		}
		id := chi.URLParam(r, "id")
		_, err := d.API(r).DeleteBusinessType(r.Context(), id)
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			component.Redirect(w, r, listPath, component.ErrorParam, backend.Message(err))
			return
		}
		d.Logger().Infow("business type deleted", "id", id)
		component.Redirect(w, r, listPath, component.NoticeParam, msgDeleted)
	}
}

/*──────────────────────────── create / edit ────────────────────────────────*/

func (c *Component) editGET(d *component.Deps, editing bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api := d.API(r)
		data := newEditData(chi.URLParam(r, "id"), editing)
		p := d.Page(r, pageTitle(editing), listPath)

		if editing {
			env, err := api.BusinessType(r.Context(), data.ID)
			if d.SessionLost(w, r, err) {
				return
			}
			var bt BusinessType
			if err == nil {
				err = env.Decode(&bt)
			}
			if err != nil {
				d.Logger().Warnw("businesses: load", "id", data.ID, "err", err)
				component.Redirect(w, r, listPath, component.ErrorParam, "Failed to load business data")
				return
			}
			data.fill(bt)
		}

		if !c.loadTemplates(w, r, d, api, p, data) {
			return
		}
		p.Data = data
		d.Render(w, r, http.StatusOK, c.Name(), "edit", p)
	}
}

func (c *Component) save(d *component.Deps, editing bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api := d.API(r)
		data := newEditData(chi.URLParam(r, "id"), editing)
		p := d.Page(r, pageTitle(editing), listPath)
		p.Notice = ""

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				c.reject(w, r, d, api, p, data, http.StatusRequestEntityTooLarge, msgTooLarge)
				return
			}
			c.reject(w, r, d, api, p, data, http.StatusBadRequest, msgBadUpload)
			return
		}
		ct := r.Header.Get("Content-Type")
		dr, err := parseDraft(ct, body)
		if err != nil {
			d.Logger().Warnw("businesses: parse upload", "err", err)
			c.reject(w, r, d, api, p, data, http.StatusBadRequest, msgBadUpload)
			return
		}
		data.Name, data.Template = dr.Name, dr.Template
		data.Categories, data.CustomFields = dr.Categories, dr.CustomFields

		if d.CSRF != nil && !d.CSRF.Verify(dr.CSRF) {
			c.reject(w, r, d, api, p, data, http.StatusForbidden, component.MsgCSRF)
			return
		}
		if msg := dr.check(!editing); msg != "" {
			c.reject(w, r, d, api, p, data, http.StatusUnprocessableEntity, msg)
			return
		}

		up := backend.Multipart{ContentType: ct, Body: body}
		if editing {
			_, err = api.UpdateBusinessType(r.Context(), data.ID, up)
		} else {
			_, err = api.CreateBusinessType(r.Context(), up)
		}
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			status := http.StatusBadGateway
			if s := backend.Status(err); s >= 400 {
				status = s
			}
			msg := backend.Message(err)
			if msg == "" {
				msg = msgSaveFail
			}
			c.reject(w, r, d, api, p, data, status, msg)
			return
		}

		d.Logger().Infow("business type saved", "name", dr.Name, "editing", editing)
		notice := msgCreated
		if editing {
			notice = msgUpdated
		}
		component.Redirect(w, r, listPath, component.NoticeParam, notice)
	}
}

// reject re-renders the edit page with msg.
func (c *Component) reject(w http.ResponseWriter, r *http.Request, d *component.Deps, api *backend.API, p *component.Page, data *editData, status int, msg string) {
	p.Error = msg
	if !c.loadTemplates(w, r, d, api, p, data) {
		return
	}
	p.Data = data
	d.Render(w, r, status, c.Name(), "edit", p)
}

// loadTemplates fills the template picker.  It reports false when it has
// already answered the request (401).
func (c *Component) loadTemplates(w http.ResponseWriter, r *http.Request, d *component.Deps, api *backend.API, p *component.Page, data *editData) bool {
	env, err := api.FormTemplates(r.Context())
	if d.SessionLost(w, r, err) {
		return false
	}
	if err == nil {
		err = env.Decode(&data.Templates)
	}
	if err != nil {
		d.Logger().Warnw("businesses: templates", "err", err)
		if p.Error == "" {
			p.Error = "Failed to load templates"
		}
	}
	return true
}

func pageTitle(editing bool) string {
	if editing {
		return "Edit Business Type"
	}
	return "Create Business Type"
}

func newEditData(id string, editing bool) *editData {
	d := &editData{
		ID:         id,
		Editing:    editing,
		Action:     createPath,
		Categories: "[]",
		Slots:      make([]int, MaxCategories),
	}
	if editing {
		d.Action = editPath + id
	}
	for i := range d.Slots {
		d.Slots[i] = i
	}
	return d
}

// fill copies a loaded business type into the edit form.
func (e *editData) fill(bt BusinessType) {
	e.Name = bt.Name
	if bt.BaseTemplate != nil {
		e.Template = bt.BaseTemplate.ID
	}
	if bt.IconImage != nil {
		e.IconURL = bt.IconImage.URL
	}
	if len(bt.Categories) > 0 {
		if b, err := json.MarshalIndent(bt.Categories, "", "  "); err == nil {
			e.Categories = string(b)
		}
	}
}

/*──────────────────────────── upload checks ────────────────────────────────*/

// draft is what the console reads out of a posted multipart body.
type draft struct {
	CSRF         string
	Name         string
	Template     string
	Categories   string
	CustomFields string
	HasIcon      bool
}

// parseDraft reads body without consuming the caller's copy.
func parseDraft(contentType string, body []byte) (*draft, error) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("content type: %w", err)
	}
	if mt != "multipart/form-data" || params["boundary"] == "" {
		return nil, fmt.Errorf("content type %q is not multipart", mt)
	}
	mf, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).ReadForm(maxFormMemory)
	if err != nil {
		return nil, fmt.Errorf("read form: %w", err)
	}
	defer mf.RemoveAll()

	first := func(k string) string {
		if v := mf.Value[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	dr := &draft{
		CSRF:         first(form.CSRFField),
		Name:         first("businessTypeName"),
		Template:     first("baseTemplate"),
		Categories:   first("categories"),
		CustomFields: first("customFields"),
	}
	if fh := mf.File["iconImage"]; len(fh) > 0 && fh[0].Size > 0 {
		dr.HasIcon = true
	}
	return dr, nil
}

// check returns the first problem with dr, or "".
func (dr *draft) check(needIcon bool) string {
	if strings.TrimSpace(dr.Name) == "" {
		return "Business name is required"
	}
	if needIcon && !dr.HasIcon {
		return "Business icon is required"
	}
	if strings.TrimSpace(dr.Template) == "" {
		return "Please select a template"
	}
	return checkCategories(dr.Categories)
}

// checkCategories enforces names and the per-level limits.
func checkCategories(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var cats []Category
	if err := json.Unmarshal([]byte(raw), &cats); err != nil {
		return "Categories must be a JSON list"
	}
	if len(cats) > MaxCategories {
		return fmt.Sprintf("Maximum %d categories allowed", MaxCategories)
	}
	for i, cat := range cats {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Sprintf("Category %d name is required", i+1)
		}
		if len(cat.Subcategories) > MaxCategories {
			return fmt.Sprintf("Maximum %d subcategories allowed per category", MaxCategories)
		}
		for j, sub := range cat.Subcategories {
			if strings.TrimSpace(sub.Name) == "" {
				return fmt.Sprintf("Subcategory %d in Category %d name is required", j+1, i+1)
			}
		}
	}
	return ""
}
