// components/analytics/analytics.go
//
// Vendor analytics – the landing page.
//
// Context
// -------
// Shows how vendors distribute over business types, then lets the admin
// drill into one type's categories and one category's subcategories.  Each
// level is its own URL so the browser's back button walks back up the
// tree.  Vendor lists and the CSV export come straight from the backend.
//
// Routes
// ------
//   GET /admin/vendor-analytics                              summary + types
//   GET /admin/vendor-analytics/types/{bt}                   categories
//   GET /admin/vendor-analytics/types/{bt}/categories/{cat}  subcategories
//   GET /admin/vendor-analytics/vendors                      vendor list
//   GET /admin/vendor-analytics/export                       download
//
//------------------------------------------------------------------------------

package analytics

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component"
)

const (
	basePath = "/admin/vendor-analytics"
	pageSize = 20

	defaultExportName = "vendor-analytics.csv"
)

// vendorFilters are forwarded from the page to the vendor list endpoint.
var vendorFilters = []string{"businessTypeId", "categoryId", "subcategoryId", "search", "isActive"}

//go:embed templates/*.html
var templates embed.FS

var _ component.Component = (*Component)(nil)

// Summary is the headline row.
type Summary struct {
	TotalVendors               int `json:"totalVendors"`
	TotalBusinessTypes         int `json:"totalBusinessTypes"`
	VendorsWithBusinessType    int `json:"vendorsWithBusinessType"`
	VendorsWithoutBusinessType int `json:"vendorsWithoutBusinessType"`
}

// Node is one row at any level of the tree.  Only the name and icon field
// matching the level are populated by the backend.
type Node struct {
	ID                 string  `json:"_id"`
	BusinessTypeName   string  `json:"businessTypeName"`
	CategoryName       string  `json:"categoryName"`
	SubcategoryName    string  `json:"subcategoryName"`
	VendorCount        int     `json:"vendorCount"`
	Percentage         float64 `json:"percentage"`
	CategoriesCount    int     `json:"categoriesCount"`
	SubcategoriesCount int     `json:"subcategoriesCount"`
	IconImage          *icon   `json:"iconImage"`
	CategoryIcon       *icon   `json:"categoryIcon"`
	SubcategoryIcon    *icon   `json:"subcategoryIcon"`
}

type icon struct {
	URL string `json:"url"`
}

// Label is the node's display name at whatever level it sits.
func (n Node) Label() string {
	switch {
	case n.SubcategoryName != "":
		return n.SubcategoryName
	case n.CategoryName != "":
		return n.CategoryName
	}
	return n.BusinessTypeName
}

// Icon is the node's icon URL or "".
func (n Node) Icon() string {
	for _, i := range []*icon{n.SubcategoryIcon, n.CategoryIcon, n.IconImage} {
		if i != nil && i.URL != "" {
			return i.URL
		}
	}
	return ""
}

// Percent formats Percentage with one decimal.
func (n Node) Percent() string {
	return strconv.FormatFloat(n.Percentage, 'f', 1, 64)
}

// Vendor is one row of the vendor list.
type Vendor struct {
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	BusinessName string `json:"businessName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory"`
	IsActive     bool   `json:"isActive"`
}

// Crumb is one step of the breadcrumb trail.
type Crumb struct {
	Label string
	Path  string
}

// pageData backs the tree pages.  Level is "types", "categories", or
// "subcategories".
type pageData struct {
	Summary *Summary
	Level   string
	Search  string
	Items   []Node
	Crumbs  []Crumb
	Base    string // link prefix for drilling one level down
	BT      string
	Pager   *component.Pager
}

type vendorData struct {
	Vendors []Vendor
	Pager   *component.Pager
}

type Component struct{}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string     { return "analytics" }
func (c *Component) Templates() fs.FS { return component.Sub(templates, "templates") }

func (c *Component) Routes(r chi.Router, d *component.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(d.Guard.Require(acl.TagAnalytics))
		r.Get(basePath, c.types(d))
		r.Get(basePath+"/types/{bt}", c.categories(d))
		r.Get(basePath+"/types/{bt}/categories/{cat}", c.subcategories(d))
		r.Get(basePath+"/vendors", c.vendors(d))
		r.Get(basePath+"/export", c.export(d))
	})
}

/*──────────────────────────── tree pages ───────────────────────────────────*/

// level is the decoded data block of a tree endpoint.
type level struct {
	BusinessTypes []Node `json:"businessTypes"`
	Categories    []Node `json:"categories"`
	Subcategories []Node `json:"subcategories"`
	Total         int    `json:"total"`
	Pages         int    `json:"pages"`
	Page          int    `json:"page"`

	BusinessTypeName string `json:"businessTypeName"`
	CategoryName     string `json:"categoryName"`
}

func (l *level) pager(page int, u *url.URL) *component.Pager {
	if l.Page == 0 {
		l.Page = page
	}
	return component.NewPager(&backend.Pagination{Page: l.Page, Pages: l.Pages, Total: l.Total, Limit: pageSize}, u)
}

func (c *Component) types(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		api := d.API(r)
		p := d.Page(r, "Vendor Analytics", basePath)
		q := component.ListQuery(r.URL.Query(), pageSize, "search")
		data := &pageData{Level: "types", Search: q.Get("search"), Base: basePath + "/types/"}

		env, err := api.AnalyticsSummary(ctx)
		if d.SessionLost(w, r, err) {
			return
		}
		if err == nil {
			s := &Summary{}
			if env.Decode(s) == nil {
				data.Summary = s
			}
		} else {
			d.Logger().Warnw("analytics: summary", "err", err)
		}

		env, err = api.AnalyticsBusinessTypes(ctx, q)
		if d.SessionLost(w, r, err) {
			return
		}
		var lv level
		if err == nil {
			err = env.Decode(&lv)
		}
		if err != nil {
			d.Logger().Warnw("analytics: business types", "err", err)
			p.Error = backend.Message(err)
		}
		data.Items = lv.BusinessTypes
		data.Pager = lv.pager(atoi(q.Get("page")), r.URL)

		p.Data = data
		d.Render(w, r, http.StatusOK, c.Name(), "tree", p)
	}
}

func (c *Component) categories(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bt := chi.URLParam(r, "bt")
		q := component.ListQuery(r.URL.Query(), pageSize)
		env, err := d.API(r).AnalyticsCategories(r.Context(), bt, q)
		if d.SessionLost(w, r, err) {
			return
		}
		var lv level
		if err == nil {
			err = env.Decode(&lv)
		}
		name := orDefault(lv.BusinessTypeName, r.URL.Query().Get("name"))

		p := d.Page(r, orDefault(name, "Business Type")+" - Categories", basePath)
		if err != nil {
			d.Logger().Warnw("analytics: categories", "bt", bt, "err", err)
			p.Error = backend.Message(err)
		}
		p.Data = &pageData{
			Level:  "categories",
			Items:  lv.Categories,
			BT:     bt,
			Base:   basePath + "/types/" + url.PathEscape(bt) + "/categories/",
			Crumbs: []Crumb{{Label: "Business Types", Path: basePath}},
			Pager:  lv.pager(atoi(q.Get("page")), r.URL),
		}
		d.Render(w, r, http.StatusOK, c.Name(), "tree", p)
	}
}

func (c *Component) subcategories(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bt, cat := chi.URLParam(r, "bt"), chi.URLParam(r, "cat")
		q := component.ListQuery(r.URL.Query(), pageSize)
		env, err := d.API(r).AnalyticsSubcategories(r.Context(), bt, cat, q)
		if d.SessionLost(w, r, err) {
			return
		}
		var lv level
		if err == nil {
			err = env.Decode(&lv)
		}
		name := orDefault(lv.CategoryName, r.URL.Query().Get("name"))

		p := d.Page(r, orDefault(name, "Category")+" - Subcategories", basePath)
		if err != nil {
			d.Logger().Warnw("analytics: subcategories", "bt", bt, "cat", cat, "err", err)
			p.Error = backend.Message(err)
		}
		p.Data = &pageData{
			Level: "subcategories",
			Items: lv.Subcategories,
			BT:    bt,
			Crumbs: []Crumb{
				{Label: "Business Types", Path: basePath},
				{Label: orDefault(lv.BusinessTypeName, "Categories"), Path: basePath + "/types/" + url.PathEscape(bt)},
			},
			Pager: lv.pager(atoi(q.Get("page")), r.URL),
		}
		d.Render(w, r, http.StatusOK, c.Name(), "tree", p)
	}
}

/*──────────────────────────── vendors / export ─────────────────────────────*/

func (c *Component) vendors(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := component.ListQuery(r.URL.Query(), pageSize, vendorFilters...)
		env, err := d.API(r).AnalyticsVendors(r.Context(), q)
		if d.SessionLost(w, r, err) {
			return
		}
		p := d.Page(r, "Vendors", basePath)
		data := &vendorData{}
		if err == nil {
			data.Vendors, err = decodeVendors(env)
			data.Pager = component.NewPager(env.Pagination, r.URL)
		}
		if err != nil {
			d.Logger().Warnw("analytics: vendors", "err", err)
			p.Error = backend.Message(err)
		}
		p.Data = data
		d.Render(w, r, http.StatusOK, c.Name(), "vendors", p)
	}
}

// decodeVendors accepts either a bare list or {vendors: [...]}.
func decodeVendors(env *backend.Envelope) ([]Vendor, error) {
	var list []Vendor
	if err := env.Decode(&list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Vendors []Vendor `json:"vendors"`
	}
	if err := env.Decode(&wrapped); err != nil {
		return nil, err
	}
	return wrapped.Vendors, nil
}

// export relays the backend's file.  A JSON body means the backend
// answered with an envelope rather than a file, which is re-encoded as
// pretty JSON so it still downloads.
func (c *Component) export(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := url.Values{"format": {orDefault(r.URL.Query().Get("format"), "csv")}}
		raw, err := d.API(r).AnalyticsExport(r.Context(), q)
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			d.Logger().Warnw("analytics: export", "err", err)
			component.Redirect(w, r, basePath, component.ErrorParam, "Failed to export analytics")
			return
		}

		ct, body := raw.ContentType, raw.Body
		if isJSON(ct) {
			var env backend.Envelope
			if json.Unmarshal(body, &env) == nil && len(env.Data) > 0 {
				if pretty, err := json.MarshalIndent(json.RawMessage(env.Data), "", "  "); err == nil {
					body = pretty
				}
			}
		}
		if ct == "" {
			ct = "text/csv; charset=utf-8"
		}
		disp := raw.ContentDisposition
		if disp == "" {
			disp = `attachment; filename="` + defaultExportName + `"`
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", disp)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
		d.Logger().Infow("analytics exported", "bytes", len(body))
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func isJSON(ct string) bool {
	return strings.HasPrefix(ct, "application/json")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
