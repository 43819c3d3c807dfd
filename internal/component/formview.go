package component

import (
	"net/url"
	"strconv"

	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/form"
)

// FormView is what the "form" partial renders.
type FormView struct {
	ID          string
	Action      string
	ValidateURL string
	Submit      string
	CSRF        string
	Fields      []FieldView
}

// FieldView is one rendered input.
type FieldView struct {
	Name         string
	Label        string
	Type         form.InputKind
	Placeholder  string
	Autocomplete string
	Value        string
	Checked      bool
	Error        string
}

// ValidatePath is where the blur script posts single-field checks for
// the form with id (“auth/login” → /admin/forms/auth/login/validate).
func ValidatePath(id string) string {
	return "/admin/forms/" + id + "/validate"
}

// NewFormView pairs a definition with a form state.  Errors are shown for
// touched fields only, and password values never travel back to the page.
func NewFormView(fd *form.FormDef, st form.State, action, csrf string) *FormView {
	fv := &FormView{
		ID:          fd.ID,
		Action:      action,
		ValidateURL: ValidatePath(fd.ID),
		Submit:      fd.Submit,
		CSRF:        csrf,
		Fields:      make([]FieldView, 0, len(fd.Fields)),
	}
	for _, f := range fd.Fields {
		v := FieldView{
			Name:         f.Name,
			Label:        f.Label,
			Type:         f.Kind(),
			Placeholder:  f.Placeholder,
			Autocomplete: f.Autocomplete,
		}
		switch f.Kind() {
		case form.KindCheckbox:
			v.Checked = st.Values.Bool(f.Name)
		case form.KindPassword:
		default:
			v.Value = st.Values.String(f.Name)
		}
		if st.Touched[f.Name] {
			v.Error = st.Errors[f.Name]
		}
		fv.Fields = append(fv.Fields, v)
	}
	if fv.Submit == "" {
		fv.Submit = "Submit"
	}
	return fv
}

// Pager is what the "pager" partial renders.
type Pager struct {
	Page    int
	Pages   int
	Total   int
	PrevURL string
	NextURL string
}

// NewPager derives prev and next links from u by rewriting its page
// parameter.  A nil pagination yields nil, which the partial skips.
func NewPager(p *backend.Pagination, u *url.URL) *Pager {
	if p == nil {
		return nil
	}
	pg := &Pager{Page: p.Page, Pages: p.Pages, Total: p.Total}
	if pg.Page < 1 {
		pg.Page = 1
	}
	at := func(n int) string {
		q := u.Query()
		q.Set("page", strconv.Itoa(n))
		q.Del(NoticeParam)
		q.Del(ErrorParam)
		return u.Path + "?" + q.Encode()
	}
	if pg.Page > 1 {
		pg.PrevURL = at(pg.Page - 1)
	}
	if pg.Page < pg.Pages {
		pg.NextURL = at(pg.Page + 1)
	}
	return pg
}

// ListQuery copies the list parameters a page forwards to the backend.
// page defaults to 1 and limit to def.
func ListQuery(in url.Values, def int, keys ...string) url.Values {
	q := url.Values{}
	page, err := strconv.Atoi(in.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(in.Get("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = def
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	for _, k := range keys {
		if v := in.Get(k); v != "" {
			q.Set(k, v)
		}
	}
	return q
}
