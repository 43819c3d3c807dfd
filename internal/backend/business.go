package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Multipart is a form body forwarded untouched, boundary included in
// ContentType.
type Multipart struct {
	ContentType string
	Body        []byte
}

// BusinessTypes lists business types.  Recognised query keys are page,
// limit, and search.
func (a *API) BusinessTypes(ctx context.Context, q url.Values) (*Envelope, error) {
	return a.get(ctx, "/admin/business-types", q)
}

func (a *API) BusinessType(ctx context.Context, id string) (*Envelope, error) {
	return a.get(ctx, "/admin/business-types/"+seg(id), nil)
}

func (a *API) CreateBusinessType(ctx context.Context, m Multipart) (*Envelope, error) {
	return a.call(ctx, request{
		method:      http.MethodPost,
		path:        "/admin/business-types",
		body:        m.Body,
		contentType: m.ContentType,
	})
}

func (a *API) UpdateBusinessType(ctx context.Context, id string, m Multipart) (*Envelope, error) {
	return a.call(ctx, request{
		method:      http.MethodPut,
		path:        "/admin/business-types/" + seg(id),
		body:        m.Body,
		contentType: m.ContentType,
	})
}

func (a *API) DeleteBusinessType(ctx context.Context, id string) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodDelete, "/admin/business-types/"+seg(id), nil)
}

// TogglePublish flips the published flag of a business type.
func (a *API) TogglePublish(ctx context.Context, id string) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPatch, "/admin/business-types/"+seg(id)+"/toggle-publish", nil)
}

func (a *API) FormTemplates(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, "/admin/form-templates", nil)
}

func (a *API) FormTemplate(ctx context.Context, id string) (*Envelope, error) {
	return a.get(ctx, "/admin/form-templates/"+seg(id), nil)
}
