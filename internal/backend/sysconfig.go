package backend

import (
	"context"
	"net/http"
	"net/url"
)

const sysConfigPath = "/admin/system-config"

func (a *API) SystemConfigs(ctx context.Context, q url.Values) (*Envelope, error) {
	return a.get(ctx, sysConfigPath, q)
}

func (a *API) SystemConfig(ctx context.Context, key string) (*Envelope, error) {
	return a.get(ctx, sysConfigPath+"/"+seg(key), nil)
}

// UpdateSystemConfig replaces the value of key.  body is sent as JSON.
func (a *API) UpdateSystemConfig(ctx context.Context, key string, body any) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPut, sysConfigPath+"/"+seg(key), body)
}

// ToggleVendorSubmissions opens or closes vendor submissions platform-wide.
func (a *API) ToggleVendorSubmissions(ctx context.Context, enabled bool, reason string) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPatch, sysConfigPath+"/toggle-vendor-submissions",
		struct {
			Enabled bool   `json:"enabled"`
			Reason  string `json:"reason"`
		}{enabled, reason})
}

func (a *API) VendorSubmissionsStatus(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, sysConfigPath+"/vendor-submissions-status", nil)
}
