package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

// LoginData is the data member of a successful login.  Admin is kept raw so
// the exact record can be persisted and re-read by Hydrate.
type LoginData struct {
	Token string          `json:"token"`
	Admin json.RawMessage `json:"admin"`
}

// CreateAdminInput is the create-admin request body.
type CreateAdminInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token.  A 401 here does not clear
// storage.
func (a *API) Login(ctx context.Context, username, password string) (*Envelope, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	return a.call(ctx, request{
		method:      http.MethodPost,
		path:        "/admin/auth/login",
		body:        body,
		contentType: "application/json",
		skipReset:   true,
	})
}

func (a *API) Logout(ctx context.Context) error {
	_, err := a.sendJSON(ctx, http.MethodPost, "/admin/auth/logout", nil)
	return err
}

// Profile returns the current admin's record.
func (a *API) Profile(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, "/admin/auth/me", nil)
}

func (a *API) CreateAdmin(ctx context.Context, in CreateAdminInput) (*Envelope, error) {
	return a.sendJSON(ctx, http.MethodPost, "/admin/auth/create-admin", in)
}

func (a *API) Admins(ctx context.Context) (*Envelope, error) {
	return a.get(ctx, "/admin/auth/admins", nil)
}
