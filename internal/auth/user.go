package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yanizio/adept-admin/internal/acl"
)

// ID accepts either a JSON string or number, since the backend has sent
// both over time.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("auth: id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// User is the administrator record returned at login and persisted in
// durable storage.
type User struct {
	UserID      ID             `json:"userId"`
	Name        string         `json:"name"`
	Username    string         `json:"username"`
	Email       string         `json:"email,omitempty"`
	Role        acl.Role       `json:"role"`
	Permissions map[string]any `json:"permissions,omitempty"`
}

// IsSuperAdmin reports role == super_admin.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == acl.RoleSuperAdmin
}

// HasPermission follows the backend's rule: super_admin holds every
// permission, others hold exactly the flags set to true.
func (u *User) HasPermission(name string) bool {
	if u == nil {
		return false
	}
	if u.Role == acl.RoleSuperAdmin {
		return true
	}
	v, ok := u.Permissions[name].(bool)
	return ok && v
}

// parseUser decodes a stored record.  A JSON null yields (nil, nil).
func parseUser(raw string) (*User, error) {
	var u *User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	return u, nil
}

// TokenExpiry reads the exp claim without verifying the signature.  The
// console cannot verify backend tokens; the value is for display only.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
