// internal/acl/role.go
//
// Roles and the route capability table.
//
// Context
//   The console knows two roles.  Instead of comparing role strings at each
//   route, every guarded route carries a RouteTag and the guard asks the
//   table below whether the role may enter.  Adding a role or a tag means
//   editing this file only.
//
// Notes
//   The table mirrors what the marketplace backend enforces.  It exists to
//   keep admins away from pages that would only answer 403, not to secure
//   anything.

package acl

// Role is an administrator role as reported by the backend.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// RouteTag names a family of guarded routes.
type RouteTag string

const (
	TagAnalytics       RouteTag = "analytics"
	TagBusinesses      RouteTag = "businesses"
	TagSubmissions     RouteTag = "submissions"
	TagSettings        RouteTag = "settings"
	TagAssistant       RouteTag = "assistant"
	TagAdminManagement RouteTag = "admin_management"
)

var allTags = []RouteTag{
	TagAnalytics,
	TagBusinesses,
	TagSubmissions,
	TagSettings,
	TagAssistant,
	TagAdminManagement,
}

// capabilities is immutable after init.
var capabilities = map[Role]map[RouteTag]bool{
	RoleSuperAdmin: tagSet(allTags...),
	RoleAdmin: tagSet(
		TagAnalytics,
		TagBusinesses,
		TagSubmissions,
		TagSettings,
		TagAssistant,
	),
}

func tagSet(tags ...RouteTag) map[RouteTag]bool {
	m := make(map[RouteTag]bool, len(tags))
	for _, t := range tags {
		m[t] = true
	}
	return m
}

// Allowed reports whether role may enter routes tagged tag.  Unknown roles
// are allowed nothing.
func Allowed(role Role, tag RouteTag) bool {
	return capabilities[role][tag]
}

// Tags returns the tags role may enter, in declaration order.  The sidebar
// uses it to hide links.
func Tags(role Role) []RouteTag {
	var out []RouteTag
	for _, t := range allTags {
		if Allowed(role, t) {
			out = append(out, t)
		}
	}
	return out
}
