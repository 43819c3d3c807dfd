package component

import "github.com/yanizio/adept-admin/internal/acl"

// NavItem is one sidebar link.
type NavItem struct {
	Label string
	Path  string
	Tag   acl.RouteTag
}

// menu is the full sidebar in display order.
var menu = []NavItem{
	{Label: "Vendor Analytics", Path: "/admin/vendor-analytics", Tag: acl.TagAnalytics},
	{Label: "Create Business", Path: "/admin/businesses", Tag: acl.TagBusinesses},
	{Label: "Vendor Submissions", Path: "/admin/vendor-submissions", Tag: acl.TagSubmissions},
	{Label: "AI Assistant", Path: "/admin/assistant", Tag: acl.TagAssistant},
	{Label: "Create Admin", Path: "/admin/create-admin", Tag: acl.TagAdminManagement},
	{Label: "Admin List", Path: "/admin/admins", Tag: acl.TagAdminManagement},
	{Label: "Settings", Path: "/admin/settings", Tag: acl.TagSettings},
}

// Nav returns the links role may follow.  Hiding a link is cosmetic; the
// guard on each route is what keeps a role out.
func Nav(role acl.Role) []NavItem {
	out := make([]NavItem, 0, len(menu))
	for _, it := range menu {
		if acl.Allowed(role, it.Tag) {
			out = append(out, it)
		}
	}
	return out
}
