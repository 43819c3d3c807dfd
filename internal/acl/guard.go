package acl

// Variant selects the guard behaviour for a route.
type Variant int

const (
	// Authenticated admits any signed-in administrator.
	Authenticated Variant = iota
	// RoleRestricted admits signed-in administrators whose role may enter
	// the route's tag.
	RoleRestricted
	// PublicOnly admits only visitors who are not signed in (login page).
	PublicOnly
)

func (v Variant) String() string {
	switch v {
	case Authenticated:
		return "authenticated"
	case RoleRestricted:
		return "role"
	case PublicOnly:
		return "public_only"
	}
	return "unknown"
}

// State is the slice of auth state the guard looks at.
type State struct {
	Loading       bool
	Authenticated bool
	Role          Role
}

// Outcome is what the guard does with a request.
type Outcome int

const (
	Render Outcome = iota
	ShowLoading
	RedirectLogin
	RedirectLanding
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case ShowLoading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectLanding:
		return "redirect_landing"
	}
	return "unknown"
}

// Decide is pure.  tag is only consulted by RoleRestricted.
func Decide(v Variant, tag RouteTag, s State) Outcome {
	if s.Loading {
		return ShowLoading
	}
	switch v {
	case PublicOnly:
		if s.Authenticated {
			return RedirectLanding
		}
		return Render
	case RoleRestricted:
		if !s.Authenticated {
			return RedirectLogin
		}
		if !Allowed(s.Role, tag) {
			return RedirectLanding
		}
		return Render
	default:
		if !s.Authenticated {
			return RedirectLogin
		}
		return Render
	}
}
