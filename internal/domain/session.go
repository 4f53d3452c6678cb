package domain

// Session is the per-request view of the authenticated caller. It is rebuilt
// from the token and the user store on every request and never cached.
type Session struct {
	User
}

// NewSession wraps a loaded user record.
func NewSession(user *User) *Session {
	if user == nil {
		return nil
	}
	return &Session{User: *user}
}

// RouteKind classifies a request path.
type RouteKind int

const (
	RouteProtected RouteKind = iota
	RoutePublic
	RouteAuthOnly
)

func (k RouteKind) String() string {
	switch k {
	case RoutePublic:
		return "public"
	case RouteAuthOnly:
		return "auth_only"
	default:
		return "protected"
	}
}
