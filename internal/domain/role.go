package domain

// Role enumerates the portal roles embedded in session tokens.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleSKFederation Role = "SK_FEDERATION"
	RoleSKOfficial   Role = "SK_OFFICIAL"
)

// Roles lists every role the portal issues tokens for.
var Roles = []Role{RoleAdmin, RoleSKFederation, RoleSKOfficial}

func (r Role) String() string {
	return string(r)
}
