package auth

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sk-federation/youth-portal/internal/domain"
)

// GateState names the situation the gate found a request in.
type GateState string

const (
	StateUnauthenticated             GateState = "unauthenticated"
	StateAuthenticatedOnAuthPage     GateState = "authenticated_on_auth_page"
	StateAuthenticatedMismatchedRole GateState = "authenticated_mismatched_role"
	StateAuthenticatedAuthorized     GateState = "authenticated_authorized"
	StatePublicRoute                 GateState = "public_route"
)

// Action is the terminal outcome of a gate decision.
type Action int

const (
	ActionAllow Action = iota
	ActionRedirect
)

func (a Action) String() string {
	if a == ActionRedirect {
		return "redirect"
	}
	return "allow"
}

// Decision is the gate's verdict for a single request.
type Decision struct {
	State       GateState
	Action      Action
	Location    string
	ClearCookie bool

	// Claims is set when the request carried a valid token.
	Claims *Claims
	// Cause holds the verification error, if any, for logging only.
	Cause error
}

// DecisionRecorder receives one call per evaluated request.
type DecisionRecorder interface {
	RecordGateDecision(state string, action string)
}

// Gate is the authorization decision point that runs ahead of every page request.
type Gate struct {
	tokens   *TokenManager
	routes   RouteTable
	cookie   SessionCookie
	logger   *zap.Logger
	recorder DecisionRecorder
}

// NewGate constructs the gate. recorder may be nil.
func NewGate(tokens *TokenManager, routes RouteTable, cookie SessionCookie, logger *zap.Logger, recorder DecisionRecorder) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, routes: routes, cookie: cookie, logger: logger, recorder: recorder}
}

// Decide evaluates a request. It has no side effects: the same inputs always
// produce the same decision.
func (g *Gate) Decide(path, rawQuery, token string) Decision {
	claims, err := g.tokens.Verify(token)
	kind := g.routes.Classify(path)

	if err == nil && kind == domain.RouteAuthOnly {
		if cfg, ok := g.routes.Lookup(claims.Role); ok {
			return Decision{State: StateAuthenticatedOnAuthPage, Action: ActionRedirect, Location: cfg.Dashboard, Claims: claims}
		}
		return g.clearAndSignIn(StateAuthenticatedOnAuthPage, claims)
	}

	if kind == domain.RoutePublic {
		d := Decision{State: StatePublicRoute, Action: ActionAllow, Cause: err}
		if err == nil {
			d.Claims = claims
		}
		return d
	}

	if err != nil {
		if kind == domain.RouteAuthOnly {
			return Decision{State: StateUnauthenticated, Action: ActionAllow, Cause: err}
		}
		return Decision{
			State:       StateUnauthenticated,
			Action:      ActionRedirect,
			Location:    g.signInLocation(path, rawQuery),
			ClearCookie: token != "",
			Cause:       err,
		}
	}

	if g.routes.Allows(claims.Role, path) {
		return Decision{State: StateAuthenticatedAuthorized, Action: ActionAllow, Claims: claims}
	}
	if cfg, ok := g.routes.Lookup(claims.Role); ok {
		return Decision{State: StateAuthenticatedMismatchedRole, Action: ActionRedirect, Location: cfg.Dashboard, Claims: claims}
	}
	return g.clearAndSignIn(StateAuthenticatedMismatchedRole, claims)
}

// Handle is the fiber middleware applying Decide to the current request.
func (g *Gate) Handle(c *fiber.Ctx) error {
	path := c.Path()
	if g.routes.Excluded(path) {
		return c.Next()
	}

	d := g.Decide(path, string(c.Request().URI().QueryString()), c.Cookies(g.cookie.Name))
	g.observe(path, d)

	if d.ClearCookie {
		g.cookie.Clear(c)
	}
	if d.Action == ActionRedirect {
		return c.Redirect(d.Location, fiber.StatusFound)
	}
	if d.Claims != nil {
		c.Locals(claimsKey, d.Claims)
	}
	return c.Next()
}

func (g *Gate) clearAndSignIn(state GateState, claims *Claims) Decision {
	return Decision{
		State:       state,
		Action:      ActionRedirect,
		Location:    g.routes.SignInPath,
		ClearCookie: true,
		Claims:      claims,
		Cause:       ErrUnknownRole,
	}
}

func (g *Gate) signInLocation(path, rawQuery string) string {
	target := path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return g.routes.SignInPath + "?" + url.Values{"redirect": {target}}.Encode()
}

func (g *Gate) observe(path string, d Decision) {
	if g.recorder != nil {
		g.recorder.RecordGateDecision(string(d.State), d.Action.String())
	}

	switch {
	case d.Cause == nil, errors.Is(d.Cause, ErrMissingToken):
	case errors.Is(d.Cause, ErrUnknownRole):
		fields := []zap.Field{zap.String("path", path)}
		if d.Claims != nil {
			fields = append(fields, zap.String("subject", d.Claims.Subject), zap.String("role", string(d.Claims.Role)))
		}
		g.logger.Warn("session token carries unmapped role; clearing cookie", fields...)
	default:
		g.logger.Debug("session token rejected", zap.String("path", path), zap.Error(d.Cause))
	}
}
