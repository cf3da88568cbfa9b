// Package access decides whether an identity may perform an HTTP method
// against a resource. Decisions are pure functions of the method, the
// caller's role and the resource's policy variant.
package access

import (
	"errors"
	"net/http"
	"strings"
)

// ErrDenied is returned when the policy rejects a request.
var ErrDenied = errors.New("not permitted")

// Role is the authorization level of the caller.
type Role int

const (
	Anonymous Role = iota
	Authenticated
	Admin
)

func (r Role) String() string {
	switch r {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Identity is the actor making a request.
type Identity struct {
	AccountID int
	Role      Role
}

// AnonymousIdentity is the identity of a request without credentials.
var AnonymousIdentity = Identity{Role: Anonymous}

// IsAuthenticated reports whether the identity carries a valid session.
func (i Identity) IsAuthenticated() bool {
	return i.Role != Anonymous
}

// Variant selects the rule set applied to a resource type.
type Variant int

const (
	// OpenRead lets anyone read and only administrators write.
	OpenRead Variant = iota
	// Graduated lets anyone read, authenticated callers read and create,
	// and administrators do anything.
	Graduated
	// AdminOnly restricts every method to administrators.
	AdminOnly
)

func (v Variant) String() string {
	switch v {
	case OpenRead:
		return "open-read"
	case Graduated:
		return "graduated"
	case AdminOnly:
		return "admin-only"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a policy evaluation.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// rule matches when the caller's role is in roles and the method is in
// methods. An empty method set matches every method.
type rule struct {
	roles   []Role
	methods []string
}

func (r rule) matches(method string, role Role) bool {
	if !containsRole(r.roles, role) {
		return false
	}
	if len(r.methods) == 0 {
		return true
	}
	for _, m := range r.methods {
		if m == method {
			return true
		}
	}
	return false
}

var readMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}

// policies lists allow rules per variant, evaluated in order. Anything not
// matched is denied.
var policies = map[Variant][]rule{
	OpenRead: {
		{roles: []Role{Admin}},
		{roles: []Role{Anonymous, Authenticated}, methods: readMethods},
	},
	Graduated: {
		{roles: []Role{Admin}},
		{roles: []Role{Anonymous}, methods: readMethods},
		{roles: []Role{Authenticated}, methods: append(append([]string{}, readMethods...), http.MethodPost)},
	},
	AdminOnly: {
		{roles: []Role{Admin}},
	},
}

// Decide evaluates the policy for variant v.
func Decide(method string, id Identity, v Variant) Decision {
	method = strings.ToUpper(strings.TrimSpace(method))
	for _, r := range policies[v] {
		if r.matches(method, id.Role) {
			return Allow
		}
	}
	return Deny
}

// Check is Decide expressed as an error.
func Check(method string, id Identity, v Variant) error {
	if Decide(method, id, v) == Deny {
		return ErrDenied
	}
	return nil
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
