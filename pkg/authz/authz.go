// Package authz decides whether a set of granted roles satisfies a role
// requirement attached to a protected operation.
package authz

import (
	"slices"
	"strings"

	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
)

// Mode selects how required roles combine.
type Mode int

const (
	// ModeAll requires every listed role.
	ModeAll Mode = iota
	// ModeAny requires at least one listed role.
	ModeAny
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeAny:
		return "any"
	default:
		return "unknown"
	}
}

// Requirement is the role set a protected operation declares. Order and
// duplicates are irrelevant. The zero value requires nothing.
type Requirement struct {
	Roles []string
	Mode  Mode
}

// RequireAll builds a requirement satisfied only by holding every role.
func RequireAll(roles ...string) Requirement {
	return Requirement{Roles: normalise(roles), Mode: ModeAll}
}

// RequireAny builds a requirement satisfied by holding at least one role.
func RequireAny(roles ...string) Requirement {
	return Requirement{Roles: normalise(roles), Mode: ModeAny}
}

// None is the requirement of an authenticated-only operation.
var None = Requirement{}

// IsEmpty reports whether the requirement is satisfied by any caller.
func (r Requirement) IsEmpty() bool { return len(r.Roles) == 0 }

func (r Requirement) String() string {
	if r.IsEmpty() {
		return "authenticated"
	}
	return r.Mode.String() + "(" + strings.Join(r.Roles, ",") + ")"
}

// Decision is the outcome of Authorize. Missing lists the required roles the
// caller lacks: for ModeAll the roles still needed, for ModeAny every
// listed role.
type Decision struct {
	Allowed bool
	Missing []string
}

// Authorize checks granted against req. It never fails: a nil or empty
// granted set is simply zero roles.
func Authorize(granted []string, req Requirement) Decision {
	if req.IsEmpty() {
		return Decision{Allowed: true}
	}

	have := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		have[g] = struct{}{}
	}

	var missing []string
	for _, role := range req.Roles {
		if _, ok := have[role]; ok {
			if req.Mode == ModeAny {
				return Decision{Allowed: true}
			}
			continue
		}
		missing = append(missing, role)
	}

	if req.Mode == ModeAll && len(missing) == 0 {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Missing: missing}
}

// AuthorizeClaims checks the realm roles of verified claims against req. A
// token without a role claim holds zero roles.
func AuthorizeClaims(c *jwtx.Claims, req Requirement) Decision {
	return Authorize(c.Roles(), req)
}

// normalise sorts and de-duplicates role names and drops empty ones, so
// requirements compare and log stably.
func normalise(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
