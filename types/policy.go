package types

import (
	"sort"
	"strings"
)

// RoutePolicy is the access policy resolved for a request path. Both guard
// layers consult the same table so the edge and client rules cannot drift:
// the edge guard uses AuthRequired/PublicOnly with cookie presence only,
// the route guard additionally enforces AllowedRoles against the resolved
// session.
type RoutePolicy struct {
	AuthRequired bool
	PublicOnly   bool
	// AllowedRoles restricts the path to the listed roles. Empty means any
	// authenticated role.
	AllowedRoles []Role
}

// Allows reports whether the policy admits the given role.
func (p RoutePolicy) Allows(role Role) bool {
	if len(p.AllowedRoles) == 0 {
		return true
	}
	for _, r := range p.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

type policyEntry struct {
	prefix string
	policy RoutePolicy
}

// PolicyTable maps path prefixes to route policies. Longest matching prefix
// wins; prefix matching is segment-aware, so "/admin" covers "/admin/users"
// but not "/administrator".
type PolicyTable struct {
	entries    []policyEntry
	publicOnly map[string]struct{}
}

// NewPolicyTable builds a table from the deployment's protected prefixes and
// public-only paths.
func NewPolicyTable(protectedPrefixes, publicOnlyPaths []string) *PolicyTable {
	t := &PolicyTable{
		publicOnly: make(map[string]struct{}, len(publicOnlyPaths)),
	}
	for _, p := range protectedPrefixes {
		t.entries = append(t.entries, policyEntry{
			prefix: normalizePath(p),
			policy: RoutePolicy{AuthRequired: true},
		})
	}
	for _, p := range publicOnlyPaths {
		t.publicOnly[normalizePath(p)] = struct{}{}
	}
	t.sortEntries()
	return t
}

// Restrict limits a protected prefix to the given roles, adding the prefix
// if the table does not already cover it.
func (t *PolicyTable) Restrict(prefix string, roles ...Role) {
	prefix = normalizePath(prefix)
	for i, e := range t.entries {
		if e.prefix == prefix {
			t.entries[i].policy.AllowedRoles = roles
			return
		}
	}
	t.entries = append(t.entries, policyEntry{
		prefix: prefix,
		policy: RoutePolicy{AuthRequired: true, AllowedRoles: roles},
	})
	t.sortEntries()
}

// Lookup resolves the policy for a request path. Paths not covered by any
// entry get the zero policy (open access).
func (t *PolicyTable) Lookup(path string) RoutePolicy {
	path = normalizePath(path)

	if _, ok := t.publicOnly[path]; ok {
		return RoutePolicy{PublicOnly: true}
	}

	for _, e := range t.entries {
		if prefixMatches(e.prefix, path) {
			return e.policy
		}
	}
	return RoutePolicy{}
}

// IsProtected reports whether the path requires authentication.
func (t *PolicyTable) IsProtected(path string) bool {
	return t.Lookup(path).AuthRequired
}

// IsPublicOnly reports whether the path is reserved for anonymous visitors.
func (t *PolicyTable) IsPublicOnly(path string) bool {
	return t.Lookup(path).PublicOnly
}

// sortEntries orders entries longest-prefix-first so Lookup can return the
// most specific match.
func (t *PolicyTable) sortEntries() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		return len(t.entries[i].prefix) > len(t.entries[j].prefix)
	})
}

func prefixMatches(prefix, path string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
