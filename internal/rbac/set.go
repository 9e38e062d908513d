package rbac

import "sort"

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Contains reports whether p is literally in the set.
func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Allows reports whether the set grants p directly or through a legacy alias.
func (s PermissionSet) Allows(p Permission) bool {
	if s.Contains(p) {
		return true
	}
	for _, legacy := range aliases[p] {
		if s.Contains(legacy) {
			return true
		}
	}
	return false
}

// Add inserts every permission of other into s.
func (s PermissionSet) Add(other PermissionSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Sorted returns the permissions in lexical order.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
