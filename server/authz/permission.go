package authz

import (
	"slices"
	"strings"
)

// Permission is a project-level capability code granted through roles.
type Permission string

const (
	ProjectView         Permission = "PROJECT_VIEW"
	ProjectEdit         Permission = "PROJECT_EDIT"
	ProjectMemberView   Permission = "PROJECT_MEMBER_VIEW"
	ProjectMemberAdd    Permission = "PROJECT_MEMBER_ADD"
	ProjectMemberRemove Permission = "PROJECT_MEMBER_REMOVE"
	TicketColumnCreate  Permission = "TICKET_COLUMN_CREATE"
	TicketColumnEdit    Permission = "TICKET_COLUMN_EDIT"
	TicketColumnDelete  Permission = "TICKET_COLUMN_DELETE"
	TicketCreate        Permission = "TICKET_CREATE"
	TicketEdit          Permission = "TICKET_EDIT"
	TicketDelete        Permission = "TICKET_DELETE"
)

var all = []Permission{
	ProjectView,
	ProjectEdit,
	ProjectMemberView,
	ProjectMemberAdd,
	ProjectMemberRemove,
	TicketColumnCreate,
	TicketColumnEdit,
	TicketColumnDelete,
	TicketCreate,
	TicketEdit,
	TicketDelete,
}

// All returns every known permission in declaration order.
func All() []Permission {
	return slices.Clone(all)
}

// ParsePermission parses a permission code. Codes outside the closed set are rejected.
func ParsePermission(s string) (Permission, bool) {
	p := Permission(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(all, p) {
		return p, true
	}
	return "", false
}

func (p Permission) String() string { return string(p) }

// PermissionSet is an immutable set of permissions.
type PermissionSet struct {
	m map[Permission]struct{}
}

func NewPermissionSet(perms ...Permission) PermissionSet {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return PermissionSet{m: m}
}

// SetFromCodes builds a set from stored codes, dropping unknown ones.
func SetFromCodes(codes []string) PermissionSet {
	perms := make([]Permission, 0, len(codes))
	for _, c := range codes {
		if p, ok := ParsePermission(c); ok {
			perms = append(perms, p)
		}
	}
	return NewPermissionSet(perms...)
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s.m[p]
	return ok
}

func (s PermissionSet) Len() int { return len(s.m) }

// List returns the set's permissions in declaration order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s.m))
	for _, p := range all {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
