package models

import "time"

// UserKind is the tier a user belongs to.
type UserKind string

const (
	KindSuperAdmin        UserKind = "SUPER_ADMIN"
	KindOrganizationAdmin UserKind = "ORGANIZATION_ADMIN"
	KindEmployee          UserKind = "EMPLOYEE"
)

type UserStatus string

const (
	UserActive UserStatus = "ACTIVE"
	UserBanned UserStatus = "BANNED"
)

type OrganizationStatus string

const (
	OrganizationActive    OrganizationStatus = "ACTIVE"
	OrganizationSuspended OrganizationStatus = "SUSPENDED"
)

// Valid reports whether s is a known organization status.
func (s OrganizationStatus) Valid() bool {
	return s == OrganizationActive || s == OrganizationSuspended
}

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "ACTIVE"
	ProjectArchived ProjectStatus = "ARCHIVED"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectArchived
}

type MemberStatus string

const (
	MemberActive   MemberStatus = "ACTIVE"
	MemberInactive MemberStatus = "INACTIVE"
)

type User struct {
	ID             int64      `json:"id" db:"id"`
	Email          string     `json:"email" db:"email"`
	Name           string     `json:"name" db:"name"`
	Kind           UserKind   `json:"kind" db:"kind"`
	Status         UserStatus `json:"status" db:"status"`
	OrganizationID *int64     `json:"organizationId,omitempty" db:"organization_id"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// Profile is a user joined with the status of its organization, if any.
type Profile struct {
	User
	OrganizationStatus *OrganizationStatus `json:"organizationStatus,omitempty" db:"organization_status"`
}

type Organization struct {
	ID        int64              `json:"id" db:"id"`
	Name      string             `json:"name" db:"name"`
	Status    OrganizationStatus `json:"status" db:"status"`
	CreatedAt time.Time          `json:"createdAt" db:"created_at"`
}

type Project struct {
	ID             int64         `json:"id" db:"id"`
	OrganizationID int64         `json:"organizationId" db:"organization_id"`
	Name           string        `json:"name" db:"name"`
	Description    string        `json:"description" db:"description"`
	Status         ProjectStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
}

// Role groups permission codes. A nil OrganizationID marks a global role.
type Role struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID *int64    `json:"organizationId,omitempty" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Permissions    []string  `json:"permissions" db:"-"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

type ProjectMember struct {
	ProjectID   int64        `json:"projectId" db:"project_id"`
	UserID      int64        `json:"userId" db:"user_id"`
	RoleID      int64        `json:"roleId" db:"role_id"`
	Status      MemberStatus `json:"status" db:"status"`
	Name        string       `json:"name" db:"name"`
	Email       string       `json:"email" db:"email"`
	RoleName    string       `json:"roleName" db:"role_name"`
	Permissions []string     `json:"permissions,omitempty" db:"-"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
}

type TicketColumn struct {
	ID        int64     `json:"id" db:"id"`
	ProjectID int64     `json:"projectId" db:"project_id"`
	Title     string    `json:"title" db:"title"`
	Pos       int64     `json:"pos" db:"pos"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Ticket struct {
	ID          int64     `json:"id" db:"id"`
	ProjectID   int64     `json:"projectId" db:"project_id"`
	ColumnID    int64     `json:"columnId" db:"column_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	AssigneeID  *int64    `json:"assigneeId,omitempty" db:"assignee_id"`
	Pos         int64     `json:"pos" db:"pos"`
	CreatedBy   *int64    `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
	PageCount  int   `json:"pageCount"`
}

// NewPage fills in the page count for total items split into pages of size.
func NewPage[T any](items []T, total int64, number, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	count := 0
	if size > 0 {
		count = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{Items: items, Total: total, PageNumber: number, PageSize: size, PageCount: count}
}
