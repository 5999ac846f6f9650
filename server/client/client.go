// Package client holds the mutations a TaskFlow client issues through the
// action gateway.
package client

import (
	"fmt"
	"net/http"

	"taskflow/server/action"
	_ "taskflow/server/authz" // registers the "permission" validation tag
	"taskflow/server/models"
	"taskflow/server/query"
)

// withQuery appends the list query to path.
func withQuery(path string, d query.Descriptor) string {
	v, err := d.Encode()
	if err != nil || len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

type CreateOrganization struct {
	Name string `json:"name" validate:"required,notblank,max=120"`
}

var CreateOrganizationAction = action.Action[CreateOrganization, models.Organization]{
	Name:   "organization.create",
	Method: http.MethodPost,
	Path:   func(CreateOrganization) string { return "/api/admin/organizations" },
	Body:   func(in CreateOrganization) any { return in },
}

type SetOrganizationStatus struct {
	OrganizationID int64                     `json:"-" validate:"gt=0"`
	Status         models.OrganizationStatus `json:"status" validate:"required,oneof=ACTIVE SUSPENDED"`
}

var SetOrganizationStatusAction = action.Action[SetOrganizationStatus, models.Organization]{
	Name:   "organization.status",
	Method: http.MethodPatch,
	Path: func(in SetOrganizationStatus) string {
		return fmt.Sprintf("/api/admin/organizations/%d/status", in.OrganizationID)
	},
	Body: func(in SetOrganizationStatus) any { return in },
}

// NewUser is the body shared by admin and employee creation.
type NewUser struct {
	OrganizationID int64  `json:"-" validate:"gt=0"`
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"required,notblank,max=120"`
	Password       string `json:"password" validate:"required,min=8"`
}

var CreateOrganizationAdminAction = action.Action[NewUser, models.User]{
	Name:   "organization.admin.create",
	Method: http.MethodPost,
	Path: func(in NewUser) string {
		return fmt.Sprintf("/api/admin/organizations/%d/admins", in.OrganizationID)
	},
	Body: func(in NewUser) any { return in },
}

var CreateEmployeeAction = action.Action[NewUser, models.User]{
	Name:   "employee.create",
	Method: http.MethodPost,
	Path: func(in NewUser) string {
		return fmt.Sprintf("/api/organizations/%d/employees", in.OrganizationID)
	},
	Body: func(in NewUser) any { return in },
}

type BanEmployee struct {
	OrganizationID int64 `validate:"gt=0"`
	EmployeeID     int64 `validate:"gt=0"`
}

var BanEmployeeAction = action.Action[BanEmployee, struct{}]{
	Name:   "employee.ban",
	Method: http.MethodDelete,
	Path: func(in BanEmployee) string {
		return fmt.Sprintf("/api/organizations/%d/employees/%d", in.OrganizationID, in.EmployeeID)
	},
}

type CreateRole struct {
	OrganizationID int64    `json:"-" validate:"gt=0"`
	Name           string   `json:"name" validate:"required,notblank,max=80"`
	Permissions    []string `json:"permissions" validate:"required,min=1,dive,permission"`
}

var CreateRoleAction = action.Action[CreateRole, models.Role]{
	Name:   "role.create",
	Method: http.MethodPost,
	Path: func(in CreateRole) string {
		return fmt.Sprintf("/api/organizations/%d/roles", in.OrganizationID)
	},
	Body: func(in CreateRole) any { return in },
}

type CreateProject struct {
	OrganizationID int64  `json:"-" validate:"gt=0"`
	Name           string `json:"name" validate:"required,notblank,max=120"`
	Description    string `json:"description" validate:"max=2000"`
}

var CreateProjectAction = action.Action[CreateProject, models.Project]{
	Name:   "project.create",
	Method: http.MethodPost,
	Path: func(in CreateProject) string {
		return fmt.Sprintf("/api/organizations/%d/projects", in.OrganizationID)
	},
	Body: func(in CreateProject) any { return in },
}

type ListProjects struct {
	OrganizationID int64 `validate:"gt=0"`
	Query          query.Descriptor
}

var ListProjectsAction = action.Action[ListProjects, models.Page[models.Project]]{
	Name:   "project.list",
	Method: http.MethodGet,
	Path: func(in ListProjects) string {
		return withQuery(fmt.Sprintf("/api/organizations/%d/projects", in.OrganizationID), in.Query)
	},
}

type AddProjectMember struct {
	OrganizationID int64 `json:"-" validate:"gt=0"`
	ProjectID      int64 `json:"-" validate:"gt=0"`
	EmployeeID     int64 `json:"employeeId" validate:"gt=0"`
	RoleID         int64 `json:"roleId" validate:"gt=0"`
}

var AddProjectMemberAction = action.Action[AddProjectMember, models.ProjectMember]{
	Name:   "project.member.add",
	Method: http.MethodPost,
	Path: func(in AddProjectMember) string {
		return fmt.Sprintf("/api/organizations/%d/projects/%d/members", in.OrganizationID, in.ProjectID)
	},
	Body: func(in AddProjectMember) any { return in },
}

type CreateTicketColumn struct {
	OrganizationID int64  `json:"-" validate:"gt=0"`
	ProjectID      int64  `json:"-" validate:"gt=0"`
	Title          string `json:"title" validate:"required,notblank,max=80"`
}

var CreateTicketColumnAction = action.Action[CreateTicketColumn, models.TicketColumn]{
	Name:   "column.create",
	Method: http.MethodPost,
	Path: func(in CreateTicketColumn) string {
		return fmt.Sprintf("/api/organizations/%d/projects/%d/columns", in.OrganizationID, in.ProjectID)
	},
	Body: func(in CreateTicketColumn) any { return in },
}

type CreateTicket struct {
	OrganizationID int64  `json:"-" validate:"gt=0"`
	ProjectID      int64  `json:"-" validate:"gt=0"`
	ColumnID       int64  `json:"columnId" validate:"gt=0"`
	Title          string `json:"title" validate:"required,notblank,max=200"`
	Description    string `json:"description" validate:"max=10000"`
	AssigneeID     *int64 `json:"assigneeId,omitempty" validate:"omitempty,gt=0"`
}

var CreateTicketAction = action.Action[CreateTicket, models.Ticket]{
	Name:   "ticket.create",
	Method: http.MethodPost,
	Path: func(in CreateTicket) string {
		return fmt.Sprintf("/api/organizations/%d/projects/%d/tickets", in.OrganizationID, in.ProjectID)
	},
	Body: func(in CreateTicket) any { return in },
}

type MoveTicket struct {
	OrganizationID int64 `json:"-" validate:"gt=0"`
	ProjectID      int64 `json:"-" validate:"gt=0"`
	TicketID       int64 `json:"-" validate:"gt=0"`
	ColumnID       int64 `json:"columnId" validate:"gt=0"`
	Index          int   `json:"index" validate:"gte=0"`
}

var MoveTicketAction = action.Action[MoveTicket, models.Ticket]{
	Name:   "ticket.move",
	Method: http.MethodPost,
	Path: func(in MoveTicket) string {
		return fmt.Sprintf("/api/organizations/%d/projects/%d/tickets/%d/move", in.OrganizationID, in.ProjectID, in.TicketID)
	},
	Body: func(in MoveTicket) any { return in },
}

type ListTickets struct {
	OrganizationID int64 `validate:"gt=0"`
	ProjectID      int64 `validate:"gt=0"`
	Query          query.Descriptor
}

var ListTicketsAction = action.Action[ListTickets, models.Page[models.Ticket]]{
	Name:   "ticket.list",
	Method: http.MethodGet,
	Path: func(in ListTickets) string {
		return withQuery(fmt.Sprintf("/api/organizations/%d/projects/%d/tickets", in.OrganizationID, in.ProjectID), in.Query)
	},
}
