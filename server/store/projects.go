package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskflow/server/models"
	"taskflow/server/query"
)

const projectColumns = `p.id, p.organization_id, p.name, p.description, p.status, p.created_at`

var projectsList = listSpec{
	columns: projectColumns,
	from:    "projects p",
	sort: map[string]string{
		"name":      "p.name",
		"status":    "p.status",
		"createdAt": "p.created_at",
	},
	filters: map[string]string{"status": "p.status"},
	search:  []string{"p.name", "p.description"},
	order:   "p.id",
}

func ProjectListSchema() query.Schema { return projectsList.Schema() }

func (s *Store) ListProjects(ctx context.Context, organizationID int64, d query.Descriptor) (models.Page[models.Project], error) {
	return list[models.Project](ctx, s.db, projectsList, d, where("p.organization_id = ?", organizationID))
}

// ListMemberProjects lists the projects where userID holds an active membership.
func (s *Store) ListMemberProjects(ctx context.Context, organizationID, userID int64, d query.Descriptor) (models.Page[models.Project], error) {
	return list[models.Project](ctx, s.db, projectsList, d,
		where("p.organization_id = ?", organizationID),
		where(`exists (select 1 from project_members pm
			where pm.project_id = p.id and pm.user_id = ? and pm.status = 'ACTIVE')`, userID))
}

func (s *Store) Project(ctx context.Context, organizationID, id int64) (models.Project, error) {
	var p models.Project
	err := get(ctx, s.db, &p, `select `+projectColumns+` from projects p where p.id = ? and p.organization_id = ?`, id, organizationID)
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, organizationID int64, name, description string) (models.Project, error) {
	var p models.Project
	err := get(ctx, s.db, &p, `insert into projects as p (organization_id, name, description) values (?, ?, ?)
		returning `+projectColumns, organizationID, strings.TrimSpace(name), description)
	return p, err
}

type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
}

func (s *Store) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (models.Project, error) {
	set := []string{}
	args := []any{}
	if patch.Name != nil {
		set = append(set, "name = ?")
		args = append(args, strings.TrimSpace(*patch.Name))
	}
	if patch.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		set = append(set, "status = ?")
		args = append(args, *patch.Status)
	}
	var p models.Project
	if len(set) == 0 {
		err := get(ctx, s.db, &p, `select `+projectColumns+` from projects p where p.id = ?`, id)
		return p, err
	}
	q := fmt.Sprintf(`update projects as p set %s where p.id = ? returning %s`, strings.Join(set, ", "), projectColumns)
	err := get(ctx, s.db, &p, q, append(args, id)...)
	return p, err
}

// memberRow carries the membership's role permissions aggregated into one string.
type memberRow struct {
	models.ProjectMember
	Codes string `db:"codes"`
}

func (r memberRow) member() models.ProjectMember {
	m := r.ProjectMember
	m.Permissions = splitCodes(r.Codes)
	return m
}

const memberColumns = `pm.project_id, pm.user_id, pm.role_id, pm.status, pm.created_at,
	u.name, u.email, r.name as role_name,
	(select coalesce(string_agg(rp.code, ',' order by rp.code), '') from role_permissions rp where rp.role_id = pm.role_id) as codes`

const memberFrom = `project_members pm join users u on u.id = pm.user_id join roles r on r.id = pm.role_id`

var membersList = listSpec{
	columns: memberColumns,
	from:    memberFrom,
	sort: map[string]string{
		"name":      "u.name",
		"email":     "u.email",
		"role":      "r.name",
		"createdAt": "pm.created_at",
	},
	filters: map[string]string{
		"status": "pm.status",
		"roleId": "pm.role_id",
	},
	search: []string{"u.name", "u.email"},
	order:  "pm.user_id",
}

func MemberListSchema() query.Schema { return membersList.Schema() }

func (s *Store) ListProjectMembers(ctx context.Context, projectID int64, d query.Descriptor) (models.Page[models.ProjectMember], error) {
	page, err := list[memberRow](ctx, s.db, membersList, d, where("pm.project_id = ?", projectID))
	if err != nil {
		return models.Page[models.ProjectMember]{}, err
	}
	members := make([]models.ProjectMember, len(page.Items))
	for i, m := range page.Items {
		members[i] = m.member()
	}
	return models.NewPage(members, page.Total, page.PageNumber, page.PageSize), nil
}

// ProjectMember returns the membership of userID in projectID with its role's permissions.
func (s *Store) ProjectMember(ctx context.Context, projectID, userID int64) (models.ProjectMember, error) {
	var m memberRow
	err := get(ctx, s.db, &m, `select `+memberColumns+` from `+memberFrom+` where pm.project_id = ? and pm.user_id = ?`, projectID, userID)
	if err != nil {
		return models.ProjectMember{}, err
	}
	return m.member(), nil
}

// AddProjectMember adds userID to the project with roleID. An inactive
// membership is reactivated; an active one is a validation error.
func (s *Store) AddProjectMember(ctx context.Context, projectID, userID, roleID int64) (models.ProjectMember, error) {
	var pid int64
	err := get(ctx, s.db, &pid, `insert into project_members (project_id, user_id, role_id) values (?, ?, ?)
		on conflict (project_id, user_id) do update set role_id = excluded.role_id, status = 'ACTIVE'
		where project_members.status <> 'ACTIVE'
		returning project_id`, projectID, userID, roleID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ProjectMember{}, models.NewValidationError("employeeId", "Employee is already a member of this project")
	}
	if err != nil {
		return models.ProjectMember{}, err
	}
	return s.ProjectMember(ctx, projectID, userID)
}

// RemoveProjectMember deactivates an active membership.
func (s *Store) RemoveProjectMember(ctx context.Context, projectID, userID int64) error {
	return mustAffect(exec(ctx, s.db, `update project_members set status = 'INACTIVE'
		where project_id = ? and user_id = ? and status = 'ACTIVE'`, projectID, userID))
}
