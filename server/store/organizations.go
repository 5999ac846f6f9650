package store

import (
	"context"
	"strings"

	"taskflow/server/models"
	"taskflow/server/query"
)

const organizationColumns = `o.id, o.name, o.status, o.created_at`

var organizationsList = listSpec{
	columns: organizationColumns,
	from:    "organizations o",
	sort: map[string]string{
		"name":      "o.name",
		"status":    "o.status",
		"createdAt": "o.created_at",
	},
	filters: map[string]string{"status": "o.status"},
	search:  []string{"o.name"},
	order:   "o.id",
}

func OrganizationListSchema() query.Schema { return organizationsList.Schema() }

func (s *Store) ListOrganizations(ctx context.Context, d query.Descriptor) (models.Page[models.Organization], error) {
	return list[models.Organization](ctx, s.db, organizationsList, d)
}

func (s *Store) CreateOrganization(ctx context.Context, name string) (models.Organization, error) {
	var o models.Organization
	err := get(ctx, s.db, &o, `insert into organizations as o (name) values (?) returning `+organizationColumns, strings.TrimSpace(name))
	if isUniqueViolation(err) {
		return models.Organization{}, models.NewValidationError("name", "An organization with this name already exists")
	}
	return o, err
}

func (s *Store) Organization(ctx context.Context, id int64) (models.Organization, error) {
	var o models.Organization
	err := get(ctx, s.db, &o, `select `+organizationColumns+` from organizations o where o.id = ?`, id)
	return o, err
}

func (s *Store) SetOrganizationStatus(ctx context.Context, id int64, status models.OrganizationStatus) (models.Organization, error) {
	var o models.Organization
	err := get(ctx, s.db, &o, `update organizations as o set status = ? where o.id = ? returning `+organizationColumns, status, id)
	return o, err
}
