package store

import (
	"context"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"taskflow/server/models"
	"taskflow/server/query"
)

// roleRow carries the role's permission codes aggregated into one string.
type roleRow struct {
	models.Role
	Codes string `db:"codes"`
}

func splitCodes(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func (r roleRow) role() models.Role {
	role := r.Role
	role.Permissions = splitCodes(r.Codes)
	return role
}

const roleColumns = `r.id, r.organization_id, r.name, r.created_at,
	(select coalesce(string_agg(rp.code, ',' order by rp.code), '') from role_permissions rp where rp.role_id = r.id) as codes`

var rolesList = listSpec{
	columns: roleColumns,
	from:    "roles r",
	sort: map[string]string{
		"name":      "r.name",
		"createdAt": "r.created_at",
	},
	search: []string{"r.name"},
	order:  "r.id",
}

func RoleListSchema() query.Schema { return rolesList.Schema() }

// ListRoles lists the organization's roles together with the global ones.
func (s *Store) ListRoles(ctx context.Context, organizationID int64, d query.Descriptor) (models.Page[models.Role], error) {
	page, err := list[roleRow](ctx, s.db, rolesList, d, where("(r.organization_id = ? or r.organization_id is null)", organizationID))
	if err != nil {
		return models.Page[models.Role]{}, err
	}
	roles := make([]models.Role, len(page.Items))
	for i, r := range page.Items {
		roles[i] = r.role()
	}
	return models.NewPage(roles, page.Total, page.PageNumber, page.PageSize), nil
}

// Role returns a role visible to the organization.
func (s *Store) Role(ctx context.Context, organizationID, id int64) (models.Role, error) {
	var r roleRow
	err := get(ctx, s.db, &r, `select `+roleColumns+` from roles r
		where r.id = ? and (r.organization_id = ? or r.organization_id is null)`, id, organizationID)
	if err != nil {
		return models.Role{}, err
	}
	return r.role(), nil
}

// CreateRole creates a role. A nil organizationID creates a global role.
// Codes are expected to be validated by the caller.
func (s *Store) CreateRole(ctx context.Context, organizationID *int64, name string, codes []string) (models.Role, error) {
	var role models.Role
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := get(ctx, tx, &role, `insert into roles as r (organization_id, name) values (?, ?)
			returning r.id, r.organization_id, r.name, r.created_at`, organizationID, strings.TrimSpace(name)); err != nil {
			return err
		}
		for _, code := range codes {
			if _, err := exec(ctx, tx, `insert into role_permissions (role_id, code) values (?, ?) on conflict do nothing`, role.ID, code); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Role{}, err
	}
	role.Permissions = dedupSorted(codes)
	return role, nil
}

func dedupSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}
