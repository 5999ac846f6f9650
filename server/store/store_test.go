package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/server/models"
	"taskflow/server/query"
)

// passSlices lets []string filter arguments through to sqlmock untouched.
type passSlices struct{}

func (passSlices) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passSlices{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(sqlx.NewDb(db, "pgx")), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func descriptor(t *testing.T, raw map[string][]string, schema query.Schema) query.Descriptor {
	t.Helper()
	d, err := query.Parse(raw, nil, schema)
	require.NoError(t, err)
	return d
}

func TestPosition(t *testing.T) {
	cases := []struct {
		name      string
		positions []int64
		index     int
		want      int64
		ok        bool
	}{
		{"empty", nil, 0, 1000, true},
		{"append", []int64{1000, 2000}, 2, 3000, true},
		{"index past end clamps", []int64{1000}, 9, 2000, true},
		{"prepend", []int64{1000, 2000}, 0, 500, true},
		{"prepend small", []int64{300}, 0, 150, true},
		{"prepend no room", []int64{1}, 0, 0, false},
		{"negative index clamps", []int64{1000}, -3, 500, true},
		{"between", []int64{1000, 2000}, 1, 1500, true},
		{"between no room", []int64{1000, 1001}, 1, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := position(c.positions, c.index)
			assert.Equal(t, c.ok, ok)
			if c.ok {
				assert.Equal(t, c.want, got)
			}
		})
	}
}

func TestListProjects(t *testing.T) {
	s, mock := newMock(t)
	d := descriptor(t, map[string][]string{
		"pageNumber": {"2"},
		"pageSize":   {"1"},
		"searchTerm": {"50%"},
		"sort":       {`[{"id":"name","desc":true}]`},
		"status":     {"ACTIVE"},
	}, ProjectListSchema())

	mock.ExpectQuery(q(`select count(*) from projects p where p.organization_id = $1 and (p.status)::text = any($2) and (p.name ilike $3 or p.description ilike $4)`)).
		WithArgs(int64(7), []string{"ACTIVE"}, `%50\%%`, `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(q(`order by p.name desc, p.id limit $5 offset $6`)).
		WithArgs(int64(7), []string{"ACTIVE"}, `%50\%%`, `%50\%%`, 1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "description", "status", "created_at"}).
			AddRow(12, 7, "Apollo 50%", "", "ACTIVE", time.Now()))

	page, err := s.ListProjects(context.Background(), 7, d)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 3, page.PageCount)
	assert.Equal(t, 2, page.PageNumber)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Apollo 50%", page.Items[0].Name)
	assert.Equal(t, models.ProjectActive, page.Items[0].Status)
}

func TestListRolesIncludesGlobalRoles(t *testing.T) {
	s, mock := newMock(t)
	d := descriptor(t, nil, RoleListSchema())

	mock.ExpectQuery(q(`select count(*) from roles r where (r.organization_id = $1 or r.organization_id is null)`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(q(`order by r.id limit $2 offset $3`)).
		WithArgs(int64(2), 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "created_at", "codes"}).
			AddRow(1, nil, "viewer", time.Now(), "PROJECT_VIEW").
			AddRow(5, 2, "dev", time.Now(), "PROJECT_VIEW,TICKET_CREATE"))

	page, err := s.ListRoles(context.Background(), 2, d)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Nil(t, page.Items[0].OrganizationID)
	assert.Equal(t, []string{"PROJECT_VIEW"}, page.Items[0].Permissions)
	assert.Equal(t, []string{"PROJECT_VIEW", "TICKET_CREATE"}, page.Items[1].Permissions)
}

func TestUserProfile(t *testing.T) {
	s, mock := newMock(t)
	cols := []string{"id", "email", "name", "kind", "status", "organization_id", "created_at", "organization_status"}
	mock.ExpectQuery(q(`left join organizations o on o.id = u.organization_id`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "root@x.io", "Root", "SUPER_ADMIN", "ACTIVE", nil, time.Now(), nil))
	mock.ExpectQuery(q(`left join organizations o on o.id = u.organization_id`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, "e@x.io", "Eve", "EMPLOYEE", "ACTIVE", 4, time.Now(), "SUSPENDED"))
	mock.ExpectQuery(q(`left join organizations o on o.id = u.organization_id`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols))

	p, err := s.UserProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.KindSuperAdmin, p.Kind)
	assert.Nil(t, p.OrganizationID)
	assert.Nil(t, p.OrganizationStatus)

	p, err = s.UserProfile(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, p.OrganizationStatus)
	assert.Equal(t, models.OrganizationSuspended, *p.OrganizationStatus)
	assert.Equal(t, int64(4), *p.OrganizationID)

	_, err = s.UserProfile(context.Background(), 3)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	s, mock := newMock(t)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	cols := []string{"id", "email", "name", "kind", "status", "organization_id", "created_at", "password_hash"}
	for range 2 {
		mock.ExpectQuery(q(`from users u where lower(u.email) = lower($1)`)).
			WithArgs("a@x.io").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(9, "a@x.io", "A", "EMPLOYEE", "ACTIVE", 1, time.Now(), hash))
	}
	mock.ExpectQuery(q(`from users u where lower(u.email) = lower($1)`)).
		WithArgs("nobody@x.io").
		WillReturnRows(sqlmock.NewRows(cols))

	u, err := s.Authenticate(context.Background(), "a@x.io", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)

	_, err = s.Authenticate(context.Background(), "a@x.io", "wrong")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.Authenticate(context.Background(), "nobody@x.io", "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q(`insert into users as u`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	org := int64(1)
	_, err := s.CreateUser(context.Background(), NewUser{Email: "a@x.io", Name: "A", Password: "secret123", Kind: models.KindEmployee, OrganizationID: &org})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Errors[0].Field)
}

func TestSetUserStatusBanEndsSessions(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`update users set status = $1 where id = $2`)).
		WithArgs("BANNED", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`delete from sessions where user_id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.SetUserStatus(context.Background(), 5, models.UserBanned))
}

func TestSetUserStatusMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`update users set status`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, s.SetUserStatus(context.Background(), 5, models.UserBanned), models.ErrNotFound)
}

func TestAddProjectMemberDuplicate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q(`on conflict (project_id, user_id) do update`)).
		WithArgs(int64(3), int64(4), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}))

	_, err := s.AddProjectMember(context.Background(), 3, 4, 5)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "employeeId", ve.Errors[0].Field)
}

func TestAddProjectMemberLoadsPermissions(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q(`on conflict (project_id, user_id) do update`)).
		WithArgs(int64(3), int64(4), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow(3))
	mock.ExpectQuery(q(`where pm.project_id = $1 and pm.user_id = $2`)).
		WithArgs(int64(3), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"project_id", "user_id", "role_id", "status", "created_at", "name", "email", "role_name", "codes"}).
			AddRow(3, 4, 5, "ACTIVE", time.Now(), "Eve", "e@x.io", "dev", "PROJECT_VIEW,TICKET_EDIT"))

	m, err := s.AddProjectMember(context.Background(), 3, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, models.MemberActive, m.Status)
	assert.Equal(t, "dev", m.RoleName)
	assert.Equal(t, []string{"PROJECT_VIEW", "TICKET_EDIT"}, m.Permissions)
}

func TestRemoveProjectMemberMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(q(`update project_members set status = 'INACTIVE'`)).
		WithArgs(int64(3), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.RemoveProjectMember(context.Background(), 3, 4), models.ErrNotFound)
}

var ticketCols = []string{"id", "project_id", "column_id", "title", "description", "assignee_id", "pos", "created_by", "created_at"}

func TestCreateTicketUnknownColumn(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q(`insert into tickets as t`)).
		WithArgs("Fix login", "", nil, int64(2), posStep, int64(99), int64(1)).
		WillReturnRows(sqlmock.NewRows(ticketCols))

	_, err := s.CreateTicket(context.Background(), NewTicket{ProjectID: 1, ColumnID: 99, Title: " Fix login ", CreatedBy: 2})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "columnId", ve.Errors[0].Field)
}

func TestMoveTicketRenumbersWhenCrowded(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(q(`from tickets t where t.id = $1 and t.project_id = $2`)).
		WithArgs(int64(8), int64(1)).
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(8, 1, 10, "T", "", nil, 5000, 2, now))
	mock.ExpectQuery(q(`from ticket_columns c where c.id = $1 and c.project_id = $2`)).
		WithArgs(int64(20), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "title", "pos", "created_at"}).AddRow(20, 1, "Done", 2000, now))

	mock.ExpectBegin()
	mock.ExpectExec(q(`update tickets set column_id = $1 where id = $2`)).
		WithArgs(int64(20), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q(`select pos from tickets where column_id = $1 and id <> $2 order by pos, id`)).
		WithArgs(int64(20), int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"pos"}).AddRow(1000).AddRow(1001))
	mock.ExpectQuery(q(`select id from tickets where column_id = $1 order by pos, id`)).
		WithArgs(int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(8).AddRow(4))
	for i, id := range []int64{3, 8, 4} {
		mock.ExpectExec(q(`update tickets set pos = $1 where id = $2`)).
			WithArgs(int64(1000*(i+1)), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectQuery(q(`select pos from tickets where column_id = $1 and id <> $2 order by pos, id`)).
		WithArgs(int64(20), int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"pos"}).AddRow(1000).AddRow(3000))
	mock.ExpectExec(q(`update tickets set pos = $1 where id = $2`)).
		WithArgs(int64(2000), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(q(`from tickets t where t.id = $1 and t.project_id = $2`)).
		WithArgs(int64(8), int64(1)).
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(8, 1, 20, "T", "", nil, 2000, 2, now))

	got, err := s.MoveTicket(context.Background(), 1, 8, 20, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.ColumnID)
	assert.Equal(t, int64(2000), got.Pos)
}

func TestMoveTicketUnknownColumn(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q(`from tickets t where t.id = $1`)).
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(8, 1, 10, "T", "", nil, 5000, 2, time.Now()))
	mock.ExpectQuery(q(`from ticket_columns c where c.id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "title", "pos", "created_at"}))

	_, err := s.MoveTicket(context.Background(), 1, 8, 77, 0)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestUpdateTicketClearsAssignee(t *testing.T) {
	s, mock := newMock(t)
	title := "New title"
	zero := int64(0)
	mock.ExpectQuery(q(`update tickets as t set title = $1, assignee_id = $2 where t.id = $3 and t.project_id = $4 returning`)).
		WithArgs("New title", nil, int64(8), int64(1)).
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(8, 1, 10, "New title", "", nil, 1000, 2, time.Now()))

	got, err := s.UpdateTicket(context.Background(), 1, 8, TicketPatch{Title: &title, AssigneeID: &zero})
	require.NoError(t, err)
	assert.Nil(t, got.AssigneeID)
}

func TestGetWrapsDriverErrors(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("conn reset")
	mock.ExpectQuery(q(`from organizations o where o.id = $1`)).WillReturnError(boom)
	_, err := s.Organization(context.Background(), 1)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}
