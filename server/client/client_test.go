package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/server/action"
	"taskflow/server/identity"
	"taskflow/server/models"
	"taskflow/server/query"
)

type recorded struct {
	method, path string
	query        url.Values
	body         map[string]any
}

func testGateway(t *testing.T, status int, reply string) (*action.Gateway, *atomic.Pointer[recorded]) {
	t.Helper()
	var last atomic.Pointer[recorded]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &recorded{method: r.Method, path: r.URL.Path, query: r.URL.Query()}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		last.Store(rec)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return action.NewGateway(srv.URL, srv.Client(), identity.StaticToken("t"), nil), &last
}

func TestCreateOrganization(t *testing.T) {
	g, last := testGateway(t, http.StatusCreated, `{"id":4,"name":"Acme","status":"ACTIVE"}`)
	res := action.Execute(context.Background(), g, CreateOrganizationAction, CreateOrganization{Name: "Acme"})
	require.NoError(t, res.Err())
	assert.Equal(t, int64(4), res.Data.ID)
	assert.Equal(t, models.OrganizationActive, res.Data.Status)
	rec := last.Load()
	assert.Equal(t, "POST", rec.method)
	assert.Equal(t, "/api/admin/organizations", rec.path)
	assert.Equal(t, "Acme", rec.body["name"])
}

func TestSetOrganizationStatusKeepsIDOutOfBody(t *testing.T) {
	g, last := testGateway(t, http.StatusOK, `{"id":4,"status":"SUSPENDED"}`)
	res := action.Execute(context.Background(), g, SetOrganizationStatusAction,
		SetOrganizationStatus{OrganizationID: 4, Status: models.OrganizationSuspended})
	require.NoError(t, res.Err())
	rec := last.Load()
	assert.Equal(t, "/api/admin/organizations/4/status", rec.path)
	assert.Equal(t, map[string]any{"status": "SUSPENDED"}, rec.body)

	res = action.Execute(context.Background(), g, SetOrganizationStatusAction,
		SetOrganizationStatus{OrganizationID: 4, Status: "FROZEN"})
	require.Error(t, res.Err())
	assert.Equal(t, action.CodeDefault, res.Error.Code)
}

func TestBanEmployee(t *testing.T) {
	g, last := testGateway(t, http.StatusNoContent, "")
	res := action.Execute(context.Background(), g, BanEmployeeAction, BanEmployee{OrganizationID: 2, EmployeeID: 9})
	require.True(t, res.Success)
	rec := last.Load()
	assert.Equal(t, "DELETE", rec.method)
	assert.Equal(t, "/api/organizations/2/employees/9", rec.path)
}

func TestCreateEmployeeServerValidation(t *testing.T) {
	g, _ := testGateway(t, http.StatusBadRequest, `{"ok":false,"error":"Invalid email","errors":[{"field":"email","message":"Invalid email"}]}`)
	res := action.Execute(context.Background(), g, CreateEmployeeAction,
		NewUser{OrganizationID: 1, Email: "e@x.io", Name: "Eve", Password: "longenough"})
	require.NotNil(t, res.Error)
	assert.Equal(t, action.CodeValidation, res.Error.Code)
	assert.Equal(t, "Invalid email", res.Error.Details)
}

func TestCreateRoleRejectsUnknownPermissionLocally(t *testing.T) {
	g, last := testGateway(t, http.StatusCreated, `{}`)
	res := action.Execute(context.Background(), g, CreateRoleAction,
		CreateRole{OrganizationID: 1, Name: "dev", Permissions: []string{"TICKET_CREATE", "LAUNCH_MISSILES"}})
	require.NotNil(t, res.Error)
	assert.Equal(t, action.CodeDefault, res.Error.Code)
	assert.Nil(t, last.Load())

	res = action.Execute(context.Background(), g, CreateRoleAction,
		CreateRole{OrganizationID: 1, Name: "dev", Permissions: []string{"TICKET_CREATE"}})
	require.NoError(t, res.Err())
	assert.Equal(t, "/api/organizations/1/roles", last.Load().path)
}

func TestMoveTicket(t *testing.T) {
	g, last := testGateway(t, http.StatusOK, `{"id":3,"projectId":2,"columnId":4,"title":"Fix login"}`)
	res := action.Execute(context.Background(), g, MoveTicketAction,
		MoveTicket{OrganizationID: 1, ProjectID: 2, TicketID: 3, ColumnID: 4, Index: 0})
	require.True(t, res.Success)
	assert.Equal(t, int64(4), res.Data.ColumnID)
	rec := last.Load()
	assert.Equal(t, "/api/organizations/1/projects/2/tickets/3/move", rec.path)
	assert.Equal(t, map[string]any{"columnId": float64(4), "index": float64(0)}, rec.body)
}

func TestCreateTicketNotFound(t *testing.T) {
	g, _ := testGateway(t, http.StatusNotFound, `{"ok":false,"error":"not found"}`)
	res := action.Execute(context.Background(), g, CreateTicketAction,
		CreateTicket{OrganizationID: 1, ProjectID: 2, ColumnID: 3, Title: "Fix login"})
	require.NotNil(t, res.Error)
	assert.Equal(t, action.CodeNotFound, res.Error.Code)
}

func TestListTicketsEncodesQuery(t *testing.T) {
	g, last := testGateway(t, http.StatusOK, `{"items":[{"id":9,"title":"Fix login"}],"total":1,"pageNumber":2,"pageSize":5,"pageCount":1}`)
	res := action.Execute(context.Background(), g, ListTicketsAction, ListTickets{
		OrganizationID: 1,
		ProjectID:      2,
		Query: query.Descriptor{
			PageNumber: 2,
			PageSize:   5,
			Sort:       query.SortList{{ID: "pos"}},
			SearchTerm: "login",
			Filters:    map[string][]string{"columnId": {"3", "4"}},
			Path:       query.PathParams{OrganizationID: 1, ProjectID: 2},
		},
	})
	require.NoError(t, res.Err())
	require.Len(t, res.Data.Items, 1)
	assert.Equal(t, int64(9), res.Data.Items[0].ID)

	rec := last.Load()
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/organizations/1/projects/2/tickets", rec.path)
	assert.Equal(t, "2", rec.query.Get("pageNumber"))
	assert.Equal(t, "5", rec.query.Get("pageSize"))
	assert.Equal(t, "login", rec.query.Get("searchTerm"))
	assert.Equal(t, "3,4", rec.query.Get("columnId"))
	assert.JSONEq(t, `[{"id":"pos","desc":false}]`, rec.query.Get("sort"))
	assert.False(t, rec.query.Has("projectId"))
	assert.Nil(t, rec.body)
}
