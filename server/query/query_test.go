package query_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/server/models"
	"taskflow/server/query"
	"taskflow/server/store"
)

func TestParseDefaults(t *testing.T) {
	d, err := query.Parse(url.Values{}, nil, query.Schema{})
	require.NoError(t, err)
	assert.Equal(t, 1, d.PageNumber)
	assert.Equal(t, 10, d.PageSize)
	assert.Equal(t, "", d.SearchTerm)
	assert.Empty(t, d.Sort)
	assert.Empty(t, d.Filters)
	assert.Equal(t, query.PathParams{}, d.Path)
	assert.Equal(t, 0, d.Offset())
}

func TestParseMalformedOptionalFieldsFallBack(t *testing.T) {
	cases := map[string]url.Values{
		"non numeric":   {"pageNumber": {"abc"}, "pageSize": {"x"}},
		"zero":          {"pageNumber": {"0"}, "pageSize": {"0"}},
		"negative":      {"pageNumber": {"-2"}, "pageSize": {"-5"}},
		"fractional":    {"pageNumber": {"1.5"}},
		"bad sort json": {"sort": {"[{id:"}},
	}
	for name, vals := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := query.Parse(vals, nil, store.TicketListSchema())
			require.NoError(t, err)
			assert.Equal(t, query.DefaultPageNumber, d.PageNumber)
			assert.Equal(t, query.DefaultPageSize, d.PageSize)
			assert.Empty(t, d.Sort)
		})
	}
}

func TestParseValues(t *testing.T) {
	d, err := query.Parse(url.Values{
		"pageNumber": {"3"},
		"pageSize":   {"25"},
		"searchTerm": {"  login bug "},
		"sort":       {`[{"id":"title","desc":true},{"id":"secret"},{"id":"pos"},{"id":"title"}]`},
		"columnId":   {"8,5", "8"},
		"assigneeId": {" 4 ,, 2"},
		"unknown":    {"ignored"},
	}, url.Values{"organizationId": {"7"}, "projectId": {"9"}}, store.TicketListSchema())
	require.NoError(t, err)

	assert.Equal(t, 3, d.PageNumber)
	assert.Equal(t, 25, d.PageSize)
	assert.Equal(t, 50, d.Offset())
	assert.Equal(t, "login bug", d.SearchTerm)
	assert.Equal(t, query.SortList{{ID: "title", Desc: true}, {ID: "pos"}}, d.Sort)
	assert.Equal(t, map[string][]string{
		"columnId":   {"5", "8"},
		"assigneeId": {"2", "4"},
	}, d.Filters)
	assert.Nil(t, d.Filter("unknown"))
	assert.Equal(t, query.PathParams{OrganizationID: 7, ProjectID: 9}, d.Path)
}

func TestQueryKeysNamedLikePathParams(t *testing.T) {
	cases := []struct {
		name    string
		values  url.Values
		schema  query.Schema
		filters map[string][]string
	}{
		{
			name:    "unknown key on projects",
			values:  url.Values{"employeeId": {"abc"}, "organizationId": {"x"}},
			schema:  store.ProjectListSchema(),
			filters: map[string][]string{},
		},
		{
			name:    "role filter on members",
			values:  url.Values{"roleId": {"1,2"}},
			schema:  store.MemberListSchema(),
			filters: map[string][]string{"roleId": {"1", "2"}},
		},
		{
			name:    "column filter on tickets",
			values:  url.Values{"columnId": {"6,5"}, "ticketId": {"0"}},
			schema:  store.TicketListSchema(),
			filters: map[string][]string{"columnId": {"5", "6"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := query.Parse(tc.values, url.Values{"organizationId": {"3"}}, tc.schema)
			require.NoError(t, err)
			assert.Equal(t, tc.filters, d.Filters)
			assert.Equal(t, query.PathParams{OrganizationID: 3}, d.Path)
		})
	}
}

func TestParseRejectsInvalidPathParams(t *testing.T) {
	for _, v := range []string{"abc", "0", "-1", "", "1e3"} {
		_, err := query.Parse(url.Values{}, url.Values{"organizationId": {v}}, query.Schema{})
		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve), "value %q", v)
		require.Len(t, ve.Errors, 1)
		assert.Equal(t, "organizationId", ve.Errors[0].Field)
	}

	_, err := query.ParsePath(url.Values{"projectId": {"x"}, "ticketId": {"0"}, "roleId": {"3"}})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"projectId", "ticketId"}, []string{ve.Errors[0].Field, ve.Errors[1].Field})
}

func TestEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		schema query.Schema
		values url.Values
		path   url.Values
	}{
		{store.TicketListSchema(), url.Values{}, nil},
		{store.TicketListSchema(), url.Values{"pageNumber": {"2"}, "pageSize": {"5"}}, nil},
		{store.TicketListSchema(), url.Values{"sort": {`[{"id":"createdAt","desc":true},{"id":"title"}]`}, "searchTerm": {"a b&c"}}, nil},
		{store.TicketListSchema(), url.Values{"columnId": {"6,5", "7"}, "assigneeId": {"3"}}, url.Values{"organizationId": {"1"}, "projectId": {"2"}}},
		{store.TicketListSchema(), url.Values{"pageNumber": {"junk"}, "sort": {"nope"}, "other": {"x"}}, nil},
		{store.MemberListSchema(), url.Values{"roleId": {"1,2"}, "status": {"ACTIVE"}}, url.Values{"organizationId": {"1"}, "projectId": {"2"}}},
		{store.ProjectListSchema(), url.Values{"status": {"ARCHIVED,ACTIVE"}, "sort": {`[{"id":"name"}]`}}, url.Values{"organizationId": {"4"}}},
	}
	for _, tc := range cases {
		d, err := query.Parse(tc.values, tc.path, tc.schema)
		require.NoError(t, err)

		enc, err := d.Encode()
		require.NoError(t, err)
		path, err := d.Path.Values()
		require.NoError(t, err)
		again, err := query.Parse(enc, path, tc.schema)
		require.NoError(t, err)
		assert.Equal(t, d, again, "query %s", enc.Encode())

		// Encoding is stable once normalized.
		enc2, err := again.Encode()
		require.NoError(t, err)
		assert.Equal(t, enc.Encode(), enc2.Encode())
	}
}

func TestEncodeShape(t *testing.T) {
	d := query.Descriptor{
		PageNumber: 2,
		PageSize:   20,
		Sort:       query.SortList{{ID: "title"}},
		Filters:    map[string][]string{"columnId": {"5", "6"}},
		Path:       query.PathParams{OrganizationID: 4},
	}
	v, err := d.Encode()
	require.NoError(t, err)
	assert.Equal(t, "2", v.Get("pageNumber"))
	assert.Equal(t, "20", v.Get("pageSize"))
	assert.JSONEq(t, `[{"id":"title","desc":false}]`, v.Get("sort"))
	assert.Equal(t, "5,6", v.Get("columnId"))
	assert.False(t, v.Has("searchTerm"))
	assert.False(t, v.Has("organizationId"))

	path, err := d.Path.Values()
	require.NoError(t, err)
	assert.Equal(t, url.Values{"organizationId": {"4"}}, path)
}
