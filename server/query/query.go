// Package query normalizes list-endpoint query strings into a canonical
// descriptor. Optional fields fall back to defaults; only the route's path
// parameters can fail. Path parameters never come from the query string.
package query

import (
	"encoding/json"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/form"
	qs "github.com/google/go-querystring/query"

	"taskflow/server/models"
)

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
)

// Path parameter keys.
const (
	KeyOrganizationID = "organizationId"
	KeyProjectID      = "projectId"
	KeyRoleID         = "roleId"
	KeyEmployeeID     = "employeeId"
	KeyColumnID       = "columnId"
	KeyTicketID       = "ticketId"
)

var pathKeys = []string{KeyOrganizationID, KeyProjectID, KeyRoleID, KeyEmployeeID, KeyColumnID, KeyTicketID}

// PathKeys returns the recognized path parameter names.
func PathKeys() []string { return slices.Clone(pathKeys) }

// Schema lists what a particular list endpoint accepts.
type Schema struct {
	Sortable []string
	Filters  []string
}

type SortField struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// SortList encodes itself as a JSON array in a single query value.
type SortList []SortField

func (s SortList) EncodeValues(key string, v *url.Values) error {
	if len(s) == 0 {
		return nil
	}
	b, err := json.Marshal([]SortField(s))
	if err != nil {
		return err
	}
	v.Set(key, string(b))
	return nil
}

// PathParams holds the resource ids named in the route. Zero means absent.
type PathParams struct {
	OrganizationID int64 `url:"organizationId,omitempty"`
	ProjectID      int64 `url:"projectId,omitempty"`
	RoleID         int64 `url:"roleId,omitempty"`
	EmployeeID     int64 `url:"employeeId,omitempty"`
	ColumnID       int64 `url:"columnId,omitempty"`
	TicketID       int64 `url:"ticketId,omitempty"`
}

func (p *PathParams) field(key string) *int64 {
	switch key {
	case KeyOrganizationID:
		return &p.OrganizationID
	case KeyProjectID:
		return &p.ProjectID
	case KeyRoleID:
		return &p.RoleID
	case KeyEmployeeID:
		return &p.EmployeeID
	case KeyColumnID:
		return &p.ColumnID
	case KeyTicketID:
		return &p.TicketID
	}
	return nil
}

// Descriptor is the canonical form of a list query.
type Descriptor struct {
	PageNumber int
	PageSize   int
	Sort       SortList
	SearchTerm string
	Filters    map[string][]string
	Path       PathParams
}

// Offset is the number of rows to skip for the current page.
func (d Descriptor) Offset() int { return (d.PageNumber - 1) * d.PageSize }

// Filter returns the values selected for key, if any.
func (d Descriptor) Filter(key string) []string { return d.Filters[key] }

// raw is the optional part of the query string as decoded by form.
type raw struct {
	PageNumber int    `form:"pageNumber"`
	PageSize   int    `form:"pageSize"`
	Sort       string `form:"sort"`
	SearchTerm string `form:"searchTerm"`
}

var decoder = form.NewDecoder()

// Parse normalizes the query string values against schema, taking ids from
// the route's path values. It fails only when a path value is not a positive
// integer. Query keys outside the schema are ignored, including ones named
// like path parameters.
func Parse(values, pathValues url.Values, schema Schema) (Descriptor, error) {
	path, err := ParsePath(pathValues)
	if err != nil {
		return Descriptor{}, err
	}

	var r raw
	// Per-field decode errors leave the field zero, which falls back below.
	_ = decoder.Decode(&r, values)

	d := Descriptor{
		PageNumber: r.PageNumber,
		PageSize:   r.PageSize,
		Sort:       parseSort(r.Sort, schema.Sortable),
		SearchTerm: strings.TrimSpace(r.SearchTerm),
		Filters:    parseFilters(values, schema.Filters),
		Path:       path,
	}
	if d.PageNumber < 1 {
		d.PageNumber = DefaultPageNumber
	}
	if d.PageSize < 1 {
		d.PageSize = DefaultPageSize
	}
	return d, nil
}

// ParsePath reads the path parameters present in values.
func ParsePath(values url.Values) (PathParams, error) {
	var (
		p    PathParams
		errs []models.FieldError
	)
	for _, key := range pathKeys {
		if !values.Has(key) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(values.Get(key)), 10, 64)
		if err != nil || n <= 0 {
			errs = append(errs, models.FieldError{Field: key, Message: key + " must be a positive integer"})
			continue
		}
		*p.field(key) = n
	}
	if len(errs) > 0 {
		return PathParams{}, &models.ValidationError{Errors: errs}
	}
	return p, nil
}

func parseSort(s string, sortable []string) SortList {
	out := SortList{}
	if s == "" {
		return out
	}
	var fields []SortField
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return out
	}
	seen := map[string]bool{}
	for _, f := range fields {
		if !slices.Contains(sortable, f.ID) || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		out = append(out, f)
	}
	return out
}

func parseFilters(values url.Values, keys []string) map[string][]string {
	out := map[string][]string{}
	for _, key := range keys {
		set := map[string]struct{}{}
		for _, v := range values[key] {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					set[part] = struct{}{}
				}
			}
		}
		if len(set) == 0 {
			continue
		}
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out[key] = vals
	}
	return out
}

type encoded struct {
	PageNumber int      `url:"pageNumber"`
	PageSize   int      `url:"pageSize"`
	Sort       SortList `url:"sort,omitempty"`
	SearchTerm string   `url:"searchTerm,omitempty"`
}

// Values returns the non-zero ids keyed by path parameter name.
func (p PathParams) Values() (url.Values, error) {
	return qs.Values(p)
}

// Encode writes d back as a query string. Path ids are left out;
// Parse(enc, d.Path.Values(), schema) yields d again.
func (d Descriptor) Encode() (url.Values, error) {
	v, err := qs.Values(encoded{
		PageNumber: d.PageNumber,
		PageSize:   d.PageSize,
		Sort:       d.Sort,
		SearchTerm: d.SearchTerm,
	})
	if err != nil {
		return nil, err
	}
	for key, vals := range d.Filters {
		if len(vals) > 0 {
			v.Set(key, strings.Join(vals, ","))
		}
	}
	return v, nil
}
