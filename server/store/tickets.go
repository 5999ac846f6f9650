package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"taskflow/server/models"
	"taskflow/server/query"
)

// Positions are spaced by posStep so that most moves fit between neighbours.
const posStep = 1000

// position picks the pos for an item placed at index among the sorted
// positions of its siblings. It reports false when the neighbours leave no
// room, in which case the siblings must be renumbered first.
func position(positions []int64, index int) (int64, bool) {
	if index < 0 {
		index = 0
	}
	if index > len(positions) {
		index = len(positions)
	}
	switch {
	case len(positions) == 0:
		return posStep, true
	case index == len(positions):
		return positions[index-1] + posStep, true
	case index == 0:
		if p := positions[0] - posStep/2; p > 0 {
			return p, true
		}
		if positions[0] > 1 {
			return positions[0] / 2, true
		}
		return 0, false
	}
	before, after := positions[index-1], positions[index]
	if after-before <= 1 {
		return 0, false
	}
	return before + (after-before)/2, true
}

// renumber rewrites the positions of table rows in one scope to
// posStep, 2*posStep, ... keeping their order.
func renumber(ctx context.Context, tx *sqlx.Tx, table, scope string, scopeID int64) error {
	var ids []int64
	if err := tx.SelectContext(ctx, &ids, tx.Rebind(fmt.Sprintf(`select id from %s where %s = ? order by pos, id`, table, scope)), scopeID); err != nil {
		return err
	}
	pos := int64(posStep)
	for _, id := range ids {
		if _, err := exec(ctx, tx, fmt.Sprintf(`update %s set pos = ? where id = ?`, table), pos, id); err != nil {
			return err
		}
		pos += posStep
	}
	return nil
}

// place moves row id to index within its scope.
func place(ctx context.Context, tx *sqlx.Tx, table, scope string, scopeID, id int64, index int) error {
	siblings := func() ([]int64, error) {
		var ps []int64
		err := tx.SelectContext(ctx, &ps, tx.Rebind(fmt.Sprintf(`select pos from %s where %s = ? and id <> ? order by pos, id`, table, scope)), scopeID, id)
		return ps, err
	}
	positions, err := siblings()
	if err != nil {
		return err
	}
	pos, ok := position(positions, index)
	if !ok {
		if err := renumber(ctx, tx, table, scope, scopeID); err != nil {
			return fmt.Errorf("renumber %s: %w", table, err)
		}
		if positions, err = siblings(); err != nil {
			return err
		}
		if pos, ok = position(positions, index); !ok {
			return errors.New("move failed after renumber")
		}
	}
	_, err = exec(ctx, tx, fmt.Sprintf(`update %s set pos = ? where id = ?`, table), pos, id)
	return err
}

const columnColumns = `c.id, c.project_id, c.title, c.pos, c.created_at`

var columnsList = listSpec{
	columns: columnColumns,
	from:    "ticket_columns c",
	sort: map[string]string{
		"title":     "c.title",
		"pos":       "c.pos",
		"createdAt": "c.created_at",
	},
	search: []string{"c.title"},
	order:  "c.pos, c.id",
}

func ColumnListSchema() query.Schema { return columnsList.Schema() }

func (s *Store) ListColumns(ctx context.Context, projectID int64, d query.Descriptor) (models.Page[models.TicketColumn], error) {
	return list[models.TicketColumn](ctx, s.db, columnsList, d, where("c.project_id = ?", projectID))
}

func (s *Store) Column(ctx context.Context, projectID, id int64) (models.TicketColumn, error) {
	var c models.TicketColumn
	err := get(ctx, s.db, &c, `select `+columnColumns+` from ticket_columns c where c.id = ? and c.project_id = ?`, id, projectID)
	return c, err
}

// CreateColumn appends a column to the project.
func (s *Store) CreateColumn(ctx context.Context, projectID int64, title string) (models.TicketColumn, error) {
	var c models.TicketColumn
	err := get(ctx, s.db, &c, `insert into ticket_columns as c (project_id, title, pos)
		select ?, ?, coalesce(max(pos), 0) + ? from ticket_columns where project_id = ?
		returning `+columnColumns, projectID, strings.TrimSpace(title), posStep, projectID)
	return c, err
}

func (s *Store) RenameColumn(ctx context.Context, projectID, id int64, title string) (models.TicketColumn, error) {
	var c models.TicketColumn
	err := get(ctx, s.db, &c, `update ticket_columns as c set title = ? where c.id = ? and c.project_id = ?
		returning `+columnColumns, strings.TrimSpace(title), id, projectID)
	return c, err
}

// DeleteColumn removes the column and its tickets.
func (s *Store) DeleteColumn(ctx context.Context, projectID, id int64) error {
	return mustAffect(exec(ctx, s.db, `delete from ticket_columns where id = ? and project_id = ?`, id, projectID))
}

// MoveColumn places the column at index among the project's columns.
func (s *Store) MoveColumn(ctx context.Context, projectID, id int64, index int) error {
	if _, err := s.Column(ctx, projectID, id); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return place(ctx, tx, "ticket_columns", "project_id", projectID, id, index)
	})
}

const ticketColumns = `t.id, t.project_id, t.column_id, t.title, t.description, t.assignee_id, t.pos, t.created_by, t.created_at`

var ticketsList = listSpec{
	columns: ticketColumns,
	from:    "tickets t",
	sort: map[string]string{
		"title":     "t.title",
		"pos":       "t.pos",
		"createdAt": "t.created_at",
	},
	filters: map[string]string{
		"columnId":   "t.column_id",
		"assigneeId": "t.assignee_id",
	},
	search: []string{"t.title", "t.description"},
	order:  "t.column_id, t.pos, t.id",
}

func TicketListSchema() query.Schema { return ticketsList.Schema() }

func (s *Store) ListTickets(ctx context.Context, projectID int64, d query.Descriptor) (models.Page[models.Ticket], error) {
	return list[models.Ticket](ctx, s.db, ticketsList, d, where("t.project_id = ?", projectID))
}

func (s *Store) Ticket(ctx context.Context, projectID, id int64) (models.Ticket, error) {
	var t models.Ticket
	err := get(ctx, s.db, &t, `select `+ticketColumns+` from tickets t where t.id = ? and t.project_id = ?`, id, projectID)
	return t, err
}

type NewTicket struct {
	ProjectID   int64
	ColumnID    int64
	Title       string
	Description string
	AssigneeID  *int64
	CreatedBy   int64
}

var errUnknownColumn = models.NewValidationError("columnId", "Column does not exist")

// CreateTicket appends a ticket to the bottom of its column.
func (s *Store) CreateTicket(ctx context.Context, in NewTicket) (models.Ticket, error) {
	var t models.Ticket
	err := get(ctx, s.db, &t, `insert into tickets as t (project_id, column_id, title, description, assignee_id, created_by, pos)
		select c.project_id, c.id, ?, ?, ?, ?, coalesce((select max(pos) from tickets where column_id = c.id), 0) + ?
		from ticket_columns c where c.id = ? and c.project_id = ?
		returning `+ticketColumns,
		strings.TrimSpace(in.Title), in.Description, in.AssigneeID, in.CreatedBy, posStep, in.ColumnID, in.ProjectID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Ticket{}, errUnknownColumn
	}
	return t, err
}

type TicketPatch struct {
	Title       *string
	Description *string
	// AssigneeID set to 0 clears the assignee.
	AssigneeID *int64
}

func (s *Store) UpdateTicket(ctx context.Context, projectID, id int64, patch TicketPatch) (models.Ticket, error) {
	set := []string{}
	args := []any{}
	if patch.Title != nil {
		set = append(set, "title = ?")
		args = append(args, strings.TrimSpace(*patch.Title))
	}
	if patch.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.AssigneeID != nil {
		set = append(set, "assignee_id = ?")
		if *patch.AssigneeID == 0 {
			args = append(args, nil)
		} else {
			args = append(args, *patch.AssigneeID)
		}
	}
	if len(set) == 0 {
		return s.Ticket(ctx, projectID, id)
	}
	var t models.Ticket
	q := fmt.Sprintf(`update tickets as t set %s where t.id = ? and t.project_id = ? returning %s`, strings.Join(set, ", "), ticketColumns)
	err := get(ctx, s.db, &t, q, append(args, id, projectID)...)
	return t, err
}

// MoveTicket moves the ticket into columnID at index, shifting positions
// when neighbours are too close.
func (s *Store) MoveTicket(ctx context.Context, projectID, id, columnID int64, index int) (models.Ticket, error) {
	t, err := s.Ticket(ctx, projectID, id)
	if err != nil {
		return models.Ticket{}, err
	}
	if _, err := s.Column(ctx, projectID, columnID); errors.Is(err, models.ErrNotFound) {
		return models.Ticket{}, errUnknownColumn
	} else if err != nil {
		return models.Ticket{}, err
	}
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if columnID != t.ColumnID {
			if _, err := exec(ctx, tx, `update tickets set column_id = ? where id = ?`, columnID, id); err != nil {
				return err
			}
		}
		return place(ctx, tx, "tickets", "column_id", columnID, id, index)
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return s.Ticket(ctx, projectID, id)
}

func (s *Store) DeleteTicket(ctx context.Context, projectID, id int64) error {
	return mustAffect(exec(ctx, s.db, `delete from tickets where id = ? and project_id = ?`, id, projectID))
}
