package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"taskflow/server/action"
	"taskflow/server/client"
	"taskflow/server/identity"
	"taskflow/server/models"
	"taskflow/server/query"
	"taskflow/server/schema"
	"taskflow/server/store"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			c.log.Info("schema up to date")
			return nil
		},
	}
}

type superAdminInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,notblank,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (c *cli) superAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "superadmin",
		Short: "Manage platform super-admins",
	}
	var in superAdminInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a super-admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := schema.Validate(in); err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			u, err := st.CreateUser(cmd.Context(), store.NewUser{
				Email:    in.Email,
				Name:     in.Name,
				Password: in.Password,
				Kind:     models.KindSuperAdmin,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, u)
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "login email")
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.AddCommand(create)
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.RequireTokenSecret(); err != nil {
				return err
			}
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive id")
			}
			issuer := identity.NewTokenIssuer([]byte(c.cfg.Auth.TokenSecret), c.cfg.Auth.Issuer, c.cfg.Auth.TokenTTL)
			token, exp, err := issuer.Issue(userID)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"accessToken": token, "expiresAt": exp})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	return cmd
}

func (c *cli) gateway() *action.Gateway {
	return action.NewGateway(c.cfg.Client.APIURL,
		&http.Client{Timeout: c.cfg.Client.Timeout},
		identity.StaticToken(c.cfg.Client.Token),
		c.log)
}

// run executes a through the gateway and prints the result envelope.
func run[In, Out any](cmd *cobra.Command, c *cli, a action.Action[In, Out], in In) error {
	res := action.Execute(cmd.Context(), c.gateway(), a, in)
	if err := printJSON(cmd, res); err != nil {
		return err
	}
	return res.Err()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) orgCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "org", Short: "Manage organizations (super-admin)"}

	var create client.CreateOrganization
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.CreateOrganizationAction, create)
		},
	}
	createCmd.Flags().StringVar(&create.Name, "name", "", "organization name")

	var status client.SetOrganizationStatus
	var statusName string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Activate or suspend an organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status.Status = models.OrganizationStatus(statusName)
			return run(cmd, c, client.SetOrganizationStatusAction, status)
		},
	}
	statusCmd.Flags().Int64Var(&status.OrganizationID, "id", 0, "organization id")
	statusCmd.Flags().StringVar(&statusName, "status", "", "ACTIVE or SUSPENDED")

	var admin client.NewUser
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Create an organization admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.CreateOrganizationAdminAction, admin)
		},
	}
	userFlags(adminCmd, &admin)

	cmd.AddCommand(createCmd, statusCmd, adminCmd)
	return cmd
}

func userFlags(cmd *cobra.Command, in *client.NewUser) {
	cmd.Flags().Int64Var(&in.OrganizationID, "org", 0, "organization id")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
}

// listOptions are the paging flags shared by list commands.
type listOptions struct {
	page, size int
	search     string
	sort       string
	desc       bool
	filters    map[string]*string
}

func (o *listOptions) flags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.page, "page", query.DefaultPageNumber, "page number")
	cmd.Flags().IntVar(&o.size, "page-size", query.DefaultPageSize, "page size")
	cmd.Flags().StringVar(&o.search, "search", "", "search term")
	cmd.Flags().StringVar(&o.sort, "sort", "", "sort key")
	cmd.Flags().BoolVar(&o.desc, "desc", false, "sort descending")
}

func (o *listOptions) filter(cmd *cobra.Command, key, usage string) {
	if o.filters == nil {
		o.filters = map[string]*string{}
	}
	o.filters[key] = cmd.Flags().String(key, "", usage)
}

func (o *listOptions) descriptor() query.Descriptor {
	d := query.Descriptor{
		PageNumber: o.page,
		PageSize:   o.size,
		SearchTerm: o.search,
		Filters:    map[string][]string{},
	}
	if o.sort != "" {
		d.Sort = query.SortList{{ID: o.sort, Desc: o.desc}}
	}
	for key, v := range o.filters {
		if *v != "" {
			d.Filters[key] = []string{*v}
		}
	}
	return d
}

func (c *cli) employeeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "employee", Short: "Manage employees (organization admin)"}

	var create client.NewUser
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.CreateEmployeeAction, create)
		},
	}
	userFlags(createCmd, &create)

	var ban client.BanEmployee
	banCmd := &cobra.Command{
		Use:   "ban",
		Short: "Ban an employee and end their sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.BanEmployeeAction, ban)
		},
	}
	banCmd.Flags().Int64Var(&ban.OrganizationID, "org", 0, "organization id")
	banCmd.Flags().Int64Var(&ban.EmployeeID, "id", 0, "employee id")

	cmd.AddCommand(createCmd, banCmd)
	return cmd
}

func (c *cli) roleCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "role", Short: "Manage roles (organization admin)"}

	var create client.CreateRole
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a role with a set of permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.CreateRoleAction, create)
		},
	}
	createCmd.Flags().Int64Var(&create.OrganizationID, "org", 0, "organization id")
	createCmd.Flags().StringVar(&create.Name, "name", "", "role name")
	createCmd.Flags().StringSliceVar(&create.Permissions, "permission", nil, "permission code, repeatable")

	cmd.AddCommand(createCmd)
	return cmd
}

func (c *cli) projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}

	var create client.CreateProject
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.CreateProjectAction, create)
		},
	}
	createCmd.Flags().Int64Var(&create.OrganizationID, "org", 0, "organization id")
	createCmd.Flags().StringVar(&create.Name, "name", "", "project name")
	createCmd.Flags().StringVar(&create.Description, "description", "", "project description")

	var add client.AddProjectMember
	addCmd := &cobra.Command{
		Use:   "add-member",
		Short: "Add an employee to a project with a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.AddProjectMemberAction, add)
		},
	}
	addCmd.Flags().Int64Var(&add.OrganizationID, "org", 0, "organization id")
	addCmd.Flags().Int64Var(&add.ProjectID, "project", 0, "project id")
	addCmd.Flags().Int64Var(&add.EmployeeID, "employee", 0, "employee id")
	addCmd.Flags().Int64Var(&add.RoleID, "role", 0, "role id")

	var list client.ListProjects
	var listOpts listOptions
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the projects you can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list.Query = listOpts.descriptor()
			return run(cmd, c, client.ListProjectsAction, list)
		},
	}
	listCmd.Flags().Int64Var(&list.OrganizationID, "org", 0, "organization id")
	listOpts.flags(listCmd)
	listOpts.filter(listCmd, "status", "ACTIVE or ARCHIVED, comma separated")

	cmd.AddCommand(createCmd, addCmd, listCmd)
	return cmd
}

func (c *cli) columnCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "column", Short: "Manage ticket columns"}

	var create client.CreateTicketColumn
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Append a column to a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.CreateTicketColumnAction, create)
		},
	}
	createCmd.Flags().Int64Var(&create.OrganizationID, "org", 0, "organization id")
	createCmd.Flags().Int64Var(&create.ProjectID, "project", 0, "project id")
	createCmd.Flags().StringVar(&create.Title, "title", "", "column title")

	cmd.AddCommand(createCmd)
	return cmd
}

func (c *cli) ticketCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "ticket", Short: "Manage tickets"}

	var create client.CreateTicket
	var assignee int64
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ticket at the bottom of a column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("assignee") {
				create.AssigneeID = &assignee
			}
			return run(cmd, c, client.CreateTicketAction, create)
		},
	}
	createCmd.Flags().Int64Var(&create.OrganizationID, "org", 0, "organization id")
	createCmd.Flags().Int64Var(&create.ProjectID, "project", 0, "project id")
	createCmd.Flags().Int64Var(&create.ColumnID, "column", 0, "column id")
	createCmd.Flags().StringVar(&create.Title, "title", "", "ticket title")
	createCmd.Flags().StringVar(&create.Description, "description", "", "ticket description")
	createCmd.Flags().Int64Var(&assignee, "assignee", 0, "assignee user id")

	var move client.MoveTicket
	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Move a ticket to a position in a column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c, client.MoveTicketAction, move)
		},
	}
	moveCmd.Flags().Int64Var(&move.OrganizationID, "org", 0, "organization id")
	moveCmd.Flags().Int64Var(&move.ProjectID, "project", 0, "project id")
	moveCmd.Flags().Int64Var(&move.TicketID, "id", 0, "ticket id")
	moveCmd.Flags().Int64Var(&move.ColumnID, "column", 0, "target column id")
	moveCmd.Flags().IntVar(&move.Index, "index", 0, "zero-based position in the column")

	var list client.ListTickets
	var listOpts listOptions
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list.Query = listOpts.descriptor()
			return run(cmd, c, client.ListTicketsAction, list)
		},
	}
	listCmd.Flags().Int64Var(&list.OrganizationID, "org", 0, "organization id")
	listCmd.Flags().Int64Var(&list.ProjectID, "project", 0, "project id")
	listOpts.flags(listCmd)
	listOpts.filter(listCmd, "columnId", "column ids, comma separated")
	listOpts.filter(listCmd, "assigneeId", "assignee ids, comma separated")

	cmd.AddCommand(createCmd, moveCmd, listCmd)
	return cmd
}
