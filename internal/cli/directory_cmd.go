package cli

import (
	"strings"

	"github.com/alexanderramin/signoff/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage principals",
	}

	var name string
	add := &cobra.Command{
		Use:   "add ID",
		Short: "Add a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Directory.AddPrincipal(ctxOf(cmd), args[0], name)
			if err != nil {
				return err
			}
			printf(cmd, "Added %s (%s)\n", p.ID, p.DisplayName)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List principals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			principals, err := app.Directory.ListPrincipals(ctxOf(cmd))
			if err != nil {
				return err
			}
			printf(cmd, "%s", formatter.FormatPrincipalList(principals))
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newRoleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles and membership",
	}

	var name string
	add := &cobra.Command{
		Use:   "add CODE",
		Short: "Add a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.Directory.AddRole(ctxOf(cmd), args[0], name)
			if err != nil {
				return err
			}
			printf(cmd, "Added role %s (%s)\n", r.Code, r.Name)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Role name")

	assign := &cobra.Command{
		Use:   "assign CODE PRINCIPAL...",
		Short: "Add principals to a role",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args[1:] {
				if err := app.Directory.AssignRole(ctxOf(cmd), args[0], id); err != nil {
					return err
				}
			}
			printf(cmd, "Assigned %s to %s\n", strings.Join(args[1:], ", "), args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roles, err := app.Directory.ListRoles(ctxOf(cmd))
			if err != nil {
				return err
			}
			printf(cmd, "%s", formatter.FormatRoleList(roles))
			return nil
		},
	}

	members := &cobra.Command{
		Use:   "members CODE",
		Short: "List active members of a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := app.Directory.RoleMembers(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			for _, id := range ids {
				printf(cmd, "%s\n", id)
			}
			return nil
		},
	}

	cmd.AddCommand(add, assign, list, members)
	return cmd
}
