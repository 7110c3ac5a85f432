// Role subcommands for idmanctl.
package main

import (
	"github.com/spf13/cobra"

	"idman.org/internal/identity"
)

var (
	roleFilter      string
	roleStart       int
	roleCount       int
	roleName        string
	roleDescription string
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage roles",
}

func init() {
	roleListCmd.Flags().StringVar(&roleFilter, "filter", "", "substring filter on role name")
	roleListCmd.Flags().IntVar(&roleStart, "start", 0, "page offset")
	roleListCmd.Flags().IntVar(&roleCount, "count", 25, "page size (-1 for all)")

	roleCreateCmd.Flags().StringVar(&roleName, "name", "", "role name (required)")
	roleCreateCmd.Flags().StringVar(&roleDescription, "description", "", "role description")
	_ = roleCreateCmd.MarkFlagRequired("name")

	roleCmd.AddCommand(roleListCmd)
	roleCmd.AddCommand(roleCreateCmd)
	roleCmd.AddCommand(roleGetCmd)
	roleCmd.AddCommand(roleSetCmd)
	roleCmd.AddCommand(roleDeleteCmd)
}

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "Query roles by name substring",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.QueryRoles(cmd.Context(), roleFilter, roleStart, roleCount)
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var roleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		props := []identity.PropertyValue{{Type: identity.PropertyName, Value: roleName}}
		if roleDescription != "" {
			props = append(props, identity.PropertyValue{Type: identity.PropertyDescription, Value: roleDescription})
		}
		res, err := svc.CreateRole(cmd.Context(), props)
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var roleGetCmd = &cobra.Command{
	Use:   "get <subject>",
	Short: "Show a role's properties",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.GetRole(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var roleSetCmd = &cobra.Command{
	Use:   "set <subject> <type> <value>",
	Short: "Set one role property",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.SetRoleProperty(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var roleDeleteCmd = &cobra.Command{
	Use:   "delete <subject>",
	Short: "Delete a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.DeleteRole(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}
