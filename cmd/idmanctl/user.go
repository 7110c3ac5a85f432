// User subcommands for idmanctl.
package main

import (
	"github.com/spf13/cobra"

	"idman.org/internal/identity"
)

var (
	userFilter   string
	userStart    int
	userCount    int
	userUsername string
	userPassword string
	userProps    []string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

func init() {
	userListCmd.Flags().StringVar(&userFilter, "filter", "", "substring filter on username")
	userListCmd.Flags().IntVar(&userStart, "start", 0, "page offset")
	userListCmd.Flags().IntVar(&userCount, "count", 25, "page size (-1 for all)")

	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "username (required)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password (required)")
	userCreateCmd.Flags().StringArrayVar(&userProps, "prop", nil, "additional property as type=value (repeatable)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userGetCmd)
	userCmd.AddCommand(userSetCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userClaimCmd)
	userClaimCmd.AddCommand(userClaimAddCmd)
	userClaimCmd.AddCommand(userClaimRemoveCmd)
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "Query users by username substring",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.QueryUsers(cmd.Context(), userFilter, userStart, userCount)
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := parseProps(userProps)
		if err != nil {
			return err
		}
		props = append([]identity.PropertyValue{
			{Type: identity.PropertyUsername, Value: userUsername},
			{Type: identity.PropertyPassword, Value: userPassword},
		}, props...)
		res, err := svc.CreateUser(cmd.Context(), props)
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var userGetCmd = &cobra.Command{
	Use:   "get <subject>",
	Short: "Show a user's properties and claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.GetUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var userSetCmd = &cobra.Command{
	Use:   "set <subject> <type> <value>",
	Short: "Set one user property",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.SetUserProperty(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <subject>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.DeleteUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var userClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Manage user claims",
}

var userClaimAddCmd = &cobra.Command{
	Use:   "add <subject> <type> <value>",
	Short: "Add a claim (idempotent)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.AddUserClaim(cmd.Context(), args[0], identity.Claim{Type: args[1], Value: args[2]})
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var userClaimRemoveCmd = &cobra.Command{
	Use:   "remove <subject> <type> <value>",
	Short: "Remove a claim",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.RemoveUserClaim(cmd.Context(), args[0], identity.Claim{Type: args[1], Value: args[2]})
		if err != nil {
			return err
		}
		return printResult(res)
	},
}
