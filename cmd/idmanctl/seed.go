// Seed command: fills the store with generated demo users and roles.
package main

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"idman.org/internal/identity"
)

var (
	seedUsers int
	seedRoles int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create generated demo users and roles",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 20, "number of users to create")
	seedCmd.Flags().IntVar(&seedRoles, "roles", 3, "number of roles to create")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	faker := gofakeit.New(0)

	created := 0
	for created < seedUsers {
		res, err := svc.CreateUser(ctx, []identity.PropertyValue{
			{Type: identity.PropertyUsername, Value: faker.Username()},
			{Type: identity.PropertyPassword, Value: faker.Password(true, true, true, true, false, 16)},
		})
		if err != nil {
			return err
		}
		// Duplicate generated usernames are retried with a fresh one.
		if !res.OK() {
			continue
		}
		name := identity.Claim{Type: identity.ClaimName, Value: faker.Name()}
		if _, err := svc.AddUserClaim(ctx, res.Value.Subject, name); err != nil {
			return err
		}
		created++
	}

	for i := 0; i < seedRoles; i++ {
		res, err := svc.CreateRole(ctx, []identity.PropertyValue{
			{Type: identity.PropertyName, Value: faker.JobTitle()},
			{Type: identity.PropertyDescription, Value: faker.Sentence(6)},
		})
		if err != nil {
			return err
		}
		if !res.OK() {
			i--
		}
	}

	fmt.Printf("seeded %d users and %d roles\n", seedUsers, seedRoles)
	return nil
}
