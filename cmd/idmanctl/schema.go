// Schema command: prints the metadata the admin UI would render forms from.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"idman.org/internal/identity"
)

type schemaView struct {
	CreateProperties []identity.PropertyMetadata `json:"create_properties"`
	UpdateProperties []identity.PropertyMetadata `json:"update_properties"`
	SupportsCreate   bool                        `json:"supports_create"`
	SupportsDelete   bool                        `json:"supports_delete"`
	SupportsClaims   bool                        `json:"supports_claims,omitempty"`
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print user and role property metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		um := svc.UserMetadata()
		out := map[string]schemaView{
			"user": {
				CreateProperties: um.Create.Describe(),
				UpdateProperties: um.Update.Describe(),
				SupportsCreate:   um.SupportsCreate,
				SupportsDelete:   um.SupportsDelete,
				SupportsClaims:   um.SupportsClaims,
			},
		}
		if rm, err := svc.RoleMetadata(); err == nil {
			out["role"] = schemaView{
				CreateProperties: rm.Create.Describe(),
				UpdateProperties: rm.Update.Describe(),
				SupportsCreate:   rm.SupportsCreate,
				SupportsDelete:   rm.SupportsDelete,
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}
