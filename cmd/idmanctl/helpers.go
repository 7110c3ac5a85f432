// Shared helpers for idmanctl commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"idman.org/internal/identity"
)

// printResult renders a successful payload as indented JSON, or the
// failure descriptions on stderr with a non-zero exit signal via error.
func printResult[T any](res identity.Result[T]) error {
	if !res.OK() {
		for _, msg := range res.Errors {
			fmt.Fprintln(os.Stderr, msg)
		}
		return fmt.Errorf("operation failed")
	}
	data, err := json.MarshalIndent(res.Value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// parseProps turns repeated --prop type=value flags into property values.
func parseProps(raw []string) ([]identity.PropertyValue, error) {
	out := make([]identity.PropertyValue, 0, len(raw))
	for _, p := range raw {
		ptype, value, ok := strings.Cut(p, "=")
		if !ok || ptype == "" {
			return nil, fmt.Errorf("invalid property %q (want type=value)", p)
		}
		out = append(out, identity.PropertyValue{Type: ptype, Value: value})
	}
	return out, nil
}
