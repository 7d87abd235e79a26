// Package cli provides the sacctl operator commands.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sac-service/internal/app"
)

// NewRootCommand creates the root command. The container is built by the
// caller so tests can inject an in-memory one.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "sacctl",
		Short:         "Operate the SAC case store",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSeedCommand(c),
		newInboxCommand(c),
		newAlertsCommand(c),
		newStatusCommand(c),
		newDashboardCommand(c),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
