// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/issue"
)

func newDeclarationCommand(app *App, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "declaration <file>",
		Short: "Print the Python version a declaration file exports",
		Long: `Parse a shell declaration file and print the version it assigns to
` + bundle.VersionVariable + `, e.g. from:

  export ` + bundle.VersionVariable + `="3.7.3"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bundle.LoadDeclaration(args[0])
			if err != nil {
				wrapped := issue.NewErrorContext().
					WithOperation("parse declaration").
					WithResource(args[0]).
					WithSuggestion("The file must contain: export " + bundle.VersionVariable + "=\"X.Y.Z\"").
					WithIssue(issue.DeclarationParseFailedId).
					Wrap(err).
					BuildError()
				return app.fail(wrapped, ExitSetupFailed, flags)
			}
			fmt.Fprintln(app.stdout, v)
			return nil
		},
	}
	return cmd
}
