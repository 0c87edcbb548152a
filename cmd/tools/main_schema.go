package main

import (
	"github.com/lychee-technology/kindgen/internal"
	"github.com/spf13/cobra"
)

func newMainSchemaCmd(app *toolsApp) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "main-schema",
		Short: "Write the built-in main schema as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = app.cfg.Schema.MainSchemaPath
			}
			if err := internal.WriteMainSchema(out); err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}
			printSuccess(cmd.OutOrStdout(), "wrote main schema to %s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "destination file (default schema.main_schema_path)")
	return cmd
}
