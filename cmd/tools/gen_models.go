package main

import (
	"github.com/lychee-technology/kindgen/factory"
	"github.com/spf13/cobra"
)

type genModelsOptions struct {
	schemaPath string
	outDir     string
	check      bool
	assumeYes  bool
}

func newGenModelsCmd(app *toolsApp) *cobra.Command {
	opts := &genModelsOptions{}
	cmd := &cobra.Command{
		Use:   "gen-models",
		Short: "Check a kind schema against the main schema and generate its Go model",
		Example: `  kindgen-tools gen-models -j schemas/kinds/webserver.json -o rest/models
  kindgen-tools gen-models -j schemas/kinds/webserver.yaml --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenModels(cmd, app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.schemaPath, "json-schema", "j", "", "kind schema file (JSON or YAML)")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "output directory or s3://bucket/prefix (default from config)")
	cmd.Flags().BoolVar(&opts.check, "check", false, "only check compatibility, write nothing")
	cmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "create a missing output directory without asking")
	_ = cmd.MarkFlagRequired("json-schema")
	return cmd
}

func runGenModels(cmd *cobra.Command, app *toolsApp, opts *genModelsOptions) error {
	ctx := cmd.Context()
	outDir := opts.outDir
	if outDir == "" {
		outDir = factory.ModelsLocation(app.cfg)
	}

	if !opts.check {
		if err := ensureOutputDir(outDir, opts.assumeYes); err != nil {
			return err
		}
	}

	pipeline, err := factory.NewGenerationPipeline(ctx, app.cfg, outDir)
	if err != nil {
		return err
	}

	if opts.check {
		if _, err := pipeline.Validate(ctx, opts.schemaPath); err != nil {
			return reportFailure(cmd.ErrOrStderr(), err)
		}
		printSuccess(cmd.OutOrStdout(), "%s is compatible with the main schema", opts.schemaPath)
		return nil
	}

	artifact, err := pipeline.Generate(ctx, opts.schemaPath)
	if err != nil {
		return reportFailure(cmd.ErrOrStderr(), err)
	}
	printSuccess(cmd.OutOrStdout(), "generated %s model at %s", artifact.TypeName, artifact.Location)
	return nil
}
