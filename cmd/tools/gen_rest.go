package main

import (
	"github.com/lychee-technology/kindgen/factory"
	"github.com/spf13/cobra"
)

func newGenRestCmd(app *toolsApp) *cobra.Command {
	var (
		modelsDir string
		routesDir string
		assumeYes bool
	)
	cmd := &cobra.Command{
		Use:     "gen-rest",
		Short:   "Generate a chi router for every generated model",
		Example: "  kindgen-tools gen-rest -m rest/models -o rest/routes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if modelsDir == "" {
				modelsDir = app.cfg.Generation.ModelsDir
			}
			if routesDir == "" {
				routesDir = app.cfg.Generation.RoutesDir
			}
			if err := ensureOutputDir(routesDir, assumeYes); err != nil {
				return err
			}

			generator, err := factory.NewRouteGenerator(cmd.Context(), app.cfg, routesDir)
			if err != nil {
				return err
			}
			artifacts, err := generator.GenerateRoutes(cmd.Context(), modelsDir)
			if err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}
			for _, artifact := range artifacts {
				printSuccess(cmd.OutOrStdout(), "generated %s router at %s", artifact.Kind, artifact.Location)
			}
			if len(artifacts) == 0 {
				printSuccess(cmd.OutOrStdout(), "no models found in %s", modelsDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelsDir, "models", "m", "", "directory holding generated *_model.go files (default from config)")
	cmd.Flags().StringVarP(&routesDir, "rest-routes", "o", "", "output directory or s3://bucket/prefix for routers (default from config)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "create a missing output directory without asking")
	return cmd
}
