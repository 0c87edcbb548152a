package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lychee-technology/kindgen"
	"github.com/lychee-technology/kindgen/internal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errReported marks a failure that was already printed to the user.
var errReported = errors.New("failure already reported")

type toolsApp struct {
	configPath string
	cfg        *kindgen.Config
	logger     *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := &toolsApp{}
	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if app.logger != nil {
		_ = app.logger.Sync()
	}
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(app *toolsApp) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kindgen-tools",
		Short:         "Validate kind schemas and generate their models and REST routers",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "config file (KINDGEN_* environment variables override it)")

	rootCmd.AddCommand(
		newGenModelsCmd(app),
		newGenRestCmd(app),
		newMainSchemaCmd(app),
		newInitDBCmd(app),
	)
	return rootCmd
}

func (a *toolsApp) init() error {
	cfg, err := kindgen.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := internal.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	a.cfg = cfg
	a.logger = logger
	return nil
}
