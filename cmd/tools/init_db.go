package main

import (
	"fmt"
	"strings"

	"github.com/lychee-technology/kindgen"
	"github.com/lychee-technology/kindgen/factory"
	"github.com/lychee-technology/kindgen/internal"
	"github.com/spf13/cobra"
)

type initDBOptions struct {
	host      string
	port      int
	database  string
	user      string
	password  string
	sslMode   string
	table     string
	printOnly bool
}

func newInitDBCmd(app *toolsApp) *cobra.Command {
	opts := &initDBOptions{}
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the kind record table",
		Long: `Create the kind record table and its kind index when they do not exist.
Connection settings come from the config file and KINDGEN_DATABASE_* variables;
the flags below override them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbCfg := opts.apply(app.cfg.Database)

			if opts.printOnly {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(internal.CreateRecordTableSQL(dbCfg.TableName), ";\n\n")+";")
				return nil
			}

			cfg := *app.cfg
			cfg.Database = dbCfg
			pool, err := factory.NewPostgresPool(cmd.Context(), &cfg)
			if err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}
			defer pool.Close()

			repo := internal.NewPostgresRecordRepository(pool, dbCfg.TableName)
			if err := repo.EnsureTable(cmd.Context()); err != nil {
				return reportFailure(cmd.ErrOrStderr(), err)
			}
			printSuccess(cmd.OutOrStdout(), "record table %s ready", dbCfg.TableName)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.host, "db-host", "", "database host")
	flags.IntVar(&opts.port, "db-port", 0, "database port")
	flags.StringVar(&opts.database, "db-name", "", "database name")
	flags.StringVar(&opts.user, "db-user", "", "database user")
	flags.StringVar(&opts.password, "db-password", "", "database password")
	flags.StringVar(&opts.sslMode, "db-ssl-mode", "", "database sslmode")
	flags.StringVar(&opts.table, "table", "", "record table name, optionally schema-qualified")
	flags.BoolVar(&opts.printOnly, "print", false, "print the DDL instead of running it")
	return cmd
}

// apply overlays the flags that were set on cfg.
func (o *initDBOptions) apply(cfg kindgen.DatabaseConfig) kindgen.DatabaseConfig {
	if o.host != "" {
		cfg.Host = o.host
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.database != "" {
		cfg.Database = o.database
	}
	if o.user != "" {
		cfg.Username = o.user
	}
	if o.password != "" {
		cfg.Password = o.password
	}
	if o.sslMode != "" {
		cfg.SSLMode = o.sslMode
	}
	if o.table != "" {
		cfg.TableName = o.table
	}
	return cfg
}
