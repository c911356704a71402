package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l2laihub/portrait-prompt-engine/internal/logger"
	"github.com/l2laihub/portrait-prompt-engine/internal/store"
)

type rootFlags struct {
	verbose   bool
	templates string
	database  string
	log       *logger.Logger
}

func newRootCmd(log *logger.Logger) *cobra.Command {
	flags := &rootFlags{log: log}

	cmd := &cobra.Command{
		Use:           "promptc",
		Short:         "promptc compiles portrait prompt templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVarP(&flags.templates, "templates", "c", "", "Path to a YAML template file")
	cmd.PersistentFlags().StringVar(&flags.database, "db", "", "Path to a SQLite template database")

	cmd.AddCommand(newCompileCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newStylesCmd(flags))
	cmd.AddCommand(newCacheCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// openStore picks the template source from the persistent flags.
func (f *rootFlags) openStore() (store.Store, error) {
	switch {
	case f.database != "":
		return store.NewSQLiteStore(f.database)
	case f.templates != "":
		return store.NewFileStore(f.templates)
	default:
		return nil, fmt.Errorf("no template source: pass --templates or --db")
	}
}
