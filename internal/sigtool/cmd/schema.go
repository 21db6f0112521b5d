package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigtool/internal/config"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "schema",
		Short:  "Generate JSON schema for configuration",
		Long:   "Generate JSON schema for the sigtool configuration file",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bts, err := config.Schema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
}
