package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/arbitrage/app/plugins"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the registered module types",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog := plugins.Catalog()
		for _, kind := range plugins.Kinds() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", kind, strings.Join(catalog[kind], ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
