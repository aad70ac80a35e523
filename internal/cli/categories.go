package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/compintel/internal/router"
)

// categoriesCmd represents the categories command
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List supported idea categories",
	Long:  `List the categories compintel can evaluate and the providers each one consults, in invocation order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printCategories(cmd.OutOrStdout(), router.Default().Routes())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func printCategories(w io.Writer, routes []router.Route) {
	for _, route := range routes {
		providers := make([]string, len(route.Providers))
		for i, kind := range route.Providers {
			providers[i] = string(kind)
		}

		fmt.Fprintf(w, "%s\n", route.Category)
		fmt.Fprintf(w, "  %s: %s\n", route.Label, route.Description)
		fmt.Fprintf(w, "  providers: %s\n\n", strings.Join(providers, ", "))
	}
}
