package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackcanvas/engine/internal/catalog"
)

var catalogFormat string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the services available on the canvas",
	Long: `List every service definition the engine ships, with the placement
and connection rules the canvas enforces for each.

Examples:
  canvasctl catalog
  canvasctl catalog --format json`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringVarP(&catalogFormat, "format", "f", "table", "Output format: table or json")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	defs := catalog.Default().Services()

	switch catalogFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tKIND\tPLACEMENT\tCONNECTS TO")
		for _, def := range defs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				def.ID, def.Name, def.Category, kindLabel(def), placementLabel(def), strings.Join(def.ConnectsTo, ", "))
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format %q (want table or json)", catalogFormat)
	}
}

func kindLabel(def catalog.ServiceDefinition) string {
	if def.IsContainer() {
		return "container"
	}
	return "service"
}

// placementLabel renders where nodes of this service may be dropped.
// Subnet rules only apply once the node is inside a subnet, so a
// restricted service still reads as droppable on the open canvas.
func placementLabel(def catalog.ServiceDefinition) string {
	switch {
	case def.RequiredParent != "":
		return "inside " + def.RequiredParent
	case def.Subnet != nil && def.Subnet.Public && def.Subnet.Private:
		return "any subnet"
	case def.Subnet != nil && def.Subnet.Public:
		return "public subnets"
	case def.Subnet != nil && def.Subnet.Private:
		return "private subnets"
	default:
		return "anywhere"
	}
}
