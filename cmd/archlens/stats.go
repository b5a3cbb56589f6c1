package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/graph"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print graph statistics",
	Long: `Print the class total, node counts per label, classes per package and the
most dependent classes of the loaded graph.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Int("top", graph.DefaultDependencyLimit, "number of most dependent classes to list")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	top, _ := cmd.Flags().GetInt("top")

	if err := validate(config.ValidationContextMCP); err != nil {
		return err
	}
	backend, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	return printStats(ctx, cmd.OutOrStdout(), backend, top)
}

func printStats(ctx context.Context, w io.Writer, r graph.Reader, top int) error {
	total, err := r.TotalClasses(ctx)
	if err != nil {
		return err
	}
	labels, err := r.LabelCounts(ctx)
	if err != nil {
		return err
	}
	packages, err := r.PackageClassCounts(ctx)
	if err != nil {
		return err
	}
	deps, err := r.ClassDependencies(ctx, top)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Classes: %d\n", total)
	printLabelCounts(w, labels)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nPACKAGE\tCLASSES")
	for _, p := range packages {
		fmt.Fprintf(tw, "%s\t%d\n", p.PackageName, p.ClassCount)
	}
	fmt.Fprintln(tw, "\nCLASS\tPACKAGE\tDEPENDENCIES")
	for _, d := range deps {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", d.ClassName, d.PackageName, d.DependencyCount)
	}
	return tw.Flush()
}

func printLabelCounts(w io.Writer, counts []graph.LabelCount) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nLABEL\tNODES")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Label, c.Count)
	}
	tw.Flush()
}
