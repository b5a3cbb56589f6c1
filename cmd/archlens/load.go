package main

import (
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/graph"
	"github.com/archlens/archlens/internal/ingestion"
	"github.com/archlens/archlens/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Rebuild the graph from a saved metadata collection",
	Long: `Load a JSON or YAML collection of metadata records (as written by
'archlens ingest --save') and rebuild the graph from it. No LLM calls are made.

--dry-run applies the records to an in-memory graph instead of Neo4j and
reports what would happen.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().String("mode", "", "load mode: best-effort or all-or-nothing (default from config)")
	loadCmd.Flags().Bool("dry-run", false, "apply to an in-memory graph instead of Neo4j")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	modeFlag, _ := cmd.Flags().GetString("mode")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	mode, err := loadMode(modeFlag)
	if err != nil {
		return err
	}
	engine, err := newEngine()
	if err != nil {
		return err
	}

	records, err := models.LoadCollection(args[0])
	if err != nil {
		return err
	}

	var backend graph.Backend
	var memory *graph.MemoryBackend
	if dryRun {
		memory = graph.NewMemoryBackend()
		backend = memory
	} else {
		if err := validate(config.ValidationContextLoad); err != nil {
			return err
		}
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close(ctx)
		backend = store
	}

	logger.WithFields(logrus.Fields{
		"file":    args[0],
		"records": len(records),
		"mode":    mode,
		"dry_run": dryRun,
	}).Info("loading collection")

	report, err := ingestion.NewLoader(backend, engine).Load(ctx, records, mode)
	if report != nil {
		printLoadReport(cmd.OutOrStdout(), report, verbose)
	}
	if err != nil {
		return err
	}

	if memory != nil {
		counts, _ := memory.LabelCounts(ctx)
		printLabelCounts(cmd.OutOrStdout(), counts)
	}
	if report.HasFailures() {
		return errLoadFailures
	}
	return nil
}
