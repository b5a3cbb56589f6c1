package main

import (
	"fmt"
	"io"
	"os"

	"github.com/archlens/archlens/internal/cache"
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/ingestion"
	"github.com/archlens/archlens/internal/llm"
	"github.com/archlens/archlens/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Extract metadata from a Java code base and rebuild the graph",
	Long: `Walk a Java code base, extract one metadata record per source file with the
configured LLM and reload the graph from the records.

The graph is cleared before the reload. Extractions are cached by file content,
so re-running on an unchanged code base makes no LLM calls.

Examples:
  archlens ingest ./src/main/java
  archlens ingest --mode all-or-nothing
  archlens ingest --save records.json --max-files 50
  archlens ingest --refresh-cache`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("mode", "", "load mode: best-effort or all-or-nothing (default from config)")
	ingestCmd.Flags().Int("max-files", 0, "stop after this many source files (0 = all)")
	ingestCmd.Flags().Float64("rps", 0, "extraction requests per second (default from config)")
	ingestCmd.Flags().String("save", "", "also write the extracted records to this JSON or YAML file")
	ingestCmd.Flags().Bool("no-cache", false, "skip the extraction cache")
	ingestCmd.Flags().Bool("refresh-cache", false, "drop every cached extraction before extracting")
	ingestCmd.MarkFlagsMutuallyExclusive("no-cache", "refresh-cache")
	ingestCmd.Flags().Bool("extract-only", false, "extract (and --save) without touching the graph")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 1 {
		cfg.Ingestion.CodeBasePath = args[0]
	}
	if n, _ := cmd.Flags().GetInt("max-files"); n > 0 {
		cfg.Ingestion.MaxFiles = n
	}
	if rps, _ := cmd.Flags().GetFloat64("rps"); rps > 0 {
		cfg.Ingestion.RequestsPerSecond = rps
	}
	modeFlag, _ := cmd.Flags().GetString("mode")
	savePath, _ := cmd.Flags().GetString("save")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	refreshCache, _ := cmd.Flags().GetBool("refresh-cache")
	extractOnly, _ := cmd.Flags().GetBool("extract-only")

	vctx := config.ValidationContextIngest
	if extractOnly {
		vctx = config.ValidationContextExtract
	}
	if err := validate(vctx); err != nil {
		return err
	}
	mode, err := loadMode(modeFlag)
	if err != nil {
		return err
	}

	client, err := newLLM(ctx)
	if err != nil {
		return err
	}
	if !client.IsEnabled() {
		return errors.ConfigErrorf("ingest needs an LLM provider; set GOOGLE_API_KEY or OPENAI_API_KEY")
	}

	out := cmd.OutOrStdout()

	var metaCache ingestion.MetadataCache
	if !noCache {
		c, err := openCache(out, cfg.Ingestion.CacheDir, client.Namespace(), refreshCache)
		if err != nil {
			return err
		}
		defer c.Close()
		metaCache = c
	}

	var loader *ingestion.Loader
	if !extractOnly {
		backend, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer backend.Close(ctx)

		engine, err := newEngine()
		if err != nil {
			return err
		}
		loader = ingestion.NewLoader(backend, engine)
	}

	logger.WithFields(logrus.Fields{
		"path":     cfg.Ingestion.CodeBasePath,
		"provider": client.Provider(),
		"model":    client.Model(),
		"mode":     mode,
	}).Info("starting ingestion")

	orch := ingestion.NewOrchestrator(llm.NewJavaExtractor(client), metaCache, loader, logger, ingestion.PipelineOptions{
		RequestsPerSecond: cfg.Ingestion.RequestsPerSecond,
		MaxFiles:          cfg.Ingestion.MaxFiles,
		Mode:              mode,
	})

	if extractOnly {
		res, err := orch.Extract(ctx, cfg.Ingestion.CodeBasePath)
		if err != nil {
			return err
		}
		printExtraction(out, res)
		return saveRecords(savePath, res.Records)
	}

	result, err := orch.Run(ctx, cfg.Ingestion.CodeBasePath)
	if result != nil {
		printExtraction(out, result.Extraction)
		if result.Report != nil {
			printLoadReport(out, result.Report, verbose)
		}
		if saveErr := saveRecords(savePath, result.Extraction.Records); saveErr != nil && err == nil {
			err = saveErr
		}
	}
	if err != nil {
		return err
	}
	if result.Report != nil && result.Report.HasFailures() {
		return errLoadFailures
	}
	fmt.Fprintf(out, "\nDone in %s\n", result.Duration.Round(1e6))
	return nil
}

func saveRecords(path string, records []*models.CodeMetadata) error {
	if path == "" {
		return nil
	}
	if err := models.SaveCollection(path, records); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved %d records to %s\n", len(records), path)
	return nil
}

// openCache opens the extraction cache for namespace. refresh empties the
// whole cache first, whatever model filled it.
func openCache(out io.Writer, dir, namespace string, refresh bool) (*cache.ExtractionCache, error) {
	c, err := cache.Open(dir, namespace)
	if err != nil {
		return nil, err
	}
	if !refresh {
		return c, nil
	}

	n, err := c.Len()
	if err == nil {
		err = c.Clear()
	}
	if err != nil {
		c.Close()
		return nil, errors.FileSystemErrorf(err, "failed to refresh extraction cache in %s", dir)
	}
	fmt.Fprintf(out, "Cleared %d cached extractions in %s\n", n, dir)
	return c, nil
}
