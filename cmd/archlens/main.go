package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	logSink *logging.Logger
	cfg     *config.Config
)

// errLoadFailures signals a completed load with failed records
var errLoadFailures = stderrors.New("one or more records failed to load")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if logSink != nil {
		_ = logSink.Close()
	}
	if err != nil {
		switch {
		case stderrors.Is(err, errLoadFailures):
			// the report already itemized the failures
		case verbose:
			fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, errors.Detail(err))
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "archlens",
	Short: "Architecture graph for Java code bases",
	Long: `archlens extracts structural metadata from Java source with an LLM,
loads it into a Neo4j graph and serves read APIs, diagrams and agent tools
over that graph.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		logSink, err = logging.Setup(logging.FromSettings(cfg.Logging, verbose))
		if err != nil {
			return err
		}
		logger = logSink.Logrus()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .archlens/archlens.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`archlens {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configureCmd)
}
