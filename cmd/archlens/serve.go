package main

import (
	"fmt"
	"strings"

	"github.com/archlens/archlens/internal/api"
	"github.com/archlens/archlens/internal/config"
	"github.com/archlens/archlens/internal/llm"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only HTTP API over the graph",
	Long: `Start the HTTP API: reports, class details, LLM class descriptions and
Mermaid diagrams. Descriptions are disabled when no LLM key is configured.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, 127.0.0.1:8000)")
	serveCmd.Flags().Bool("open", false, "open the health endpoint in a browser")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.API.Addr = addr
	}
	open, _ := cmd.Flags().GetBool("open")

	if err := validate(config.ValidationContextServe); err != nil {
		return err
	}

	backend, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	var describer api.Describer
	client, err := newLLM(ctx)
	if err != nil {
		return err
	}
	if client.IsEnabled() {
		describer = llm.NewClassDescriber(client)
	}

	server := api.NewServer(backend, backend, describer)

	if open {
		url := "http://" + browserHost(cfg.API.Addr)
		if err := browser.OpenURL(url); err != nil {
			logger.WithError(err).Warn("could not open browser")
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s (Ctrl+C to stop)\n", cfg.API.Addr)
	return server.Serve(ctx, cfg.API.Addr)
}

// browserHost turns a listen address into something a browser can reach
func browserHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return strings.Replace(addr, "0.0.0.0", "localhost", 1)
}
