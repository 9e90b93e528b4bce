package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/penny/internal/config"
	"github.com/ShayCichocki/penny/internal/server"
	"github.com/ShayCichocki/penny/internal/tools"
)

var (
	serveAddr    string
	serveCatalog string
	serveModel   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the orchestration engine over HTTP.

Endpoints:
  GET  /api/tools   List the tool catalog
  POST /api/query   Run a request, streaming progress as SSE

When --catalog points at a YAML file, the catalog is hot-reloaded
whenever the file changes; new runs pick up the updated tools.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, \":8080\")")
	serveCmd.Flags().StringVar(&serveCatalog, "catalog", "", "Path to a tool catalog YAML file to watch")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "Override the configured reasoning model")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	oracleClient, err := buildOracle(cfg, serveModel)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := buildLogger()
	defer logger.Close()

	catalogPath := serveCatalog
	if catalogPath == "" {
		catalogPath = cfg.Server.Catalog
	}

	var registry *tools.Registry
	if catalogPath != "" {
		catalog, err := tools.LoadCatalog(catalogPath)
		if err != nil {
			return fmt.Errorf("load catalog %s: %w", catalogPath, err)
		}
		registry, err = tools.NewRegistry(catalog, catalogPath)
		if err != nil {
			return fmt.Errorf("watch catalog %s: %w", catalogPath, err)
		}
		defer registry.Close()
	}

	srv, err := server.New(server.Config{
		Oracle:        oracleClient,
		Invoker:       tools.NewLocal(),
		Registry:      registry,
		Store:         store,
		Logger:        logger,
		MaxIterations: cfg.Defaults.MaxIterations,
		MaxRetries:    cfg.Defaults.MaxRetries,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	fmt.Printf("Listening on %s\n", addr)
	return srv.Run(addr)
}
