package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driving/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and ingestion workers",
	Long: `Starts the REST API, the background ingestion workers and, when
ingest.watch_dir is configured, the watch folder.

The server runs until interrupted. In-flight requests are given
server.shutdown_timeout to finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := api.Config{}
	ports := &api.Ports{
		Ingest:   ingestService,
		Document: documentService,
		Query:    queryService,
		Admin:    adminService,
	}
	if application != nil {
		cfg.Addr = application.Config.Server.Addr
		cfg.BodyLimitMB = application.Config.Server.BodyLimitMB
		cfg.ShutdownTimeout = application.Config.Server.ShutdownTimeout
		cfg.IngestRoot = application.Config.Server.IngestRoot
		ports.Index = application.Index
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	server, err := api.NewServer(ports, cfg)
	if err != nil {
		return err
	}

	stop, err := startBackground(cmd)
	if err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer stop()

	return server.Run(cmd.Context())
}

// startBackground starts the ingestion workers and the watch folder.
func startBackground(cmd *cobra.Command) (func(), error) {
	if application != nil {
		if err := application.Start(cmd.Context()); err != nil {
			return nil, err
		}
		return application.Stop, nil
	}
	if err := ingestService.Start(cmd.Context()); err != nil {
		return nil, err
	}
	return ingestService.Stop, nil
}
