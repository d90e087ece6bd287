// Package cli provides the sercha-docs command line interface.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-docs/internal/app"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// annotationStandalone marks commands that run without loading services.
const annotationStandalone = "standalone"

var (
	configPath string
	verbose    bool
)

// Services used by the commands. Tests replace them with mocks.
var (
	ingestService   driving.IngestService
	documentService driving.DocumentService
	queryService    driving.QueryService
	adminService    driving.AdminService

	// application is set when the services were built from configuration.
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "sercha-docs",
	Short: "Ask questions about your documents",
	Long: `sercha-docs ingests documents (PDF, DOCX, EPUB, HTML, Markdown, email and
plain text), indexes them as embedded chunks, and answers questions with
citations to the passages it used.

Run "sercha-docs serve" to start the HTTP API and the ingestion workers.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.sercha-docs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer logger.Sync()

	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, closeServices())
}

// setupServices loads configuration and builds the services unless they are
// already set or the command does not need them.
func setupServices(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if !needsServices(cmd) || servicesConfigured() {
		return nil
	}

	cfg, err := file.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	if verbose {
		logger.SetVerbose(true)
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	application = a
	ingestService = a.Ingest
	documentService = a.Documents
	queryService = a.Query
	adminService = a.Ingest
	return nil
}

// closeServices releases anything setupServices opened.
func closeServices() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	ingestService = nil
	documentService = nil
	queryService = nil
	adminService = nil
	return err
}

// servicesConfigured reports whether services were already provided.
func servicesConfigured() bool {
	return ingestService != nil || documentService != nil || queryService != nil || adminService != nil
}

func needsServices(cmd *cobra.Command) bool {
	if cmd.Name() == "help" {
		return false
	}
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationStandalone]; ok {
			return false
		}
	}
	return true
}
