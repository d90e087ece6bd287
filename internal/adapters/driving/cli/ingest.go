package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

var (
	ingestFormat   string
	ingestParser   string
	ingestMetadata string
	ingestWait     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Upload documents for indexing",
	Long: `Uploads one or more files. Each file is stored and queued as a pending
document; the ingestion workers started by "serve" parse, chunk and index it.

Use --wait to process each file immediately and report its final status.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFormat, "format", "f", "", "format identifier (default: file extension)")
	ingestCmd.Flags().StringVarP(&ingestParser, "parser", "p", "", "parser plugin to use")
	ingestCmd.Flags().StringVarP(&ingestMetadata, "metadata", "m", "", "JSON object stored with the document")
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "process the document before returning")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	var metadata map[string]any
	if ingestMetadata != "" {
		if err := json.Unmarshal([]byte(ingestMetadata), &metadata); err != nil {
			return fmt.Errorf("invalid --metadata: %w", err)
		}
	}

	ctx := cmd.Context()
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		ref, err := ingestService.Ingest(ctx, driving.IngestRequest{
			Name:     filepath.Base(path),
			Format:   ingestFormat,
			ParserID: ingestParser,
			Content:  content,
			Metadata: metadata,
		})
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		if ref.Duplicate {
			cmd.Printf("%s: already uploaded as %s (%s)\n", path, ref.ID, ref.Status)
		} else {
			cmd.Printf("%s: accepted as %s (%s)\n", path, ref.ID, ref.Status)
		}

		if ingestWait && ref.Status == domain.StatusPending {
			if err := waitForDocument(cmd, ref.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// waitForDocument processes a pending document inline and prints the outcome.
func waitForDocument(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()
	if err := ingestService.Process(ctx, id); err != nil {
		return fmt.Errorf("failed to process %s: %w", id, err)
	}
	if documentService == nil {
		return nil
	}

	doc, err := documentService.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	switch doc.Status {
	case domain.StatusCompleted:
		cmd.Printf("  %s: %d chunks indexed with %s\n", doc.Status, doc.ChunkCount, doc.ParserID)
	case domain.StatusFailed:
		cmd.Printf("  %s: %s\n", doc.Status, doc.ErrorMessage)
	default:
		cmd.Printf("  %s: will be retried by the ingestion workers\n", doc.Status)
	}
	return nil
}
