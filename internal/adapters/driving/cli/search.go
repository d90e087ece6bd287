package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driving/api"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

var (
	searchLimit  int
	searchDocs   []string
	searchPerDoc int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs semantic search across indexed documents and lists the
matching passages by similarity. No answer is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().StringSliceVarP(&searchDocs, "doc", "d", nil, "restrict to these document IDs")
	searchCmd.Flags().IntVar(&searchPerDoc, "max-per-doc", 0, "maximum results from one document (0 = configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	sources, err := queryService.Search(cmd.Context(), domain.QueryRequest{
		Query:          args[0],
		TopK:           searchLimit,
		DocumentIDs:    searchDocs,
		MaxPerDocument: searchPerDoc,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, api.NewSourceResponses(sources))
	}

	return outputSearchTable(cmd, sources)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, sources []domain.Source) error {
	if len(sources) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	printSources(cmd, sources)
	return nil
}

// printSources prints numbered sources matching the answer's [n] citations.
func printSources(cmd *cobra.Command, sources []domain.Source) {
	for i := range sources {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, sourceLabel(sources[i]), sources[i].Score)
		cmd.Printf("      Document: %s, chunk %d\n", sources[i].DocumentID, sources[i].ChunkIndex)
		if sources[i].Excerpt != "" {
			cmd.Printf("      %s\n", sources[i].Excerpt)
		}
		cmd.Println()
	}
}

func sourceLabel(src domain.Source) string {
	name := src.DocumentName
	if name == "" {
		name = src.DocumentID
	}
	if src.Page != nil {
		return fmt.Sprintf("%s, page %d", name, *src.Page)
	}
	return name
}
