package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driving/api"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

var (
	queryTopK   int
	queryDocs   []string
	queryPerDoc int
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question across your documents",
	Long: `Retrieves the passages most similar to the question and asks the
configured LLM to answer from them. The answer cites passages as [n],
matching the numbered sources printed below it.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var askCmd = &cobra.Command{
	Use:   "ask [doc-id] [question]",
	Short: "Ask a question about one document",
	Args:  cobra.ExactArgs(2),
	RunE:  runAsk,
}

var summarizeCmd = &cobra.Command{
	Use:     "summarize [doc-id]",
	Aliases: []string{"summarise"},
	Short:   "Summarize a document",
	Args:    cobra.ExactArgs(1),
	RunE:    runSummarize,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages to retrieve (0 = configured default)")
	queryCmd.Flags().StringSliceVarP(&queryDocs, "doc", "d", nil, "restrict to these document IDs")
	queryCmd.Flags().IntVar(&queryPerDoc, "max-per-doc", 0, "maximum passages from one document (0 = configured default)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(summarizeCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	result, err := queryService.Query(cmd.Context(), domain.QueryRequest{
		Query:          args[0],
		TopK:           queryTopK,
		DocumentIDs:    queryDocs,
		MaxPerDocument: queryPerDoc,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, api.NewQueryResponse(result))
	}

	printAnswer(cmd, result)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	result, err := queryService.Ask(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	printAnswer(cmd, result)
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	summary, err := queryService.Summarize(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}

	cmd.Println(summary.Summary)
	if len(summary.KeyPoints) > 0 {
		cmd.Println()
		cmd.Println("Key points:")
		for _, point := range summary.KeyPoints {
			cmd.Printf("  - %s\n", point)
		}
	}
	return nil
}

func printAnswer(cmd *cobra.Command, result *domain.QueryResult) {
	if result.Answer != "" {
		cmd.Println(result.Answer)
	} else if result.HasSources {
		cmd.Println("No LLM configured; showing the retrieved passages.")
	}

	if !result.HasSources {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	cmd.Println()
	printSources(cmd, result.Sources)
}
