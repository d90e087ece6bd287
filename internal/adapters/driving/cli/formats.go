package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported formats and parser plugins",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func runFormats(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	cmd.Printf("Formats: %s\n\n", strings.Join(queryService.ListSupportedFormats(), ", "))

	cmd.Println("Parsers:")
	for _, p := range queryService.ListParsers() {
		cmd.Printf("  %-12s %s\n", p.ID, strings.Join(p.Formats, ", "))
	}
	return nil
}
