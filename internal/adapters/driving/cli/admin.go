package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Maintenance commands",
}

var adminResetStaleCmd = &cobra.Command{
	Use:   "reset-stale",
	Short: "Return stuck processing documents to pending",
	Long: `Resets documents that have been processing for longer than
ingest.stale_after back to pending so a worker picks them up again.`,
	Args: cobra.NoArgs,
	RunE: runAdminResetStale,
}

func init() {
	adminCmd.AddCommand(adminResetStaleCmd)
	rootCmd.AddCommand(adminCmd)
}

func runAdminResetStale(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	ids, err := adminService.ResetStale(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reset stale documents: %w", err)
	}

	if len(ids) == 0 {
		cmd.Println("No stale documents.")
		return nil
	}

	for _, id := range ids {
		cmd.Printf("  %s\n", id)
	}
	cmd.Printf("Reset %d documents to pending.\n", len(ids))
	return nil
}
