package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitwire-systems/avl-stack/cli/pkg/output"
)

// diagnostic mirrors the quarantine document the processor writes.
type diagnostic struct {
	PK          string `json:"PK"`
	SK          string `json:"SK"`
	Details     string `json:"details"`
	Filename    string `json:"filename"`
	Level       string `json:"level"`
	Name        string `json:"name"`
	TimeToExist int64  `json:"timeToExist"`
}

var diagnosticsCmd = &cobra.Command{
	Use:     "diagnostics",
	Aliases: []string{"diag"},
	Short:   "Inspect quarantined validation diagnostics",
}

var diagnosticsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List diagnostics for a subscription",
	Example: `  avlctl diagnostics list --subscription leeds-firstbus`,
	RunE: func(cmd *cobra.Command, args []string) error {
		subscriptionID, _ := cmd.Flags().GetString("subscription")
		if subscriptionID == "" {
			return fmt.Errorf("--subscription is required")
		}

		client, err := redisClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var diagnostics []diagnostic
		iter := client.Scan(ctx, 0, "diagnostic:"+subscriptionID+":*", 0).Iterator()
		for iter.Next(ctx) {
			data, err := client.Get(ctx, iter.Val()).Bytes()
			if err != nil {
				continue
			}
			var d diagnostic
			if err := json.Unmarshal(data, &d); err != nil {
				continue
			}
			diagnostics = append(diagnostics, d)
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan diagnostics: %w", err)
		}

		if format, _ := cmd.Flags().GetString("output"); format == "json" {
			return output.JSON(diagnostics)
		}

		table := output.NewTable("LEVEL", "FIELD", "DETAILS", "FILE", "EXPIRES")
		for _, d := range diagnostics {
			table.AddRow(d.Level, d.Name, d.Details, d.Filename,
				time.Unix(d.TimeToExist, 0).UTC().Format(time.RFC3339))
		}
		table.Render()
		output.Info("%d diagnostics for subscription '%s'", len(diagnostics), subscriptionID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagnosticsCmd)
	diagnosticsCmd.AddCommand(diagnosticsListCmd)

	diagnosticsListCmd.Flags().StringP("subscription", "s", "", "Subscription identifier")
}
