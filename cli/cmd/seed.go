package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitwire-systems/avl-stack/cli/internal/client"
	"github.com/transitwire-systems/avl-stack/cli/internal/seeder"
	"github.com/transitwire-systems/avl-stack/cli/pkg/output"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send synthetic SIRI-VM feeds",
	Long: `Generate synthetic vehicle activity and send it to the ingest endpoint.

Each generated feed carries a fleet of vehicles on random lines around a
center point. With --interval the seeder keeps sending feeds until
interrupted, simulating a live producer.`,
	Example: `  avlctl seed --subscription dev-feed --vehicles 25
  avlctl seed --subscription dev-feed --count 100 --interval 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		subscriptionID, _ := cmd.Flags().GetString("subscription")
		apiKey, _ := cmd.Flags().GetString("api-key")
		ingestURL, _ := cmd.Flags().GetString("ingest-url")
		count, _ := cmd.Flags().GetInt("count")
		interval, _ := cmd.Flags().GetDuration("interval")
		vehicles, _ := cmd.Flags().GetInt("vehicles")
		operator, _ := cmd.Flags().GetString("operator")
		lines, _ := cmd.Flags().GetString("lines")
		randSeed, _ := cmd.Flags().GetInt64("seed")

		if subscriptionID == "" {
			return fmt.Errorf("--subscription is required")
		}
		if apiKey == "" {
			var err error
			if apiKey, err = cfg.APIKey(subscriptionID); err != nil {
				return fmt.Errorf("API key required (use --api-key or 'avlctl subscription create'): %w", err)
			}
		}
		if ingestURL == "" {
			ingestURL = cfg.IngestURL
		}

		gen := seeder.New(seeder.Config{
			OperatorRef:  operator,
			Lines:        splitLines(lines),
			VehicleCount: vehicles,
			Seed:         randSeed,
		})
		ingestClient := client.NewIngestClient(ingestURL)

		for i := 0; i < count; i++ {
			if i > 0 && interval > 0 {
				time.Sleep(interval)
			}

			feed, err := gen.Generate()
			if err != nil {
				return err
			}
			if err := ingestClient.SendFeed(subscriptionID, apiKey, feed, false); err != nil {
				return fmt.Errorf("feed %d/%d failed: %w", i+1, count, err)
			}
			output.Info("Feed %d/%d sent (%d vehicles)", i+1, count, vehicles)
		}

		output.Success("Seeded %d feeds for subscription '%s'", count, subscriptionID)
		return nil
	},
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringP("subscription", "s", "", "Subscription identifier")
	seedCmd.Flags().String("api-key", "", "API key (default: stored key for the subscription)")
	seedCmd.Flags().String("ingest-url", "", "Ingest service URL (default: from config)")
	seedCmd.Flags().IntP("count", "c", 1, "Number of feeds to send")
	seedCmd.Flags().Duration("interval", 0, "Delay between feeds")
	seedCmd.Flags().Int("vehicles", 10, "Vehicle activities per feed")
	seedCmd.Flags().String("operator", "OP100", "Operator reference")
	seedCmd.Flags().String("lines", "", "Comma-separated line refs (default: built-in set)")
	seedCmd.Flags().Int64("seed", 0, "Random seed for reproducible feeds")
}
