package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/transitwire-systems/avl-stack/cli/internal/client"
	"github.com/transitwire-systems/avl-stack/cli/pkg/output"
)

var sendCmd = &cobra.Command{
	Use:   "send <file>",
	Short: "Send a SIRI-VM feed file",
	Long:  "Post a SIRI-VM XML file to the ingest endpoint for a subscription",
	Example: `  avlctl send feed.xml --subscription leeds-firstbus
  avlctl send feed.xml --subscription leeds-firstbus --gzip`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subscriptionID, _ := cmd.Flags().GetString("subscription")
		apiKey, _ := cmd.Flags().GetString("api-key")
		compress, _ := cmd.Flags().GetBool("gzip")
		ingestURL, _ := cmd.Flags().GetString("ingest-url")

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

		body, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read feed file: %w", err)
		}

		ingestClient := client.NewIngestClient(ingestURL)
		if err := ingestClient.SendFeed(subscriptionID, apiKey, body, compress); err != nil {
			return err
		}

		output.Success("Feed sent for subscription '%s' (%d bytes)", subscriptionID, len(body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringP("subscription", "s", "", "Subscription identifier")
	sendCmd.Flags().String("api-key", "", "API key (default: stored key for the subscription)")
	sendCmd.Flags().Bool("gzip", false, "Gzip and base64-encode the body")
	sendCmd.Flags().String("ingest-url", "", "Ingest service URL (default: from config)")
}
