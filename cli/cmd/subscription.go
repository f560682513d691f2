package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/transitwire-systems/avl-stack/cli/pkg/output"
	"github.com/transitwire-systems/avl-stack/common/subscriptions"
)

var subscriptionCmd = &cobra.Command{
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "Manage producer subscriptions",
	Long:    "Register, list, and deactivate producer feed subscriptions",
}

var subscriptionCreateCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Register a subscription",
	Long: `Register a producer subscription and issue its API key.

The key is stored in the avlctl config so send and seed commands can
resolve it by subscription id.`,
	Example: `  avlctl subscription create leeds-firstbus --url https://feeds.example.com/siri --description "First Bus Leeds"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		feedURL, _ := cmd.Flags().GetString("url")
		description, _ := cmd.Flags().GetString("description")
		requestorRef, _ := cmd.Flags().GetString("requestor-ref")

		store, err := subscriptions.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := store.Get(ctx, id); err == nil {
			return fmt.Errorf("subscription '%s' already exists", id)
		}

		apiKey := uuid.NewString()
		sub := &subscriptions.Subscription{
			ID:           id,
			URL:          feedURL,
			Description:  description,
			Status:       subscriptions.StatusLive,
			APIKey:       apiKey,
			RequestorRef: requestorRef,
		}
		if err := store.Put(ctx, sub); err != nil {
			return fmt.Errorf("failed to store subscription: %w", err)
		}

		if err := cfg.SaveAPIKey(id, apiKey); err != nil {
			output.Warn("Subscription stored but API key not saved locally: %v", err)
		}

		output.Success("Subscription '%s' registered", id)
		output.Info("API key: %s", apiKey)
		return nil
	},
}

var subscriptionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := subscriptions.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		subs, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list subscriptions: %w", err)
		}

		if format, _ := cmd.Flags().GetString("output"); format == "json" {
			return output.JSON(subs)
		}

		table := output.NewTable("ID", "STATUS", "LAST DATA", "LAST HEARTBEAT", "DESCRIPTION")
		for _, sub := range subs {
			table.AddRow(sub.ID, sub.Status,
				formatTime(sub.LastDataReceivedAt),
				formatTime(sub.HeartbeatLastReceivedAt),
				sub.Description)
		}
		table.Render()
		return nil
	},
}

var subscriptionDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate a subscription",
	Long:  "Mark a subscription inactive. Its feeds are still accepted but no longer processed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSubscriptionStatus(args[0], subscriptions.StatusInactive)
	},
}

var subscriptionActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Reactivate a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSubscriptionStatus(args[0], subscriptions.StatusLive)
	},
}

func setSubscriptionStatus(id, status string) error {
	store, err := subscriptions.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load subscription '%s': %w", id, err)
	}

	sub.Status = status
	if err := store.Put(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	output.Success("Subscription '%s' is now %s", id, status)
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func init() {
	rootCmd.AddCommand(subscriptionCmd)
	subscriptionCmd.AddCommand(subscriptionCreateCmd)
	subscriptionCmd.AddCommand(subscriptionListCmd)
	subscriptionCmd.AddCommand(subscriptionDeactivateCmd)
	subscriptionCmd.AddCommand(subscriptionActivateCmd)

	subscriptionCreateCmd.Flags().String("url", "", "Producer feed URL")
	subscriptionCreateCmd.Flags().String("description", "", "Human-readable description")
	subscriptionCreateCmd.Flags().String("requestor-ref", "", "Producer-side requestor reference")
}
