package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/transitwire-systems/avl-stack/cli/pkg/output"
	"github.com/transitwire-systems/avl-stack/common/tripmap"
)

var tripmapCmd = &cobra.Command{
	Use:   "tripmap",
	Short: "Manage the trip lookup table",
	Long:  "Load and edit the trip map the processor uses to match observations to scheduled trips",
}

var tripmapSetCmd = &cobra.Command{
	Use:   "set <trip-id>",
	Short: "Map one journey to a trip",
	Example: `  avlctl tripmap set trip-42 --line 7 --direction outbound --journey journey-7-12`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, _ := cmd.Flags().GetString("line")
		direction, _ := cmd.Flags().GetString("direction")
		journey, _ := cmd.Flags().GetString("journey")

		if line == "" || journey == "" {
			return fmt.Errorf("--line and --journey are required")
		}

		client, err := redisClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		key := tripmap.Key(line, direction, journey)
		if err := client.Set(ctx, key, args[0], 0).Err(); err != nil {
			return fmt.Errorf("failed to store trip mapping: %w", err)
		}

		output.Success("Mapped %s to trip '%s'", key, args[0])
		return nil
	},
}

// tripmapEntry is one row of a trip map YAML file.
type tripmapEntry struct {
	LineRef                string `yaml:"line_ref"`
	DirectionRef           string `yaml:"direction_ref"`
	DatedVehicleJourneyRef string `yaml:"dated_vehicle_journey_ref"`
	TripID                 string `yaml:"trip_id"`
}

var tripmapLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load trip mappings from a YAML file",
	Long: `Bulk-load trip mappings.

The file is a YAML list of entries:

  - line_ref: "7"
    direction_ref: outbound
    dated_vehicle_journey_ref: journey-7-12
    trip_id: trip-42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read trip map file: %w", err)
		}

		var entries []tripmapEntry
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to parse trip map file: %w", err)
		}

		client, err := redisClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pipe := client.Pipeline()
		for i, e := range entries {
			if e.LineRef == "" || e.DatedVehicleJourneyRef == "" || e.TripID == "" {
				return fmt.Errorf("entry %d: line_ref, dated_vehicle_journey_ref and trip_id are required", i)
			}
			pipe.Set(ctx, tripmap.Key(e.LineRef, e.DirectionRef, e.DatedVehicleJourneyRef), e.TripID, 0)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to load trip map: %w", err)
		}

		output.Success("Loaded %d trip mappings", len(entries))
		return nil
	},
}

func redisClient() (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func init() {
	rootCmd.AddCommand(tripmapCmd)
	tripmapCmd.AddCommand(tripmapSetCmd)
	tripmapCmd.AddCommand(tripmapLoadCmd)

	tripmapSetCmd.Flags().String("line", "", "Line reference")
	tripmapSetCmd.Flags().String("direction", "", "Direction reference")
	tripmapSetCmd.Flags().String("journey", "", "Dated vehicle journey reference")
}
