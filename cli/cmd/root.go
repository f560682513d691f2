package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/transitwire-systems/avl-stack/cli/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "avlctl",
	Short: "AVL Stack CLI",
	Long: `avlctl is the command-line interface for the AVL stack.

Register producer subscriptions, send SIRI-VM feeds to the ingest
endpoint, seed synthetic vehicle data, manage the trip map, and inspect
quarantined diagnostics from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.avlctl/config.yaml)")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}
