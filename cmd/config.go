package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logicsquare/konect-query-gateway/internal/config"
	"github.com/logicsquare/konect-query-gateway/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the active configuration",
	Long:  `Show the current active configuration including settings from file, environment variables, and command-line flags.`,
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfigWithOverrides(flagOverrides())
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration")
	}

	fmt.Println("====================")
	fmt.Println("Active Configuration:")

	fmt.Println("\nMongo:")
	fmt.Printf("  URI: %s\n", cfg.Mongo.URI)
	fmt.Printf("  Database: %s\n", cfg.Mongo.Database)
	fmt.Printf("  Connect Timeout: %s\n", cfg.Mongo.ConnectTimeout)
	fmt.Printf("  Query Timeout: %s\n", cfg.Mongo.QueryTimeout)

	fmt.Println("\nServer:")
	fmt.Printf("  Addr: %s\n", cfg.Server.Addr)
	fmt.Printf("  Shutdown Timeout: %s\n", cfg.Server.ShutdownTimeout)

	fmt.Println("\nQuery:")
	fmt.Printf("  Default Limit: %d\n", cfg.Query.DefaultLimit)
	fmt.Printf("  Max Limit: %d\n", cfg.Query.MaxLimit)

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Printf("  File: %s\n", cfg.Logging.File)
	}

	return nil
}
