package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	flagMongoURI string
	flagMongoDB  string
	flagAddr     string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "konect-query-gateway",
	Short: "Schema-driven query gateway for the KONECT document store",
	Long: `konect-query-gateway registers the KONECT entity schemas against a MongoDB
deployment and exposes a uniform query API over them. Queries are validated
against the registered schemas, shaped with projection, sort, and pagination,
and optionally expand relationship fields into the referenced documents.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	ctx := context.Background()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMongoURI, "mongo-uri", "", "MongoDB connection URI (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagMongoDB, "mongo-db", "", "MongoDB database name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// flagOverrides collects the persistent flag values for the config loader
func flagOverrides() map[string]interface{} {
	return map[string]interface{}{
		"mongo-uri": flagMongoURI,
		"mongo-db":  flagMongoDB,
		"addr":      flagAddr,
		"log-level": flagLogLevel,
	}
}
