package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List registered schemas and any load failures",
	Args:  cobra.NoArgs,
	RunE:  runSchemas,
}

func init() {
	rootCmd.AddCommand(schemasCmd)
}

func runSchemas(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	gw, err := newGateway(ctx)
	if err != nil {
		return err
	}
	defer gw.Close(context.Background())

	gw.registry.EnsureLoaded(ctx)

	names := gw.registry.Names()
	if len(names) == 0 {
		fmt.Println("No schemas registered.")
	}

	for _, name := range names {
		entry, ok := gw.registry.Lookup(name)
		if !ok {
			continue
		}

		line := fmt.Sprintf("%s  (collection: %s)", entry.Schema.Name, entry.Schema.Collection)
		if entry.Schema.Description != "" {
			line += "  - " + entry.Schema.Description
		}

		fmt.Println(line)

		if len(entry.Schema.Relationships) > 0 {
			var rels []string
			for field, rel := range entry.Schema.Relationships {
				rels = append(rels, fmt.Sprintf("%s -> %s", field, rel.Schema))
			}

			sort.Strings(rels)
			fmt.Printf("    relationships: %s\n", strings.Join(rels, ", "))
		}
	}

	failures := gw.registry.Failures()
	if len(failures) > 0 {
		fmt.Println("\nFailed to load:")

		var keys []string
		for key := range failures {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			fmt.Printf("  %s: %s\n", key, failures[key])
		}
	}

	return nil
}
