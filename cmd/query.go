package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logicsquare/konect-query-gateway/internal/engine"
	"github.com/logicsquare/konect-query-gateway/internal/errors"
	"github.com/logicsquare/konect-query-gateway/internal/store"
)

var (
	queryFilter  string
	queryProject string
	querySort    string
	queryExpand  []string
	queryLimit   int64
	querySkip    int64
)

var queryCmd = &cobra.Command{
	Use:   "query <schema-name>",
	Short: "Run a one-off query against a registered schema",
	Long: `Execute a single query against a registered schema and print the result
envelope as JSON.

Examples:
  konect-query-gateway query Vehicle
  konect-query-gateway query Vehicle --filter '{"year": {"$gte": 2020}}'
  konect-query-gateway query Booking --sort bookingDate:desc --limit 20 --expand user,vehicle
  konect-query-gateway query User --project '{"name": 1, "email": 1}'`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryFilter, "filter", "", "Filter as a MongoDB query document (JSON)")
	queryCmd.Flags().StringVar(&queryProject, "project", "", "Projection document (JSON)")
	queryCmd.Flags().StringVar(&querySort, "sort", "", "Sort spec: field:asc|desc, comma-separated")
	queryCmd.Flags().StringSliceVar(&queryExpand, "expand", nil, "Relationship fields to expand")
	queryCmd.Flags().Int64Var(&queryLimit, "limit", 0, "Maximum documents to return (0 uses the configured default)")
	queryCmd.Flags().Int64Var(&querySkip, "skip", 0, "Documents to skip")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := buildQueryRequest(args[0])
	if err != nil {
		return err
	}

	gw, err := newGateway(ctx)
	if err != nil {
		return err
	}
	defer gw.Close(context.Background())

	result, err := gw.engine.Execute(ctx, *req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}

	fmt.Println(string(out))

	return nil
}

func buildQueryRequest(schemaName string) (*engine.Request, error) {
	req := engine.Request{
		Schema: schemaName,
		Skip:   querySkip,
		Expand: queryExpand,
	}

	if queryLimit > 0 {
		limit := queryLimit
		req.Limit = &limit
	}

	if queryFilter != "" {
		if err := json.Unmarshal([]byte(queryFilter), &req.Filter); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeInvalidShape, "--filter is not a valid JSON object")
		}
	}

	if queryProject != "" {
		if err := json.Unmarshal([]byte(queryProject), &req.Projection); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeInvalidShape, "--project is not a valid JSON object")
		}
	}

	sort, err := parseSortFlag(querySort)
	if err != nil {
		return nil, err
	}

	req.Sort = sort

	return &req, nil
}

// parseSortFlag reads a spec like "price:desc,year:asc" or bare field names,
// which sort ascending
func parseSortFlag(spec string) ([]store.SortField, error) {
	if spec == "" {
		return nil, nil
	}

	var fields []store.SortField

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field, direction, found := strings.Cut(part, ":")
		if field == "" {
			return nil, errors.Newf(errors.ErrTypeInvalidShape, "invalid sort entry %q", part)
		}

		descending := false

		if found {
			switch strings.ToLower(direction) {
			case "asc", "ascending", "1":
			case "desc", "descending", "-1":
				descending = true
			default:
				return nil, errors.Newf(errors.ErrTypeInvalidShape,
					"invalid sort direction %q for field %q", direction, field)
			}
		}

		fields = append(fields, store.SortField{Field: field, Descending: descending})
	}

	return fields, nil
}
