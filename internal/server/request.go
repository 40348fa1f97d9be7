package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/logicsquare/konect-query-gateway/internal/engine"
	"github.com/logicsquare/konect-query-gateway/internal/errors"
	"github.com/logicsquare/konect-query-gateway/internal/store"
)

// queryRequest is the wire shape of a query call. Sort stays raw because its
// key order is significant and a plain map would lose it.
type queryRequest struct {
	SchemaName string                 `json:"schemaName"`
	Filter     map[string]interface{} `json:"filter"`
	Projection map[string]interface{} `json:"projection"`
	Sort       json.RawMessage        `json:"sort"`
	Limit      *int64                 `json:"limit"`
	Skip       int64                  `json:"skip"`
	Expand     []string               `json:"expand"`
}

func decodeQueryRequest(body io.Reader) (*engine.Request, error) {
	var wire queryRequest

	dec := json.NewDecoder(body)
	if err := dec.Decode(&wire); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInvalidShape, "request body is not valid JSON")
	}

	if wire.SchemaName == "" {
		return nil, errors.New(errors.ErrTypeInvalidShape, "schemaName is required")
	}

	sort, err := parseSortSpec(wire.Sort)
	if err != nil {
		return nil, err
	}

	return &engine.Request{
		Schema:     wire.SchemaName,
		Filter:     wire.Filter,
		Projection: wire.Projection,
		Sort:       sort,
		Limit:      wire.Limit,
		Skip:       wire.Skip,
		Expand:     wire.Expand,
	}, nil
}

// parseSortSpec reads a sort object like {"price": -1, "year": "asc"} as an
// ordered field list. Key order is preserved by walking the raw tokens.
func parseSortSpec(raw json.RawMessage) ([]store.SortField, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInvalidShape, "sort is not valid JSON")
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New(errors.ErrTypeInvalidShape,
			"sort must be an object of field/direction pairs")
	}

	var fields []store.SortField

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeInvalidShape, "sort is not valid JSON")
		}

		field, ok := keyTok.(string)
		if !ok {
			return nil, errors.New(errors.ErrTypeInvalidShape, "sort keys must be field names")
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeInvalidShape, "sort is not valid JSON")
		}

		descending, err := parseSortDirection(valTok)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeInvalidShape,
				"invalid sort direction for field %q", field)
		}

		fields = append(fields, store.SortField{Field: field, Descending: descending})
	}

	return fields, nil
}

func parseSortDirection(tok json.Token) (bool, error) {
	switch v := tok.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return false, fmt.Errorf("direction %s is not an integer", v.String())
		}

		switch n {
		case 1:
			return false, nil
		case -1:
			return true, nil
		}

		return false, fmt.Errorf("direction must be 1 or -1, got %d", n)
	case string:
		switch strings.ToLower(v) {
		case "asc", "ascending", "1":
			return false, nil
		case "desc", "descending", "-1":
			return true, nil
		}

		return false, fmt.Errorf("direction must be asc or desc, got %q", v)
	default:
		return false, fmt.Errorf("direction must be a number or a string")
	}
}
