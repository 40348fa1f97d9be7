// Package catalog defines the pre-declared entity schemas the gateway can
// query. Entries are JSON documents validated against an embedded meta-schema;
// the catalog itself never talks to the store.
package catalog

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/logicsquare/konect-query-gateway/internal/errors"
)

// Field describes a single document field in a schema definition
type Field struct {
	Type     string      `json:"type"`
	Required bool        `json:"required,omitempty"`
	Default  interface{} `json:"default,omitempty"`
}

// Relationship declares that a field holds a reference into another schema's
// collection. ForeignField defaults to _id when unset.
type Relationship struct {
	Schema       string `json:"schema"`
	Collection   string `json:"collection"`
	ForeignField string `json:"foreignField,omitempty"`
}

// Schema is one catalog entry: a named, immutable structural definition of an
// entity type and its relationship declarations.
type Schema struct {
	Name          string                  `json:"name"`
	Collection    string                  `json:"collection"`
	Description   string                  `json:"description,omitempty"`
	Fields        map[string]Field        `json:"fields"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Relationship returns the declaration for a field name, if the schema has one
func (s *Schema) Relationship(field string) (Relationship, bool) {
	rel, ok := s.Relationships[field]
	if !ok {
		return Relationship{}, false
	}

	if rel.ForeignField == "" {
		rel.ForeignField = "_id"
	}

	return rel, true
}

// Validate checks structural constraints the meta-schema cannot express
func (s *Schema) Validate() error {
	if s.Name == "" {
		return errors.New(errors.ErrTypeSchemaLoad, "schema name is required")
	}

	if s.Collection == "" {
		return errors.Newf(errors.ErrTypeSchemaLoad, "schema %q has no collection", s.Name)
	}

	if len(s.Fields) == 0 {
		return errors.Newf(errors.ErrTypeSchemaLoad, "schema %q declares no fields", s.Name)
	}

	for field, rel := range s.Relationships {
		if _, ok := s.Fields[field]; !ok {
			return errors.Newf(errors.ErrTypeSchemaLoad,
				"schema %q: relationship field %q is not a declared field", s.Name, field)
		}

		if rel.Schema == "" || rel.Collection == "" {
			return errors.Newf(errors.ErrTypeSchemaLoad,
				"schema %q: relationship %q needs a target schema and collection", s.Name, field)
		}
	}

	return nil
}

// validateAgainstMetaSchema runs a raw entry document through the embedded
// JSON Schema before it is decoded into a Schema value.
func validateAgainstMetaSchema(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(metaSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeSchemaLoad, "meta-schema validation did not run")
	}

	if !result.Valid() {
		msg := "entry does not match the catalog meta-schema"
		for _, desc := range result.Errors() {
			msg = fmt.Sprintf("%s; %s", msg, desc.String())
		}

		return errors.New(errors.ErrTypeSchemaLoad, msg)
	}

	return nil
}
