// Package seed parses and validates reference-data seed files used to
// (re)populate the catalog and zip sheets.
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/meihsieh/bookship-bot/constants"
)

// File is the seed document layout.
type File struct {
	Catalog  []CatalogEntry `json:"catalog"`
	Zipcodes []ZipEntry     `json:"zipcodes"`
}

type CatalogEntry struct {
	Title   string   `json:"title"`
	Aliases []string `json:"aliases"`
	Enabled *bool    `json:"enabled"` // nil means enabled
}

type ZipEntry struct {
	Area string `json:"area"`
	Zip  string `json:"zip"`
}

// buildSchema returns the seed-file JSON Schema (draft 2020-12 subset) as
// a generic map, compiled at validation time.
func buildSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"catalog": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"title"},
					"properties": map[string]any{
						"title":   map[string]any{"type": "string", "minLength": 1},
						"aliases": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"enabled": map[string]any{"type": "boolean"},
					},
				},
			},
			"zipcodes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"area", "zip"},
					"properties": map[string]any{
						"area": map[string]any{"type": "string", "minLength": 1},
						"zip":  map[string]any{"type": "string", "pattern": `^\d{3,6}$`},
					},
				},
			},
		},
	}
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	if err := validateAgainstSchema(buildSchema(), data); err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &f, nil
}

func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("seed does not match schema: %w", err)
	}
	return nil
}

// CatalogRows renders the catalog entries as sheet rows.
func (f *File) CatalogRows() []map[string]string {
	rows := make([]map[string]string, len(f.Catalog))
	for i, e := range f.Catalog {
		enabled := "Y"
		if e.Enabled != nil && !*e.Enabled {
			enabled = "N"
		}
		rows[i] = map[string]string{
			constants.ColCanonicalTitle: e.Title,
			constants.ColAliases:        strings.Join(e.Aliases, "、"),
			constants.ColEnabled:        enabled,
		}
	}
	return rows
}

// ZipRows renders the zip entries as sheet rows.
func (f *File) ZipRows() []map[string]string {
	rows := make([]map[string]string, len(f.Zipcodes))
	for i, e := range f.Zipcodes {
		rows[i] = map[string]string{
			constants.ColZipArea: e.Area,
			constants.ColZipCode: e.Zip,
		}
	}
	return rows
}
