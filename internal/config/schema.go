package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://easy-upgrade.local/config.schema.json"

//go:embed schema.json
var schemaSource []byte

//nolint:gochecknoglobals // Compiled once on first use.
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaSource)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}

	return compiler.Compile(schemaURL)
})

// Validate checks decoded document data against the embedded schema.
// The data must consist of JSON-compatible values.
func Validate(data any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}
