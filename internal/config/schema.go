package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// ValidateSchema checks a YAML document against the embedded CUE schema.
// Unknown keys, wrong types and malformed durations are rejected here.
func ValidateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	final := schema.LookupPath(cue.ParsePath("#Config")).Unify(doc)
	if err := final.Err(); err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	if err := final.Validate(); err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	return nil
}
