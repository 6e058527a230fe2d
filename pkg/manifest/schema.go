package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// manifestSchema is the wire contract for manifest.json. Violations are
// configuration errors: the build is treated as having no usable manifest.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["files"],
  "properties": {
    "files": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "size": {"type": "integer", "minimum": 0},
          "contentType": {"type": "string"},
          "contentHash": {"type": "string"},
          "encrypted": {"type": "boolean"},
          "gzipped": {"type": "boolean"}
        }
      }
    },
    "routing": {
      "type": "object",
      "properties": {
        "spa": {"type": "boolean"},
        "entrypoint": {"type": "string"},
        "redirects": {"type": "object", "additionalProperties": {"type": "string"}},
        "rewrites": {"type": "object", "additionalProperties": {"type": "string"}}
      }
    },
    "encryption": {
      "type": "object",
      "required": ["enabled"],
      "properties": {
        "enabled": {"type": "boolean"},
        "wrappedKeys": {"type": "object", "additionalProperties": {"type": "string"}},
        "wrappedKey": {"type": "string"},
        "hostKey": {"type": "string"}
      }
    },
    "headers": {
      "type": "object",
      "properties": {
        "cacheControl": {"type": "object", "additionalProperties": {"type": "string"}}
      }
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "https://canopysites.dev/schemas/manifest.schema.json"
	if err := c.AddResource(url, strings.NewReader(manifestSchema)); err != nil {
		panic(fmt.Sprintf("manifest: load schema: %v", err))
	}
	return c.MustCompile(url)
}

// Validate checks raw manifest bytes against the manifest schema.
func Validate(raw []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("manifest: not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("manifest: schema violation: %w", err)
	}
	return nil
}
