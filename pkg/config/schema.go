package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaVersion is the version stamped into the generated JSON schema.
const SchemaVersion = "1.0.0"

// Schema returns the JSON schema of Config, with every definition inlined,
// for editor completion and CI validation of configuration files.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "DittoStore Configuration"
	schema.Description = "Configuration of the DittoStore object store, path index, mutation pipeline, versions and metrics"
	schema.Version = SchemaVersion

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
