package config

import (
	"encoding/json"
	"sync"

	"github.com/grovetools/livesync/logging"
	"github.com/grovetools/livesync/schema"
	"github.com/invopop/jsonschema"
)

const schemaResourceName = "livesync.schema.json"

// GenerateSchema generates the JSON Schema for livesync.yml. The core
// sections are reflected from Config and the logging extension is composed
// in from logging.Config.
func GenerateSchema() ([]byte, error) {
	s := reflectSchema(&Config{})
	s.Title = "livesync Configuration"
	s.Description = "Schema for livesync.yml and livesync.toml."
	s.Version = "http://json-schema.org/draft-07/schema#"

	logSchema := reflectSchema(&logging.Config{})
	logSchema.Version = ""
	logSchema.ID = ""
	logSchema.Description = "Logging configuration (extension)"
	s.Properties.Set("logging", logSchema)

	return json.MarshalIndent(s, "", "  ")
}

func reflectSchema(v interface{}) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		// Unknown keys are rejected; extensions are added explicitly.
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}
	return r.Reflect(v)
}

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// NewSchemaValidator returns a validator for the generated schema. The
// schema is compiled once per process.
func NewSchemaValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			validatorErr = err
			return
		}
		validator, validatorErr = schema.NewValidator(schemaResourceName, data)
	})
	return validator, validatorErr
}
