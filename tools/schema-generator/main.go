// Command schema-generator writes the JSON Schema of livesync.yml for
// editors and CI. Usage: go run ./tools/schema-generator [output]
package main

import (
	"os"
	"path/filepath"

	"github.com/grovetools/livesync/config"
	"github.com/grovetools/livesync/logging"
)

const defaultOutput = "schema/livesync.schema.json"

func main() {
	logger := logging.NewLogger("schema-generator")

	outputPath := defaultOutput
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		logger.Fatalf("Error generating schema: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		logger.Fatalf("Error creating schema directory: %v", err)
	}
	if err := os.WriteFile(outputPath, append(schemaBytes, '\n'), 0644); err != nil {
		logger.Fatalf("Error writing schema file: %v", err)
	}

	logger.WithField("path", outputPath).Info("Generated config schema")
}
