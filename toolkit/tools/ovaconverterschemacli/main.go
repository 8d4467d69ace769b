// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/ovaconverterapi"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	app := kingpin.New("ovaconverterschemacli", "Generates the JSON schema of the ovaconverter manifest.")
	outputFile := app.Flag("output", "Path to the output JSON schema file").Short('o').Required().String()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := generateJSONSchema(*outputFile); err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("JSON schema has been written to %s\n", *outputFile)
}

func generateJSONSchema(outputFile string) error {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
	}

	schema := reflector.Reflect(&ovaconverterapi.Config{})
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := os.WriteFile(outputFile, schemaJSON, 0o644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}
