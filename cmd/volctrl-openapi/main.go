// Command volctrl-openapi prints the OpenAPI document for the volctrld HTTP
// API. Routes are registered with stub handlers, so no daemon, monitors or
// broker are needed.
//
// Usage:
//
//	go run ./cmd/volctrl-openapi > openapi.json
//	go run ./cmd/volctrl-openapi --yaml > openapi.yaml
//	go run ./cmd/volctrl-openapi --output openapi.json
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/volctrld/internal/http/routes"
)

// version is set via ldflags at build time.
var version = "dev"

// generate renders the OpenAPI document as JSON or YAML.
func generate(asYAML bool, baseURL string) ([]byte, error) {
	api := humachi.New(chi.NewRouter(), routes.NewHumaConfig(version, baseURL))
	routes.Register(api, routes.StubHandlers())

	spec := api.OpenAPI()
	if asYAML {
		return yaml.Marshal(spec)
	}
	return json.MarshalIndent(spec, "", "  ")
}

func main() {
	outputFile := pflag.StringP("output", "o", "", "Output file path (default: stdout)")
	outputYAML := pflag.Bool("yaml", false, "Output as YAML instead of JSON")
	baseURL := pflag.String("base-url", "", "Base URL for the API server")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	data, err := generate(*outputYAML, *baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshaling OpenAPI spec: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing to file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "OpenAPI spec written to %s\n", *outputFile)
		return
	}
	fmt.Print(string(data))
}
