// Command schema writes json schema of the crawler catalog, used by editors to validate crawlers.yml
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
)

func main() {
	data, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}

	outputPath := "catalog-schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}
	if err := os.WriteFile(outputPath, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("failed to write schema file: %v", err)
	}
	fmt.Printf("catalog schema written to %s\n", outputPath)
}
