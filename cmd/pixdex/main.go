// Package main provides the pixdex server and CLI.
//
// Usage:
//
//	pixdex [--env ENV] <command> [args]
//
// Commands:
//
//	serve          - HTTP API server
//	indexes ensure - build missing ANN indexes and wait
//	ingest         - store local image files
//	search         - run a hybrid query and print ranked images
//	backfill-ocr   - recompute OCR text for every stored object
//	version        - print build metadata
//
// Configuration is read from config/<ENV>.yaml (ENV defaults to "local").
package main

import (
	"fmt"
	"os"

	"github.com/kailas-cloud/pixdex/cmd/pixdex/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
