// Package main provides the entry point for the check-split HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "check_split",
	Short: "Restaurant check splitting HTTP API Server",
	Long:  "check_split reads a photographed restaurant check with Gemini OCR, extracts its line items, and splits the bill across the table under several strategies via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
