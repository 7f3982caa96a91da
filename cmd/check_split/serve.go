package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikhail/check-split/internal/config"
	"github.com/mikhail/check-split/internal/server"
)

var (
	servePort       int
	serveConfigPath string
	serveUploadDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the receipt preprocessing and split calculation endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a JSON config file")
	serveCmd.Flags().StringVar(&serveUploadDir, "upload-dir", "", "Directory for temporary receipt uploads (defaults to the system temp dir)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	fileCfg := &config.Config{}
	if serveConfigPath != "" {
		loaded, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return err
		}
		fileCfg = loaded
	}

	// Flags and environment take precedence over the config file.
	flagCfg := config.Config{
		Port:      servePort,
		UploadDir: serveUploadDir,
		APIKey:    os.Getenv("GEMINI_API_KEY"),
	}
	merged := flagCfg.MergeWithDefaults(*fileCfg)
	if merged.Port == 0 {
		merged.Port = 8080
	}

	if err := merged.Validate(); err != nil {
		return err
	}

	if merged.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	srv, err := server.New(server.Config{
		Port:          merged.Port,
		APIKey:        merged.APIKey,
		UploadDir:     merged.UploadDir,
		ModelLite:     merged.ModelLite,
		ModelStandard: merged.ModelStandard,
		ModelAdvanced: merged.ModelAdvanced,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
