package main

import (
	"log"

	"github.com/spf13/cobra"

	"streamcurate/pkg/config"
)

var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Error loading %s: %v", configPath, err)
		}
		cfg = loaded
		if verbose {
			cfg.Output.Verbose = true
		}
	}
}
