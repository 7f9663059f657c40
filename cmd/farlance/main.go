// Package main provides the entry point for the Farlance marketplace API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "farlance",
	Short: "Farlance HTTP API Server",
	Long:  "Farlance is a freelance marketplace API: profiles with skills, job posting with skill-matched push notifications, and applications.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
