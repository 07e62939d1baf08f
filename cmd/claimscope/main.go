package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/ppiankov/claimscope/internal/cli"
)

func main() {
	// API keys may live in a local .env file; a missing file is fine
	_ = godotenv.Load(".env")

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
