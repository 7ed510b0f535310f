package main

import (
	"github.com/joho/godotenv"

	"github.com/arkhalid89/leadgen-bundler/cmd/leadgen-bundler/cmd"
)

func main() {
	// A .env file may carry LEADGEN_FEED_TOKEN for `release --push`.
	// Missing files are fine.
	_ = godotenv.Load()

	cmd.Execute()
}
