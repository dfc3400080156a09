package main

import "ledgerview/internal/cli"

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	Execute()
}
