package main

import "github.com/joho/godotenv"

func main() {
	// A .env file can preset the COREBLOCKS_* configuration variables.
	_ = godotenv.Load()

	Execute()
}
