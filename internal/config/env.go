package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// envFiles are tried in order; the first one that loads wins.
var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads variables from the first readable .env file. Variables
// already set in the process environment are not overwritten.
func loadEnvFile() {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			slog.Debug("Loaded environment file", "path", path)
			return
		}
	}
}
