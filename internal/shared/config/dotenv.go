package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	"cv-tailor/internal/shared/telemetry"
)

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Variables already set in the environment win. Missing files are ignored.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			telemetry.Error("config.env_file_failed", map[string]any{"path": path, "error": err.Error()})
		}
	}
}
