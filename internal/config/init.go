package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Init locates app.yml in CONFIG_DIR (default: working directory) and loads
// it. When no such file exists the configuration comes from the environment
// and defaults alone.
func Init() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "."
	}

	path := filepath.Join(dir, "app.yml")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LoadConfig("")
		}
		return nil, err
	}

	return LoadConfig(path)
}
