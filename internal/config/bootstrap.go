package config

import (
	"fmt"
	"os"

	cp "github.com/otiai10/copy"
)

// Bootstrap prepares the on-disk layout for a run: the log directory always
// exists, and when the images directory is missing it is seeded from
// defaultsDir (the template set shipped with the repository). An absent
// defaultsDir leaves the images directory missing; validation of the
// individual templates happens later, when states declare what they expect.
func (c *Config) Bootstrap(defaultsDir string) error {
	if c.Paths.LogsDir != "" {
		if err := os.MkdirAll(c.Paths.LogsDir, 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}

	if _, err := os.Stat(c.Paths.ImagesDir); err == nil {
		return nil
	}

	if defaultsDir == "" {
		return os.MkdirAll(c.Paths.ImagesDir, 0o755)
	}
	if _, err := os.Stat(defaultsDir); err != nil {
		return os.MkdirAll(c.Paths.ImagesDir, 0o755)
	}

	if err := cp.Copy(defaultsDir, c.Paths.ImagesDir); err != nil {
		return fmt.Errorf("seeding image directory from %s: %w", defaultsDir, err)
	}

	return nil
}
