package config

import (
	"path/filepath"

	"reviewdesk/internal/logging"
)

// LoggingConfig controls the per-category log files under the workspace.
// Nothing is written unless debug_mode is on.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	Dir        string          `yaml:"dir"`        // relative to the workspace
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"` // missing categories stay on
}

// Options converts the config for logging.Initialize. A relative Dir is
// resolved against workspace; verbose forces debug mode at debug level.
func (c LoggingConfig) Options(workspace string, verbose bool) logging.Options {
	dir := c.Dir
	if dir != "" && !filepath.IsAbs(dir) && workspace != "" {
		dir = filepath.Join(workspace, dir)
	}
	level := c.Level
	if verbose {
		level = "debug"
	}
	return logging.Options{
		DebugMode:  c.DebugMode || verbose,
		Level:      level,
		JSONFormat: c.Format == "json",
		Dir:        dir,
		Categories: c.Categories,
	}
}
