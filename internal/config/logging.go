package config

import (
	"github.com/rshade/lcaprommis/internal/logging"
)

// LoggingConfig is the logging section of the config file.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives logs instead of stderr.
	File string `yaml:"file"`
}

// ToLoggingConfig converts the section for the logging package. An empty
// File means stderr.
func (lc *LoggingConfig) ToLoggingConfig() logging.Config {
	output := logging.OutputStderr
	if lc.File != "" {
		output = logging.OutputFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
	}
}
