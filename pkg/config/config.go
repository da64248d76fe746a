// Package config defines the checkpoint engine's configuration surface
// (§6 "Configuration") and a viper-backed loader used by the CLI. The
// engine itself depends only on the plain Config struct; viper is wired
// in here so embedders who already have their own config story are free
// to populate Config however they like.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// appName names the default base path and default author, per spec.md
// §6 "<home>/<app>/checkpoints" and "<app>-user".
const appName = "snapstore"

// DefaultIgnorePatterns excludes common build/cache/VCS directories, per
// spec.md §6.
var DefaultIgnorePatterns = []string{
	"node_modules/**", ".git/**", ".DS_Store", "*.log", "tmp/**",
	"temp/**", "dist/**", "build/**", ".next/**", ".nuxt/**",
	"coverage/**", ".nyc_output/**", ".cache/**", "*.tmp",
}

// DefaultMaxFileSize is 100 MiB, per spec.md §6.
const DefaultMaxFileSize = 100 << 20

// DefaultCompressionLevel is gzip level 6, per spec.md §6.
const DefaultCompressionLevel = 6

// Config is the plain, viper-free configuration the engine accepts.
type Config struct {
	BasePath         string   `mapstructure:"base_path"`
	IgnorePatterns   []string `mapstructure:"ignore_patterns"`
	MaxFileSize      int64    `mapstructure:"max_file_size"`
	Author           string   `mapstructure:"author"`
	CompressionLevel int      `mapstructure:"compression_level"`
}

// Default returns the configuration described in spec.md §6, with
// base_path resolved against the user's home directory.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		BasePath:         filepath.Join(home, "."+appName, "checkpoints"),
		IgnorePatterns:   append([]string(nil), DefaultIgnorePatterns...),
		MaxFileSize:      DefaultMaxFileSize,
		Author:           appName + "-user",
		CompressionLevel: DefaultCompressionLevel,
	}
}

// Load reads configuration from (in ascending priority) built-in
// defaults, a config file named configPath (if non-empty) or discovered
// as "checkpoint.yaml"/"checkpoint.json" in the working directory and
// "$HOME/.snapstore", and environment variables prefixed SNAPSTORE_
// (e.g. SNAPSTORE_MAX_FILE_SIZE).
func Load(configPath string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("base_path", def.BasePath)
	v.SetDefault("ignore_patterns", def.IgnorePatterns)
	v.SetDefault("max_file_size", def.MaxFileSize)
	v.SetDefault("author", def.Author)
	v.SetDefault("compression_level", def.CompressionLevel)

	v.SetEnvPrefix("SNAPSTORE")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("checkpoint")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+appName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
		// No config file found and none explicitly requested: defaults
		// plus environment variables still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
