package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/assetmanifest/internal/manifest"
	"github.com/fluxbase-eu/assetmanifest/internal/observability"
)

// Config represents the application configuration
type Config struct {
	Build     BuildConfig                `mapstructure:"build"`
	Manifest  ManifestConfig             `mapstructure:"manifest"`
	Storage   StorageConfig              `mapstructure:"storage"`
	DevServer DevServerConfig            `mapstructure:"dev_server"`
	Tracing   observability.TracerConfig `mapstructure:"tracing"`
	Debug     bool                       `mapstructure:"debug"`
}

// StorageConfig selects where a persisted manifest is written
type StorageConfig struct {
	Provider   string `mapstructure:"provider"` // local or s3
	LocalPath  string `mapstructure:"local_path"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	S3Access   string `mapstructure:"s3_access_key"`
	S3Secret   string `mapstructure:"s3_secret_key"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Region   string `mapstructure:"s3_region"`
	S3UseSSL   bool   `mapstructure:"s3_use_ssl"`
	S3Prefix   string `mapstructure:"s3_prefix"`
}

// DevServerConfig contains settings for the watch mode HTTP server
type DevServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Load loads configuration from file and environment variables. An empty
// configFile searches for assetmanifest.yaml in the usual locations.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("assetmanifest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	// Enable environment variable support with underscore replacer
	v.AutomaticEnv()
	v.SetEnvPrefix("ASSETMANIFEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	// manifest.public_path has no default, so IsSet reports an explicit value
	if v.IsSet("manifest.public_path") {
		config.Manifest.SetPublicPath(v.GetString("manifest.public_path"))
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Build defaults
	v.SetDefault("build.entry_points", []string{})
	v.SetDefault("build.outdir", "dist")
	v.SetDefault("build.public_path", "")
	v.SetDefault("build.working_dir", "")
	v.SetDefault("build.bundle", true)
	v.SetDefault("build.minify", false)
	v.SetDefault("build.splitting", false)
	v.SetDefault("build.sourcemap", false)
	v.SetDefault("build.format", "esm")
	v.SetDefault("build.platform", "browser")
	v.SetDefault("build.entry_names", "[dir]/[name]-[hash]")
	v.SetDefault("build.chunk_names", "chunks/[name]-[hash]")
	v.SetDefault("build.asset_names", "assets/[name]-[hash]")
	v.SetDefault("build.loaders", map[string]string{})
	v.SetDefault("build.write", true)

	// Manifest defaults
	v.SetDefault("manifest.file_name", "manifest.json")
	v.SetDefault("manifest.base_path", "")
	v.SetDefault("manifest.asset_hook_stage", math.MaxInt32)
	v.SetDefault("manifest.remove_key_hash", "")
	v.SetDefault("manifest.disable_key_hash_removal", false)
	v.SetDefault("manifest.transform_extensions", "")
	v.SetDefault("manifest.use_entry_keys", false)
	v.SetDefault("manifest.use_legacy_emit", false)
	v.SetDefault("manifest.write_to_file_emit", true)
	v.SetDefault("manifest.merge", false)
	v.SetDefault("manifest.sort", SortNone)
	v.SetDefault("manifest.serializer", SerializerJSON)
	v.SetDefault("manifest.indent", "  ")
	v.SetDefault("manifest.entrypoints", false)
	v.SetDefault("manifest.filter.include", []string{})
	v.SetDefault("manifest.filter.exclude", []string{})
	v.SetDefault("manifest.filter.initial_only", false)
	v.SetDefault("manifest.seed_file", "")

	// Storage defaults
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_path", "")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_access_key", "")
	v.SetDefault("storage.s3_secret_key", "")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_use_ssl", true)
	v.SetDefault("storage.s3_prefix", "")

	// Dev server defaults
	v.SetDefault("dev_server.enabled", false)
	v.SetDefault("dev_server.address", "127.0.0.1:8088")

	// Tracing defaults
	tracing := observability.DefaultTracerConfig()
	v.SetDefault("tracing.enabled", tracing.Enabled)
	v.SetDefault("tracing.endpoint", tracing.Endpoint)
	v.SetDefault("tracing.service_name", tracing.ServiceName)
	v.SetDefault("tracing.environment", tracing.Environment)
	v.SetDefault("tracing.sample_rate", tracing.SampleRate)
	v.SetDefault("tracing.insecure", tracing.Insecure)

	v.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build configuration error: %w", err)
	}

	if err := c.Manifest.Validate(); err != nil {
		return fmt.Errorf("manifest configuration error: %w", err)
	}

	if c.Storage.Provider != "local" && c.Storage.Provider != "s3" {
		return fmt.Errorf("storage provider must be 'local' or 's3'")
	}

	if c.Storage.Provider == "s3" {
		if c.Storage.S3Endpoint == "" || c.Storage.S3Access == "" ||
			c.Storage.S3Secret == "" || c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 configuration is incomplete")
		}
	}

	if c.DevServer.Enabled && c.DevServer.Address == "" {
		return fmt.Errorf("dev_server address cannot be empty")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0 and 1, got: %v", c.Tracing.SampleRate)
	}

	return nil
}

// ManifestOptions returns the manifest options for this configuration. With
// manifest.entrypoints set, entry files are listed under the public path the
// manifest uses.
func (c *Config) ManifestOptions() (manifest.Options, error) {
	opts, err := c.Manifest.Options()
	if err != nil {
		return manifest.Options{}, err
	}
	if c.Manifest.Entrypoints {
		publicPath := c.Build.publicPath()
		if opts.PublicPath != nil {
			publicPath = *opts.PublicPath
		}
		opts.Generate = manifest.EntrypointGenerator{PublicPath: publicPath}
	}
	return opts, nil
}
