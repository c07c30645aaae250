package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths  PathsConfig  `mapstructure:"paths"`
	Ingest IngestConfig `mapstructure:"ingest"`
	Reader ReaderConfig `mapstructure:"reader"`
	Log    LogConfig    `mapstructure:"log"`
}

type PathsConfig struct {
	DB             string `mapstructure:"db"`
	CommonVocab    string `mapstructure:"common_vocab"`
	CommonVocabURL string `mapstructure:"common_vocab_url"`
}

type IngestConfig struct {
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
}

type ReaderConfig struct {
	// WordBoundaries restricts phrase matches to whole words.
	WordBoundaries bool `mapstructure:"word_boundaries"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			DB:          "qisas.db",
			CommonVocab: "vocab/common.json",
		},
		Ingest: IngestConfig{
			Workers:   4,
			BatchSize: 50,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-db", defaults.Paths.DB, "Path to SQLite database")
	fs.String("paths-common-vocab", defaults.Paths.CommonVocab, "Path to the common vocabulary file (json|yaml)")
	fs.String("paths-common-vocab-url", defaults.Paths.CommonVocabURL, "URL to download the common vocabulary from when the file is missing")
	fs.Int("ingest-workers", defaults.Ingest.Workers, "Concurrent tokenization workers")
	fs.Int("ingest-batch-size", defaults.Ingest.BatchSize, "Paragraphs committed per transaction")
	fs.Bool("reader-word-boundaries", defaults.Reader.WordBoundaries, "Only match phrases on whole words")
	fs.String("log-level", defaults.Log.Level, "Log level (debug|info|warn|error)")
	fs.String("log-format", defaults.Log.Format, "Log format (text|json)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("QISAS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("qisas")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := ParseLogLevel(cfg.Log.Level); err != nil {
		return Config{}, err
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}

	return cfg, nil
}

// ParseLogLevel converts a case-insensitive level name to a slog.Level. An
// empty string means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.db", c.Paths.DB)
	v.SetDefault("paths.common_vocab", c.Paths.CommonVocab)
	v.SetDefault("paths.common_vocab_url", c.Paths.CommonVocabURL)
	v.SetDefault("ingest.workers", c.Ingest.Workers)
	v.SetDefault("ingest.batch_size", c.Ingest.BatchSize)
	v.SetDefault("reader.word_boundaries", c.Reader.WordBoundaries)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
}

// flagKeys maps config keys to their flag names. Binding flags per key
// instead of aliasing keeps nested config file values visible.
var flagKeys = map[string]string{
	"paths.db":               "paths-db",
	"paths.common_vocab":     "paths-common-vocab",
	"paths.common_vocab_url": "paths-common-vocab-url",
	"ingest.workers":         "ingest-workers",
	"ingest.batch_size":      "ingest-batch-size",
	"reader.word_boundaries": "reader-word-boundaries",
	"log.level":              "log-level",
	"log.format":             "log-format",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
