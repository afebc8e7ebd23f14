// Package config assembles the settings of a pakfetch run from defaults,
// a YAML file, .env files, the environment and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, as in PAKFETCH_DEST_DIR.
const EnvPrefix = "PAKFETCH"

// Config holds every setting of a run.
type Config struct {
	Manifest       string        `yaml:"manifest" envconfig:"MANIFEST" validate:"required"`
	Variant        string        `yaml:"variant" envconfig:"VARIANT" validate:"oneof=auto files patches"`
	BaseURL        string        `yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	DestDir        string        `yaml:"dest_dir" envconfig:"DEST_DIR"`
	Concurrency    int           `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"gte=0,lte=1024"`
	PollInterval   time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL" validate:"gt=0"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout" envconfig:"ATTEMPT_TIMEOUT" validate:"gte=0"`
	Hash           string        `yaml:"hash" envconfig:"HASH" validate:"oneof=md5 sha1 sha256"`
	UserAgent      string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	Progress       string        `yaml:"progress" envconfig:"PROGRESS" validate:"oneof=auto tty log none"`
	Pause          string        `yaml:"pause" envconfig:"PAUSE" validate:"oneof=auto always never"`
	Listen         string        `yaml:"listen" envconfig:"LISTEN" validate:"omitempty,hostname_port"`
	LogLevel       string        `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat      string        `yaml:"log_format" envconfig:"LOG_FORMAT" validate:"oneof=text json"`
	LogFile        string        `yaml:"log_file" envconfig:"LOG_FILE"`
}

// Default returns the settings used when nothing else is configured.
// A Concurrency of 0 means one transfer per CPU.
func Default() Config {
	return Config{
		Manifest:     "VersionFiles.json",
		Variant:      "auto",
		Concurrency:  0,
		PollInterval: 20 * time.Millisecond,
		Hash:         "md5",
		UserAgent:    "pakfetch/1.0",
		Progress:     "auto",
		Pause:        "auto",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// RegisterFlags binds a flag for every setting to c, using the current
// values of c as flag defaults.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Manifest, "manifest", "m", c.Manifest, "manifest file (.json, .yaml or .yml)")
	fs.StringVar(&c.Variant, "variant", c.Variant, "manifest variant: auto, files or patches")
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "base URL for patch entries without a url")
	fs.StringVarP(&c.DestDir, "dest-dir", "d", c.DestDir, "directory relative entry paths are resolved against")
	fs.IntVarP(&c.Concurrency, "concurrency", "c", c.Concurrency, "maximum concurrent transfers, 0 for one per CPU")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "how often a waiting entry checks for a free slot")
	fs.DurationVar(&c.AttemptTimeout, "attempt-timeout", c.AttemptTimeout, "bound on a single download attempt, 0 for none")
	fs.StringVar(&c.Hash, "hash", c.Hash, "digest entries are checked with: md5, sha1 or sha256")
	fs.StringVar(&c.UserAgent, "user-agent", c.UserAgent, "User-Agent header sent with every request")
	fs.StringVar(&c.Progress, "progress", c.Progress, "progress display: auto, tty, log or none")
	fs.StringVar(&c.Pause, "pause", c.Pause, "wait for a key before exiting: auto, always or never")
	fs.StringVar(&c.Listen, "listen", c.Listen, "address of the status server, empty to disable")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "write logs to this file instead of the terminal")
}

// Sources names where Load reads settings from.
type Sources struct {
	// File is a YAML config file. Empty skips it; a named file must exist.
	File string
	// EnvFiles are .env files. Missing ones are skipped.
	EnvFiles []string
	// Flags holds flags registered with RegisterFlags on the same Config.
	// Only flags set on the command line take part.
	Flags *pflag.FlagSet
}

// Load layers src over the current values of c, then validates the
// result. A validation failure is returned as FieldErrors.
func (c *Config) Load(src Sources) error {
	changed := make(map[string]string)
	if src.Flags != nil {
		src.Flags.Visit(func(f *pflag.Flag) {
			changed[f.Name] = f.Value.String()
		})
	}

	if src.File != "" {
		if err := c.loadFile(src.File); err != nil {
			return err
		}
	}

	if err := loadEnvFiles(src.EnvFiles); err != nil {
		return err
	}

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("processing environment: %w", err)
	}

	for name, value := range changed {
		if err := src.Flags.Set(name, value); err != nil {
			return fmt.Errorf("reapplying flag %s: %w", name, err)
		}
	}

	return Validate(c)
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse yaml %s: %w", path, err)
	}
	return nil
}

// loadEnvFiles exports the variables of every existing file. Variables
// already present in the environment win.
func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", f, err)
		}
		existing = append(existing, f)
	}

	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// Level maps LogLevel onto a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger writing to w in LogFormat at
// LogLevel.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: c.Level(),
	}

	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("app", "pakfetch")
}
