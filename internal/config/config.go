// Package config loads the docblog configuration file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// CurrentVersion is the configuration format version written by Init.
const CurrentVersion = "1.0"

// Config represents the application configuration.
type Config struct {
	Version string        `yaml:"version"`
	Site    SiteConfig    `yaml:"site"`
	Source  SourceConfig  `yaml:"source"`
	Output  OutputConfig  `yaml:"output"`
	Build   BuildConfig   `yaml:"build"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
	Daemon  DaemonConfig  `yaml:"daemon,omitempty"`
	Retry   RetryConfig   `yaml:"retry,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// SiteConfig describes the published site. BaseURL is used for absolute
// links in the feed.
type SiteConfig struct {
	Title       string `yaml:"title"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Description string `yaml:"description,omitempty"`
	// Feed enables feed.xml in html builds.
	Feed *bool `yaml:"feed,omitempty"`
}

// FeedEnabled reports whether html builds write a feed.
func (s SiteConfig) FeedEnabled() bool {
	return s.Feed == nil || *s.Feed
}

// SourceConfig locates the documents.
type SourceConfig struct {
	Directory string `yaml:"directory"`
	// Exclude lists directories below Directory that are not scanned.
	Exclude []string   `yaml:"exclude,omitempty"`
	Git     *GitConfig `yaml:"git,omitempty"`
}

// GitConfig makes the source directory a checkout of a remote repository.
type GitConfig struct {
	URL    string      `yaml:"url"`
	Branch string      `yaml:"branch,omitempty"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
	// Depth limits the clone depth; 0 clones the full history.
	Depth int `yaml:"depth,omitempty"`
}

// AuthConfig holds repository credentials.
type AuthConfig struct {
	Type     AuthType `yaml:"type"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Token    string   `yaml:"token,omitempty"`
	KeyPath  string   `yaml:"key_path,omitempty"`
}

// AuthType selects the git authentication method.
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeBasic AuthType = "basic"
	AuthTypeSSH   AuthType = "ssh"
)

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	// Formats lists the writers to run, each into its own subdirectory
	// when more than one is given.
	Formats []string `yaml:"formats"`
	// Clean empties the output and ignores the saved environment.
	Clean bool `yaml:"clean"`
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	Parallel   int      `yaml:"parallel"`
	KeepGoing  bool     `yaml:"keep_going"`
	Extensions []string `yaml:"extensions"`
	// StatePath names the SQLite files holding the environment between
	// builds; the format is appended to the base name ("environment-html.db").
	// Empty disables incremental builds.
	StatePath string `yaml:"state_path"`
	// LinkCheck reports broken fragment links after html builds.
	LinkCheck bool `yaml:"link_check"`
}

// NotifyConfig configures build notifications.
type NotifyConfig struct {
	NATS *NATSConfig `yaml:"nats,omitempty"`
}

// NATSConfig publishes a summary of every build.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	// Timeout bounds connect and flush.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// DaemonConfig configures the daemon and watch commands.
type DaemonConfig struct {
	HTTP HTTPConfig `yaml:"http"`
	// Schedule is a cron expression for periodic rebuilds.
	Schedule string `yaml:"schedule,omitempty"`
	// Debounce delays a rebuild after file changes.
	Debounce Duration `yaml:"debounce,omitempty"`
}

// HTTPConfig configures the daemon HTTP server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// RetryBackoffMode selects how the delay grows between retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// RetryConfig controls retries of source syncs and notifications.
type RetryConfig struct {
	Backoff RetryBackoffMode `yaml:"backoff,omitempty"`
	Initial Duration         `yaml:"initial,omitempty"`
	Max     Duration         `yaml:"max,omitempty"`
	// MaxRetries counts retries after the first attempt. Zero applies the
	// default; a negative value disables retries.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// LoggingConfig configures the default logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("2s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid duration").
			WithContext("value", s).
			WithContext("line", value.Line).
			Build()
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	if d == 0 {
		return "", nil
	}
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load loads configuration from the specified file. Variables from .env
// files are loaded first and ${VAR} references in the file are expanded.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				WithContext("hint", "run 'docblog init' to create one").
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read configuration file").
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid configuration file").Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = ApplyDefaults(cfg)
	return cfg
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists").
			WithContext("path", configPath).
			WithContext("hint", "use --force to overwrite").
			Build()
	}

	example := Default()
	example.Site = SiteConfig{
		Title:       "My Blog",
		BaseURL:     "https://example.com/",
		Description: "Notes and release announcements",
	}

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write configuration file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
