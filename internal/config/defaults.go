package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docblog/internal/foundation/normalization"
)

// Default values.
const (
	DefaultSourceDir   = "docs"
	DefaultOutputDir   = "_build"
	DefaultFormat      = "html"
	DefaultExtension   = "blog"
	DefaultStatePath   = ".docblog/environment.db"
	DefaultHTTPAddr    = ":8080"
	DefaultDebounce    = 500 * time.Millisecond
	DefaultNATSSubject = "docblog.builds"
	DefaultNATSTimeout = 5 * time.Second
	DefaultGitBranch   = "main"
	DefaultRetryMode   = RetryBackoffLinear
	DefaultRetryDelay  = time.Second
	DefaultRetryMax    = 30 * time.Second
	DefaultMaxRetries  = 2
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SourceDefaultApplier handles source defaults.
type SourceDefaultApplier struct{}

func (SourceDefaultApplier) Domain() string { return "source" }

func (SourceDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Source.Directory == "" {
		cfg.Source.Directory = DefaultSourceDir
	}
	if g := cfg.Source.Git; g != nil {
		if g.Branch == "" {
			g.Branch = DefaultGitBranch
		}
		if g.Auth != nil && g.Auth.Type == "" {
			g.Auth.Type = AuthTypeNone
		}
	}
	return nil
}

// OutputDefaultApplier handles output defaults.
type OutputDefaultApplier struct{}

func (OutputDefaultApplier) Domain() string { return "output" }

func (OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDir
	}
	if len(cfg.Output.Formats) == 0 {
		cfg.Output.Formats = []string{DefaultFormat}
	}
	for i, f := range cfg.Output.Formats {
		cfg.Output.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return nil
}

// BuildDefaultApplier handles build defaults.
type BuildDefaultApplier struct{}

func (BuildDefaultApplier) Domain() string { return "build" }

func (BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Parallel < 1 {
		cfg.Build.Parallel = 1
	}
	if cfg.Build.Extensions == nil {
		cfg.Build.Extensions = []string{DefaultExtension}
	}
	if cfg.Build.StatePath == "" {
		cfg.Build.StatePath = DefaultStatePath
	}
	return nil
}

// NotifyDefaultApplier handles notification defaults.
type NotifyDefaultApplier struct{}

func (NotifyDefaultApplier) Domain() string { return "notify" }

func (NotifyDefaultApplier) ApplyDefaults(cfg *Config) error {
	n := cfg.Notify.NATS
	if n == nil {
		return nil
	}
	if n.Subject == "" {
		n.Subject = DefaultNATSSubject
	}
	if n.Timeout <= 0 {
		n.Timeout = Duration(DefaultNATSTimeout)
	}
	return nil
}

// DaemonDefaultApplier handles daemon defaults.
type DaemonDefaultApplier struct{}

func (DaemonDefaultApplier) Domain() string { return "daemon" }

func (DaemonDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Daemon.HTTP.Addr == "" {
		cfg.Daemon.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.Daemon.Debounce <= 0 {
		cfg.Daemon.Debounce = Duration(DefaultDebounce)
	}
	return nil
}

var backoffModes = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"constant":    RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
})

// RetryDefaultApplier handles retry defaults; it also canonicalises the
// backoff name.
type RetryDefaultApplier struct{}

func (RetryDefaultApplier) Domain() string { return "retry" }

func (RetryDefaultApplier) ApplyDefaults(cfg *Config) error {
	r := &cfg.Retry
	if r.Backoff == "" {
		r.Backoff = DefaultRetryMode
	} else if mode, ok := backoffModes.Lookup(string(r.Backoff)); ok {
		r.Backoff = mode
	}
	if r.Initial <= 0 {
		r.Initial = Duration(DefaultRetryDelay)
	}
	if r.Max <= 0 {
		r.Max = Duration(DefaultRetryMax)
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultMaxRetries
	}
	return nil
}

// MiscDefaultApplier handles version, site and logging defaults.
type MiscDefaultApplier struct{}

func (MiscDefaultApplier) Domain() string { return "misc" }

func (MiscDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = "Documentation"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return nil
}

// defaultAppliers run in order.
var defaultAppliers = []DefaultApplier{
	MiscDefaultApplier{},
	SourceDefaultApplier{},
	OutputDefaultApplier{},
	BuildDefaultApplier{},
	NotifyDefaultApplier{},
	DaemonDefaultApplier{},
	RetryDefaultApplier{},
}

// ApplyDefaults fills every unset field.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// ResolvePaths makes relative directories absolute against base, the
// directory holding the configuration file.
func (c *Config) ResolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Source.Directory = resolve(c.Source.Directory)
	c.Output.Directory = resolve(c.Output.Directory)
	c.Build.StatePath = resolve(c.Build.StatePath)
}
