package config

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/render"
)

// Validate checks a configuration after defaults were applied.
func Validate(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	return v.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	for _, fn := range []func() error{
		cv.validateVersion,
		cv.validatePaths,
		cv.validateFormats,
		cv.validateBuild,
		cv.validateGit,
		cv.validateNotify,
		cv.validateRetry,
		cv.validateLogging,
	} {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateVersion() error {
	major, _, _ := strings.Cut(cv.config.Version, ".")
	if major != "1" {
		return invalid("version", cv.config.Version, "unsupported configuration version")
	}
	return nil
}

func (cv *configurationValidator) validatePaths() error {
	src := filepath.Clean(cv.config.Source.Directory)
	out := filepath.Clean(cv.config.Output.Directory)
	if src == out {
		return invalid("output.directory", cv.config.Output.Directory, "output directory must differ from the source directory")
	}
	for _, e := range cv.config.Source.Exclude {
		if filepath.IsAbs(e) || strings.HasPrefix(filepath.Clean(e), "..") {
			return invalid("source.exclude", e, "excluded directories must be relative to the source directory")
		}
	}
	return nil
}

func (cv *configurationValidator) validateFormats() error {
	seen := make(map[render.Format]struct{}, len(cv.config.Output.Formats))
	for _, f := range cv.config.Output.Formats {
		format, err := render.ParseFormat(f)
		if err != nil {
			return invalid("output.formats", f, "unsupported output format")
		}
		if _, dup := seen[format]; dup {
			return invalid("output.formats", f, "duplicate output format")
		}
		seen[format] = struct{}{}
	}
	return nil
}

func (cv *configurationValidator) validateBuild() error {
	if cv.config.Build.Parallel > 64 {
		return invalid("build.parallel", cv.config.Build.Parallel, "at most 64 workers are supported")
	}
	for _, ext := range cv.config.Build.Extensions {
		if strings.TrimSpace(ext) == "" {
			return invalid("build.extensions", ext, "extension names must not be empty")
		}
	}
	return nil
}

func (cv *configurationValidator) validateGit() error {
	g := cv.config.Source.Git
	if g == nil {
		return nil
	}
	if g.URL == "" {
		return invalid("source.git.url", "", "a repository URL is required")
	}
	if g.Depth < 0 {
		return invalid("source.git.depth", g.Depth, "depth must not be negative")
	}
	if g.Auth == nil {
		return nil
	}
	switch g.Auth.Type {
	case AuthTypeNone:
	case AuthTypeToken:
		if g.Auth.Token == "" {
			return invalid("source.git.auth.token", "", "token authentication needs a token")
		}
	case AuthTypeBasic:
		if g.Auth.Username == "" || g.Auth.Password == "" {
			return invalid("source.git.auth", string(g.Auth.Type), "basic authentication needs a username and a password")
		}
	case AuthTypeSSH:
		if g.Auth.KeyPath == "" {
			return invalid("source.git.auth.key_path", "", "ssh authentication needs a key path")
		}
	default:
		return invalid("source.git.auth.type", string(g.Auth.Type), "unsupported authentication type")
	}
	return nil
}

func (cv *configurationValidator) validateNotify() error {
	n := cv.config.Notify.NATS
	if n == nil {
		return nil
	}
	if n.URL == "" {
		return invalid("notify.nats.url", "", "a NATS server URL is required")
	}
	if strings.ContainsAny(n.Subject, " \t*>") {
		return invalid("notify.nats.subject", n.Subject, "subject must be a literal subject without wildcards")
	}
	return nil
}

func (cv *configurationValidator) validateRetry() error {
	switch cv.config.Retry.Backoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return invalid("retry.backoff", string(cv.config.Retry.Backoff), "backoff must be fixed, linear or exponential")
	}
	if cv.config.Retry.MaxRetries > 10 {
		return invalid("retry.max_retries", cv.config.Retry.MaxRetries, "at most 10 retries are allowed")
	}
	return nil
}

func (cv *configurationValidator) validateLogging() error {
	switch cv.config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", cv.config.Logging.Level, "unknown log level")
	}
	switch cv.config.Logging.Format {
	case "text", "json":
	default:
		return invalid("logging.format", cv.config.Logging.Format, "unknown log format")
	}
	return nil
}

func invalid(field string, value any, message string) error {
	return errors.ConfigError(message).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
