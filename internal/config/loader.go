package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Collaborators.Transport != "" && !cfg.Collaborators.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("collaborators.transport %q is invalid; valid values: http, stream", cfg.Collaborators.Transport))
	}

	errs = appendEndpointErrs(errs, "collaborators.recognition", cfg.Collaborators.Recognition, true)
	errs = appendEndpointErrs(errs, "collaborators.nlu", cfg.Collaborators.NLU, true)
	errs = appendEndpointErrs(errs, "collaborators.rules", cfg.Collaborators.Rules, true)
	errs = appendEndpointErrs(errs, "collaborators.bank", cfg.Collaborators.Bank, true)
	errs = appendEndpointErrs(errs, "collaborators.speech", cfg.Collaborators.Speech, false)
	errs = appendEndpointErrs(errs, "collaborators.voice_api", cfg.Collaborators.VoiceAPI, false)

	if cfg.Account.ID == "" {
		errs = append(errs, errors.New("account.id must be set"))
	}
	if cfg.Account.Currency == "" {
		errs = append(errs, errors.New("account.currency must be set"))
	}

	if cfg.Recording.ChunkInterval < 0 {
		errs = append(errs, fmt.Errorf("recording.chunk_interval must not be negative, got %v", cfg.Recording.ChunkInterval))
	}

	if cfg.Collaborators.VoiceAPI.BaseURL == "" {
		slog.Warn("collaborators.voice_api is not configured; the combined parse-and-create-rule shortcut is disabled")
	}
	if len(cfg.Payees) == 0 {
		slog.Warn("no payees configured; spoken recipient names will be used verbatim")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// appendEndpointErrs validates a single collaborator endpoint. Required
// endpoints must carry a well-formed absolute base URL; optional ones are
// checked only when set.
func appendEndpointErrs(errs []error, name string, ep Endpoint, required bool) []error {
	if ep.BaseURL == "" {
		if required {
			errs = append(errs, fmt.Errorf("%s.base_url must be set", name))
		}
		return errs
	}
	u, err := url.Parse(ep.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s.base_url %q is not an absolute URL", name, ep.BaseURL))
	}
	if ep.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must not be negative, got %v", name, ep.Timeout))
	}
	return errs
}

// SlogLevel converts a [LogLevel] to the corresponding [slog.Level].
// Unknown values map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
