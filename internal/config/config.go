// Package config provides the configuration schema and loader for the Aura
// voice assistant client.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a [time.Duration] that unmarshals from YAML strings such as
// "250ms" or "15s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String returns the standard duration formatting.
func (d Duration) String() string { return time.Duration(d).String() }

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Transport selects how audio chunks reach the recognition service.
type Transport string

const (
	// TransportHTTP uploads each chunk as a multipart POST.
	TransportHTTP Transport = "http"

	// TransportStream pushes chunks over a persistent WebSocket.
	TransportStream Transport = "stream"
)

// IsValid reports whether t is a recognised transport mode.
func (t Transport) IsValid() bool {
	return t == TransportHTTP || t == TransportStream
}

// Config is the root configuration structure for Aura.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Collaborators CollaboratorsConfig `yaml:"collaborators"`
	Account       AccountConfig       `yaml:"account"`
	Recording     RecordingConfig     `yaml:"recording"`

	// Payees lists the known recipient names used to normalise spoken
	// transfer targets.
	Payees []string `yaml:"payees"`
}

// ServerConfig holds settings for the local diagnostics endpoint
// (health checks and metrics).
type ServerConfig struct {
	// ListenAddr is the TCP address the diagnostics server listens on
	// (e.g., ":9090"). Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// Endpoint is the common configuration block shared by all collaborator
// services.
type Endpoint struct {
	// BaseURL is the root URL of the service (e.g., "http://localhost:8001").
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each request to the service. Zero means the client's
	// built-in default.
	Timeout Duration `yaml:"timeout"`
}

// CollaboratorsConfig declares where each backing service lives.
type CollaboratorsConfig struct {
	// Recognition is the speech-to-text service.
	Recognition Endpoint `yaml:"recognition"`

	// Transport selects how audio reaches the recognition service.
	// Default: http.
	Transport Transport `yaml:"transport"`

	// NLU is the intent parsing service.
	NLU Endpoint `yaml:"nlu"`

	// Rules is the automation rules engine.
	Rules Endpoint `yaml:"rules"`

	// Bank is the ledger service handling balances and transfers.
	Bank Endpoint `yaml:"bank"`

	// Speech is the text-to-speech service.
	Speech Endpoint `yaml:"speech"`

	// VoiceAPI is the voice gateway hosting the combined
	// parse-and-create-rule shortcut. Usually the same host as Recognition.
	VoiceAPI Endpoint `yaml:"voice_api"`
}

// AccountConfig identifies the demo account all operations run against.
type AccountConfig struct {
	// ID is the account identifier sent with transfer requests.
	ID string `yaml:"id"`

	// Currency is the ISO currency code (e.g., "INR").
	Currency string `yaml:"currency"`

	// Reference tags outgoing transfers (e.g., "voice-demo").
	Reference string `yaml:"reference"`
}

// RecordingConfig tunes the audio capture loop.
type RecordingConfig struct {
	// ChunkInterval is the pacing between audio chunks pulled from the
	// capture source. Zero means the source's native pacing.
	ChunkInterval Duration `yaml:"chunk_interval"`

	// WAVFile optionally replays a WAV file instead of capturing live audio.
	WAVFile string `yaml:"wav_file"`
}
