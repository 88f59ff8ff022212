// Package config provides the configuration schema, loader, and provider
// registry for the Polyvox translation pipeline.
package config

// LogLevel controls log verbosity for the Polyvox server.
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

// Config is the root configuration structure for Polyvox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Providers ProvidersConfig `yaml:"providers"`
	Glossary  GlossaryConfig  `yaml:"glossary"`
	Storage   StorageConfig   `yaml:"storage"`
	Breaker   BreakerConfig   `yaml:"breaker"`
}

// ServerConfig holds network and logging settings for the gateway server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig describes the capture device and the rolling buffer bounds.
type AudioConfig struct {
	// Device is the capture device descriptor passed to the audio source.
	// Empty selects the source's default device.
	Device string `yaml:"device"`

	// SampleRate is the capture sample rate in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// MinWindowSeconds is the minimum accumulated audio before a window is
	// submitted for recognition. Default: 10.
	MinWindowSeconds float64 `yaml:"min_window_seconds"`

	// MaxWindowSeconds caps the rolling buffer; older audio is evicted
	// beyond it. Default: 30.
	MaxWindowSeconds float64 `yaml:"max_window_seconds"`
}

// PipelineConfig tunes the orchestration stages.
type PipelineConfig struct {
	// SourceLanguage is the fallback language when the recognition engine
	// does not detect one.
	SourceLanguage string `yaml:"source_language"`

	// TargetLanguages lists translation targets, in fan-out order. Empty
	// disables the translation stage.
	TargetLanguages []string `yaml:"target_languages"`

	// WindowIntervalSeconds is how often the rolling buffer is polled for a
	// ready window. Default: 2.
	WindowIntervalSeconds float64 `yaml:"window_interval_seconds"`

	// RecognitionQueue bounds windows waiting for the recognition worker.
	// Default: 5.
	RecognitionQueue int `yaml:"recognition_queue"`

	// TranslationQueue bounds transcripts waiting for the translation
	// worker. Default: 10.
	TranslationQueue int `yaml:"translation_queue"`

	// GapThresholdSeconds is the reconciler's wall-clock gap beyond which
	// transcripts are always unrelated. Default: 3.0.
	GapThresholdSeconds float64 `yaml:"gap_threshold_seconds"`

	// SimilarityThreshold is the reconciler's word-set overlap above which
	// close transcripts are the same utterance. Default: 0.7.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// ProvidersConfig declares which provider implementation to use for each
// external collaborator. Each field selects a named provider registered in
// the [Registry].
type ProvidersConfig struct {
	ASR   ProviderEntry `yaml:"asr"`
	MT    ProviderEntry `yaml:"mt"`
	Audio ProviderEntry `yaml:"audio"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper",
	// "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., a whisper
	// ggml file path or "gpt-4o-mini").
	Model string `yaml:"model"`

	// Language pins the provider to a fixed language where supported.
	Language string `yaml:"language"`
}

// GlossaryConfig configures the phonetic glossary corrector applied to
// finalized transcripts. An empty term list disables correction.
type GlossaryConfig struct {
	// Terms are the canonical spellings to align transcripts against.
	Terms []string `yaml:"terms"`

	// PhoneticThreshold is the minimum similarity for phonetically matched
	// terms. Default: 0.70.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// FuzzyThreshold is the minimum similarity for non-phonetic fallback
	// matches. Default: 0.85.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// StorageConfig configures the optional transcript archive.
type StorageConfig struct {
	// PostgresDSN is the connection string for the archive database. Empty
	// disables archiving.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BreakerConfig tunes the circuit breaker guarding the translation engine.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that opens the breaker.
	// Default: 5.
	MaxFailures int `yaml:"max_failures"`

	// CooldownSeconds is how long the breaker stays open. Default: 30.
	CooldownSeconds float64 `yaml:"cooldown_seconds"`
}
