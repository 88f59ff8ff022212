package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"asr":   {"whisper"},
	"mt":    {"openai"},
	"audio": {"device", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
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

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.MinWindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("audio.min_window_seconds %.1f must be positive", cfg.Audio.MinWindowSeconds))
	}
	if cfg.Audio.MaxWindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("audio.max_window_seconds %.1f must be positive", cfg.Audio.MaxWindowSeconds))
	}
	if cfg.Audio.MinWindowSeconds > 0 && cfg.Audio.MaxWindowSeconds > 0 &&
		cfg.Audio.MinWindowSeconds > cfg.Audio.MaxWindowSeconds {
		errs = append(errs, fmt.Errorf("audio.min_window_seconds %.1f exceeds audio.max_window_seconds %.1f",
			cfg.Audio.MinWindowSeconds, cfg.Audio.MaxWindowSeconds))
	}

	// Pipeline
	if cfg.Pipeline.SimilarityThreshold < 0 || cfg.Pipeline.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("pipeline.similarity_threshold %.2f is out of range [0, 1]", cfg.Pipeline.SimilarityThreshold))
	}
	if cfg.Pipeline.GapThresholdSeconds < 0 {
		errs = append(errs, fmt.Errorf("pipeline.gap_threshold_seconds %.1f must be positive", cfg.Pipeline.GapThresholdSeconds))
	}
	if cfg.Pipeline.RecognitionQueue < 0 {
		errs = append(errs, fmt.Errorf("pipeline.recognition_queue %d must be positive", cfg.Pipeline.RecognitionQueue))
	}
	if cfg.Pipeline.TranslationQueue < 0 {
		errs = append(errs, fmt.Errorf("pipeline.translation_queue %d must be positive", cfg.Pipeline.TranslationQueue))
	}

	// Providers
	validateProviderName("asr", cfg.Providers.ASR.Name)
	validateProviderName("mt", cfg.Providers.MT.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)

	if cfg.Providers.ASR.Name == "" {
		errs = append(errs, errors.New("providers.asr.name is required"))
	}
	if len(cfg.Pipeline.TargetLanguages) > 0 && cfg.Providers.MT.Name == "" {
		errs = append(errs, errors.New("pipeline.target_languages is set but providers.mt is not configured"))
	}

	// Glossary
	if cfg.Glossary.PhoneticThreshold < 0 || cfg.Glossary.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("glossary.phonetic_threshold %.2f is out of range [0, 1]", cfg.Glossary.PhoneticThreshold))
	}
	if cfg.Glossary.FuzzyThreshold < 0 || cfg.Glossary.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("glossary.fuzzy_threshold %.2f is out of range [0, 1]", cfg.Glossary.FuzzyThreshold))
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Debug("storage.postgres_dsn is empty; transcript archiving disabled")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
