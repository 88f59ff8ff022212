package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/polyvox/polyvox/pkg/provider/asr"
	asrmock "github.com/polyvox/polyvox/pkg/provider/asr/mock"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
audio:
  device: default
  sample_rate: 16000
  min_window_seconds: 10
  max_window_seconds: 30
pipeline:
  source_language: english
  target_languages: [spanish, korean]
  window_interval_seconds: 2
  recognition_queue: 5
  translation_queue: 10
  gap_threshold_seconds: 3.0
  similarity_threshold: 0.7
providers:
  asr:
    name: whisper
    model: /models/ggml-base.bin
  mt:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
glossary:
  terms: [Istanbul, Ankara]
  phonetic_threshold: 0.7
  fuzzy_threshold: 0.85
`

func TestLoadFromReaderValid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Fatalf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("sample_rate = %d", cfg.Audio.SampleRate)
	}
	if len(cfg.Pipeline.TargetLanguages) != 2 {
		t.Fatalf("target_languages = %v", cfg.Pipeline.TargetLanguages)
	}
	if cfg.Providers.ASR.Model != "/models/ggml-base.bin" {
		t.Fatalf("asr model = %q", cfg.Providers.ASR.Model)
	}
	if len(cfg.Glossary.Terms) != 2 {
		t.Fatalf("glossary terms = %v", cfg.Glossary.Terms)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("bogus_field: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantSub: "log_level",
		},
		{
			name:    "similarity out of range",
			mutate:  func(c *Config) { c.Pipeline.SimilarityThreshold = 1.5 },
			wantSub: "similarity_threshold",
		},
		{
			name:    "min window above max",
			mutate:  func(c *Config) { c.Audio.MinWindowSeconds = 60 },
			wantSub: "min_window_seconds",
		},
		{
			name:    "missing asr provider",
			mutate:  func(c *Config) { c.Providers.ASR.Name = "" },
			wantSub: "providers.asr.name",
		},
		{
			name: "targets without translator",
			mutate: func(c *Config) {
				c.Providers.MT.Name = ""
			},
			wantSub: "providers.mt",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := LoadFromReader(strings.NewReader(validYAML))
			if err != nil {
				t.Fatalf("fixture config invalid: %v", err)
			}
			tc.mutate(cfg)
			err = Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterASR("mock", func(entry ProviderEntry) (asr.Recognizer, error) {
		return &asrmock.Recognizer{Model: entry.Model}, nil
	})

	rec, err := r.CreateASR(ProviderEntry{Name: "mock", Model: "tiny"})
	if err != nil {
		t.Fatalf("CreateASR: %v", err)
	}
	if rec.ModelInfo() != "tiny" {
		t.Fatalf("ModelInfo = %q", rec.ModelInfo())
	}

	if _, err := r.CreateASR(ProviderEntry{Name: "missing"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateMT(ProviderEntry{Name: "missing"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateAudio(ProviderEntry{Name: "missing"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}
