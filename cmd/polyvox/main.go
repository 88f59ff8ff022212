// Command polyvox is the main entry point for the Polyvox live translation
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/polyvox/polyvox/internal/config"
	"github.com/polyvox/polyvox/internal/event"
	"github.com/polyvox/polyvox/internal/gateway"
	"github.com/polyvox/polyvox/internal/health"
	"github.com/polyvox/polyvox/internal/observe"
	"github.com/polyvox/polyvox/internal/pipeline"
	"github.com/polyvox/polyvox/internal/resilience"
	"github.com/polyvox/polyvox/internal/store"
	"github.com/polyvox/polyvox/internal/store/postgres"
	"github.com/polyvox/polyvox/internal/transcript"
	"github.com/polyvox/polyvox/internal/transcript/phonetic"
	"github.com/polyvox/polyvox/pkg/audio"
	"github.com/polyvox/polyvox/pkg/audio/device"
	audiomock "github.com/polyvox/polyvox/pkg/audio/mock"
	"github.com/polyvox/polyvox/pkg/provider/asr"
	"github.com/polyvox/polyvox/pkg/provider/asr/whisper"
	"github.com/polyvox/polyvox/pkg/provider/mt"
	mtopenai "github.com/polyvox/polyvox/pkg/provider/mt/openai"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	sourceLang := flag.String("source", "", "override the source language from config")
	targets := flag.String("targets", "", "comma-separated target languages, overrides config")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "polyvox: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "polyvox: %v\n", err)
		}
		return 1
	}
	if *sourceLang != "" {
		cfg.Pipeline.SourceLanguage = *sourceLang
	}
	if *targets != "" {
		cfg.Pipeline.TargetLanguages = splitTargets(*targets)
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("polyvox starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "polyvox",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	recognizer, translator, source, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Event broadcaster ─────────────────────────────────────────────────────
	events := event.NewBroadcaster(event.WithLogger(logger))
	defer events.Close()

	// ── Transcript archive (optional) ─────────────────────────────────────────
	var archive store.Archive
	var checkers []health.Checker
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		arch, err := postgres.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to archive database", "err", err)
			return 1
		}
		defer arch.Close()
		archive = arch
		events.Subscribe(store.NewSubscriber(arch, logger))
		checkers = append(checkers, health.Checker{Name: "archive", Check: arch.Ping})
		slog.Info("transcript archive enabled")
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	coord, err := pipeline.New(source, recognizer, translator, events, pipelineOptions(cfg, logger)...)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}
	defer func() {
		if err := coord.Close(); err != nil {
			slog.Warn("pipeline close error", "err", err)
		}
	}()

	printStartupSummary(cfg)

	// ── Gateway ───────────────────────────────────────────────────────────────
	gwOpts := []gateway.Option{gateway.WithLogger(logger)}
	if archive != nil {
		gwOpts = append(gwOpts, gateway.WithArchive(archive))
	}
	for _, c := range checkers {
		gwOpts = append(gwOpts, gateway.WithReadinessCheck(c))
	}
	srv := gateway.New(cfg.Server.ListenAddr, coord, events, gwOpts...)

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("gateway error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	if err := coord.Stop(); err != nil {
		slog.Error("pipeline shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the provider factories that ship with
// Polyvox into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterASR("whisper", func(entry config.ProviderEntry) (asr.Recognizer, error) {
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.Model, opts...)
	})

	reg.RegisterMT("openai", func(entry config.ProviderEntry) (mt.Translator, error) {
		var opts []mtopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, mtopenai.WithBaseURL(entry.BaseURL))
		}
		return mtopenai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterAudio("device", func(config.ProviderEntry) (audio.Source, error) {
		return &device.Source{}, nil
	})

	reg.RegisterAudio("mock", func(config.ProviderEntry) (audio.Source, error) {
		return &audiomock.Source{}, nil
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates the recognizer, translator, and audio source
// named in cfg. The translator is nil when no MT provider is configured.
func buildProviders(cfg *config.Config, reg *config.Registry) (asr.Recognizer, mt.Translator, audio.Source, error) {
	recognizer, err := reg.CreateASR(cfg.Providers.ASR)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create asr provider %q: %w", cfg.Providers.ASR.Name, err)
	}
	slog.Info("provider created", "kind", "asr", "name", cfg.Providers.ASR.Name)

	var translator mt.Translator
	if name := cfg.Providers.MT.Name; name != "" {
		translator, err = reg.CreateMT(cfg.Providers.MT)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create mt provider %q: %w", name, err)
		}
		slog.Info("provider created", "kind", "mt", "name", name)
	}

	audioEntry := cfg.Providers.Audio
	if audioEntry.Name == "" {
		audioEntry.Name = "device"
	}
	source, err := reg.CreateAudio(audioEntry)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create audio provider %q: %w", audioEntry.Name, err)
	}
	slog.Info("provider created", "kind", "audio", "name", audioEntry.Name)

	return recognizer, translator, source, nil
}

// pipelineOptions maps the configuration onto pipeline functional options,
// leaving package defaults in place for unset values.
func pipelineOptions(cfg *config.Config, logger *slog.Logger) []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithDevice(cfg.Audio.Device),
		pipeline.WithSourceLanguage(cfg.Pipeline.SourceLanguage),
		pipeline.WithTargetLanguages(cfg.Pipeline.TargetLanguages),
	}

	if cfg.Audio.SampleRate > 0 {
		opts = append(opts, pipeline.WithSampleRate(cfg.Audio.SampleRate))
	}

	var bufOpts []audio.BufferOption
	if cfg.Audio.MinWindowSeconds > 0 {
		bufOpts = append(bufOpts, audio.WithMinWindow(secondsToDuration(cfg.Audio.MinWindowSeconds)))
	}
	if cfg.Audio.MaxWindowSeconds > 0 {
		bufOpts = append(bufOpts, audio.WithMaxWindow(secondsToDuration(cfg.Audio.MaxWindowSeconds)))
	}
	if len(bufOpts) > 0 {
		opts = append(opts, pipeline.WithBufferOptions(bufOpts...))
	}

	if cfg.Pipeline.WindowIntervalSeconds > 0 {
		opts = append(opts, pipeline.WithWindowInterval(secondsToDuration(cfg.Pipeline.WindowIntervalSeconds)))
	}
	if cfg.Pipeline.RecognitionQueue > 0 {
		opts = append(opts, pipeline.WithRecognitionQueueCap(cfg.Pipeline.RecognitionQueue))
	}
	if cfg.Pipeline.TranslationQueue > 0 {
		opts = append(opts, pipeline.WithTranslationQueueCap(cfg.Pipeline.TranslationQueue))
	}

	var recOpts []pipeline.ReconcilerOption
	if cfg.Pipeline.GapThresholdSeconds > 0 {
		recOpts = append(recOpts, pipeline.WithGapThreshold(secondsToDuration(cfg.Pipeline.GapThresholdSeconds)))
	}
	if cfg.Pipeline.SimilarityThreshold > 0 {
		recOpts = append(recOpts, pipeline.WithSimilarityThreshold(cfg.Pipeline.SimilarityThreshold))
	}
	if len(recOpts) > 0 {
		opts = append(opts, pipeline.WithReconcilerOptions(recOpts...))
	}

	if len(cfg.Glossary.Terms) > 0 {
		var matchOpts []phonetic.Option
		if cfg.Glossary.PhoneticThreshold > 0 {
			matchOpts = append(matchOpts, phonetic.WithPhoneticThreshold(cfg.Glossary.PhoneticThreshold))
		}
		if cfg.Glossary.FuzzyThreshold > 0 {
			matchOpts = append(matchOpts, phonetic.WithFuzzyThreshold(cfg.Glossary.FuzzyThreshold))
		}
		corr := transcript.NewCorrector(phonetic.New(matchOpts...), cfg.Glossary.Terms)
		opts = append(opts, pipeline.WithCorrector(corr))
	}

	var brOpts []resilience.Option
	if cfg.Breaker.MaxFailures > 0 {
		brOpts = append(brOpts, resilience.WithMaxFailures(cfg.Breaker.MaxFailures))
	}
	if cfg.Breaker.CooldownSeconds > 0 {
		brOpts = append(brOpts, resilience.WithCooldown(secondsToDuration(cfg.Breaker.CooldownSeconds)))
	}
	brOpts = append(brOpts, resilience.WithLogger(logger))
	opts = append(opts, pipeline.WithBreaker(resilience.NewBreaker("translation", brOpts...)))

	return opts
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Polyvox — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("ASR", cfg.Providers.ASR.Name, cfg.Providers.ASR.Model)
	printProvider("MT", cfg.Providers.MT.Name, cfg.Providers.MT.Model)
	printProvider("Audio", cfg.Providers.Audio.Name, "")
	printLine("Source lang", valueOr(cfg.Pipeline.SourceLanguage, "(auto)"))
	printLine("Targets", fmt.Sprintf("%d configured", len(cfg.Pipeline.TargetLanguages)))
	printLine("Glossary", fmt.Sprintf("%d terms", len(cfg.Glossary.Terms)))
	if cfg.Storage.PostgresDSN != "" {
		printLine("Archive", "postgres")
	} else {
		printLine("Archive", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		printLine("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printLine(kind, value)
}

func printLine(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func splitTargets(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
