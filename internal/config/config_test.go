package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Feed.Tickers) == 0 {
		t.Error("expected tickers to be populated")
	}
	if cfg.Feed.Items != 10 {
		t.Errorf("expected 10 items, got %d", cfg.Feed.Items)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Embedding.Provider)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}

	wantOrder := []string{"transactions", "prices", "news"}
	if len(cfg.Knowledge.DrainOrder) != len(wantOrder) {
		t.Fatalf("expected drain order of %d types, got %d", len(wantOrder), len(cfg.Knowledge.DrainOrder))
	}
	for i, typ := range wantOrder {
		if cfg.Knowledge.DrainOrder[i] != typ {
			t.Errorf("drain order[%d]: expected %q, got %q", i, typ, cfg.Knowledge.DrainOrder[i])
		}
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
embedding:
  provider: openai
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Embedding.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Embedding.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Embedding.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Embedding.OllamaURL)
	}
	if cfg.Feed.Section != "general" {
		t.Errorf("expected default section, got %q", cfg.Feed.Section)
	}
	if c, ok := cfg.Knowledge.Collections["news"]; !ok || c.Count != 10 {
		t.Errorf("expected default news collection limits, got %+v", c)
	}
}

func TestParseCollectionOverride(t *testing.T) {
	data := []byte(`
knowledge:
  drain_order: [news]
  collections:
    news:
      count: 3
      threshold: 0.9
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	c := cfg.Knowledge.Collections["news"]
	if c.Count != 3 || c.Threshold != 0.9 {
		t.Errorf("expected count=3 threshold=0.9, got %+v", c)
	}
	// Unlisted collections still get defaults so retrieval never divides by zero limits.
	if c := cfg.Knowledge.Collections["prices"]; c.Count != 10 {
		t.Errorf("expected default prices collection, got %+v", c)
	}
	if len(cfg.Knowledge.DrainOrder) != 1 || cfg.Knowledge.DrainOrder[0] != "news" {
		t.Errorf("expected drain order [news], got %v", cfg.Knowledge.DrainOrder)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Feed.APIKeyEnv != "CRYPTONEWS_API_KEY" {
		t.Errorf("unexpected api_key_env: %q", cfg.Feed.APIKeyEnv)
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config path")
	}
}

func TestGetManualNewsPath(t *testing.T) {
	cfg, _ := parse(nil)
	cfg.Output.DataDir = "/tmp/bb"
	if got := cfg.GetManualNewsPath(); got != filepath.Join("/tmp/bb", "manual_news.txt") {
		t.Errorf("unexpected manual news path: %q", got)
	}

	cfg.Output.ManualNews = "/elsewhere/manual.txt"
	if got := cfg.GetManualNewsPath(); got != "/elsewhere/manual.txt" {
		t.Errorf("expected override to win, got %q", got)
	}
}
