package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenFilenameEmpty(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Seed != 42 || cfg.Theme != "fantasy" || cfg.FrameRate != 2.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Theme != "fantasy" {
		t.Errorf("expected default theme, got %q", cfg.Theme)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfgContent := `seed: 7
theme: "noir"
player_name: "Rook"
frame_rate: 4.5
llm:
  provider: "anthropic"
`
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Seed != 7 || cfg.Theme != "noir" || cfg.PlayerName != "Rook" {
		t.Errorf("unexpected override: %+v", cfg)
	}
	if cfg.FrameRate != 4.5 {
		t.Errorf("expected frame rate 4.5, got %v", cfg.FrameRate)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected anthropic provider, got %q", cfg.LLM.Provider)
	}
}

func TestLoad_InvalidYAMLReturnsError(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "bad.*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString("not: [invalid yaml"); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}
	tmpFile.Close()

	_, err = Load(tmpFile.Name())
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverridesFileAndDefaults(t *testing.T) {
	t.Setenv("WAYFARER_SEED", "99")
	t.Setenv("LLM_PROVIDER", "google")
	t.Setenv("REPLAY_DIR", "/tmp/custom-replays")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Seed != 99 {
		t.Errorf("expected seed 99, got %d", cfg.Seed)
	}
	if cfg.LLM.Provider != "google" {
		t.Errorf("expected provider google, got %q", cfg.LLM.Provider)
	}
	if cfg.ReplayDir != "/tmp/custom-replays" {
		t.Errorf("expected overridden replay dir, got %q", cfg.ReplayDir)
	}
	if cfg.OpenAIDirect.APIKey != "sk-test" {
		t.Errorf("expected overridden api key, got %q", cfg.OpenAIDirect.APIKey)
	}
}

func TestLoad_ZeroFrameRateFallsBackToDefault(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("frame_rate: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.FrameRate != 2.0 {
		t.Errorf("expected frame rate fallback to 2.0, got %v", cfg.FrameRate)
	}
}

func TestLoad_EmptyReplayDirFallsBackToDefault(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("replay_dir: \"\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.ReplayDir != "./replays" {
		t.Errorf("expected default replay dir, got %q", cfg.ReplayDir)
	}
}
