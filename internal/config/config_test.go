package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Defaults.Mode != "hybrid" {
		t.Errorf("expected default mode 'hybrid', got %q", cfg.Defaults.Mode)
	}

	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected default max_attempts 3, got %d", cfg.Retry.MaxAttempts)
	}

	if cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Errorf("expected base delay 500ms, got %v", cfg.Retry.BaseDelay)
	}

	if cfg.Retry.MaxDelay != 8*time.Second {
		t.Errorf("expected max delay 8s, got %v", cfg.Retry.MaxDelay)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  model: claude-sonnet-4-20250514
  use_bedrock: true
  aws_region: us-west-2
defaults:
  mode: sequential
retry:
  max_attempts: 5
  base_delay: 250ms
  max_delay: 4s
logging:
  debug_log: /tmp/wattson-debug.log
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}

	if !cfg.Anthropic.UseBedrock || cfg.Anthropic.AWSRegion != "us-west-2" {
		t.Errorf("bedrock settings not loaded: %+v", cfg.Anthropic)
	}

	if cfg.Defaults.Mode != "sequential" {
		t.Errorf("expected mode 'sequential', got %q", cfg.Defaults.Mode)
	}

	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("expected max_attempts 5, got %d", cfg.Retry.MaxAttempts)
	}

	if cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("expected base delay 250ms, got %v", cfg.Retry.BaseDelay)
	}

	if cfg.Logging.DebugLog != "/tmp/wattson-debug.log" {
		t.Errorf("expected debug log path, got %q", cfg.Logging.DebugLog)
	}
}

func TestLoadFromPathRejectsBadMode(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("defaults:\n  mode: turbo\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadFromPath(configPath); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLoadFromPathRejectsBadRetry(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("retry:\n  max_attempts: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadFromPath(configPath); err == nil {
		t.Fatal("expected error for zero max_attempts")
	}
}

func TestExpandEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "expanded-value")
	defer os.Unsetenv("TEST_VAR")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/wattson"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}
