package config

import (
	"os"
	"testing"
)

func TestGetAPIKey(t *testing.T) {
	originalKey := os.Getenv("ANTHROPIC_API_KEY")
	defer os.Setenv("ANTHROPIC_API_KEY", originalKey)

	t.Run("environment wins over config", func(t *testing.T) {
		os.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
		defer os.Unsetenv("ANTHROPIC_API_KEY")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-from-file"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-from-env" {
			t.Errorf("expected env key, got %q", key)
		}
	})

	t.Run("falls back to config", func(t *testing.T) {
		os.Unsetenv("ANTHROPIC_API_KEY")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-from-file"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-from-file" {
			t.Errorf("expected config key, got %q", key)
		}
	})

	t.Run("expands env references in config", func(t *testing.T) {
		os.Unsetenv("ANTHROPIC_API_KEY")
		os.Setenv("WATTSON_KEY_REF", "sk-ant-indirect")
		defer os.Unsetenv("WATTSON_KEY_REF")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${WATTSON_KEY_REF}"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-indirect" {
			t.Errorf("expected expanded key, got %q", key)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		os.Unsetenv("ANTHROPIC_API_KEY")

		if _, err := GetAPIKey(&Config{}); err != ErrNoAPIKey {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"well formed", "sk-ant-REDACTED", false},
		{"empty", "", true},
		{"foreign prefix", "sk-proj-00000000000000000000", true},
		{"truncated", "sk-ant-x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"long key", "sk-ant-REDACTED", "sk-ant-...tial"},
		{"unset", "", "(not set)"},
		{"too short to mask", "sk-ant-x", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.expected {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestGetAPIKeySource(t *testing.T) {
	originalKey := os.Getenv("ANTHROPIC_API_KEY")
	defer os.Setenv("ANTHROPIC_API_KEY", originalKey)

	t.Run("environment", func(t *testing.T) {
		os.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
		defer os.Unsetenv("ANTHROPIC_API_KEY")

		if source := GetAPIKeySource(&Config{}); source != KeySourceEnv {
			t.Errorf("expected KeySourceEnv, got %v", source)
		}
	})

	t.Run("config file", func(t *testing.T) {
		os.Unsetenv("ANTHROPIC_API_KEY")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-from-file"}}
		if source := GetAPIKeySource(cfg); source != KeySourceConfig {
			t.Errorf("expected KeySourceConfig, got %v", source)
		}
	})

	t.Run("none", func(t *testing.T) {
		os.Unsetenv("ANTHROPIC_API_KEY")

		if source := GetAPIKeySource(&Config{}); source != KeySourceNone {
			t.Errorf("expected KeySourceNone, got %v", source)
		}
	})
}
