package config

import (
	"os"
	"testing"
)

func TestGetAPIKey_EnvTakesPrecedence(t *testing.T) {
	os.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")
	defer os.Unsetenv("ANTHROPIC_API_KEY")

	cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey failed: %v", err)
	}
	if key != "sk-ant-env-key" {
		t.Errorf("expected env key, got %q", key)
	}
}

func TestGetAPIKey_FallsBackToConfig(t *testing.T) {
	os.Unsetenv("ANTHROPIC_API_KEY")

	cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey failed: %v", err)
	}
	if key != "sk-ant-config-key" {
		t.Errorf("expected config key, got %q", key)
	}
}

func TestGetAPIKey_NoneConfigured(t *testing.T) {
	os.Unsetenv("ANTHROPIC_API_KEY")

	if _, err := GetAPIKey(&Config{}); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	if _, err := GetAPIKey(nil); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey for nil config, got %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid key", key: "sk-ant-REDACTED", wantErr: false},
		{name: "empty", key: "", wantErr: true},
		{name: "wrong prefix", key: "sk-openai-abcdefghijklmnop", wantErr: true},
		{name: "too short", key: "sk-ant-abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %t", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "empty", key: "", want: "(not set)"},
		{name: "short", key: "sk-ant-abc", want: "***"},
		{name: "normal", key: "sk-ant-api03-abcdefgh1234", want: "sk-ant-...1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskAPIKey(tt.key); got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
