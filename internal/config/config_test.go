package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	transmission "github.com/jfxdev/go-transmission"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RPC.URL != transmission.DefaultURL {
		t.Errorf("Expected default URL %s, got %s", transmission.DefaultURL, cfg.RPC.URL)
	}
	if cfg.RPC.Timeout != transmission.DefaultRequestTimeout {
		t.Errorf("Expected default timeout %v, got %v", transmission.DefaultRequestTimeout, cfg.RPC.Timeout)
	}
	if cfg.Output != OutputText {
		t.Errorf("Expected text output, got %s", cfg.Output)
	}
	if cfg.Log.Level != "info" || cfg.Log.Output != "stderr" {
		t.Errorf("Unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
output = "yaml"

[rpc]
url = "http://nas:9091/transmission/rpc"
username = "file-user"
timeout = "5s"
rate_limit = 2.5

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("TRANSMISSION_RPC_USERNAME", "env-user")
	t.Setenv("TRANSMISSION_RPC_PASSWORD", "env-pass")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("url", "", "")
	flags.String("output", "", "")
	if err := flags.Parse([]string{"--url", "http://flag:9091/transmission/rpc"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	v := New()
	if err := BindFlags(v, flags); err != nil {
		t.Fatalf("BindFlags failed: %v", err)
	}
	cfg, err := Load(v, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RPC.URL != "http://flag:9091/transmission/rpc" {
		t.Errorf("Expected flag to win, got %s", cfg.RPC.URL)
	}
	if cfg.RPC.Username != "env-user" || cfg.RPC.Password != "env-pass" {
		t.Errorf("Expected env credentials, got %s/%s", cfg.RPC.Username, cfg.RPC.Password)
	}
	if cfg.RPC.Timeout != 5*time.Second {
		t.Errorf("Expected timeout from file, got %v", cfg.RPC.Timeout)
	}
	if cfg.RPC.RateLimit != 2.5 {
		t.Errorf("Expected rate limit from file, got %v", cfg.RPC.RateLimit)
	}
	if cfg.Output != OutputYAML {
		t.Errorf("Expected unchanged flag to leave the file value, got %s", cfg.Output)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level from file, got %s", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"bad output", func(c *Config) { c.Output = "xml" }, false},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, false},
		{"negative rate", func(c *Config) { c.RPC.RateLimit = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Output: OutputJSON, Log: Log{Level: "info"}}
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Expected ok=%v, got %v", tt.ok, err)
			}
		})
	}
}

func TestClientConfig(t *testing.T) {
	cfg := Config{RPC: RPC{URL: "http://x:9091/transmission/rpc", Username: "u", Timeout: time.Second, RetryOnConflict: true}}
	got := cfg.ClientConfig()

	if got.URL != cfg.RPC.URL || got.Username != "u" || got.RequestTimeout != time.Second || !got.RetryOnConflict {
		t.Errorf("Unexpected client config: %+v", got)
	}
}

func TestPrint(t *testing.T) {
	cfg, _ := Load(New(), "")
	cfg.RPC.Password = "secret"

	var buf bytes.Buffer
	if err := cfg.Print(&buf); err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Error("Expected the password to be masked")
	}
	for _, want := range []string{"[rpc]", "timeout = '30s'", "[log]"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}
