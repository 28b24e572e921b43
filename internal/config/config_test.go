package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		BindAddr:        "0.0.0.0",
		DataDir:         ".quoll",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         3000,
		MetricsPort:     12798,
		Tracing:         false,
		TracingStdout:   false,
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
bindAddr: "127.0.0.1"
dataDir: "/var/lib/quoll"
shutdownTimeout: "10s"
apiPort: 8000
metricsPort: 8088
tracing: true
tracingStdout: true
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-quoll.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		BindAddr:        "127.0.0.1",
		DataDir:         "/var/lib/quoll",
		ShutdownTimeout: "10s",
		ApiPort:         8000,
		MetricsPort:     8088,
		Tracing:         true,
		TracingStdout:   true,
	}

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !reflect.DeepEqual(cfg, expected) {
		t.Fatalf("config mismatch\n  got:  %+v\n  want: %+v", cfg, expected)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	resetGlobalConfig()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.ApiPort != 3000 {
		t.Errorf("unexpected api port: %d", cfg.ApiPort)
	}
	if cfg.MetricsPort != 12798 {
		t.Errorf("unexpected metrics port: %d", cfg.MetricsPort)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("unexpected shutdown timeout: %s", cfg.ShutdownTimeout)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("QUOLL_METRICS_PORT", "9999")
	t.Setenv("QUOLL_DATA_DIR", "/tmp/quoll-test")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.MetricsPort != 9999 {
		t.Errorf("env override not applied: %d", cfg.MetricsPort)
	}
	if cfg.DataDir != "/tmp/quoll-test" {
		t.Errorf("env override not applied: %s", cfg.DataDir)
	}
}

func TestContextRoundTrip(t *testing.T) {
	resetGlobalConfig()
	cfg := GetConfig()
	ctx := WithContext(t.Context(), cfg)
	if got := FromContext(ctx); got != cfg {
		t.Fatal("config not recovered from context")
	}
	if got := FromContext(t.Context()); got != nil {
		t.Fatal("expected nil config from empty context")
	}
}
