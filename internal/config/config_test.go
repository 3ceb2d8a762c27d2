package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, `
endpoints:
  - id: {tty: /dev/ttyUSB0}
    labels: [device-type-1]
  - id: {mock: m1}
groups:
  - labels: [bank-a]
    endpoints:
      - id: {tty: COM0}
      - id: {tty: COM1}
auto_open_serial_ports: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AutoOpenSerialPorts {
		t.Error("AutoOpenSerialPorts should be false")
	}
	if len(cfg.Endpoints) != 2 {
		t.Fatalf("got %d endpoints, want 2", len(cfg.Endpoints))
	}
	if len(cfg.Groups) != 1 || len(cfg.Groups[0].Endpoints) != 2 {
		t.Fatalf("unexpected groups: %+v", cfg.Groups)
	}
}

func TestLoadDefaultsAutoOpenToTrue(t *testing.T) {
	path := writeTemp(t, `endpoints: []`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.AutoOpenSerialPorts {
		t.Error("AutoOpenSerialPorts should default to true")
	}
}

func TestValidateRejectsEmptyGroup(t *testing.T) {
	path := writeTemp(t, `
groups:
  - labels: []
    endpoints: []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty group")
	}
}

func TestValidateRejectsMixedVariantGroup(t *testing.T) {
	path := writeTemp(t, `
groups:
  - labels: []
    endpoints:
      - id: {tty: COM0}
      - id: {mock: m1}
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for mixed-variant group")
	}
}

func TestValidateRejectsDuplicateAcrossGroups(t *testing.T) {
	path := writeTemp(t, `
groups:
  - labels: []
    endpoints:
      - id: {tty: COM0}
  - labels: []
    endpoints:
      - id: {tty: COM0}
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate id across groups")
	}
}

func TestRawIDRejectsBothVariants(t *testing.T) {
	path := writeTemp(t, `
endpoints:
  - id: {tty: COM0, mock: m1}
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when both tty and mock are set")
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	if _, err := FindConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate cleanly: %v", err)
	}
	if !cfg.AutoOpenSerialPorts {
		t.Error("Default() should auto-open serial ports")
	}
}
