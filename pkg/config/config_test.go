package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if got := cfg.Server.Addr(); got != "localhost:5000" {
		t.Errorf("server addr = %q, want localhost:5000", got)
	}
	if cfg.Server.BufferSize != 4096 || cfg.Server.ChunkSize != 8192 {
		t.Errorf("unexpected buffer/chunk sizes: %d/%d", cfg.Server.BufferSize, cfg.Server.ChunkSize)
	}
	if cfg.Server.MaxUploadSize != 1<<30 {
		t.Errorf("max upload size = %d", cfg.Server.MaxUploadSize)
	}
	if cfg.Server.TLS.Enabled {
		t.Error("tls must be disabled by default")
	}
	if len(cfg.Client.AllowedExtensions) != 0 {
		t.Error("allow-list must be empty by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileshare.yaml")
	data := `
server:
  port: "6000"
  chunk_size: 1024
  session_timeout: 5s
client:
  allowed_extensions: ["TXT", ".Pdf", " "]
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "6000" || cfg.Server.ChunkSize != 1024 {
		t.Errorf("overlay not applied: %+v", cfg.Server)
	}
	if cfg.Server.SessionTimeout != 5*time.Second {
		t.Errorf("session timeout = %v", cfg.Server.SessionTimeout)
	}
	if cfg.Server.BufferSize != 4096 {
		t.Errorf("default lost: buffer size = %d", cfg.Server.BufferSize)
	}
	want := []string{".txt", ".pdf"}
	if !reflect.DeepEqual(cfg.Client.AllowedExtensions, want) {
		t.Errorf("extensions = %v, want %v", cfg.Client.AllowedExtensions, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.ChunkSize = 0
	cfg.Server.TLS.Enabled = true
	cfg.Server.TLS.CertFile = ""
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"chunk_size", "tls", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
