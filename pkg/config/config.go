package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Client  ClientConfig  `json:"client" yaml:"client"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Host           string        `json:"host" yaml:"host"`
	Port           string        `json:"port" yaml:"port"`
	KeepAlive      bool          `json:"keep_alive" yaml:"keep_alive"`
	KeepAliveIdle  time.Duration `json:"keep_alive_idle" yaml:"keep_alive_idle"`
	KeepAliveCount int           `json:"keep_alive_count" yaml:"keep_alive_count"`
	KeepAliveIntvl time.Duration `json:"keep_alive_intvl" yaml:"keep_alive_intvl"`
	BufferSize     int           `json:"buffer_size" yaml:"buffer_size"`
	ChunkSize      int           `json:"chunk_size" yaml:"chunk_size"`
	MaxConnections int           `json:"max_connections" yaml:"max_connections"`
	MaxUploadSize  int64         `json:"max_upload_size" yaml:"max_upload_size"`
	MaxTokenSize   int           `json:"max_token_size" yaml:"max_token_size"`
	StoreDir       string        `json:"store_dir" yaml:"store_dir"`
	SessionTimeout time.Duration `json:"session_timeout" yaml:"session_timeout"`
	TLS            TLSConfig     `json:"tls" yaml:"tls"`
	EventsAddr     string        `json:"events_addr" yaml:"events_addr"`
	HealthAddr     string        `json:"health_addr" yaml:"health_addr"`
	WatchStore     bool          `json:"watch_store" yaml:"watch_store"`
}

type ClientConfig struct {
	Host              string        `json:"host" yaml:"host"`
	Port              string        `json:"port" yaml:"port"`
	KeepAlive         bool          `json:"keep_alive" yaml:"keep_alive"`
	KeepAliveIdle     time.Duration `json:"keep_alive_idle" yaml:"keep_alive_idle"`
	KeepAliveCount    int           `json:"keep_alive_count" yaml:"keep_alive_count"`
	KeepAliveIntvl    time.Duration `json:"keep_alive_intvl" yaml:"keep_alive_intvl"`
	BufferSize        int           `json:"buffer_size" yaml:"buffer_size"`
	ChunkSize         int           `json:"chunk_size" yaml:"chunk_size"`
	MaxTokenSize      int           `json:"max_token_size" yaml:"max_token_size"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	MaxUploadSize     int64         `json:"max_upload_size" yaml:"max_upload_size"`
	AllowedExtensions []string      `json:"allowed_extensions" yaml:"allowed_extensions"`
	DownloadDir       string        `json:"download_dir" yaml:"download_dir"`
	TLS               TLSConfig     `json:"tls" yaml:"tls"`
}

// TLSConfig is shared by both sides; the server reads CertFile/KeyFile,
// the client reads CAFile/ServerName/InsecureSkipVerify.
type TLSConfig struct {
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	CertFile           string `json:"cert_file" yaml:"cert_file"`
	KeyFile            string `json:"key_file" yaml:"key_file"`
	CAFile             string `json:"ca_file" yaml:"ca_file"`
	ServerName         string `json:"server_name" yaml:"server_name"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

const (
	DefaultMaxUploadSize = 1024 * 1024 * 1024
	DefaultMaxTokenSize  = 16 * 1024 * 1024
)

func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           "5000",
			KeepAlive:      true,
			KeepAliveIdle:  30 * time.Second,
			KeepAliveCount: 3,
			KeepAliveIntvl: 10 * time.Second,
			BufferSize:     4096,
			ChunkSize:      8192,
			MaxConnections: 10,
			MaxUploadSize:  DefaultMaxUploadSize,
			MaxTokenSize:   DefaultMaxTokenSize,
			StoreDir:       "./server_files",
			SessionTimeout: 60 * time.Second,
			TLS: TLSConfig{
				CertFile: "server.crt",
				KeyFile:  "server.key",
			},
			WatchStore: true,
		},
		Client: ClientConfig{
			Host:           "localhost",
			Port:           "5000",
			KeepAlive:      true,
			KeepAliveIdle:  30 * time.Second,
			KeepAliveCount: 3,
			KeepAliveIntvl: 10 * time.Second,
			BufferSize:     4096,
			ChunkSize:      8192,
			MaxTokenSize:   DefaultMaxTokenSize,
			Timeout:        60 * time.Second,
			MaxUploadSize:  DefaultMaxUploadSize,
			DownloadDir:    "./downloads",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load overlays the YAML file at path on top of NewConfig defaults.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.BufferSize <= 0 {
		errs = append(errs, errors.New("server.buffer_size must be positive"))
	}
	if c.Server.ChunkSize <= 0 {
		errs = append(errs, errors.New("server.chunk_size must be positive"))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, errors.New("server.max_connections must not be negative"))
	}
	if c.Server.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("server.max_upload_size must be positive"))
	}
	if c.Server.MaxTokenSize <= 0 {
		errs = append(errs, errors.New("server.max_token_size must be positive"))
	}
	if c.Server.StoreDir == "" {
		errs = append(errs, errors.New("server.store_dir is required"))
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires cert_file and key_file"))
	}

	if c.Client.Port == "" {
		errs = append(errs, errors.New("client.port is required"))
	}
	if c.Client.BufferSize <= 0 {
		errs = append(errs, errors.New("client.buffer_size must be positive"))
	}
	if c.Client.ChunkSize <= 0 {
		errs = append(errs, errors.New("client.chunk_size must be positive"))
	}
	if c.Client.MaxTokenSize <= 0 {
		errs = append(errs, errors.New("client.max_token_size must be positive"))
	}
	if c.Client.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("client.max_upload_size must be positive"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.level %q", c.Logging.Level))
	}

	c.Client.AllowedExtensions = NormalizeExtensions(c.Client.AllowedExtensions)

	return errors.Join(errs...)
}

func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (c *ClientConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NormalizeExtensions lower-cases entries and makes sure each one starts with a dot.
func NormalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}

	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}

	return out
}
