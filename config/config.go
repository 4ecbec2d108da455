// Package config loads the web service settings.
//
// Settings are layered, lowest precedence first:
//
//  1. Default values.
//  2. A settings file: YAML, or JSON with comments when the name ends in
//     .json or .jsonc.
//  3. A dotenv file.
//  4. The process environment.
//
// Layers 3 and 4 use the same keys: JSONRPC_ENABLED, JSONRPC_HOST,
// JSONRPC_PORT, JSONRPC_LOGFILE and JSONRPC_BATCH_CONCURRENCY.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvEnabled          = "JSONRPC_ENABLED"
	EnvHost             = "JSONRPC_HOST"
	EnvPort             = "JSONRPC_PORT"
	EnvLogFile          = "JSONRPC_LOGFILE"
	EnvBatchConcurrency = "JSONRPC_BATCH_CONCURRENCY"
)

// ErrInvalidPorts reports a port list that is not empty, a single port or
// an inclusive low-high range.
var ErrInvalidPorts = errors.New("config: ports must be empty, one port, or a low-high range")

// Settings configures the web service.
type Settings struct {
	// Enabled turns the service on. Default: false.
	Enabled bool `yaml:"enabled"`

	// Host is the listen address. Default: 127.0.0.1
	Host string `yaml:"host"`

	// Ports are the candidate listen ports: empty for an ephemeral port, one
	// port, or an inclusive [low, high] range. Default: [6023, 6073]
	Ports []int `yaml:"ports"`

	// LogFile is the access log path. Empty disables the access log.
	LogFile string `yaml:"logfile"`

	// BatchConcurrency bounds concurrent entries per JSON-RPC batch.
	// Values below 2 run batches sequentially.
	BatchConcurrency int `yaml:"batch_concurrency"`

	// ReadHeaderTimeout bounds reading request headers. Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// ShutdownTimeout bounds how long Stop waits for the listener to drain
	// when its context has no deadline. Default: 5s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the default settings.
func Default() *Settings {
	return &Settings{
		Host:              "127.0.0.1",
		Ports:             []int{6023, 6073},
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Loader reads settings from its sources. The zero value yields defaults
// overridden by the process environment.
type Loader struct {
	// File is the settings file. Empty skips it.
	File string
	// DotEnv is a dotenv file. Empty or missing skips it.
	DotEnv string
	// Lookup reads the environment. Nil means os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Load returns validated settings.
func (l Loader) Load() (*Settings, error) {
	s := Default()
	if l.File != "" {
		if err := s.loadFile(l.File); err != nil {
			return nil, err
		}
	}

	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if l.DotEnv != "" {
		dot, err := godotenv.Read(l.DotEnv)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", l.DotEnv, err)
		default:
			env := lookup
			lookup = func(key string) (string, bool) {
				if v, ok := env(key); ok {
					return v, true
				}
				v, ok := dot[key]
				return v, ok
			}
		}
	}

	if err := s.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile returns defaults overridden by the settings file at path.
func LoadFile(path string) (*Settings, error) {
	s := Default()
	if err := s.loadFile(path); err != nil {
		return nil, err
	}
	return s, s.Validate()
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is valid YAML once comments and trailing commas are gone.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides s with the JSONRPC_* keys found by lookup.
func (s *Settings) ApplyEnv(lookup func(key string) (string, bool)) error {
	if v, ok := lookup(EnvEnabled); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvEnabled, err)
		}
		s.Enabled = b
	}
	if v, ok := lookup(EnvHost); ok {
		s.Host = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPort); ok {
		ports, err := ParsePorts(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvPort, err)
		}
		s.Ports = ports
	}
	if v, ok := lookup(EnvLogFile); ok {
		s.LogFile = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvBatchConcurrency); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvBatchConcurrency, err)
		}
		s.BatchConcurrency = n
	}
	return nil
}

// ParsePorts parses a list of ports separated by commas or spaces, such as
// "6023,6073" or "[6023, 6073]".
func ParsePorts(v string) ([]int, error) {
	v = strings.Trim(strings.TrimSpace(v), "[]")
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	ports := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPorts, f)
		}
		ports = append(ports, n)
	}
	return ports, nil
}

// Validate checks the settings for errors.
func (s *Settings) Validate() error {
	var errs []error
	if len(s.Ports) > 2 {
		errs = append(errs, fmt.Errorf("%w: got %d ports", ErrInvalidPorts, len(s.Ports)))
	}
	for _, p := range s.Ports {
		if p < 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("%w: port %d out of range", ErrInvalidPorts, p))
		}
	}
	if len(s.Ports) == 2 && s.Ports[0] > s.Ports[1] {
		errs = append(errs, fmt.Errorf("%w: range %d-%d is reversed", ErrInvalidPorts, s.Ports[0], s.Ports[1]))
	}
	if s.BatchConcurrency < 0 {
		errs = append(errs, fmt.Errorf("config: batch_concurrency must be >= 0, got %d", s.BatchConcurrency))
	}
	if s.ReadHeaderTimeout < 0 || s.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("config: timeouts must be >= 0"))
	}
	return errors.Join(errs...)
}
