// Package config loads the web server configuration from defaults, a .env
// file and the process environment.
package config

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultEnvFile        = ".env"
	defaultAddr           = ":8080"
	defaultEnvironment    = "local"
	defaultLogLevel       = "info"
	defaultHTTPTimeout    = 20 * time.Second
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultSessionIdle    = 2 * time.Hour
	defaultSessionMaxLife = 24 * time.Hour

	minHashKeyLength = 32
)

// Config is the resolved server configuration.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Session  SessionConfig
	LogLevel string
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr         string
	BaseURL      string
	Environment  string
	Dev          bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// UpstreamConfig points at the remote scoring and chat APIs. Empty URLs select
// the in-memory services.
type UpstreamConfig struct {
	ScoringURL string
	ChatURL    string
	Timeout    time.Duration
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	HashKey     []byte
	BlockKey    []byte
	IdleTimeout time.Duration
	Lifetime    time.Duration
	// Ephemeral is set when keys were generated at startup; sessions will
	// not survive a restart.
	Ephemeral bool
}

// IsLocal reports whether the server runs in the local environment.
func (c Config) IsLocal() bool {
	return strings.EqualFold(c.Server.Environment, defaultEnvironment)
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take
// precedence over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration. Precedence is defaults < .env < OS env <
// WithEnvMap.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	env := stringWithDefault(lookup, "AGRICRED_WEB_ENV", defaultEnvironment)
	cfg := Config{
		Server: ServerConfig{
			Addr:         stringWithDefault(lookup, "AGRICRED_WEB_ADDR", defaultAddr),
			BaseURL:      stringWithDefault(lookup, "AGRICRED_WEB_BASE_URL", "/"),
			Environment:  env,
			Dev:          boolWithDefault(lookup, "AGRICRED_WEB_DEV", strings.EqualFold(env, defaultEnvironment)),
			ReadTimeout:  durationWithDefault(lookup, "AGRICRED_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "AGRICRED_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "AGRICRED_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Upstream: UpstreamConfig{
			ScoringURL: strings.TrimSpace(stringWithDefault(lookup, "AGRICRED_WEB_SCORING_API_URL", "")),
			ChatURL:    strings.TrimSpace(stringWithDefault(lookup, "AGRICRED_WEB_CHAT_API_URL", "")),
			Timeout:    durationWithDefault(lookup, "AGRICRED_WEB_HTTP_TIMEOUT", defaultHTTPTimeout),
		},
		Session: SessionConfig{
			HashKey:     keyWithDefault(lookup, "AGRICRED_WEB_SESSION_HASH_KEY"),
			BlockKey:    keyWithDefault(lookup, "AGRICRED_WEB_SESSION_BLOCK_KEY"),
			IdleTimeout: durationWithDefault(lookup, "AGRICRED_WEB_SESSION_IDLE_TIMEOUT", defaultSessionIdle),
			Lifetime:    durationWithDefault(lookup, "AGRICRED_WEB_SESSION_LIFETIME", defaultSessionMaxLife),
		},
		LogLevel: stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel),
	}

	// Local runs may omit session keys.
	if cfg.IsLocal() && len(cfg.Session.HashKey) == 0 {
		cfg.Session.HashKey = securecookie.GenerateRandomKey(64)
		if len(cfg.Session.BlockKey) == 0 {
			cfg.Session.BlockKey = securecookie.GenerateRandomKey(32)
		}
		cfg.Session.Ephemeral = true
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		missing = append(missing, "Server.Addr")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if cfg.Upstream.ScoringURL != "" && !absoluteURL(cfg.Upstream.ScoringURL) {
		missing = append(missing, "Upstream.ScoringURL")
	}
	if cfg.Upstream.ChatURL != "" && !absoluteURL(cfg.Upstream.ChatURL) {
		missing = append(missing, "Upstream.ChatURL")
	}
	if cfg.Upstream.Timeout <= 0 {
		missing = append(missing, "Upstream.Timeout")
	}
	if len(cfg.Session.HashKey) < minHashKeyLength {
		missing = append(missing, "Session.HashKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		missing = append(missing, "Session.BlockKey")
	}
	if cfg.Session.IdleTimeout <= 0 {
		missing = append(missing, "Session.IdleTimeout")
	}
	if cfg.Session.Lifetime < cfg.Session.IdleTimeout {
		missing = append(missing, "Session.Lifetime")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

// keyWithDefault reads a base64 encoded key, falling back to the raw bytes
// when the value is not valid base64.
func keyWithDefault(lookup func(string) (string, bool), key string) []byte {
	value, ok := lookup(key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded
	}
	return []byte(value)
}
