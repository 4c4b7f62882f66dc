package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	// EnvFormat selects the handler: json (default) or text.
	EnvFormat = "LOG_FORMAT"
	// EnvLevel is the minimum severity written.
	EnvLevel = "LOG_LEVEL"
	// EnvSource adds the caller's file:line to every record when true.
	EnvSource = "LOG_SOURCE"

	// AppName is attached to every log line as the "app" attribute.
	AppName = "usersdesk"

	defaultFormat = "json"
)

// Redacted replaces the value of any attribute whose key names a secret.
const Redacted = "[redacted]"

var secretKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"api_key":       {},
	"authorization": {},
	"session_token": {},
	"csrf":          {},
}

// Config is the logging configuration read from the environment.
type Config struct {
	Format    string
	Level     slog.Level
	AddSource bool
}

// BootstrapOptions controls logger initialization behavior.
type BootstrapOptions struct {
	Command string
	Writer  io.Writer
}

func DefaultConfig() Config {
	return Config{Format: defaultFormat, Level: slog.LevelInfo}
}

// LoadConfigFromEnv parses LOG_FORMAT, LOG_LEVEL and LOG_SOURCE.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	format, err := parseFormat(os.Getenv(EnvFormat))
	if err != nil {
		return Config{}, err
	}
	cfg.Format = format

	if raw := strings.TrimSpace(os.Getenv(EnvLevel)); raw != "" {
		if cfg.Level, err = parseLevel(raw); err != nil {
			return Config{}, err
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvSource)); raw != "" {
		if cfg.AddSource, err = strconv.ParseBool(raw); err != nil {
			return Config{}, fmt.Errorf("%s must be a boolean", EnvSource)
		}
	}
	return cfg, nil
}

// NewLogger builds the process logger. Every record carries app and command,
// and secret-named attributes are redacted.
func NewLogger(cfg Config, writer io.Writer, command string) *slog.Logger {
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redactSecrets,
	}
	var handler slog.Handler = slog.NewJSONHandler(writer, opts)
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "text") {
		handler = slog.NewTextHandler(writer, opts)
	}

	if command = strings.TrimSpace(command); command == "" {
		command = AppName
	}
	return slog.New(handler).With("app", AppName, "command", command)
}

// Component returns logger tagged with a component attribute, falling back
// to the default logger when logger is nil.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}

// BootstrapFromEnv loads logging config from env, installs the default logger, and returns it.
func BootstrapFromEnv(opts BootstrapOptions) (*slog.Logger, error) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, opts.Writer, opts.Command)
	slog.SetDefault(logger)
	return logger, nil
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, Redacted)
	}
	return a
}

func parseFormat(raw string) (string, error) {
	switch format := strings.ToLower(strings.TrimSpace(raw)); format {
	case "":
		return defaultFormat, nil
	case "json", "text":
		return format, nil
	default:
		return "", fmt.Errorf("%s must be one of: json, text", EnvFormat)
	}
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%s must be one of: debug, info, warn, error", EnvLevel)
	}
}
