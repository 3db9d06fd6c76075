package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr      = ":8080"
	defaultDBPath          = "texwrap.db"
	defaultWorkspacePrefix = "texwrap-"
	defaultBackend         = "process"
	defaultFormat          = "pdf"
	defaultMaxBodyBytes    = 8 << 20

	envConfigFile      = "TEXWRAP_CONFIG"
	envListenAddr      = "TEXWRAP_LISTEN_ADDR"
	envDBPath          = "TEXWRAP_DB_PATH"
	envLogLevel        = "TEXWRAP_LOG_LEVEL"
	envWorkspaceParent = "TEXWRAP_WORKSPACE_PARENT"
	envWorkspacePrefix = "TEXWRAP_WORKSPACE_PREFIX"
	envBackend         = "TEXWRAP_BACKEND"
	envDefaultFormat   = "TEXWRAP_DEFAULT_FORMAT"
	envAllowedCommands = "TEXWRAP_ALLOWED_COMMANDS"
	envMaxBodyBytes    = "TEXWRAP_MAX_BODY_BYTES"
)

var defaultAllowedCommands = []string{"pdflatex", "latex", "xelatex", "lualatex"}

// Config holds application configuration.
type Config struct {
	ListenAddr string     `yaml:"listen_addr"`
	DBPath     string     `yaml:"db_path"`
	LogLevel   slog.Level `yaml:"-"`
	// LogLevelName is the YAML spelling of LogLevel.
	LogLevelName string `yaml:"log_level"`

	// WorkspaceParent is where the root workspace directory is created.
	// Empty means the OS temp directory.
	WorkspaceParent string `yaml:"workspace_parent"`
	WorkspacePrefix string `yaml:"workspace_prefix"`

	Backend       string `yaml:"backend"`
	DefaultFormat string `yaml:"default_format"`
	// AllowedCommands limits the engine overrides HTTP clients may request.
	AllowedCommands []string `yaml:"allowed_commands"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ListenAddr:      defaultListenAddr,
		DBPath:          defaultDBPath,
		LogLevel:        slog.LevelInfo,
		WorkspacePrefix: defaultWorkspacePrefix,
		Backend:         defaultBackend,
		DefaultFormat:   defaultFormat,
		AllowedCommands: append([]string(nil), defaultAllowedCommands...),
		MaxBodyBytes:    defaultMaxBodyBytes,
	}
}

// Load builds the configuration from defaults, a .env file in the working
// directory, the YAML file named by TEXWRAP_CONFIG, and TEXWRAP_*
// environment variables, in increasing order of precedence. Variables
// already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv(envConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg. Environment variables
// referenced in the file are expanded first.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if c.LogLevelName != "" {
		c.LogLevel = parseLogLevel(c.LogLevelName)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envWorkspaceParent); v != "" {
		c.WorkspaceParent = v
	}
	if v := os.Getenv(envWorkspacePrefix); v != "" {
		c.WorkspacePrefix = v
	}
	if v := os.Getenv(envBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(envDefaultFormat); v != "" {
		c.DefaultFormat = v
	}
	if v := os.Getenv(envAllowedCommands); v != "" {
		c.AllowedCommands = splitList(v)
	}
	if v := os.Getenv(envMaxBodyBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: must be a positive integer, got %q", envMaxBodyBytes, v)
		}
		c.MaxBodyBytes = n
	}
	return nil
}

// CommandAllowed reports whether an engine override may be used.
// The empty override always is.
func (c Config) CommandAllowed(cmd string) bool {
	if cmd == "" {
		return true
	}
	for _, a := range c.AllowedCommands {
		if a == cmd {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a human-readable logger for interactive commands.
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
