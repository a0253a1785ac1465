package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "DOCREPO_"

// DefaultMaxFileSize is the upload size limit when none is configured.
const DefaultMaxFileSize int64 = 50 << 20

// DefaultAllowedExtensions lists the file types the upload form accepts.
// Only pdf, doc, docx and txt take part in version detection.
var DefaultAllowedExtensions = []string{
	"pdf", "doc", "docx", "txt", "jpg", "jpeg", "png", "gif",
	"xlsx", "xls", "ppt", "pptx", "zip", "rar",
}

// AppConfig is the root configuration of the docrepo service.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Storage    StorageConfig      `yaml:"storage"`
	Extractor  ExtractorConfig    `yaml:"extractor"`
	Versioning VersioningSettings `yaml:"versioning"`
	Upload     UploadConfig       `yaml:"upload"`
	Inbox      InboxConfig        `yaml:"inbox"`
	Log        LogConfig          `yaml:"log"`
	Jobs       JobsConfig         `yaml:"jobs"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         string `yaml:"port"`
	Mode         string `yaml:"mode"`           // gin mode: debug, release, test
	MaxBodyBytes int64  `yaml:"max_body_bytes"` // hard cap on request bodies
}

// StorageConfig selects the document repository backend and its directories.
type StorageConfig struct {
	Driver  string `yaml:"driver"`   // "sqlite" or "memory"
	DataDir string `yaml:"data_dir"` // database, snapshots and analytics
	BlobDir string `yaml:"blob_dir"` // uploaded files; defaults to <data_dir>/uploads
}

// ExtractorConfig selects the text extractor implementation.
type ExtractorConfig struct {
	Mode string `yaml:"mode"` // "auto", "full" or "minimal"
}

// UploadConfig limits what the upload workflow accepts.
type UploadConfig struct {
	MaxFileSize       int64    `yaml:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// InboxConfig configures the watched import directory.
type InboxConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir"` // one sub-directory per user ID
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig configures the slog handler built by the command.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// JobsConfig sizes the background job worker pool.
type JobsConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// Default returns the configuration used when no file or environment overrides are present.
func Default() *AppConfig {
	cfg := &AppConfig{Versioning: DefaultVersioningSettings()}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads the YAML file at path (optional), applies DOCREPO_* environment
// overrides, fills defaults and validates the result.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// ApplyDefaults fills every unset value.
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 60 << 20
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./docrepo_data"
	}
	if c.Storage.BlobDir == "" {
		c.Storage.BlobDir = filepath.Join(c.Storage.DataDir, "uploads")
	}
	if c.Extractor.Mode == "" {
		c.Extractor.Mode = "auto"
	}
	c.Versioning.ApplyDefaults()
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = DefaultMaxFileSize
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	if c.Inbox.Dir == "" {
		c.Inbox.Dir = filepath.Join(c.Storage.DataDir, "inbox")
	}
	if c.Inbox.Debounce == 0 {
		c.Inbox.Debounce = 500 * time.Millisecond
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Jobs.MaxWorkers <= 0 {
		c.Jobs.MaxWorkers = 2
	}
}

// Validate returns a list of configuration problems; an empty list means valid.
func (c *AppConfig) Validate() []string {
	var problems []string

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("server.mode must be 'debug', 'release' or 'test', got '%s'", c.Server.Mode))
	}
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		problems = append(problems, fmt.Sprintf("storage.driver must be 'sqlite' or 'memory', got '%s'", c.Storage.Driver))
	}
	switch c.Extractor.Mode {
	case "auto", "full", "minimal":
	default:
		problems = append(problems, fmt.Sprintf("extractor.mode must be 'auto', 'full' or 'minimal', got '%s'", c.Extractor.Mode))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format must be 'text' or 'json', got '%s'", c.Log.Format))
	}
	if c.Upload.MaxFileSize < 0 {
		problems = append(problems, "upload.max_file_size cannot be negative")
	}
	if c.Server.MaxBodyBytes > 0 && c.Server.MaxBodyBytes < c.Upload.MaxFileSize {
		problems = append(problems, "server.max_body_bytes must be at least upload.max_file_size")
	}
	for _, p := range c.Versioning.Validate() {
		problems = append(problems, "versioning: "+p)
	}

	return problems
}

func (c *AppConfig) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Mode = getEnv("GIN_MODE", c.Server.Mode)
	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DataDir = getEnv("DATA_DIR", c.Storage.DataDir)
	c.Storage.BlobDir = getEnv("BLOB_DIR", c.Storage.BlobDir)
	c.Extractor.Mode = getEnv("EXTRACTOR_MODE", c.Extractor.Mode)
	c.Versioning.Threshold = getEnvFloat("VERSION_THRESHOLD", c.Versioning.Threshold)
	c.Upload.MaxFileSize = getEnvInt64("MAX_FILE_SIZE", c.Upload.MaxFileSize)
	c.Inbox.Enabled = getEnvBool("INBOX_ENABLED", c.Inbox.Enabled)
	c.Inbox.Dir = getEnv("INBOX_DIR", c.Inbox.Dir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// IsExtensionAllowed reports whether an upload with the given extension (without dot) is accepted.
func (c *UploadConfig) IsExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ErrNoConfigFile is returned by FindConfigFile when no candidate file exists.
var ErrNoConfigFile = errors.New("no config file found")

// FindConfigFile returns the first existing file among the candidates.
func FindConfigFile(candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", ErrNoConfigFile
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
