package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Retention RetentionConfig
	Storage   StorageConfig
	OCR       OCRConfig
	Archive   ArchiveConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	MaxUploadBytes int64
	MaxPages       int
}

// WorkerConfig sizes the job worker pool
type WorkerConfig struct {
	Workers    int
	QueueSize  int
	BatchSize  int
	JobTimeout time.Duration // 0 = no limit
}

// RetentionConfig controls how long terminal jobs stay pollable
type RetentionConfig struct {
	JobRetention  time.Duration
	SweepInterval time.Duration
}

// StorageConfig holds filesystem locations
type StorageConfig struct {
	UploadDir  string
	ResultsDir string
	InboxDir   string // empty disables the inbox watcher
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	PSM           int
}

// ArchiveConfig holds the optional terminal-job archive database
type ArchiveConfig struct {
	Driver           string // sqlite | postgres
	DSN              string // empty disables the archive
	MaxConns         int32
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string
	Format string // json | text
}

// LoadConfig loads configuration from environment variables. When CONFIG_FILE
// points at a JSON document it is validated and used as a fallback for any
// variable missing from the environment.
func LoadConfig() (*Config, error) {
	src := envSource{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := LoadConfigFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "invalid CONFIG_FILE", err)
		}
		src.file = file
	}
	return src.load(), nil
}

func (src envSource) load() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       src.getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:       src.getEnv("GRPC_ADDR", ":8081"),
			MaxUploadBytes: src.getEnvAsInt64("MAX_UPLOAD_BYTES", 100<<20),
			MaxPages:       src.getEnvAsInt("MAX_PAGES", 900),
		},
		Worker: WorkerConfig{
			Workers:    src.getEnvAsInt("WORKERS", 2),
			QueueSize:  src.getEnvAsInt("QUEUE_SIZE", 64),
			BatchSize:  src.getEnvAsInt("BATCH_SIZE", 10),
			JobTimeout: src.getEnvAsDuration("JOB_TIMEOUT", 0),
		},
		Retention: RetentionConfig{
			JobRetention:  src.getEnvAsDuration("JOB_RETENTION", 24*time.Hour),
			SweepInterval: src.getEnvAsDuration("SWEEP_INTERVAL", 10*time.Minute),
		},
		Storage: StorageConfig{
			UploadDir:  src.getEnv("UPLOAD_DIR", "./storage/uploads"),
			ResultsDir: src.getEnv("RESULTS_DIR", "./storage/results"),
			InboxDir:   src.getEnv("INBOX_DIR", ""),
		},
		OCR: OCRConfig{
			Pdftoppm:      src.getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:     src.getEnv("TESSERACT", "tesseract"),
			TesseractLang: src.getEnv("TESSERACT_LANG", "por"),
			TessdataDir:   src.getEnv("TESSDATA_PREFIX", ""),
			DPI:           src.getEnvAsInt("OCR_DPI", 200),
			PSM:           src.getEnvAsInt("OCR_PSM", 4),
		},
		Archive: ArchiveConfig{
			Driver:           src.getEnv("ARCHIVE_DRIVER", "sqlite"),
			DSN:              src.getEnv("ARCHIVE_DSN", ""),
			MaxConns:         src.getEnvAsInt32("ARCHIVE_MAX_CONNS", 4),
			DialTimeout:      src.getEnvAsDuration("ARCHIVE_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: src.getEnvAsDuration("ARCHIVE_STATEMENT_TIMEOUT", 0),
		},
		Log: LogConfig{
			Level:  src.getEnv("LOG_LEVEL", "info"),
			Format: src.getEnv("LOG_FORMAT", "json"),
		},
	}
}

// envSource resolves a key from the environment first, then the config file.
type envSource struct {
	file map[string]string
}

func (src envSource) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return src.file[key]
}

// Helper functions for environment variable parsing
func (src envSource) getEnv(key, defaultValue string) string {
	if value := src.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (src envSource) getEnvAsInt(key string, defaultValue int) int {
	if value := src.lookup(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (src envSource) getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := src.lookup(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func (src envSource) getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := src.lookup(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (src envSource) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := src.lookup(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return NewAppError(CodeConfig, "MAX_UPLOAD_BYTES must be positive", ErrInvalidInput)
	}
	if c.Server.MaxPages <= 0 {
		return NewAppError(CodeConfig, "MAX_PAGES must be positive", ErrInvalidInput)
	}
	if c.Worker.Workers <= 0 {
		return NewAppError(CodeConfig, "WORKERS must be positive", ErrInvalidInput)
	}
	if c.Worker.BatchSize <= 0 {
		return NewAppError(CodeConfig, "BATCH_SIZE must be positive", ErrInvalidInput)
	}
	if c.Storage.UploadDir == "" {
		return NewAppError(CodeConfig, "UPLOAD_DIR is required", ErrInvalidInput)
	}
	if c.Archive.DSN != "" {
		switch c.Archive.Driver {
		case "sqlite", "postgres":
		default:
			return NewAppError(CodeConfig, "ARCHIVE_DRIVER must be sqlite or postgres", ErrInvalidInput)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return NewAppError(CodeConfig, "LOG_FORMAT must be json or text", ErrInvalidInput)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
