package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendS3    = "s3"
	BackendDrive = "drive"
	BackendLocal = "local"

	DefaultPort         = "8080"
	DefaultLogLevel     = "info"
	DefaultDPI          = 150.0
	DefaultMaxFileSize  = 20 * 1024 * 1024
	DefaultConverterBin = "soffice"
	DefaultOutputFormat = "docx"

	DefaultDirPerm = 0o750
)

type Config struct {
	Port     string
	LogLevel string

	// File store
	StoreBackend string

	// S3
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// Google Drive
	DriveCredentialsFile string

	// Local directory store
	LocalRoot string

	// Folders
	LetterheadFolderID string
	BodyFolderID       string
	OutputFolderID     string

	// Pipeline
	ConverterBinary string
	WorkDir         string
	RenderDPI       float64
	OutputFormat    string

	// Download limits
	MaxFileSize int64
}

// Load reads configuration from defaults, LETTERHEAD_* environment variables
// and command line flags, in increasing order of precedence.
func Load(args []string) (*Config, error) {
	v := viper.New()
	fs := pflag.NewFlagSet("letterhead-merger", pflag.ContinueOnError)

	setDefaults(v)
	defineFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetEnvPrefix("LETTERHEAD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)

	if cfg.WorkDir != "" {
		if abs, err := filepath.Abs(cfg.WorkDir); err == nil {
			cfg.WorkDir = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("store", BackendS3)
	v.SetDefault("s3-endpoint", "localhost:9000")
	v.SetDefault("s3-access-key-id", "minioadmin")
	v.SetDefault("s3-secret-access-key", "minioadmin")
	v.SetDefault("s3-bucket", "letterheads")
	v.SetDefault("s3-use-ssl", false)
	v.SetDefault("drive-credentials", "service_account.json")
	v.SetDefault("local-root", "./data")
	v.SetDefault("letterhead-folder", "letterheads")
	v.SetDefault("body-folder", "bodies")
	v.SetDefault("output-folder", "generated")
	v.SetDefault("converter", DefaultConverterBin)
	v.SetDefault("work-dir", filepath.Join(os.TempDir(), "letterhead-merger"))
	v.SetDefault("dpi", DefaultDPI)
	v.SetDefault("output-format", DefaultOutputFormat)
	v.SetDefault("max-file-size", DefaultMaxFileSize)
}

// Flag zero values are placeholders; viper only reads flags that were set.
func defineFlags(fs *pflag.FlagSet) {
	fs.String("port", "", "HTTP listen port")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("store", "", "File store backend: 's3', 'drive' or 'local'")
	fs.String("s3-endpoint", "", "S3 endpoint host:port")
	fs.String("s3-bucket", "", "S3 bucket holding the folders")
	fs.String("drive-credentials", "", "Google service account credentials file")
	fs.String("local-root", "", "Root directory of the local store")
	fs.String("letterhead-folder", "", "Folder id listing letterhead templates")
	fs.String("body-folder", "", "Folder id listing body documents")
	fs.String("output-folder", "", "Folder id receiving exported documents")
	fs.String("converter", "", "Office converter binary used for docx letterheads")
	fs.String("work-dir", "", "Directory holding per-session scratch space")
	fs.Float64("dpi", 0, "Letterhead preview resolution")
	fs.String("output-format", "", "Default output format (docx or pdf)")
	fs.Int64("max-file-size", 0, "Maximum downloaded file size in bytes")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:                 v.GetString("port"),
		LogLevel:             v.GetString("log-level"),
		StoreBackend:         v.GetString("store"),
		S3Endpoint:           v.GetString("s3-endpoint"),
		S3AccessKeyID:        v.GetString("s3-access-key-id"),
		S3SecretAccessKey:    v.GetString("s3-secret-access-key"),
		S3BucketName:         v.GetString("s3-bucket"),
		S3UseSSL:             v.GetBool("s3-use-ssl"),
		DriveCredentialsFile: v.GetString("drive-credentials"),
		LocalRoot:            v.GetString("local-root"),
		LetterheadFolderID:   v.GetString("letterhead-folder"),
		BodyFolderID:         v.GetString("body-folder"),
		OutputFolderID:       v.GetString("output-folder"),
		ConverterBinary:      v.GetString("converter"),
		WorkDir:              v.GetString("work-dir"),
		RenderDPI:            v.GetFloat64("dpi"),
		OutputFormat:         v.GetString("output-format"),
		MaxFileSize:          v.GetInt64("max-file-size"),
	}
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendS3, BackendDrive, BackendLocal:
	default:
		return fmt.Errorf("store must be one of '%s', '%s' or '%s'", BackendS3, BackendDrive, BackendLocal)
	}

	if c.StoreBackend == BackendDrive && c.DriveCredentialsFile == "" {
		return errors.New("drive credentials file is required for the drive store")
	}

	if c.StoreBackend == BackendLocal && c.LocalRoot == "" {
		return errors.New("local root is required for the local store")
	}

	if c.LetterheadFolderID == "" || c.BodyFolderID == "" {
		return errors.New("letterhead and body folders are required")
	}

	if c.RenderDPI < 36 || c.RenderDPI > 600 {
		return fmt.Errorf("dpi must be between 36 and 600, got %v", c.RenderDPI)
	}

	if c.OutputFormat != "docx" && c.OutputFormat != "pdf" {
		return fmt.Errorf("invalid output format: %s (must be docx or pdf)", c.OutputFormat)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.WorkDir == "" {
		return errors.New("work directory cannot be empty")
	}
	if err := os.MkdirAll(c.WorkDir, DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create work directory %s: %w", c.WorkDir, err)
	}

	return nil
}

func (c *Config) Address() string {
	return ":" + c.Port
}
