package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for wishlist.
type Config struct {
	UserID      string            `toml:"user_id"` // signed-in user; empty means anonymous
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	LogLevel    string            `toml:"log_level"` // "debug", "info", "warn" or "error"
	Storage     StorageConfig     `toml:"storage"`
	ObjectStore ObjectStoreConfig `toml:"object_store"`
	Upload      UploadConfig      `toml:"upload"`
	Draft       DraftConfig       `toml:"draft"`
	Encryption  EncryptionConfig  `toml:"encryption"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

// EncryptionConfig holds paths to the age key pair used for drafts at rest.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// StorageConfig represents configuration for the draft key-value store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type      string `toml:"type"`          // "memory", "filesystem", "sqlite" or "badger"
	Dir       string `toml:"dir,omitempty"` // not used for type=memory
	MaxSize   int64  `toml:"max_size"`      // max total bytes stored; defaults to 5MB
	Encrypted bool   `toml:"encrypted"`     // encrypt records with the age key pair
}

// ObjectStoreConfig represents configuration for where uploaded images go.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ObjectStoreConfig struct {
	Type string `toml:"type"` // "memory", "filesystem" or "s3"
	Name string `toml:"name"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // custom endpoint, e.g. MinIO or LocalStack
	S3PathStyle       bool   `toml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"` // static credentials; default chain when empty
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3Presign         bool   `toml:"s3_presign,omitempty"`        // issue presigned PUT URLs instead of uploading directly
	S3PresignExpiry   int    `toml:"s3_presign_expiry,omitempty"` // seconds; defaults to 900
	PublicBaseURL     string `toml:"public_base_url,omitempty"`   // prefix for public image URLs
}

// UploadConfig limits what images may be uploaded and how they are
// compressed first.
type UploadConfig struct {
	MaxFileSize      int64    `toml:"max_file_size"`      // bytes; defaults to 10MB
	AllowedMimeTypes []string `toml:"allowed_mime_types"` // defaults to JPEG, PNG and WebP
	Preset           string   `toml:"preset"`             // low-bandwidth, balanced or high-quality
	SkipCompression  bool     `toml:"skip_compression,omitempty"`
}

// DraftConfig controls draft persistence.
type DraftConfig struct {
	Namespace  string `toml:"namespace"`
	FormName   string `toml:"form_name"`
	DebounceMS int64  `toml:"debounce_ms"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Enabled      bool   `toml:"enabled"`
	TextfilePath string `toml:"textfile_path,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(userID, baseDir string) *Config {
	return &Config{
		UserID:   userID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Storage: StorageConfig{
			Type: "filesystem",
			Dir:  filepath.Join(baseDir, "drafts"),
		},
		ObjectStore: ObjectStoreConfig{
			Type:   "filesystem",
			Name:   "local",
			FSRoot: filepath.Join(baseDir, "images"),
		},
		Upload: UploadConfig{
			AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/webp"},
			Preset:           "balanced",
		},
		Draft: DraftConfig{
			Namespace:  "wishlist",
			FormName:   "add-item",
			DebounceMS: 500,
			MaxAgeDays: 7,
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "wishlist.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "wishlist.key"),
		},
		Metrics: MetricsConfig{
			TextfilePath: filepath.Join(baseDir, "metrics", "wishlist.prom"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// WriteToFile replaces the config file at path.
func WriteToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := WriteToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
