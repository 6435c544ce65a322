package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration, read from a TOML file.
type Config struct {
	BaseDir string `toml:"base_dir"` // state directory: database, settings, logs
	LogDir  string `toml:"log_dir"`

	Library     LibraryConfig     `toml:"library"`
	Database    DatabaseConfig    `toml:"database"`
	Stash       StashConfig       `toml:"stash"`
	Permissions PermissionsConfig `toml:"permissions"`
}

// LibraryConfig describes where photos live.
type LibraryConfig struct {
	Roots      []string `toml:"roots"`
	Extensions []string `toml:"extensions"` // lower-case, with dot; empty means defaults
}

type DatabaseConfig struct {
	Type    string `toml:"type"` // "sqlite"
	DataDir string `toml:"data_dir"`
}

// StashConfig selects where photos are copied before permanent deletion.
// Type "none" disables stashing.
type StashConfig struct {
	Type string   `toml:"type"` // "none", "filesystem" or "s3"
	Dir  string   `toml:"dir"`  // filesystem stash directory
	S3   S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"` // optional, for S3-compatible stores
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// PermissionsConfig is the static permission grant for this installation.
type PermissionsConfig struct {
	AllowScan   bool `toml:"allow_scan"`
	AllowDelete bool `toml:"allow_delete"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".sweeper", "config.toml"), nil
}

// Load reads and validates the config at path, filling defaults for
// omitted fields.
func Load(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys in %q: %v", path, undecoded)
	}
	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config %q: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.BaseDir == "" {
		c.BaseDir = baseDir
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.BaseDir, "logs")
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DataDir == "" {
		c.Database.DataDir = c.BaseDir
	}
	if len(c.Library.Extensions) == 0 {
		c.Library.Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic"}
	}
	if c.Stash.Type == "" {
		c.Stash.Type = "none"
	}
}

func (c *Config) validate() error {
	if len(c.Library.Roots) == 0 {
		return fmt.Errorf("library.roots must name at least one directory")
	}
	switch c.Stash.Type {
	case "none":
	case "filesystem":
		if c.Stash.Dir == "" {
			return fmt.Errorf("stash.dir is required for the filesystem stash")
		}
	case "s3":
		if c.Stash.S3.Bucket == "" {
			return fmt.Errorf("stash.s3.bucket is required for the s3 stash")
		}
	default:
		return fmt.Errorf("unknown stash type %q", c.Stash.Type)
	}
	return nil
}

// Example returns a commented starter config.
func Example() string {
	return `# sweeper configuration
base_dir = ""    # defaults to the config file's directory
log_dir = ""     # defaults to <base_dir>/logs

[library]
roots = ["~/Pictures"]
# extensions = [".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic"]

[database]
type = "sqlite"
# data_dir = ""  # defaults to base_dir

[stash]
type = "none"    # "none", "filesystem" or "s3"
# dir = "~/.sweeper/stash"

# [stash.s3]
# bucket = "my-photo-stash"
# prefix = "sweeper/"
# region = "us-east-1"

[permissions]
allow_scan = true
allow_delete = false
`
}
