package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"vaultchain/storage"
)

const (
	// EnvEnvironment overrides Config.Environment.
	EnvEnvironment = "VAULTCHAIN_ENV"
	// EnvDataDir overrides Config.DataDir.
	EnvDataDir = "VAULTCHAIN_DATA_DIR"

	defaultEnvironment = "dev"
	defaultDataDir     = "./vault-data"
	defaultLogLevel    = "info"
)

type Config struct {
	Environment    string    `toml:"Environment"`
	DataDir        string    `toml:"DataDir"`
	StorageBackend string    `toml:"StorageBackend"`
	GenesisFile    string    `toml:"GenesisFile"`
	KeystorePath   string    `toml:"KeystorePath"`
	JournalPath    string    `toml:"JournalPath"`
	Engine         Engine    `toml:"engine"`
	Logging        Logging   `toml:"logging"`
	Telemetry      Telemetry `toml:"telemetry"`
}

// Load loads the configuration from the given path. A missing file is created
// with defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
	}

	cfg.applyDefaults(path)
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh install.
func Default() *Config {
	cfg := &Config{
		Environment:    defaultEnvironment,
		DataDir:        defaultDataDir,
		StorageBackend: storage.BackendLevelDB,
		Engine: Engine{
			OracleQuota: Quota{MaxRequestsPerEpoch: 0, EpochSeconds: 60},
		},
		Logging: Logging{
			Level:      defaultLogLevel,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
	return cfg
}

func (c *Config) applyDefaults(path string) {
	def := Default()
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = def.Environment
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = def.DataDir
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = def.StorageBackend
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = def.Logging.MaxSizeMB
	}
	if c.Engine.OracleQuota.EpochSeconds == 0 {
		c.Engine.OracleQuota.EpochSeconds = def.Engine.OracleQuota.EpochSeconds
	}
	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(c.DataDir, "journal.db")
	}
	if c.GenesisFile != "" && !filepath.IsAbs(c.GenesisFile) {
		c.GenesisFile = filepath.Join(filepath.Dir(path), c.GenesisFile)
	}
}

func (c *Config) applyEnv() {
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		c.Environment = env
	}
	if dir := strings.TrimSpace(os.Getenv(EnvDataDir)); dir != "" {
		c.DataDir = dir
	}
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("config: unsupported StorageBackend %q", c.StorageBackend)
	}
	if c.StorageBackend != storage.BackendMemory && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required for %s backend", c.StorageBackend)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid logging level %q", c.Logging.Level)
	}
	q := c.Engine.OracleQuota
	if q.MaxRequestsPerEpoch > 0 && q.EpochSeconds == 0 {
		return fmt.Errorf("config: oracle quota requires EpochSeconds")
	}
	return nil
}

// StatePath returns the location of the state database for the configured backend.
func (c *Config) StatePath() string {
	switch c.StorageBackend {
	case storage.BackendBolt:
		return filepath.Join(c.DataDir, "state.db")
	case storage.BackendMemory:
		return ""
	default:
		return filepath.Join(c.DataDir, "state")
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults(path)
	cfg.applyEnv()
	return cfg, nil
}

// Save writes cfg to path in TOML form.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
