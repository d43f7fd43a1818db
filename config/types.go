package config

// Engine captures the runtime knobs of the vault engine that are not
// governance controlled.
type Engine struct {
	// MaxPriceAgeSeconds rejects prices older than this. Zero disables the check.
	MaxPriceAgeSeconds uint64 `toml:"MaxPriceAgeSeconds"`
	OracleQuota        Quota  `toml:"oracle_quota"`
}

// Quota defines how many submissions an oracle may make per epoch.
type Quota struct {
	MaxRequestsPerEpoch uint32 `toml:"MaxRequestsPerEpoch"`
	EpochSeconds        uint64 `toml:"EpochSeconds"` // e.g., 60
}

// Logging configures the optional rotating log file. Logs always go to
// stdout; File adds a copy on disk.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Telemetry configures tracing export and the metrics textfile.
type Telemetry struct {
	OTLPEndpoint string `toml:"OTLPEndpoint"`
	Insecure     bool   `toml:"Insecure"`
	// Headers is a comma separated key=value list sent with every export.
	Headers     string `toml:"Headers"`
	MetricsFile string `toml:"MetricsFile"`
}
