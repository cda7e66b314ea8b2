// Package config defines the miner's environment configuration and the loader
// that turns it, together with the TON network descriptor, into Settings.
package config

import "time"

// Pool sizes GIVERS_COUNT may select.
const (
	SmallGiversPool = 100
	LargeGiversPool = 1000
)

// MinerEnvConfig holds the scalars read from the environment (and .env).
type MinerEnvConfig struct {
	WalletEnvConfig
	PowEnvConfig
	NetworkEnvConfig
	LoopEnvConfig

	GiversCount int    `env:"GIVERS_COUNT, required"`
	GiversPath  string `env:"GIVERS_PATH, default=data/givers.json"`
	GiversURL   string `env:"GIVERS_URL"`

	StatusAddr  string `env:"STATUS_ADDR"`
	Environment string `env:"ENVIRONMENT, default=prod"`
}

// WalletEnvConfig holds the wallet mnemonic and the reward recipient.
type WalletEnvConfig struct {
	Mnemonic         string `env:"SEED, required"`
	RecipientAddress string `env:"TARGET_ADDRESS, required"`
}

// PowEnvConfig configures the external proof-of-work executable.
type PowEnvConfig struct {
	GPUCount    int    `env:"GPU_COUNT, required"`
	Timeout     int    `env:"TIMEOUT, required"` // seconds
	Iterations  int64  `env:"ITERATIONS, required"`
	BoostFactor int    `env:"BOOST_FACTOR, required"`
	MinerPath   string `env:"MINER_PATH, default=./data/pow-miner-cuda"`
	BocsDir     string `env:"BOCS_DIR, default=data/bocs"`
	Verbose     bool   `env:"MINER_VERBOSE, default=false"`
}

// NetworkEnvConfig locates the lite-server network descriptor.
type NetworkEnvConfig struct {
	GlobalConfigPath string `env:"GLOBAL_CONFIG_PATH, default=data/global-config.json"`
	GlobalConfigURL  string `env:"GLOBAL_CONFIG_URL, default=https://ton.org/global-config.json"`
}

// LoopEnvConfig tunes the run loop.
type LoopEnvConfig struct {
	ConcurrentSlots bool          `env:"CONCURRENT_SLOTS, default=true"`
	BackoffMin      time.Duration `env:"RETRY_BACKOFF_MIN, default=1s"`
	BackoffMax      time.Duration `env:"RETRY_BACKOFF_MAX, default=30s"`
}

// AttemptTimeout is TIMEOUT as a duration.
func (c PowEnvConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
