package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
	"github.com/xssnick/tonutils-go/liteclient"

	"github.com/tensorplex-labs/giver-miner/internal/chain"
)

var (
	ErrInvalidGiversCount = errors.New("givers count must be 100 or 1000")
	ErrInvalidValue       = errors.New("invalid configuration value")
)

// Settings is everything the miner needs after startup. It is built once by
// Load and never modified afterwards.
type Settings struct {
	Env     MinerEnvConfig
	Network *liteclient.GlobalConfig
}

// Load reads the process environment and the network descriptor.
func Load(ctx context.Context) (*Settings, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith is Load with an explicit variable source.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Settings, error) {
	envCfg, err := LoadEnv(ctx, lookuper)
	if err != nil {
		return nil, err
	}

	network, err := LoadGlobalConfig(ctx, envCfg.GlobalConfigPath, envCfg.GlobalConfigURL)
	if err != nil {
		return nil, fmt.Errorf("load network config: %w", err)
	}

	return &Settings{Env: *envCfg, Network: network}, nil
}

// LoadEnv parses and validates the environment scalars.
func LoadEnv(ctx context.Context, lookuper envconfig.Lookuper) (*MinerEnvConfig, error) {
	var cfg MinerEnvConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("gpu_count", cfg.GPUCount).
		Int("timeout", cfg.Timeout).
		Int64("iterations", cfg.Iterations).
		Int("givers_count", cfg.GiversCount).
		Int("boost_factor", cfg.BoostFactor).
		Str("miner_path", cfg.MinerPath).
		Bool("concurrent_slots", cfg.ConcurrentSlots).
		Msg("environment configuration loaded")

	return &cfg, nil
}

// Validate checks the values envconfig cannot check on its own.
func (c *MinerEnvConfig) Validate() error {
	if c.GPUCount <= 0 {
		return fmt.Errorf("%w: GPU_COUNT must be positive, got %d", ErrInvalidValue, c.GPUCount)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: TIMEOUT must be positive, got %d", ErrInvalidValue, c.Timeout)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: ITERATIONS must be positive, got %d", ErrInvalidValue, c.Iterations)
	}
	if c.BoostFactor <= 0 {
		return fmt.Errorf("%w: BOOST_FACTOR must be positive, got %d", ErrInvalidValue, c.BoostFactor)
	}
	switch c.GiversCount {
	case SmallGiversPool, LargeGiversPool:
	default:
		return fmt.Errorf("%w: got %d", ErrInvalidGiversCount, c.GiversCount)
	}
	if _, err := chain.ParseAddress(c.RecipientAddress); err != nil {
		return fmt.Errorf("%w: TARGET_ADDRESS: %v", ErrInvalidValue, err)
	}
	if c.BackoffMin <= 0 || c.BackoffMin > c.BackoffMax {
		return fmt.Errorf("%w: RETRY_BACKOFF_MIN %s must be positive and not exceed RETRY_BACKOFF_MAX %s",
			ErrInvalidValue, c.BackoffMin, c.BackoffMax)
	}

	info, err := os.Stat(c.MinerPath)
	if err != nil {
		return fmt.Errorf("%w: MINER_PATH: %v", ErrInvalidValue, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: MINER_PATH %s is a directory", ErrInvalidValue, c.MinerPath)
	}
	return nil
}
