package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/giver-miner/internal/chain"
	"github.com/tensorplex-labs/giver-miner/internal/config"
	"github.com/tensorplex-labs/giver-miner/internal/givers"
	"github.com/tensorplex-labs/giver-miner/internal/miner"
	"github.com/tensorplex-labs/giver-miner/internal/powminer"
	"github.com/tensorplex-labs/giver-miner/internal/status"
	"github.com/tensorplex-labs/giver-miner/pkg/utils/logger"
)

func main() {
	envErr := godotenv.Load()
	logger.Init()
	if envErr != nil {
		log.Warn().Err(envErr).Msg("no .env file loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	env := settings.Env

	pools, err := givers.LoadPools(ctx, env.GiversPath, env.GiversURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load givers")
	}
	pool, err := pools.Select(env.GiversCount)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to select givers pool")
	}
	allocator := givers.NewAllocator(pool, nil)

	invokerCfg := powminer.Config{
		BinaryPath:  env.MinerPath,
		OutputDir:   env.BocsDir,
		Recipient:   env.RecipientAddress,
		BoostFactor: env.BoostFactor,
		Timeout:     env.AttemptTimeout(),
		Iterations:  env.Iterations,
	}
	if env.Verbose {
		invokerCfg.Stdout = os.Stdout
		invokerCfg.Stderr = os.Stderr
	}
	invoker, err := powminer.New(invokerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up pow miner")
	}

	node, err := chain.Dial(ctx, settings.Network, env.Mnemonic)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to ton network")
	}
	defer node.Close()

	m := miner.New(miner.Config{
		Slots:      env.GPUCount,
		Concurrent: env.ConcurrentSlots,
		BackoffMin: env.BackoffMin,
		BackoffMax: env.BackoffMax,
	}, node, allocator, invoker)

	if env.StatusAddr != "" {
		srv := status.NewServer(env.StatusAddr, m.Stats())
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	log.Info().
		Str("wallet", node.WalletAddress.String()).
		Str("recipient", env.RecipientAddress).
		Int("gpus", env.GPUCount).
		Int("givers", allocator.Size()).
		Msg("miner is running. Press Ctrl+C to shutdown...")

	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("mining loop stopped")
	}

	log.Info().Msg("miner shutdown complete")
}
