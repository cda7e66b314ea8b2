// Package givers holds the candidate giver contracts and hands out distinct
// ones to worker slots each cycle.
package givers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/giver-miner/internal/chain"
)

var ErrUnknownPool = errors.New("unknown givers pool")

// Pools maps a pool size selector (100 or 1000) to its giver addresses.
type Pools map[int][]string

// LoadPools reads pools from path, or from url when path does not exist.
// The document is a JSON object keyed by pool size: {"100": [...], "1000": [...]}.
func LoadPools(ctx context.Context, path, url string) (Pools, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && url != "":
		log.Info().Str("path", path).Str("url", url).Msg("local givers file not found, fetching")
		data, err = fetchPools(ctx, url)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read givers file %s: %w", path, err)
	}
	return ParsePools(data)
}

// ParsePools decodes and validates a pools document. Invalid addresses are an
// error; duplicates inside a pool are dropped.
func ParsePools(data []byte) (Pools, error) {
	var raw map[string][]string
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse givers: %w", err)
	}

	pools := make(Pools, len(raw))
	for key, addrs := range raw {
		size, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("givers pool key %q is not a size", key)
		}

		seen := make(map[string]struct{}, len(addrs))
		pool := make([]string, 0, len(addrs))
		for _, a := range addrs {
			if _, err := chain.ParseAddress(a); err != nil {
				return nil, fmt.Errorf("givers pool %d: %w", size, err)
			}
			if _, dup := seen[a]; dup {
				log.Warn().Int("pool", size).Str("giver", a).Msg("duplicate giver dropped")
				continue
			}
			seen[a] = struct{}{}
			pool = append(pool, a)
		}
		pools[size] = pool
	}
	return pools, nil
}

// Select returns the pool for a GIVERS_COUNT selector.
func (p Pools) Select(size int) ([]string, error) {
	switch size {
	case 100, 1000:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPool, size)
	}
	pool := p[size]
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: pool %d is empty", ErrUnknownPool, size)
	}
	if len(pool) != size {
		log.Warn().Int("pool", size).Int("givers", len(pool)).Msg("givers pool size differs from its selector")
	}
	return pool, nil
}

func fetchPools(ctx context.Context, url string) ([]byte, error) {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetHeader("Accept", "application/json")

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("get request failed")
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("url", url).Msg("get non-2xx")
		return nil, fmt.Errorf("request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}
