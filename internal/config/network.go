package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"github.com/xssnick/tonutils-go/liteclient"
)

var ErrNoLiteservers = errors.New("network config has no liteservers")

// LoadGlobalConfig reads the network descriptor from path, falling back to
// url when the file does not exist.
func LoadGlobalConfig(ctx context.Context, path, url string) (*liteclient.GlobalConfig, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		log.Debug().Str("path", path).Int("size", len(data)).Msg("read local network config")
	case errors.Is(err, fs.ErrNotExist):
		if url == "" {
			return nil, fmt.Errorf("network config %s not found and no fallback url configured", path)
		}
		log.Info().Str("path", path).Str("url", url).Msg("local network config not found, fetching")
		data, err = fetchGlobalConfig(ctx, newHTTPClient(), url)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read network config %s: %w", path, err)
	}

	return parseGlobalConfig(data)
}

func parseGlobalConfig(data []byte) (*liteclient.GlobalConfig, error) {
	var cfg liteclient.GlobalConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse network config: %w", err)
	}
	if len(cfg.Liteservers) == 0 {
		return nil, ErrNoLiteservers
	}
	return &cfg, nil
}

func newHTTPClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 5
	client.HTTPClient.Timeout = 30 * time.Second
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 20 * time.Second
	client.Logger = nil
	return client
}

func fetchGlobalConfig(ctx context.Context, client *retryablehttp.Client, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("network config request failed")
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("url", url).
			Msg("network config request returned non-200")
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	log.Debug().
		Str("url", url).
		Int("response_body_length", len(body)).
		Msg("network config fetched")
	return body, nil
}
