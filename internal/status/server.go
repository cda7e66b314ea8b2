// Package status serves the miner's session counters over HTTP.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/giver-miner/internal/miner"
)

// StatsSource is satisfied by *miner.Stats.
type StatsSource interface {
	Snapshot() miner.StatsSnapshot
}

type Server struct {
	App   *fiber.App
	addr  string
	stats StatsSource
}

func NewServer(addr string, stats StatsSource) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(recover.New())

	s := &Server{App: app, addr: addr, stats: stats}
	app.Get("/health", s.handleHealth)
	app.Get("/status", s.handleStatus)
	return s
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(s.stats.Snapshot())
}

// Start serves until ctx is cancelled, then shuts the app down.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", s.addr).Msg("status server listening")
		errCh <- s.App.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.App.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
