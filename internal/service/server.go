package service

import (
	"context"
	"fmt"

	"github.com/1sec-project/forensec/internal/core"
	"github.com/1sec-project/forensec/internal/forensics"
	"github.com/1sec-project/forensec/internal/ingest"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Server serves analysis queries over NATS for one log source.
type Server struct {
	cfg       *core.Config
	logger    zerolog.Logger
	bus       *core.FindingBus
	store     *Store
	responder *Responder
	watcher   *Watcher
}

// NewServer loads the initial snapshot and connects to the bus. The caller
// owns nothing; Run releases everything on return.
func NewServer(cfg *core.Config, logger zerolog.Logger) (*Server, error) {
	if cfg.Service.LogPath == "" {
		return nil, fmt.Errorf("service.log_path is required")
	}

	loader := ingest.NewLoader(cfg.IngestOptions(), logger)
	store := NewStore(cfg.Service.LogPath, loader, logger)
	if _, err := store.Reload(); err != nil {
		return nil, err
	}

	bus, err := core.NewFindingBus(&cfg.Bus, logger)
	if err != nil {
		return nil, fmt.Errorf("starting finding bus: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "server").Logger(),
		bus:    bus,
		store:  store,
	}
	s.responder = NewResponder(bus, store, forensics.NewAnalyzer(logger), ResponderConfig{
		QueueGroup:      cfg.Service.QueueGroup,
		AlertLimit:      cfg.Analysis.AlertLimit,
		PublishFindings: cfg.Service.PublishFindings,
		DedupWindow:     cfg.Service.DedupWindow,
	}, logger)
	if cfg.Service.Watch {
		s.watcher = NewWatcher(store, cfg.Service.Debounce, logger, nil)
	}
	return s, nil
}

// Store returns the snapshot store.
func (s *Server) Store() *Store { return s.store }

// Bus returns the finding bus.
func (s *Server) Bus() *core.FindingBus { return s.bus }

// Run serves until ctx is cancelled or the watcher fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.bus.Close()

	if err := s.responder.Start(); err != nil {
		return err
	}
	defer s.responder.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if s.watcher != nil {
		g.Go(func() error { return s.watcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	s.logger.Info().
		Str("log_path", s.store.Path()).
		Str("nats", s.bus.ClientURL()).
		Bool("watch", s.watcher != nil).
		Msg("forensec query service started")

	err := g.Wait()
	s.logger.Info().Msg("forensec query service stopped")
	return err
}
