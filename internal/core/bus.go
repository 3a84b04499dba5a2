package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// FindingBus wraps a NATS connection used to publish findings and to serve
// analysis queries. Findings go out on core NATS subjects; nothing is stored.
type FindingBus struct {
	nc     *nats.Conn
	ns     *server.Server
	prefix string
	logger zerolog.Logger

	metrics *BusMetrics
}

// BusMetrics tracks bus counters.
type BusMetrics struct {
	mu                sync.Mutex `json:"-"`
	FindingsPublished int64      `json:"findings_published"`
	FindingsFailed    int64      `json:"findings_failed"`
}

// NewFindingBus connects to NATS. If cfg.Embedded is true it first starts an
// in-process NATS server; a port of -1 picks a random free port.
func NewFindingBus(cfg *BusConfig, logger zerolog.Logger) (*FindingBus, error) {
	bus := &FindingBus{
		prefix:  cfg.SubjectPrefix,
		logger:  logger.With().Str("component", "finding_bus").Logger(),
		metrics: &BusMetrics{},
	}
	if bus.prefix == "" {
		bus.prefix = "forensec"
	}

	url := cfg.URL
	if cfg.Embedded {
		host := cfg.Host
		if host == "" {
			host = "127.0.0.1"
		}
		opts := &server.Options{
			Host:   host,
			Port:   cfg.Port,
			NoLog:  true,
			NoSigs: true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return nil, fmt.Errorf("creating embedded NATS server: %w", err)
		}

		ns.Start()

		if !ns.ReadyForConnections(10 * time.Second) {
			ns.Shutdown()
			return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
		}

		bus.ns = ns
		url = ns.ClientURL()
		bus.logger.Info().Str("url", url).Msg("embedded NATS server started")
	}

	nc, err := nats.Connect(url,
		nats.Name("forensec"),
		nats.MaxReconnects(60),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				bus.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			bus.logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		if bus.ns != nil {
			bus.ns.Shutdown()
		}
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	bus.nc = nc

	bus.logger.Info().Str("url", url).Msg("connected to NATS")
	return bus, nil
}

// Subject joins the bus prefix with the given tokens.
func (b *FindingBus) Subject(tokens ...string) string {
	s := b.prefix
	for _, t := range tokens {
		s += "." + t
	}
	return s
}

// Publish sends a finding on <prefix>.findings.<analysis>.
func (b *FindingBus) Publish(f *Finding) error {
	data, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling finding: %w", err)
	}

	subject := b.Subject("findings", f.Analysis)
	if err := b.nc.Publish(subject, data); err != nil {
		b.metrics.mu.Lock()
		b.metrics.FindingsFailed++
		b.metrics.mu.Unlock()
		return fmt.Errorf("publishing finding to %s: %w", subject, err)
	}

	b.metrics.mu.Lock()
	b.metrics.FindingsPublished++
	b.metrics.mu.Unlock()

	b.logger.Debug().
		Str("finding_id", f.ID).
		Str("subject", subject).
		Str("severity", f.Severity.String()).
		Msg("finding published")
	return nil
}

// Flush waits until the server has processed everything published so far.
func (b *FindingBus) Flush(timeout time.Duration) error {
	return b.nc.FlushTimeout(timeout)
}

// Conn exposes the underlying connection for request/reply handlers.
func (b *FindingBus) Conn() *nats.Conn { return b.nc }

// ClientURL returns the URL clients should use to reach this bus.
func (b *FindingBus) ClientURL() string {
	if b.ns != nil {
		return b.ns.ClientURL()
	}
	return b.nc.ConnectedUrl()
}

// Close flushes and closes the connection and stops the embedded server, if
// any.
func (b *FindingBus) Close() error {
	if b.nc != nil {
		if err := b.nc.FlushTimeout(time.Second); err != nil {
			b.logger.Warn().Err(err).Msg("flush before close failed")
		}
		b.nc.Close()
	}

	if b.ns != nil {
		b.ns.Shutdown()
		b.ns.WaitForShutdown()
		b.logger.Info().Msg("embedded NATS server stopped")
	}
	return nil
}

// IsConnected returns true if the NATS connection is active.
func (b *FindingBus) IsConnected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

// GetMetrics returns a snapshot of bus metrics.
func (b *FindingBus) GetMetrics() map[string]int64 {
	b.metrics.mu.Lock()
	defer b.metrics.mu.Unlock()
	return map[string]int64{
		"findings_published": b.metrics.FindingsPublished,
		"findings_failed":    b.metrics.FindingsFailed,
	}
}
