// Package syncer drives the periodic research sync cycle of a node.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-researchsync/cluster"
	"github.com/spacemeshos/go-researchsync/engine"
	"github.com/spacemeshos/go-researchsync/localstate"
	"github.com/spacemeshos/go-researchsync/reconcile"
	"github.com/spacemeshos/go-researchsync/relay"
	"github.com/spacemeshos/go-researchsync/tech"
)

// State is the phase of the sync cycle.
type State uint32

const (
	Idle State = iota
	// Scanning is the grace period after the engine was asked for a dump.
	Scanning
	AwaitingPeers
	Reconciling
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case AwaitingPeers:
		return "awaitingPeers"
	case Reconciling:
		return "reconciling"
	case Publishing:
		return "publishing"
	default:
		return "unknown"
	}
}

type Config struct {
	// Interval between the starts of two sync cycles.
	Interval time.Duration `mapstructure:"interval"`
	// ScanGrace is how long the engine is given to report technologies
	// before peers are fetched.
	ScanGrace time.Duration `mapstructure:"scan-grace"`
	// RegisterRetry is the delay between attempts to fetch own state at startup.
	RegisterRetry time.Duration `mapstructure:"register-retry"`
}

func DefaultConfig() Config {
	return Config{
		Interval:      5 * time.Second,
		ScanGrace:     2 * time.Second,
		RegisterRetry: 5 * time.Second,
	}
}

type Opt func(*Syncer)

func WithLogger(logger *zap.Logger) Opt {
	return func(s *Syncer) {
		s.logger = logger
	}
}

func WithConfig(cfg Config) Opt {
	return func(s *Syncer) {
		s.cfg = cfg
	}
}

func withClock(clock clockwork.Clock) Opt {
	return func(s *Syncer) {
		s.clock = clock
	}
}

// Syncer keeps the local research in sync with the cluster. Cycles never
// overlap: ticks that fire while a cycle runs are dropped.
type Syncer struct {
	logger *zap.Logger
	cfg    Config
	clock  clockwork.Clock

	nodeID     string
	store      *localstate.Store
	relay      relayClient
	engine     engineChannel
	aggregator *cluster.Aggregator
	reconciler *reconcile.Reconciler

	state atomic.Uint32
}

func New(
	nodeID string,
	store *localstate.Store,
	relay relayClient,
	engine engineChannel,
	opts ...Opt,
) *Syncer {
	s := &Syncer{
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
		clock:  clockwork.NewRealClock(),
		nodeID: nodeID,
		store:  store,
		relay:  relay,
		engine: engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.aggregator = cluster.New(cluster.WithLogger(s.logger))
	s.reconciler = reconcile.New(reconcile.WithLogger(s.logger))
	return s
}

// State returns the current phase of the cycle.
func (s *Syncer) State() State {
	return State(s.state.Load())
}

func (s *Syncer) setState(state State) {
	if prev := State(s.state.Swap(uint32(state))); prev != state {
		s.logger.Debug("sync state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", state),
		)
	}
	syncState.Set(float64(state))
}

// Start registers with the relay and then runs a cycle every interval until
// ctx is done.
func (s *Syncer) Start(ctx context.Context) error {
	if err := s.Register(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	s.logger.Info("starting sync loop", zap.Duration("interval", s.cfg.Interval))
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			s.Cycle(ctx)
		}
	}
}

// Register blocks until the relay returns the state this node published
// before, retrying while the node is unknown or the relay is unreachable.
// The published state replaces the local research.
func (s *Syncer) Register(ctx context.Context) error {
	for {
		research, err := s.relay.FetchOwnState(ctx)
		switch {
		case err == nil:
			registered.Inc()
			if research == nil {
				s.logger.Info("no techs imported, none were published yet")
			} else {
				s.store.Import(research)
			}
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, relay.ErrNotRegistered):
			notRegistered.Inc()
			s.logger.Info("node is not registered yet", zap.Duration("retry", s.cfg.RegisterRetry))
		default:
			registrationErr.Inc()
			s.logger.Warn("failed to fetch own state",
				zap.Duration("retry", s.cfg.RegisterRetry),
				zap.Error(err),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.cfg.RegisterRetry):
		}
	}
}

// Cycle requests a dump from the engine, waits for the scan grace period and
// synchronizes with the cluster. Failures are logged and leave the cycle for
// the next tick to retry.
func (s *Syncer) Cycle(ctx context.Context) {
	defer s.setState(Idle)
	start := s.clock.Now()

	s.setState(Scanning)
	if err := s.engine.Send(ctx, engine.Dump{}); err != nil {
		s.logger.Warn("failed to request technology dump", zap.Error(err))
	}
	select {
	case <-ctx.Done():
		return
	case <-s.clock.After(s.cfg.ScanGrace):
	}

	if err := s.Synchronize(ctx); err != nil {
		cycleFail.Inc()
		s.logger.Warn("sync cycle failed", zap.Error(err))
		return
	}
	cycleSuccess.Inc()
	cycleDuration.Observe(s.clock.Since(start).Seconds())
}

// Synchronize fetches peer snapshots, reconciles them with the local research,
// sends the resulting commands to the engine and publishes the local research.
func (s *Syncer) Synchronize(ctx context.Context) error {
	s.setState(AwaitingPeers)
	peers, err := s.relay.FetchPeers(ctx)
	if err != nil {
		return fmt.Errorf("fetch peers: %w", err)
	}
	peers = slices.DeleteFunc(peers, func(p tech.PeerSnapshot) bool {
		return p.NodeID == s.nodeID
	})
	peersSeen.Set(float64(len(peers)))

	s.setState(Reconciling)
	var (
		cmds      []engine.Command
		published tech.Map
	)
	s.store.Reconcile(func(st *localstate.State) {
		st.ResetRealizedContributions()
		view := s.aggregator.Build(st.Research, peers)
		toResearch := reconcile.SelectToResearch(st.Research, view)
		toUpdate := reconcile.SelectToUpdateProgress(st.Research, view, toResearch)
		cmds = append(cmds, s.reconciler.ApplyResearch(st.Research, toResearch)...)
		cmds = append(cmds, s.reconciler.ApplyProgressUpdates(st.Research, toUpdate)...)
		s.reconciler.ReportOwnContributions(st.Research, st.Previous)
		published = st.Research.Clone()
	})
	for _, cmd := range cmds {
		if err := s.engine.Send(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("failed to send engine command", zap.String("kind", cmd.Kind()), zap.Error(err))
		}
	}

	s.setState(Publishing)
	if err := s.relay.Publish(ctx, published); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	s.logger.Debug("published research",
		zap.Int("techs", len(published)),
		zap.Int("peers", len(peers)),
		zap.Int("commands", len(cmds)),
	)
	return nil
}
