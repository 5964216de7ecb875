package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spacemeshos/go-researchsync/engine"
	"github.com/spacemeshos/go-researchsync/localstate"
	"github.com/spacemeshos/go-researchsync/log/logtest"
	"github.com/spacemeshos/go-researchsync/relay"
	"github.com/spacemeshos/go-researchsync/tech"
)

func num(v float64) tech.Number {
	return tech.Number{Value: v, Valid: true}
}

func finite(level int, contribution float64) tech.PeerRecord {
	return tech.PeerRecord{
		Researched:   num(0),
		Level:        num(float64(level)),
		Progress:     num(contribution),
		Contribution: num(contribution),
		Infinite:     num(0),
	}
}

type tester struct {
	syncer *Syncer
	cfg    Config
	clock  clockwork.FakeClock
	store  *localstate.Store
	relay  *MockrelayClient
	engine *MockengineChannel
}

func newTester(tb testing.TB, opts ...Opt) *tester {
	ctrl := gomock.NewController(tb)
	cfg := DefaultConfig()
	clock := clockwork.NewFakeClock()
	store := localstate.New(localstate.WithLogger(logtest.New(tb)))
	relayClient := NewMockrelayClient(ctrl)
	engineChannel := NewMockengineChannel(ctrl)
	opts = append([]Opt{WithConfig(cfg), WithLogger(logtest.New(tb)), withClock(clock)}, opts...)
	return &tester{
		syncer: New("a", store, relayClient, engineChannel, opts...),
		cfg:    cfg,
		clock:  clock,
		store:  store,
		relay:  relayClient,
		engine: engineChannel,
	}
}

func TestRegister(t *testing.T) {
	t.Run("retries until registered", func(t *testing.T) {
		tester := newTester(t)
		published := tech.Map{"optics": {Researched: true, Level: 1}}
		gomock.InOrder(
			tester.relay.EXPECT().FetchOwnState(gomock.Any()).Return(nil, relay.ErrNotRegistered),
			tester.relay.EXPECT().FetchOwnState(gomock.Any()).Return(nil, errors.New("connection refused")),
			tester.relay.EXPECT().FetchOwnState(gomock.Any()).Return(published, nil),
		)
		errc := make(chan error, 1)
		go func() { errc <- tester.syncer.Register(context.Background()) }()

		for range 2 {
			tester.clock.BlockUntil(1)
			tester.clock.Advance(tester.cfg.RegisterRetry)
		}
		require.NoError(t, <-errc)
		require.Equal(t, published, tester.store.Snapshot())
	})
	t.Run("nothing published keeps local research", func(t *testing.T) {
		tester := newTester(t)
		tester.store.ApplyScanResult(tech.Scan{Name: "optics", Level: 1})
		tester.relay.EXPECT().FetchOwnState(gomock.Any()).Return(nil, nil)
		require.NoError(t, tester.syncer.Register(context.Background()))
		require.Equal(t, tech.Map{"optics": {Level: 1}}, tester.store.Snapshot())
	})
	t.Run("canceled while waiting", func(t *testing.T) {
		tester := newTester(t)
		tester.relay.EXPECT().FetchOwnState(gomock.Any()).Return(nil, relay.ErrNotRegistered)
		ctx, cancel := context.WithCancel(context.Background())
		errc := make(chan error, 1)
		go func() { errc <- tester.syncer.Register(ctx) }()
		tester.clock.BlockUntil(1)
		cancel()
		require.ErrorIs(t, <-errc, context.Canceled)
	})
}

func TestCycle(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		tester := newTester(t)
		tester.engine.EXPECT().Send(gomock.Any(), engine.Dump{}).Return(nil)
		tester.relay.EXPECT().FetchPeers(gomock.Any()).Return(nil, nil)
		tester.relay.EXPECT().Publish(gomock.Any(), tech.Map{}).Return(nil)

		done := make(chan struct{})
		go func() {
			tester.syncer.Cycle(context.Background())
			close(done)
		}()
		tester.clock.BlockUntil(1)
		require.Equal(t, Scanning, tester.syncer.State())
		tester.clock.Advance(tester.cfg.ScanGrace)
		<-done
		require.Equal(t, Idle, tester.syncer.State())
	})
	t.Run("peer fetch failure abandons the cycle", func(t *testing.T) {
		tester := newTester(t)
		tester.store.Import(tech.Map{"optics": {Level: 1, Progress: tech.NewProgress(0.2)}})
		tester.engine.EXPECT().Send(gomock.Any(), engine.Dump{}).Return(errors.New("engine gone"))
		tester.relay.EXPECT().FetchPeers(gomock.Any()).Return(nil, errors.New("timeout"))

		done := make(chan struct{})
		go func() {
			tester.syncer.Cycle(context.Background())
			close(done)
		}()
		tester.clock.BlockUntil(1)
		tester.clock.Advance(tester.cfg.ScanGrace)
		<-done
		require.Equal(t, Idle, tester.syncer.State())
		require.Equal(t, tech.Map{"optics": {Level: 1, Progress: tech.NewProgress(0.2)}}, tester.store.Snapshot())
	})
	t.Run("canceled during grace", func(t *testing.T) {
		tester := newTester(t)
		tester.engine.EXPECT().Send(gomock.Any(), engine.Dump{}).Return(nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			tester.syncer.Cycle(ctx)
			close(done)
		}()
		tester.clock.BlockUntil(1)
		cancel()
		<-done
		require.Equal(t, Idle, tester.syncer.State())
	})
}

func TestSynchronize(t *testing.T) {
	t.Run("completes technology with peer", func(t *testing.T) {
		tester := newTester(t)
		tester.store.Import(tech.Map{"ammo": {Level: 1, Progress: tech.NewProgress(0.6), Contribution: 0.6}})
		tester.relay.EXPECT().FetchPeers(gomock.Any()).Return([]tech.PeerSnapshot{
			{NodeID: "a", Research: map[string]tech.PeerRecord{"ammo": finite(1, 5)}},
			{NodeID: "b", Research: map[string]tech.PeerRecord{"ammo": finite(1, 0.6)}},
		}, nil)
		gomock.InOrder(
			tester.engine.EXPECT().Send(gomock.Any(), engine.Unlock{
				Name:       "ammo",
				Researched: true,
				Level:      2,
				Notify:     true,
			}).Return(nil),
			tester.relay.EXPECT().Publish(gomock.Any(), tech.Map{"ammo": {Researched: true, Level: 2}}).Return(nil),
		)
		require.NoError(t, tester.syncer.Synchronize(context.Background()))
	})
	t.Run("infinite peer ahead unlocks without progress", func(t *testing.T) {
		tester := newTester(t)
		tester.store.Import(tech.Map{
			"mining": {Level: 5, Infinite: true, Progress: tech.NewProgress(0.6), Contribution: 0.6},
		})
		ahead := finite(6, 0)
		ahead.Infinite = num(1)
		tester.relay.EXPECT().FetchPeers(gomock.Any()).Return([]tech.PeerSnapshot{
			{NodeID: "b", Research: map[string]tech.PeerRecord{"mining": ahead}},
		}, nil)
		gomock.InOrder(
			tester.engine.EXPECT().Send(gomock.Any(), engine.Unlock{
				Name:     "mining",
				Level:    6,
				Infinite: true,
				Notify:   true,
			}).Return(nil),
			tester.relay.EXPECT().Publish(gomock.Any(), tech.Map{
				"mining": {Level: 6, Infinite: true},
			}).Return(nil),
		)
		require.NoError(t, tester.syncer.Synchronize(context.Background()))
		own, _ := tester.store.Get("mining")
		require.False(t, own.Progress.Valid())
	})
	t.Run("own snapshot is excluded", func(t *testing.T) {
		tester := newTester(t)
		tester.store.Import(tech.Map{"ammo": {Level: 1, Progress: tech.NewProgress(0.1), Contribution: 0.1}})
		tester.relay.EXPECT().FetchPeers(gomock.Any()).Return([]tech.PeerSnapshot{
			{NodeID: "a", Research: map[string]tech.PeerRecord{"ammo": finite(1, 5)}},
		}, nil)
		tester.relay.EXPECT().Publish(gomock.Any(), tech.Map{
			"ammo": {Level: 1, Progress: tech.NewProgress(0.1), Contribution: 0.1},
		}).Return(nil)
		require.NoError(t, tester.syncer.Synchronize(context.Background()))
	})
	t.Run("pushes cluster progress", func(t *testing.T) {
		tester := newTester(t)
		tester.store.Import(tech.Map{"ammo": {Level: 1, Progress: tech.NewProgress(0.25), Contribution: 0.25}})
		tester.relay.EXPECT().FetchPeers(gomock.Any()).Return([]tech.PeerSnapshot{
			{NodeID: "b", Research: map[string]tech.PeerRecord{"ammo": finite(1, 0.5)}},
		}, nil)
		tester.engine.EXPECT().Send(gomock.Any(), engine.SetProgress{
			Name: "ammo",
			Last: tech.NewProgress(0.25),
			New:  0.75,
		}).Return(errors.New("engine gone"))
		tester.relay.EXPECT().Publish(gomock.Any(), tech.Map{
			"ammo": {Level: 1, Progress: tech.NewProgress(0.75), Contribution: 0.25},
		}).Return(nil)
		require.NoError(t, tester.syncer.Synchronize(context.Background()))
	})
	t.Run("publish failure", func(t *testing.T) {
		tester := newTester(t)
		tester.relay.EXPECT().FetchPeers(gomock.Any()).Return(nil, nil)
		tester.relay.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("refused"))
		require.ErrorContains(t, tester.syncer.Synchronize(context.Background()), "refused")
	})
}

func TestStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	relayClient := NewMockrelayClient(ctrl)
	engineChannel := NewMockengineChannel(ctrl)
	cfg := Config{Interval: 10 * time.Millisecond, ScanGrace: time.Millisecond, RegisterRetry: time.Millisecond}
	s := New("a", localstate.New(), relayClient, engineChannel, WithConfig(cfg), WithLogger(logtest.New(t)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	synced := make(chan struct{})
	relayClient.EXPECT().FetchOwnState(gomock.Any()).Return(nil, nil)
	engineChannel.EXPECT().Send(gomock.Any(), engine.Dump{}).Return(nil).MinTimes(1)
	relayClient.EXPECT().FetchPeers(gomock.Any()).DoAndReturn(
		func(context.Context) ([]tech.PeerSnapshot, error) {
			once.Do(func() { close(synced) })
			return nil, errors.New("unreachable")
		}).MinTimes(1)

	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx) }()
	select {
	case <-synced:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "sync cycle did not run")
	}
	cancel()
	require.NoError(t, <-errc)
	require.Equal(t, Idle, s.State())
}

func TestStartCanceledBeforeRegistration(t *testing.T) {
	tester := newTester(t)
	ctx, cancel := context.WithCancel(context.Background())
	tester.relay.EXPECT().FetchOwnState(gomock.Any()).DoAndReturn(func(context.Context) (tech.Map, error) {
		cancel()
		return nil, context.Canceled
	})
	require.NoError(t, tester.syncer.Start(ctx))
}
