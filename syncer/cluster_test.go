package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-researchsync/engine"
	"github.com/spacemeshos/go-researchsync/localstate"
	"github.com/spacemeshos/go-researchsync/log/logtest"
	"github.com/spacemeshos/go-researchsync/relay"
	"github.com/spacemeshos/go-researchsync/relay/relaytest"
	"github.com/spacemeshos/go-researchsync/tech"
)

type recorder struct {
	mu   sync.Mutex
	cmds []engine.Command
}

func (r *recorder) Send(_ context.Context, cmd engine.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recorder) take() []engine.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmds := r.cmds
	r.cmds = nil
	return cmds
}

type testNode struct {
	syncer *Syncer
	store  *localstate.Store
	engine *recorder
}

func newTestNode(t *testing.T, r *relaytest.Relay, id string) *testNode {
	cfg := relay.DefaultConfig()
	cfg.URL = r.URL()
	cfg.Token = "token"
	cfg.InstanceID = id
	cfg.Password = id
	cfg.MaxRequestRetries = 0
	cfg.RequestTimeout = 5 * time.Second
	client, err := relay.NewClient(cfg, relay.WithLogger(logtest.New(t).Named(id)))
	require.NoError(t, err)
	r.Register(id, id)

	store := localstate.New()
	rec := &recorder{}
	return &testNode{
		syncer: New(id, store, client, rec, WithLogger(logtest.New(t).Named(id))),
		store:  store,
		engine: rec,
	}
}

func TestTwoNodesThroughRelay(t *testing.T) {
	r := relaytest.New(t, "token")
	a := newTestNode(t, r, "a")
	b := newTestNode(t, r, "b")
	ctx := context.Background()

	for _, n := range []*testNode{a, b} {
		require.NoError(t, n.syncer.Register(ctx))
		n.store.ApplyScanResult(tech.Scan{Name: "ammo", Level: 1, Progress: tech.NewProgress(0)})
		n.store.ApplyScanResult(tech.Scan{Name: "ammo", Level: 1, Progress: tech.NewProgress(0.6)})
	}

	// a publishes its contribution, b has published nothing yet
	require.NoError(t, a.syncer.Synchronize(ctx))
	require.Empty(t, a.engine.take())
	own, _ := a.store.Get("ammo")
	require.InDelta(t, 0.6, own.Contribution, 1e-12)

	// b sees 0.6 + 0.6 and completes the technology
	require.NoError(t, b.syncer.Synchronize(ctx))
	cmds := b.engine.take()
	require.Len(t, cmds, 1)
	require.Equal(t, "ammo", cmds[0].(engine.Unlock).Name)
	require.True(t, cmds[0].(engine.Unlock).Researched)
	own, _ = b.store.Get("ammo")
	require.True(t, own.Researched)
	require.Zero(t, own.Contribution)
	require.False(t, own.Progress.Valid())

	// a follows the researched flag published by b
	require.NoError(t, a.syncer.Synchronize(ctx))
	cmds = a.engine.take()
	require.Len(t, cmds, 1)
	require.True(t, cmds[0].(engine.Unlock).Researched)
	own, _ = a.store.Get("ammo")
	require.True(t, own.Researched)
	require.Zero(t, own.Contribution)

	// a restarted agent imports what it published
	restarted := newTestNode(t, r, "a")
	require.NoError(t, restarted.syncer.Register(ctx))
	require.Equal(t, a.store.Snapshot(), restarted.store.Snapshot())
}
