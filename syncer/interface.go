package syncer

import (
	"context"

	"github.com/spacemeshos/go-researchsync/engine"
	"github.com/spacemeshos/go-researchsync/tech"
)

//go:generate mockgen -typed -package=syncer -destination=./mocks.go -source=./interface.go

type relayClient interface {
	FetchOwnState(ctx context.Context) (tech.Map, error)
	FetchPeers(ctx context.Context) ([]tech.PeerSnapshot, error)
	Publish(ctx context.Context, research tech.Map) error
}

type engineChannel interface {
	Send(ctx context.Context, cmd engine.Command) error
}
