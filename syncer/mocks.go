package syncer

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/spacemeshos/go-researchsync/engine"
	"github.com/spacemeshos/go-researchsync/tech"
)

// MockrelayClient is a mock of relayClient interface.
type MockrelayClient struct {
	ctrl     *gomock.Controller
	recorder *MockrelayClientMockRecorder
}

// MockrelayClientMockRecorder is the mock recorder for MockrelayClient.
type MockrelayClientMockRecorder struct {
	mock *MockrelayClient
}

// NewMockrelayClient creates a new mock instance.
func NewMockrelayClient(ctrl *gomock.Controller) *MockrelayClient {
	mock := &MockrelayClient{ctrl: ctrl}
	mock.recorder = &MockrelayClientMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockrelayClient) EXPECT() *MockrelayClientMockRecorder {
	return m.recorder
}

// FetchOwnState mocks base method.
func (m *MockrelayClient) FetchOwnState(ctx context.Context) (tech.Map, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FetchOwnState", ctx)
	ret0, _ := ret[0].(tech.Map)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// FetchOwnState indicates an expected call of FetchOwnState.
func (mr *MockrelayClientMockRecorder) FetchOwnState(ctx any) *MockrelayClientFetchOwnStateCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FetchOwnState",
		reflect.TypeOf((*MockrelayClient)(nil).FetchOwnState), ctx)
	return &MockrelayClientFetchOwnStateCall{Call: call}
}

// MockrelayClientFetchOwnStateCall wrap *gomock.Call.
type MockrelayClientFetchOwnStateCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockrelayClientFetchOwnStateCall) Return(arg0 tech.Map, arg1 error) *MockrelayClientFetchOwnStateCall {
	c.Call = c.Call.Return(arg0, arg1)
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockrelayClientFetchOwnStateCall) Do(f func(context.Context) (tech.Map, error)) *MockrelayClientFetchOwnStateCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockrelayClientFetchOwnStateCall) DoAndReturn(
	f func(context.Context) (tech.Map, error),
) *MockrelayClientFetchOwnStateCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}

// FetchPeers mocks base method.
func (m *MockrelayClient) FetchPeers(ctx context.Context) ([]tech.PeerSnapshot, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FetchPeers", ctx)
	ret0, _ := ret[0].([]tech.PeerSnapshot)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// FetchPeers indicates an expected call of FetchPeers.
func (mr *MockrelayClientMockRecorder) FetchPeers(ctx any) *MockrelayClientFetchPeersCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FetchPeers",
		reflect.TypeOf((*MockrelayClient)(nil).FetchPeers), ctx)
	return &MockrelayClientFetchPeersCall{Call: call}
}

// MockrelayClientFetchPeersCall wrap *gomock.Call.
type MockrelayClientFetchPeersCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockrelayClientFetchPeersCall) Return(arg0 []tech.PeerSnapshot, arg1 error) *MockrelayClientFetchPeersCall {
	c.Call = c.Call.Return(arg0, arg1)
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockrelayClientFetchPeersCall) Do(
	f func(context.Context) ([]tech.PeerSnapshot, error),
) *MockrelayClientFetchPeersCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockrelayClientFetchPeersCall) DoAndReturn(
	f func(context.Context) ([]tech.PeerSnapshot, error),
) *MockrelayClientFetchPeersCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}

// Publish mocks base method.
func (m *MockrelayClient) Publish(ctx context.Context, research tech.Map) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Publish", ctx, research)
	ret0, _ := ret[0].(error)
	return ret0
}

// Publish indicates an expected call of Publish.
func (mr *MockrelayClientMockRecorder) Publish(ctx, research any) *MockrelayClientPublishCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Publish",
		reflect.TypeOf((*MockrelayClient)(nil).Publish), ctx, research)
	return &MockrelayClientPublishCall{Call: call}
}

// MockrelayClientPublishCall wrap *gomock.Call.
type MockrelayClientPublishCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockrelayClientPublishCall) Return(arg0 error) *MockrelayClientPublishCall {
	c.Call = c.Call.Return(arg0)
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockrelayClientPublishCall) Do(f func(context.Context, tech.Map) error) *MockrelayClientPublishCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockrelayClientPublishCall) DoAndReturn(f func(context.Context, tech.Map) error) *MockrelayClientPublishCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}

// MockengineChannel is a mock of engineChannel interface.
type MockengineChannel struct {
	ctrl     *gomock.Controller
	recorder *MockengineChannelMockRecorder
}

// MockengineChannelMockRecorder is the mock recorder for MockengineChannel.
type MockengineChannelMockRecorder struct {
	mock *MockengineChannel
}

// NewMockengineChannel creates a new mock instance.
func NewMockengineChannel(ctrl *gomock.Controller) *MockengineChannel {
	mock := &MockengineChannel{ctrl: ctrl}
	mock.recorder = &MockengineChannelMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockengineChannel) EXPECT() *MockengineChannelMockRecorder {
	return m.recorder
}

// Send mocks base method.
func (m *MockengineChannel) Send(ctx context.Context, cmd engine.Command) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Send", ctx, cmd)
	ret0, _ := ret[0].(error)
	return ret0
}

// Send indicates an expected call of Send.
func (mr *MockengineChannelMockRecorder) Send(ctx, cmd any) *MockengineChannelSendCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Send",
		reflect.TypeOf((*MockengineChannel)(nil).Send), ctx, cmd)
	return &MockengineChannelSendCall{Call: call}
}

// MockengineChannelSendCall wrap *gomock.Call.
type MockengineChannelSendCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockengineChannelSendCall) Return(arg0 error) *MockengineChannelSendCall {
	c.Call = c.Call.Return(arg0)
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockengineChannelSendCall) Do(f func(context.Context, engine.Command) error) *MockengineChannelSendCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockengineChannelSendCall) DoAndReturn(
	f func(context.Context, engine.Command) error,
) *MockengineChannelSendCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}
