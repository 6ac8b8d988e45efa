package livefeed_test

import (
	"sync/atomic"

	"healthportal/backend/internal/livefeed"
)

type MockClient struct {
	id          string
	RecvChannel chan livefeed.Event
	closed      atomic.Int32
}

func newMockClient(id string, buffer int) *MockClient {
	return &MockClient{id: id, RecvChannel: make(chan livefeed.Event, buffer)}
}

func (c *MockClient) GetID() string                          { return c.id }
func (c *MockClient) GetSendChannel() chan<- livefeed.Event { return c.RecvChannel }
func (c *MockClient) Run()                                   {}
func (c *MockClient) Close()                                 { c.closed.Add(1) }
func (c *MockClient) Closed() int                            { return int(c.closed.Load()) }
