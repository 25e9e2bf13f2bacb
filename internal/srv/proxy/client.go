package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jypelle/papier/apimodel"
	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 10 * time.Second

// Channel carries one request to a receiver and brings back its response.
type Channel interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// Client sends requests over a channel, one at a time.
type Client struct {
	lock    sync.Mutex
	channel Channel
	timeout time.Duration
}

func NewClient(channel Channel, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{channel: channel, timeout: timeout}
}

// Call sends req and waits for its response. Transport failures and timeouts are protocol errors,
// remote failures keep their kind.
func (c *Client) Call(req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.CallContext(ctx, req)
}

func (c *Client) CallContext(ctx context.Context, req *Request) (*Response, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	req.Id = uuid.New()
	logrus.Debugf("Send %s request %s to display %s", req.Op, req.Id, req.DisplayId)
	resp, err := c.channel.RoundTrip(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", apimodel.ErrProtocol, req.Op, req.DisplayId, err)
	}
	if resp.Id != req.Id {
		return nil, fmt.Errorf("%w: response %s does not match request %s", apimodel.ErrProtocol, resp.Id, req.Id)
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp, nil
}

// Stop sends the poison message ending the receiver loop.
func (c *Client) Stop() error {
	_, err := c.Call(&Request{Op: OpStop})
	return err
}

func (c *Client) Close() error {
	return c.channel.Close()
}

// Controller returns a proxy of the remote controller of display displayId.
func (c *Client) Controller(displayId string) *ControllerProxy {
	return &ControllerProxy{client: c, displayId: displayId}
}
