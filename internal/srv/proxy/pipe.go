package proxy

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Pipe is an in-process channel. Messages cross it JSON encoded, as they would cross a process boundary.
type Pipe struct {
	requests  chan []byte
	responses chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewPipe() *Pipe {
	return &Pipe{
		requests:  make(chan []byte),
		responses: make(chan []byte, 1),
		closed:    make(chan struct{}),
	}
}

func (p *Pipe) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	select {
	case p.requests <- raw:
	case <-p.closed:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		select {
		case raw = <-p.responses:
		case <-p.closed:
			return nil, ErrStopped
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, err
		}
		if resp.Id == req.Id {
			return &resp, nil
		}
		logrus.Debugf("Drop late response %s", resp.Id)
	}
}

// Serve handles requests until the poison message is received or the pipe is closed.
func (p *Pipe) Serve(receiver *Receiver) {
	for {
		var raw []byte
		select {
		case raw = <-p.requests:
		case <-p.closed:
			return
		}

		var req Request
		var resp *Response
		if err := json.Unmarshal(raw, &req); err != nil {
			logrus.Warnf("Unable to decode proxy request: %v", err)
			continue
		}
		if req.Op == OpStop {
			resp = &Response{Id: req.Id}
		} else {
			resp = receiver.Handle(&req)
		}

		if raw, err := json.Marshal(resp); err != nil {
			logrus.Warnf("Unable to encode %s response: %v", req.Op, err)
		} else {
			select {
			case p.responses <- raw:
			case <-p.closed:
				return
			}
		}

		if req.Op == OpStop {
			logrus.Debugf("Proxy receiver stopped")
			return
		}
	}
}

// Close ends Serve and fails pending and future round trips.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
