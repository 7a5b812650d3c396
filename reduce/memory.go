// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package reduce

import (
	"context"
	"fmt"
)

// InMemoryCommunicator is a channel-backed Communicator for tests and
// single-process demos: one instance per simulated rank, all sharing
// the same routing table.
type InMemoryCommunicator struct {
	rank    int
	size    int
	routing []chan []GlobalRegion // routing[dest] delivers to rank dest
}

// NewInMemoryCommunicators builds size InMemoryCommunicator instances
// that can exchange GlobalRegion arrays with each other in-process.
func NewInMemoryCommunicators(size int) []*InMemoryCommunicator {
	routing := make([]chan []GlobalRegion, size)
	for i := range routing {
		routing[i] = make(chan []GlobalRegion, size)
	}
	comms := make([]*InMemoryCommunicator, size)
	for i := range comms {
		comms[i] = &InMemoryCommunicator{rank: i, size: size, routing: routing}
	}
	return comms
}

func (c *InMemoryCommunicator) Rank() int { return c.rank }
func (c *InMemoryCommunicator) Size() int { return c.size }

func (c *InMemoryCommunicator) Send(ctx context.Context, dest int, regions []GlobalRegion) error {
	if dest < 0 || dest >= c.size {
		return fmt.Errorf("reduce: send to out-of-range rank %d", dest)
	}
	select {
	case c.routing[dest] <- regions:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *InMemoryCommunicator) Recv(ctx context.Context, src int) ([]GlobalRegion, error) {
	select {
	case regions := <-c.routing[c.rank]:
		return regions, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
