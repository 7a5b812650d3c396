// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package reduce

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/ClusterCockpit/cc-timing/internal/logging"
)

// NATSCommunicator is the one wire-protocol transport the Non-goals
// permit (spec.md §4.7's "opaque communicator" made concrete): each rank
// publishes its partial region array on "gptl.reduce.<dest>" and blocks
// on a per-rank subscription to receive its inbound partner's array,
// grounded on pkg/nats/client.go's connection-management and
// subscribe/publish style (adapted here to a synchronous per-rank inbox
// subscription read with NextMsgWithContext, since a reduction step must
// block until its partner's data has actually arrived).
type NATSCommunicator struct {
	conn *nats.Conn
	rank int
	size int
	subs map[int]*nats.Subscription
}

// NewNATSCommunicator connects to addr and subscribes this rank's inbox
// subject up front, so a later Recv never races a Send issued before the
// subscription existed.
func NewNATSCommunicator(addr string, rank, size int) (*NATSCommunicator, error) {
	conn, err := nats.Connect(addr,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warnf("gptl: NATS reducer transport disconnected: %v", err)
			}
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logging.Errorf("gptl: NATS reducer transport error: %v", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("gptl: NATS connect to %q failed: %w", addr, err)
	}

	c := &NATSCommunicator{conn: conn, rank: rank, size: size, subs: make(map[int]*nats.Subscription)}
	sub, err := conn.SubscribeSync(inboxSubject(rank))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("gptl: NATS subscribe for rank %d failed: %w", rank, err)
	}
	c.subs[rank] = sub
	return c, nil
}

func inboxSubject(rank int) string { return fmt.Sprintf("gptl.reduce.%d", rank) }

func (c *NATSCommunicator) Rank() int { return c.rank }
func (c *NATSCommunicator) Size() int { return c.size }

func (c *NATSCommunicator) Send(ctx context.Context, dest int, regions []GlobalRegion) error {
	payload, err := json.Marshal(regions)
	if err != nil {
		return fmt.Errorf("gptl: encoding region array for rank %d failed: %w", dest, err)
	}
	if err := c.conn.Publish(inboxSubject(dest), payload); err != nil {
		return fmt.Errorf("gptl: NATS publish to rank %d failed: %w", dest, err)
	}
	return c.conn.FlushWithContext(ctx)
}

func (c *NATSCommunicator) Recv(ctx context.Context, src int) ([]GlobalRegion, error) {
	sub, ok := c.subs[c.rank]
	if !ok {
		return nil, fmt.Errorf("gptl: no inbox subscription for rank %d", c.rank)
	}
	msg, err := sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("gptl: NATS receive on rank %d failed: %w", c.rank, err)
	}
	var regions []GlobalRegion
	if err := json.Unmarshal(msg.Data, &regions); err != nil {
		return nil, fmt.Errorf("gptl: decoding region array on rank %d failed: %w", c.rank, err)
	}
	return regions, nil
}

// Close releases the subscription and underlying NATS connection.
func (c *NATSCommunicator) Close() {
	if sub, ok := c.subs[c.rank]; ok {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
