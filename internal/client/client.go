// Package client is the front-end's view of the simulation backend: a
// streaming subscription of full-state snapshots plus request/response
// mutation commands, multiplexed over one websocket connection.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/san-kum/pendlab/internal/chain"
	"github.com/san-kum/pendlab/internal/proto"
)

var ErrClosed = errors.New("client: connection closed")

// RejectError carries the backend's reason for refusing a command. It is
// never fatal; the caller shows it and moves on.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string { return e.Reason }

type Client struct {
	conn    *websocket.Conn
	logger  *log.Logger
	writeMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]chan error
	sub     *Subscription
	err     error
}

// Dial connects to the backend and starts the read pump. The returned
// client owns the connection; Close tears it down.
func Dial(ctx context.Context, url string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[uint64]chan error),
	}
	go c.readPump()
	return c, nil
}

func (c *Client) Close() error {
	err := c.conn.Close()
	c.fail(ErrClosed)
	return err
}

// Subscribe opens the snapshot stream for one view-mount. Any previous
// subscription is closed first, so remounting can never leak a handler.
func (c *Client) Subscribe() *Subscription {
	sub := &Subscription{
		snapshots: make(chan chain.Snapshot, 1),
		client:    c,
	}

	c.mu.Lock()
	prev := c.sub
	c.sub = sub
	err := c.err
	c.mu.Unlock()

	if prev != nil {
		prev.closeWith(nil)
	}
	if err != nil {
		// connection already dead; hand the caller a closed stream
		sub.closeWith(err)
	}
	return sub
}

// AddBob appends a bob with the given parameters to the end of the chain.
func (c *Client) AddBob(ctx context.Context, lengthRod, mass, theta, omega float64) error {
	seq, wait, err := c.register()
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, seq, wait, proto.AddBobCommand{
		Type:      proto.TypeAddBob,
		Seq:       seq,
		LengthRod: lengthRod,
		Mass:      mass,
		Theta:     theta,
		Omega:     omega,
	})
}

// RemoveBob removes the bob at the given 0-based position. Bounds are the
// backend's to check; an out-of-range index comes back as a RejectError.
func (c *Client) RemoveBob(ctx context.Context, index int) error {
	seq, wait, err := c.register()
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, seq, wait, proto.RemoveBobCommand{
		Type:  proto.TypeRemoveBob,
		Seq:   seq,
		Index: index,
	})
}

// ModifyBob overwrites individual fields of the bob at index; nil means
// leave unchanged.
func (c *Client) ModifyBob(ctx context.Context, index int, length, mass, theta, omega *float64) error {
	seq, wait, err := c.register()
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, seq, wait, proto.ModifyBobCommand{
		Type:   proto.TypeModifyBob,
		Seq:    seq,
		Index:  index,
		Length: length,
		Mass:   mass,
		Theta:  theta,
		Omega:  omega,
	})
}

func (c *Client) register() (uint64, chan error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, nil, c.err
	}
	c.seq++
	ch := make(chan error, 1)
	c.pending[c.seq] = ch
	return c.seq, ch, nil
}

func (c *Client) unregister(seq uint64) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

func (c *Client) roundTrip(ctx context.Context, seq uint64, wait chan error, cmd any) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		c.unregister(seq)
		return fmt.Errorf("client: marshal command: %w", err)
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.unregister(seq)
		return fmt.Errorf("client: send command: %w", err)
	}

	select {
	case err := <-wait:
		return err
	case <-ctx.Done():
		c.unregister(seq)
		return ctx.Err()
	}
}

func (c *Client) readPump() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}

		msg, err := proto.Decode(payload)
		if err != nil {
			c.logger.Printf("[client] discarding malformed message: %v", err)
			continue
		}

		switch m := msg.(type) {
		case *proto.StateMessage:
			c.mu.Lock()
			sub := c.sub
			c.mu.Unlock()
			if sub != nil {
				sub.offer(snapshotFromWire(m))
			}
		case *proto.AckMessage:
			c.resolve(m.Seq, nil)
		case *proto.RejectMessage:
			c.resolve(m.Seq, &RejectError{Reason: m.Reason})
		default:
			c.logger.Printf("[client] unexpected message type %T", msg)
		}
	}
}

func (c *Client) resolve(seq uint64, result error) {
	c.mu.Lock()
	ch, ok := c.pending[seq]
	delete(c.pending, seq)
	c.mu.Unlock()
	if ok {
		ch <- result
	}
}

// fail tears down every outstanding wait and the active subscription after
// the connection dies. Later commands fail fast with the same error.
func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	pending := c.pending
	c.pending = make(map[uint64]chan error)
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- err
	}
	if sub != nil {
		sub.closeWith(err)
	}
}

func snapshotFromWire(m *proto.StateMessage) chain.Snapshot {
	snap := chain.Snapshot{
		Time:   m.Time,
		Energy: m.Energy,
		Bobs:   make([]chain.Bob, len(m.Bobs)),
	}
	for i, b := range m.Bobs {
		id, err := uuid.Parse(b.ID)
		if err != nil {
			id = uuid.Nil
		}
		snap.Bobs[i] = chain.Bob{
			ID:        id,
			LengthRod: b.LengthRod,
			Mass:      b.Mass,
			Theta:     b.Theta,
			Omega:     b.Omega,
			X:         b.X,
			Y:         b.Y,
		}
	}
	return snap
}
