// Package server hosts the simulation backend: it owns the pendulum chain,
// steps it on a fixed tick and pushes full-state snapshots to every
// subscribed websocket session.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/san-kum/pendlab/internal/chain"
	"github.com/san-kum/pendlab/internal/proto"
)

const DefaultDt = 0.016

type Hub struct {
	mu       sync.Mutex
	chain    *chain.Chain
	dt       float64
	sessions map[*session]struct{}
	logger   *log.Logger
}

func NewHub(ch *chain.Chain, dt float64, logger *log.Logger) *Hub {
	if dt <= 0 {
		dt = DefaultDt
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		chain:    ch,
		dt:       dt,
		sessions: make(map[*session]struct{}),
		logger:   logger,
	}
}

// Run steps the chain at the configured cadence and broadcasts a snapshot
// after every step. Blocks until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(h.dt * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.Lock()
			h.chain.Step(h.dt)
			data, err := marshalState(h.chain.Snapshot())
			stale := h.staleSessionsLocked(data, err)
			h.mu.Unlock()

			for _, s := range stale {
				h.Detach(s)
			}
		}
	}
}

// staleSessionsLocked pushes the snapshot to every session and returns the
// ones whose connection is no longer writable.
func (h *Hub) staleSessionsLocked(data []byte, err error) []*session {
	if err != nil {
		h.logger.Printf("[hub] failed to marshal snapshot: %v", err)
		return nil
	}
	var stale []*session
	for s := range h.sessions {
		if werr := s.write(data); werr != nil {
			stale = append(stale, s)
		}
	}
	return stale
}

// Attach registers a session and returns the current snapshot so the client
// sees state before the next tick.
func (h *Hub) Attach(s *session) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, err := marshalState(h.chain.Snapshot())
	if err != nil {
		return nil, err
	}
	h.sessions[s] = struct{}{}
	return data, nil
}

func (h *Hub) Detach(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	delete(h.sessions, s)
	h.mu.Unlock()
	if ok {
		s.close()
	}
}

// Apply executes a decoded mutation command against the chain. The returned
// error text is the reject reason sent back to the client.
func (h *Hub) Apply(cmd any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch c := cmd.(type) {
	case *proto.AddBobCommand:
		_, err := h.chain.AddBob(c.LengthRod, c.Mass, c.Theta, c.Omega)
		return err
	case *proto.RemoveBobCommand:
		return h.chain.RemoveBob(c.Index)
	case *proto.ModifyBobCommand:
		return h.chain.ModifyBob(c.Index, c.Length, c.Mass, c.Theta, c.Omega)
	default:
		return fmt.Errorf("unsupported command %T", cmd)
	}
}

// BobCount reports the current chain length.
func (h *Hub) BobCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.chain.Len()
}

func marshalState(snap chain.Snapshot) ([]byte, error) {
	msg := proto.StateMessage{
		Type:   proto.TypeState,
		Time:   snap.Time,
		Energy: snap.Energy,
		Bobs:   make([]proto.BobState, len(snap.Bobs)),
	}
	for i, b := range snap.Bobs {
		msg.Bobs[i] = proto.BobState{
			ID:        b.ID.String(),
			LengthRod: b.LengthRod,
			Mass:      b.Mass,
			Theta:     b.Theta,
			Omega:     b.Omega,
			X:         b.X,
			Y:         b.Y,
		}
	}
	return json.Marshal(msg)
}
