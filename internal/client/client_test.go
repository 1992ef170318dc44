package client

import (
	"context"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pendlab/internal/chain"
	"github.com/san-kum/pendlab/internal/server"
)

func ptr(v float64) *float64 { return &v }

// newTestBackend runs a real hub with gravity zero and all bobs at rest, so
// snapshots are static and parameter assertions can be exact.
func newTestBackend(t *testing.T) string {
	t.Helper()

	ch := chain.New(0,
		chain.NewBob(120, 10, 0.5, 0),
		chain.NewBob(100, 5, -0.2, 0),
	)
	quiet := log.New(io.Discard, "", 0)
	hub := server.NewHub(ch, 0.002, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(server.NewHandler(hub, quiet).Handle))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialTest(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// waitFor reads snapshots until pred holds or the deadline expires.
func waitFor(t *testing.T, sub *Subscription, pred func(chain.Snapshot) bool) chain.Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			require.True(t, ok, "subscription closed early: %v", sub.Err())
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	c := dialTest(t, newTestBackend(t))
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	snap := waitFor(t, sub, func(s chain.Snapshot) bool { return len(s.Bobs) == 2 })

	b0 := snap.Bobs[0]
	assert.Equal(t, 120.0, b0.LengthRod)
	assert.Equal(t, 0.5, b0.Theta)
	assert.InDelta(t, 120*math.Sin(0.5), b0.X, 1e-9)
	assert.InDelta(t, 120*math.Cos(0.5), b0.Y, 1e-9)
}

func TestAddBobRoundTrip(t *testing.T) {
	c := dialTest(t, newTestBackend(t))
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.AddBob(ctx, 120, 10, 0.314, 0))

	snap := waitFor(t, sub, func(s chain.Snapshot) bool { return len(s.Bobs) == 3 })
	last := snap.Bobs[2]
	assert.Equal(t, 120.0, last.LengthRod)
	assert.Equal(t, 10.0, last.Mass)
	assert.Equal(t, 0.314, last.Theta)
	assert.Equal(t, 0.0, last.Omega)
}

func TestRemoveBobShiftsLaterBobs(t *testing.T) {
	c := dialTest(t, newTestBackend(t))
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	first := waitFor(t, sub, func(s chain.Snapshot) bool { return len(s.Bobs) == 2 })
	survivor := first.Bobs[1].ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.RemoveBob(ctx, 0))

	snap := waitFor(t, sub, func(s chain.Snapshot) bool { return len(s.Bobs) == 1 })
	assert.Equal(t, survivor, snap.Bobs[0].ID, "later bob should shift to position 0")
}

func TestRemoveBobOutOfRange(t *testing.T) {
	c := dialTest(t, newTestBackend(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.RemoveBob(ctx, 9)

	var reject *RejectError
	require.ErrorAs(t, err, &reject)
	assert.Equal(t, "bob index out of range", reject.Reason)
}

func TestModifyBobSelective(t *testing.T) {
	c := dialTest(t, newTestBackend(t))
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.ModifyBob(ctx, 0, ptr(200), nil, nil, nil))

	snap := waitFor(t, sub, func(s chain.Snapshot) bool {
		return len(s.Bobs) == 2 && s.Bobs[0].LengthRod == 200
	})
	assert.Equal(t, 10.0, snap.Bobs[0].Mass, "unset fields stay backend-preserved")
	assert.Equal(t, 0.5, snap.Bobs[0].Theta)
}

func TestUnsubscribeAndRemount(t *testing.T) {
	c := dialTest(t, newTestBackend(t))

	sub := c.Subscribe()
	waitFor(t, sub, func(s chain.Snapshot) bool { return len(s.Bobs) == 2 })
	sub.Unsubscribe()

	// drain any buffered snapshot; the stream must then be closed
	for range sub.Snapshots() {
	}
	assert.NoError(t, sub.Err())

	// a remount gets a fresh, working stream
	sub2 := c.Subscribe()
	defer sub2.Unsubscribe()
	waitFor(t, sub2, func(s chain.Snapshot) bool { return len(s.Bobs) == 2 })
}

func TestOfferCoalescesToLatest(t *testing.T) {
	sub := &Subscription{snapshots: make(chan chain.Snapshot, 1)}

	for i := 1; i <= 3; i++ {
		sub.offer(chain.Snapshot{Time: float64(i)})
	}

	snap := <-sub.Snapshots()
	assert.Equal(t, 3.0, snap.Time, "consumer must see the newest snapshot")

	select {
	case extra := <-sub.Snapshots():
		t.Fatalf("no backlog expected, got snapshot at t=%v", extra.Time)
	default:
	}
}

func TestDialFailureReported(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws", log.New(io.Discard, "", 0))
	assert.Error(t, err)
}
