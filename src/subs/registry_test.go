package subs

import (
	"errors"
	"math/rand"
	"testing"

	"rates-streamer/src/interfaces"
	"rates-streamer/src/logger"
)

// -----------------------------------------------------------------------------

func testRegistry(assets map[int64]string) (*Registry, *fakeStore) {
	store := newFakeStore(assets)
	return NewRegistry(store, logger.NewLogger("ERROR", "test")), store
}

// -----------------------------------------------------------------------------

func TestSubscribeCreatesSubscription(t *testing.T) {
	reg, _ := testRegistry(map[int64]string{1: "EURUSD"})
	conn := newFakeConn()

	created, err := reg.Subscribe(conn, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected subscription to be created")
	}

	if got := reg.Len(); got != 1 {
		t.Fatalf("expected 1 subscription, got %d", got)
	}
	if subs := reg.SubscribersOf(1); len(subs) != 1 || subs[0].Conn != conn {
		t.Fatalf("expected conn in asset 1 subscriber set, got %v", subs)
	}
}

// -----------------------------------------------------------------------------

func TestSubscribeUnknownAssetIsIgnored(t *testing.T) {
	reg, _ := testRegistry(map[int64]string{1: "EURUSD"})
	conn := newFakeConn()

	created, err := reg.Subscribe(conn, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected no subscription for unknown asset")
	}
	if got := reg.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d subscriptions", got)
	}
}

// -----------------------------------------------------------------------------

func TestSubscribeStoreErrorPropagates(t *testing.T) {
	reg, store := testRegistry(map[int64]string{1: "EURUSD"})
	store.existsErr = errors.New("db down")

	if _, err := reg.Subscribe(newFakeConn(), 1); err == nil {
		t.Fatal("expected store error to propagate")
	}
	if got := reg.Len(); got != 0 {
		t.Fatalf("expected empty registry after failed subscribe, got %d", got)
	}
}

// -----------------------------------------------------------------------------

func TestSubscribeSameAssetIsIdempotent(t *testing.T) {
	reg, _ := testRegistry(map[int64]string{1: "EURUSD"})
	conn := newFakeConn()

	reg.Subscribe(conn, 1)
	original := reg.SubscribersOf(1)[0]
	original.initialized = true

	if _, err := reg.Subscribe(conn, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subs := reg.SubscribersOf(1)
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscriber, got %d", len(subs))
	}
	if subs[0] != original {
		t.Fatal("repeat subscribe must not replace the subscription")
	}
	if !subs[0].initialized {
		t.Fatal("repeat subscribe must not reset initialized")
	}
}

// -----------------------------------------------------------------------------

func TestResubscribeMovesBetweenAssetSets(t *testing.T) {
	reg, _ := testRegistry(map[int64]string{1: "EURUSD", 2: "USDJPY"})
	conn := newFakeConn()

	reg.Subscribe(conn, 1)
	reg.SubscribersOf(1)[0].initialized = true

	created, err := reg.Resubscribe(conn, 2)
	if err != nil || !created {
		t.Fatalf("resubscribe failed: created=%v err=%v", created, err)
	}

	if subs := reg.SubscribersOf(1); len(subs) != 0 {
		t.Fatalf("expected conn removed from asset 1, still %d subscribers", len(subs))
	}
	subs := reg.SubscribersOf(2)
	if len(subs) != 1 || subs[0].Conn != conn {
		t.Fatalf("expected conn in asset 2 subscriber set, got %v", subs)
	}
	if subs[0].initialized {
		t.Fatal("resubscribe must reset initialized to false")
	}
	if got := reg.Len(); got != 1 {
		t.Fatalf("expected exactly one subscription, got %d", got)
	}
}

// -----------------------------------------------------------------------------

func TestUnsubscribeIsIdempotent(t *testing.T) {
	reg, _ := testRegistry(map[int64]string{1: "EURUSD"})
	conn := newFakeConn()

	reg.Subscribe(conn, 1)
	reg.Unsubscribe(conn)
	reg.Unsubscribe(conn) // absent, must not panic

	if got := reg.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if ids := reg.AssetsWithSubscribers(); len(ids) != 0 {
		t.Fatalf("expected no assets with subscribers, got %v", ids)
	}
}

// -----------------------------------------------------------------------------

func TestRemoveAllSkipsReplacedSubscription(t *testing.T) {
	reg, _ := testRegistry(map[int64]string{1: "EURUSD", 2: "USDJPY"})
	conn := newFakeConn()

	reg.Subscribe(conn, 1)
	stale := reg.SubscribersOf(1)[0]

	// Connection resubscribes between snapshot and sweep.
	reg.Resubscribe(conn, 2)

	reg.RemoveAll([]*Subscription{stale})

	if got := reg.Len(); got != 1 {
		t.Fatalf("sweep removed the replacement subscription, registry has %d", got)
	}
	if subs := reg.SubscribersOf(2); len(subs) != 1 {
		t.Fatalf("expected conn still subscribed to asset 2, got %d", len(subs))
	}
}

// -----------------------------------------------------------------------------

// checkInvariants asserts the registry's structural invariants through its
// public snapshot API: at most one subscription per connection, and every
// subscription in exactly one per-asset set matching its AssetID.
func checkInvariants(t *testing.T, reg *Registry) {
	t.Helper()

	seenConns := make(map[interfaces.IClientConn]struct{})
	total := 0

	for _, assetID := range reg.AssetsWithSubscribers() {
		subs := reg.SubscribersOf(assetID)
		if len(subs) == 0 {
			t.Fatalf("asset %d listed with an empty subscriber set", assetID)
		}
		for _, sub := range subs {
			if sub.AssetID != assetID {
				t.Fatalf("subscription for asset %d found in asset %d's set", sub.AssetID, assetID)
			}
			if _, dup := seenConns[sub.Conn]; dup {
				t.Fatal("connection appears in more than one subscriber set")
			}
			seenConns[sub.Conn] = struct{}{}

			current, ok := reg.Current(sub.Conn)
			if !ok || current != assetID {
				t.Fatalf("connection map disagrees with asset set: current=%d ok=%v want %d", current, ok, assetID)
			}
			total++
		}
	}

	if total != reg.Len() {
		t.Fatalf("asset sets hold %d subscriptions, connection map holds %d", total, reg.Len())
	}
}

// -----------------------------------------------------------------------------

func TestRegistryInvariantsUnderRandomizedOps(t *testing.T) {
	assets := map[int64]string{1: "EURUSD", 2: "USDJPY", 3: "GBPUSD"}
	reg, _ := testRegistry(assets)

	rng := rand.New(rand.NewSource(42))
	conns := make([]*fakeConn, 8)
	for i := range conns {
		conns[i] = newFakeConn()
	}

	for i := 0; i < 2000; i++ {
		conn := conns[rng.Intn(len(conns))]
		// Asset ids 1..4, where 4 does not exist.
		assetID := int64(rng.Intn(4) + 1)

		switch rng.Intn(3) {
		case 0:
			if _, err := reg.Subscribe(conn, assetID); err != nil {
				t.Fatalf("subscribe failed: %v", err)
			}
		case 1:
			if _, err := reg.Resubscribe(conn, assetID); err != nil {
				t.Fatalf("resubscribe failed: %v", err)
			}
		case 2:
			reg.Unsubscribe(conn)
		}

		checkInvariants(t, reg)
	}
}
