package subs

import (
	"sync"

	"rates-streamer/src/interfaces"
	"rates-streamer/src/logger"
)

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

// Subscription is one connection's current interest in a single asset.
// A connection holds at most one Subscription; resubscribing replaces it
// with a fresh one.
type Subscription struct {
	Conn    interfaces.IClientConn
	AssetID int64

	// initialized flips true once the history bulk push has been sent.
	// Written only by the broadcaster goroutine after creation.
	initialized bool
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry is the single shared mutable structure of the system: the
// connection -> Subscription map and the per-asset subscriber sets. Every
// operation takes the one mutex, and reads used for broadcast return
// snapshots so the broadcaster never iterates live maps.
type Registry struct {
	mu      sync.Mutex
	store   interfaces.IMetricStore
	byConn  map[interfaces.IClientConn]*Subscription
	byAsset map[int64]map[*Subscription]struct{}
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRegistry(store interfaces.IMetricStore, log *logger.Logger) *Registry {
	return &Registry{
		store:   store,
		byConn:  make(map[interfaces.IClientConn]*Subscription),
		byAsset: make(map[int64]map[*Subscription]struct{}),
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Subscribe creates a Subscription for the connection, replacing any prior
// one as a single logical operation. Subscribing to the asset the connection
// already watches is a no-op so the history push is not re-triggered.
// An asset id unknown to the store creates nothing and returns false.
func (r *Registry) Subscribe(conn interfaces.IClientConn, assetID int64) (bool, error) {
	// Existence check goes to the store, so it runs outside the lock. The
	// asset set is append-only reference data; a positive answer stays valid.
	exists, err := r.store.AssetExists(assetID)
	if err != nil {
		return false, err
	}
	if !exists {
		r.Logger.Debug("Subscribe ignored: asset %d does not exist", assetID)
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.byConn[conn]; ok {
		if current.AssetID == assetID {
			return true, nil
		}
		r.removeLocked(current)
	}

	sub := &Subscription{Conn: conn, AssetID: assetID}
	r.byConn[conn] = sub
	r.addToAssetLocked(sub)
	return true, nil
}

// -----------------------------------------------------------------------------

// Resubscribe moves the connection to a new asset. It shares Subscribe's
// replace-under-one-lock semantics and exists as its own entry point for the
// session handler's different-asset path.
func (r *Registry) Resubscribe(conn interfaces.IClientConn, newAssetID int64) (bool, error) {
	return r.Subscribe(conn, newAssetID)
}

// -----------------------------------------------------------------------------

// Unsubscribe removes the connection's Subscription if present. Idempotent.
func (r *Registry) Unsubscribe(conn interfaces.IClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.byConn[conn]; ok {
		r.removeLocked(sub)
	}
}

// -----------------------------------------------------------------------------

// RemoveAll batch-removes subscriptions marked dead during a broadcast tick.
// A subscription is only removed if it is still the connection's current
// one; the connection may have resubscribed since the snapshot was taken.
func (r *Registry) RemoveAll(subs []*Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range subs {
		if current, ok := r.byConn[sub.Conn]; ok && current == sub {
			r.removeLocked(sub)
		}
	}
}

// -----------------------------------------------------------------------------

// Current returns the asset id the connection is subscribed to, if any.
func (r *Registry) Current(conn interfaces.IClientConn) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byConn[conn]
	if !ok {
		return 0, false
	}
	return sub.AssetID, true
}

// -----------------------------------------------------------------------------

// AssetsWithSubscribers returns a snapshot of the asset ids that currently
// have at least one subscriber.
func (r *Registry) AssetsWithSubscribers() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.byAsset))
	for id := range r.byAsset {
		ids = append(ids, id)
	}
	return ids
}

// -----------------------------------------------------------------------------

// SubscribersOf returns a snapshot of the asset's subscriber set.
func (r *Registry) SubscribersOf(assetID int64) []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byAsset[assetID]
	if !ok {
		return nil
	}

	subs := make([]*Subscription, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	return subs
}

// -----------------------------------------------------------------------------

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}

// -----------------------------------------------------------------------------
// Internal (callers hold r.mu)
// -----------------------------------------------------------------------------

func (r *Registry) addToAssetLocked(sub *Subscription) {
	set, ok := r.byAsset[sub.AssetID]
	if !ok {
		set = make(map[*Subscription]struct{})
		r.byAsset[sub.AssetID] = set
	}
	set[sub] = struct{}{}
}

// removeLocked drops the subscription from both maps atomically. Empty
// per-asset sets are deleted so AssetsWithSubscribers stays tight.
func (r *Registry) removeLocked(sub *Subscription) {
	delete(r.byConn, sub.Conn)

	if set, ok := r.byAsset[sub.AssetID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(r.byAsset, sub.AssetID)
		}
	}
}
