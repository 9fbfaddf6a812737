package storefront

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/money"
)

// Controller holds one client session's cart and favorites.
//
// In guest mode the state lives in memory and is written through to a
// LocalStore after every mutation. In authenticated mode the RemoteStore is
// authoritative and the controller keeps a cached mirror, refreshed after
// each successful remote mutation.
type Controller struct {
	local  LocalStore
	remote RemoteStore

	mu         sync.Mutex
	mode       Mode
	userID     string
	generation uint64
	cart       *cartSet
	favorites  *favoriteSet

	// migrating is non-nil while a migration runs; it is closed when done.
	migrating chan struct{}
	// inflight holds one channel per key with a remote mutation pending.
	inflight map[string]chan struct{}

	// refreshSeq orders refreshes; only the newest listing is applied.
	refreshSeq uint64
	appliedSeq uint64

	// stateVersion numbers guest snapshots under mu. saveMu serializes
	// LocalStore writes so an older snapshot never overwrites a newer one.
	stateVersion uint64
	saveMu       sync.Mutex
	savedVersion uint64
}

// pendingSave is a guest snapshot taken under mu, written after unlocking.
type pendingSave struct {
	version uint64
	state   State
}

// session pins the identity a remote call was issued under.
type session struct {
	userID     string
	generation uint64
}

// New builds a guest-mode controller and restores the persisted guest state.
// A missing or unreadable blob yields an empty cart.
func New(ctx context.Context, local LocalStore, remote RemoteStore) (*Controller, error) {
	if local == nil {
		return nil, errors.New("storefront: local store is required")
	}
	if remote == nil {
		return nil, errors.New("storefront: remote store is required")
	}

	c := &Controller{
		local:     local,
		remote:    remote,
		mode:      ModeGuest,
		cart:      newCartSet(nil),
		favorites: newFavoriteSet(nil),
		inflight:  make(map[string]chan struct{}),
	}

	state, err := local.Load(ctx)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("Failed to restore guest state, starting empty")
		return c, nil
	}
	c.cart = newCartSet(state.CartItems)
	c.favorites = newFavoriteSet(state.Favorites)
	return c, nil
}

// lock acquires c.mu once no migration is running. On success the caller
// owns c.mu.
func (c *Controller) lock(ctx context.Context) error {
	for {
		c.mu.Lock()
		gate := c.migrating
		if gate == nil {
			return nil
		}
		c.mu.Unlock()

		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// mutate applies guest under the lock and persists, or runs remote while
// holding the in-flight marker for key.
func (c *Controller) mutate(ctx context.Context, key string, guest func(), remote func(session) error) error {
	for {
		if err := c.lock(ctx); err != nil {
			return err
		}

		if c.mode == ModeGuest {
			guest()
			pending := c.snapshotLocked()
			c.mu.Unlock()
			c.persist(ctx, pending)
			return nil
		}

		if busy, ok := c.inflight[key]; ok {
			c.mu.Unlock()
			select {
			case <-busy:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		done := make(chan struct{})
		c.inflight[key] = done
		sess := session{userID: c.userID, generation: c.generation}
		c.mu.Unlock()

		err := remote(sess)

		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(done)
		return err
	}
}

// snapshotLocked copies the guest state for persist. The caller holds c.mu.
func (c *Controller) snapshotLocked() pendingSave {
	return c.versionLocked(State{CartItems: c.cart.list(), Favorites: c.favorites.list()})
}

func (c *Controller) versionLocked(state State) pendingSave {
	c.stateVersion++
	return pendingSave{version: c.stateVersion, state: state}
}

// persist writes a snapshot through unless a newer one has already been
// written. Failures are logged only: the in-memory state remains correct for
// this session.
func (c *Controller) persist(ctx context.Context, p pendingSave) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if p.version <= c.savedVersion {
		return
	}
	c.savedVersion = p.version
	if err := c.local.Save(ctx, p.state); err != nil {
		logger.Warn(ctx).Err(err).Msg("Failed to persist guest state")
	}
}

// refresh replaces the cached mirror with the remote listing. Results for an
// older generation, or older than an already applied listing, are dropped.
func (c *Controller) refresh(ctx context.Context, sess session) error {
	c.mu.Lock()
	c.refreshSeq++
	seq := c.refreshSeq
	c.mu.Unlock()

	lines, err := c.remote.ListCartLines(ctx, sess.userID)
	if err != nil {
		return err
	}
	favorites, err := c.remote.ListFavorites(ctx, sess.userID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != sess.generation || seq <= c.appliedSeq {
		return nil
	}
	c.appliedSeq = seq
	c.cart = newCartSet(lines)
	c.favorites = newFavoriteSet(favorites)
	return nil
}

// refreshAfter refreshes following a successful mutation. The mutation has
// already taken effect, so a failed refresh only leaves the cache stale.
func (c *Controller) refreshAfter(ctx context.Context, sess session, op string) {
	if err := c.refresh(ctx, sess); err != nil {
		logger.Warn(ctx).Err(err).
			Str("op", op).
			Str("user_id", sess.userID).
			Msg("Remote mutation applied but refresh failed, cache is stale")
	}
}

// AddToCart adds quantity units of the (product, size, color) line.
// A quantity below 1 adds a single unit.
func (c *Controller) AddToCart(ctx context.Context, p Product, size, color string, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	key := NewLineKey(p.ID, size, color)
	if key.ProductID == "" {
		return ErrInvalidProduct
	}

	return c.mutate(ctx, "cart:"+key.String(),
		func() {
			c.cart.add(lineFromProduct(p, key, quantity))
		},
		func(sess session) error {
			if err := c.remote.UpsertCartLine(ctx, sess.userID, key, quantity); err != nil {
				return remoteErr("add to cart", err)
			}
			c.refreshAfter(ctx, sess, "add to cart")
			return nil
		})
}

// RemoveFromCart deletes the matching line. Removing a missing line succeeds.
func (c *Controller) RemoveFromCart(ctx context.Context, productID, size, color string) error {
	key := NewLineKey(productID, size, color)

	return c.mutate(ctx, "cart:"+key.String(),
		func() {
			c.cart.remove(key)
		},
		func(sess session) error {
			if err := c.remote.DeleteCartLine(ctx, sess.userID, key); err != nil {
				return remoteErr("remove from cart", err)
			}
			c.refreshAfter(ctx, sess, "remove from cart")
			return nil
		})
}

// UpdateQuantity sets the line's quantity exactly. Zero or less removes it.
func (c *Controller) UpdateQuantity(ctx context.Context, productID string, quantity int, size, color string) error {
	if quantity <= 0 {
		return c.RemoveFromCart(ctx, productID, size, color)
	}
	key := NewLineKey(productID, size, color)

	return c.mutate(ctx, "cart:"+key.String(),
		func() {
			c.cart.set(key, quantity)
		},
		func(sess session) error {
			if err := c.remote.SetCartLineQuantity(ctx, sess.userID, key, quantity); err != nil {
				return remoteErr("update quantity", err)
			}
			c.refreshAfter(ctx, sess, "update quantity")
			return nil
		})
}

// ClearCart empties the cart. In authenticated mode the cache is emptied even
// when the remote bulk delete fails; the failure is still returned.
func (c *Controller) ClearCart(ctx context.Context) error {
	return c.mutate(ctx, "cart:*",
		func() {
			c.cart = newCartSet(nil)
		},
		func(sess session) error {
			err := c.remote.ClearCart(ctx, sess.userID)

			c.mu.Lock()
			if c.generation == sess.generation {
				c.cart = newCartSet(nil)
				c.appliedSeq = c.refreshSeq
			}
			c.mu.Unlock()

			if err != nil {
				return remoteErr("clear cart", err)
			}
			return nil
		})
}

// AddToFavorites marks p as a favorite. Adding an existing favorite is a no-op.
func (c *Controller) AddToFavorites(ctx context.Context, p Product) error {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return ErrInvalidProduct
	}
	p.ID = id

	return c.mutate(ctx, "fav:"+id,
		func() {
			c.favorites.add(p)
		},
		func(sess session) error {
			if err := c.remote.UpsertFavorite(ctx, sess.userID, id); err != nil {
				return remoteErr("add to favorites", err)
			}
			c.refreshAfter(ctx, sess, "add to favorites")
			return nil
		})
}

// RemoveFromFavorites unmarks a favorite. Removing a missing one succeeds.
func (c *Controller) RemoveFromFavorites(ctx context.Context, productID string) error {
	id := strings.TrimSpace(productID)

	return c.mutate(ctx, "fav:"+id,
		func() {
			c.favorites.remove(id)
		},
		func(sess session) error {
			if err := c.remote.DeleteFavorite(ctx, sess.userID, id); err != nil {
				return remoteErr("remove from favorites", err)
			}
			c.refreshAfter(ctx, sess, "remove from favorites")
			return nil
		})
}

// IsFavorite checks the cached view only and never performs I/O.
func (c *Controller) IsFavorite(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.favorites.has(strings.TrimSpace(productID))
}

// CartCount is the sum of quantities across all lines
func (c *Controller) CartCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.count()
}

func (c *Controller) FavoritesCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.favorites.len()
}

// CartTotal sums unit price times quantity using each line's price snapshot.
func (c *Controller) CartTotal() money.Cents {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.total()
}

func (c *Controller) CartItems() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.list()
}

// CartLine returns the line for the given key, if present.
func (c *Controller) CartLine(productID, size, color string) (CartLine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.get(NewLineKey(productID, size, color))
}

func (c *Controller) Favorites() []Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.favorites.list()
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Snapshot returns every view field from a single consistent read.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Mode:           c.mode.String(),
		UserID:         c.userID,
		Items:          c.cart.list(),
		Favorites:      c.favorites.list(),
		CartCount:      c.cart.count(),
		FavoritesCount: c.favorites.len(),
		CartTotal:      c.cart.total(),
		Migrating:      c.migrating != nil,
	}
}
