package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tair/storefront/pkg/logger"
)

// SetAuthState applies an identity change.
//
// Signing in from guest mode switches to authenticated mode and migrates the
// guest state exactly once. Repeating the call for the same user is a no-op.
// Signing in as a different user while authenticated switches the mirror to
// that user without migrating. Signing out clears the view and overwrites the
// persisted guest state with an empty one; remote data is left untouched.
func (c *Controller) SetAuthState(ctx context.Context, signedIn bool, userID string) error {
	userID = strings.TrimSpace(userID)

	if err := c.lock(ctx); err != nil {
		return err
	}

	if !signedIn {
		previous := c.userID
		c.mode = ModeGuest
		c.userID = ""
		c.generation++
		c.cart = newCartSet(nil)
		c.favorites = newFavoriteSet(nil)
		pending := c.snapshotLocked()
		c.mu.Unlock()
		c.persist(ctx, pending)

		if previous != "" {
			logger.Info(ctx).Str("user_id", previous).Msg("Signed out, switched to guest mode")
		}
		return nil
	}

	if userID == "" || (c.mode == ModeAuthenticated && c.userID == userID) {
		c.mu.Unlock()
		return nil
	}

	if c.mode == ModeAuthenticated {
		c.userID = userID
		c.generation++
		c.cart = newCartSet(nil)
		c.favorites = newFavoriteSet(nil)
		sess := session{userID: userID, generation: c.generation}
		c.mu.Unlock()

		logger.Info(ctx).Str("user_id", userID).Msg("Switched authenticated user")
		c.refreshAfter(ctx, sess, "switch user")
		return nil
	}

	snapshot := State{CartItems: c.cart.list(), Favorites: c.favorites.list()}
	c.mode = ModeAuthenticated
	c.userID = userID
	c.generation++
	sess := session{userID: userID, generation: c.generation}
	release := c.holdMigrationLocked()
	c.mu.Unlock()
	defer release()

	logger.Info(ctx).
		Str("user_id", userID).
		Int("cart_lines", len(snapshot.CartItems)).
		Int("favorites", len(snapshot.Favorites)).
		Msg("Signed in, migrating guest state")

	return c.migrate(ctx, sess, snapshot)
}

// MigrateLocalData merges whatever remains in the persisted guest snapshot
// into the remote store. It is safe to repeat: merged items are removed from
// the snapshot, so a retry only sends the remainder.
func (c *Controller) MigrateLocalData(ctx context.Context) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	if c.mode != ModeAuthenticated {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	sess := session{userID: c.userID, generation: c.generation}
	release := c.holdMigrationLocked()
	c.mu.Unlock()
	defer release()

	snapshot, err := c.local.Load(ctx)
	if err != nil {
		return fmt.Errorf("load guest snapshot: %w", err)
	}
	return c.migrate(ctx, sess, snapshot)
}

// holdMigrationLocked installs the migration gate. The returned func removes
// and closes it.
func (c *Controller) holdMigrationLocked() func() {
	gate := make(chan struct{})
	c.migrating = gate
	return func() {
		c.mu.Lock()
		c.migrating = nil
		c.mu.Unlock()
		close(gate)
	}
}

// migrate merges snapshot into the remote store. Lines are upserted with
// their quantity as a delta, so existing remote quantities are added to.
// Already applied merges are never rolled back.
func (c *Controller) migrate(ctx context.Context, sess session, snapshot State) error {
	if snapshot.IsEmpty() {
		c.refreshAfter(ctx, sess, "migrate")
		return nil
	}

	var (
		remaining State
		errs      []error
	)
	for _, line := range snapshot.CartItems {
		if line.Quantity <= 0 {
			continue
		}
		if err := c.remote.UpsertCartLine(ctx, sess.userID, line.Key(), line.Quantity); err != nil {
			remaining.CartItems = append(remaining.CartItems, line)
			errs = append(errs, fmt.Errorf("cart line %s: %w", line.Key(), err))
		}
	}
	for _, p := range snapshot.Favorites {
		if err := c.remote.UpsertFavorite(ctx, sess.userID, p.ID); err != nil {
			remaining.Favorites = append(remaining.Favorites, p)
			errs = append(errs, fmt.Errorf("favorite %s: %w", p.ID, err))
		}
	}

	c.mu.Lock()
	pending := c.versionLocked(remaining)
	c.mu.Unlock()
	c.persist(ctx, pending)
	c.refreshAfter(ctx, sess, "migrate")

	if len(errs) > 0 {
		total := len(snapshot.CartItems) + len(snapshot.Favorites)
		logger.Warn(ctx).
			Str("user_id", sess.userID).
			Int("failed", len(errs)).
			Int("total", total).
			Msg("Guest state migration incomplete")
		return fmt.Errorf("%w: %d of %d items not merged: %w",
			ErrMigrationPartial, len(errs), total, errors.Join(errs...))
	}

	logger.Info(ctx).Str("user_id", sess.userID).Msg("Guest state migrated")
	return nil
}
