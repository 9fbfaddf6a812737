package storefront_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/internal/storefront/localstore"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/money"
)

var (
	silkMidi = storefront.Product{
		ID: "sm001", Name: "Silk Midi Dress", Price: 12900,
		Images: []string{"sm001-front.jpg"}, Category: "women",
		Sizes: []string{"S", "M", "L"},
	}
	linenShirt = storefront.Product{
		ID: "ls002", Name: "Linen Shirt", Price: 5450,
		Images: []string{"ls002.jpg"}, Category: "men",
		Colors: []string{"white", "sand"},
	}
	cottonFabric = storefront.Product{
		ID: "fb003", Name: "Organic Cotton", Price: 1875, Category: "fabrics",
	}
)

func init() {
	logger.Nop()
}

func newController(t *testing.T, local storefront.LocalStore, remote storefront.RemoteStore) *storefront.Controller {
	t.Helper()
	c, err := storefront.New(context.Background(), local, remote)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func signedIn(t *testing.T, remote *fakeRemote, userID string) *storefront.Controller {
	t.Helper()
	c := newController(t, localstore.NewMemoryStore(), remote)
	if err := c.SetAuthState(context.Background(), true, userID); err != nil {
		t.Fatalf("SetAuthState: %v", err)
	}
	return c
}

func TestNewRequiresStores(t *testing.T) {
	ctx := context.Background()
	if _, err := storefront.New(ctx, nil, newFakeRemote()); err == nil {
		t.Fatal("New without local store: expected error")
	}
	if _, err := storefront.New(ctx, localstore.NewMemoryStore(), nil); err == nil {
		t.Fatal("New without remote store: expected error")
	}
}

func TestGuestAddSameKeyAccumulates(t *testing.T) {
	tests := []struct {
		name       string
		quantities []int
		want       int
	}{
		{name: "single", quantities: []int{1}, want: 1},
		{name: "repeated", quantities: []int{1, 1, 1}, want: 3},
		{name: "mixed", quantities: []int{2, 5, 1}, want: 8},
		{name: "non-positive defaults to one", quantities: []int{0, -3, 4}, want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote()
			c := newController(t, localstore.NewMemoryStore(), remote)
			ctx := context.Background()
			for _, q := range tt.quantities {
				if err := c.AddToCart(ctx, silkMidi, "M", "", q); err != nil {
					t.Fatalf("AddToCart: %v", err)
				}
			}
			if got := c.CartCount(); got != tt.want {
				t.Fatalf("CartCount = %d, want %d", got, tt.want)
			}
			if got := len(c.CartItems()); got != 1 {
				t.Fatalf("lines = %d, want 1", got)
			}
			if n := remote.callCount("UpsertCartLine"); n != 0 {
				t.Fatalf("remote upserts = %d, want 0 in guest mode", n)
			}
		})
	}
}

func TestGuestDistinctVariantsAreSeparateLines(t *testing.T) {
	c := newController(t, localstore.NewMemoryStore(), newFakeRemote())
	ctx := context.Background()

	_ = c.AddToCart(ctx, linenShirt, "M", "white", 1)
	_ = c.AddToCart(ctx, linenShirt, "M", "sand", 1)
	_ = c.AddToCart(ctx, linenShirt, "", "white", 1)
	_ = c.AddToCart(ctx, linenShirt, " M ", "white", 2)

	items := c.CartItems()
	if len(items) != 3 {
		t.Fatalf("lines = %d, want 3", len(items))
	}
	line, ok := c.CartLine("ls002", "M", "white")
	if !ok || line.Quantity != 3 {
		t.Fatalf("line (M, white) = %+v, %v, want quantity 3", line, ok)
	}
	if got, want := c.CartTotal(), money.Cents(5450*5); got != want {
		t.Fatalf("CartTotal = %d, want %d", got, want)
	}
}

func TestAddToCartRequiresProductID(t *testing.T) {
	c := newController(t, localstore.NewMemoryStore(), newFakeRemote())
	err := c.AddToCart(context.Background(), storefront.Product{Name: "nameless"}, "", "", 1)
	if !errors.Is(err, storefront.ErrInvalidProduct) {
		t.Fatalf("AddToCart = %v, want ErrInvalidProduct", err)
	}
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	ctx := context.Background()

	t.Run("guest", func(t *testing.T) {
		c := newController(t, localstore.NewMemoryStore(), newFakeRemote())
		_ = c.AddToCart(ctx, silkMidi, "M", "", 2)
		if err := c.UpdateQuantity(ctx, "sm001", 0, "M", ""); err != nil {
			t.Fatalf("UpdateQuantity: %v", err)
		}
		if _, ok := c.CartLine("sm001", "M", ""); ok {
			t.Fatal("line still present after UpdateQuantity(0)")
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		remote := newFakeRemote(silkMidi)
		c := signedIn(t, remote, "u1")
		_ = c.AddToCart(ctx, silkMidi, "M", "", 2)
		if err := c.UpdateQuantity(ctx, "sm001", -1, "M", ""); err != nil {
			t.Fatalf("UpdateQuantity: %v", err)
		}
		if _, ok := c.CartLine("sm001", "M", ""); ok {
			t.Fatal("line still cached after UpdateQuantity(-1)")
		}
		if remote.callCount("DeleteCartLine") != 1 {
			t.Fatalf("DeleteCartLine calls = %d, want 1", remote.callCount("DeleteCartLine"))
		}
	})
}

func TestUpdateQuantitySetsExactValue(t *testing.T) {
	ctx := context.Background()

	c := newController(t, localstore.NewMemoryStore(), newFakeRemote())
	_ = c.AddToCart(ctx, silkMidi, "M", "", 2)
	if err := c.UpdateQuantity(ctx, "sm001", 5, "M", ""); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if got := c.CartCount(); got != 5 {
		t.Fatalf("CartCount = %d, want 5", got)
	}

	// Updating a line that does not exist creates nothing.
	if err := c.UpdateQuantity(ctx, "ls002", 3, "", ""); err != nil {
		t.Fatalf("UpdateQuantity missing: %v", err)
	}
	if got := len(c.CartItems()); got != 1 {
		t.Fatalf("lines = %d, want 1", got)
	}

	remote := newFakeRemote(silkMidi)
	auth := signedIn(t, remote, "u1")
	_ = auth.AddToCart(ctx, silkMidi, "M", "", 2)
	if err := auth.UpdateQuantity(ctx, "sm001", 7, "M", ""); err != nil {
		t.Fatalf("UpdateQuantity authenticated: %v", err)
	}
	if got := remote.quantity("u1", storefront.NewLineKey("sm001", "M", "")); got != 7 {
		t.Fatalf("remote quantity = %d, want 7", got)
	}
	if got := auth.CartCount(); got != 7 {
		t.Fatalf("CartCount = %d, want 7", got)
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	ctx := context.Background()

	guest := newController(t, localstore.NewMemoryStore(), newFakeRemote())
	_ = guest.AddToCart(ctx, silkMidi, "M", "", 1)
	if err := guest.RemoveFromCart(ctx, "nope", "", ""); err != nil {
		t.Fatalf("RemoveFromCart guest: %v", err)
	}
	if err := guest.RemoveFromCart(ctx, "sm001", "L", ""); err != nil {
		t.Fatalf("RemoveFromCart guest other size: %v", err)
	}
	if got := guest.CartCount(); got != 1 {
		t.Fatalf("CartCount = %d, want 1", got)
	}
	if err := guest.RemoveFromFavorites(ctx, "nope"); err != nil {
		t.Fatalf("RemoveFromFavorites guest: %v", err)
	}

	auth := signedIn(t, newFakeRemote(), "u1")
	if err := auth.RemoveFromCart(ctx, "nope", "", ""); err != nil {
		t.Fatalf("RemoveFromCart authenticated: %v", err)
	}
	if err := auth.RemoveFromFavorites(ctx, "nope"); err != nil {
		t.Fatalf("RemoveFromFavorites authenticated: %v", err)
	}
}

func TestAddFavoriteTwice(t *testing.T) {
	ctx := context.Background()

	check := func(t *testing.T, c *storefront.Controller) {
		t.Helper()
		if err := c.AddToFavorites(ctx, silkMidi); err != nil {
			t.Fatalf("AddToFavorites: %v", err)
		}
		first := c.FavoritesCount()
		if err := c.AddToFavorites(ctx, silkMidi); err != nil {
			t.Fatalf("AddToFavorites again: %v", err)
		}
		if got := c.FavoritesCount(); got != first || got != 1 {
			t.Fatalf("FavoritesCount = %d, want %d", got, first)
		}
		if !c.IsFavorite("sm001") {
			t.Fatal("IsFavorite(sm001) = false, want true")
		}
	}

	t.Run("guest", func(t *testing.T) {
		check(t, newController(t, localstore.NewMemoryStore(), newFakeRemote()))
	})
	t.Run("authenticated", func(t *testing.T) {
		check(t, signedIn(t, newFakeRemote(silkMidi), "u1"))
	})
}

func TestIsFavoriteNeverCallsRemote(t *testing.T) {
	remote := newFakeRemote(silkMidi)
	c := signedIn(t, remote, "u1")
	before := remote.callCount("ListFavorites")

	for i := 0; i < 10; i++ {
		c.IsFavorite("sm001")
		c.CartCount()
		c.CartTotal()
		c.FavoritesCount()
	}
	if got := remote.callCount("ListFavorites"); got != before {
		t.Fatalf("ListFavorites calls = %d, want %d", got, before)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi, linenShirt)
	c := newController(t, localstore.NewMemoryStore(), remote)

	_ = c.AddToCart(ctx, silkMidi, "M", "", 2)
	_ = c.AddToCart(ctx, linenShirt, "L", "white", 1)
	_ = c.AddToFavorites(ctx, silkMidi)

	if err := c.SetAuthState(ctx, true, "u1"); err != nil {
		t.Fatalf("SetAuthState: %v", err)
	}
	key := storefront.NewLineKey("sm001", "M", "")
	if got := remote.quantity("u1", key); got != 2 {
		t.Fatalf("remote quantity after migration = %d, want 2", got)
	}
	upserts := remote.callCount("UpsertCartLine")

	if err := c.MigrateLocalData(ctx); err != nil {
		t.Fatalf("MigrateLocalData: %v", err)
	}
	if got := remote.quantity("u1", key); got != 2 {
		t.Fatalf("remote quantity after second migration = %d, want 2", got)
	}
	if got := remote.callCount("UpsertCartLine"); got != upserts {
		t.Fatalf("UpsertCartLine calls = %d, want %d", got, upserts)
	}

	// Repeating the sign-in notification must not migrate again.
	if err := c.SetAuthState(ctx, true, "u1"); err != nil {
		t.Fatalf("SetAuthState repeat: %v", err)
	}
	if got := remote.quantity("u1", key); got != 2 {
		t.Fatalf("remote quantity after repeated sign-in = %d, want 2", got)
	}
}

func TestMigrationMergesQuantities(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi)
	key := storefront.NewLineKey("sm001", "M", "")
	remote.seedLine("u1", key, 2)

	c := newController(t, localstore.NewMemoryStore(), remote)
	_ = c.AddToCart(ctx, silkMidi, "M", "", 3)

	if err := c.SetAuthState(ctx, true, "u1"); err != nil {
		t.Fatalf("SetAuthState: %v", err)
	}
	if got := remote.quantity("u1", key); got != 5 {
		t.Fatalf("remote quantity = %d, want 5", got)
	}
	if got := c.CartCount(); got != 5 {
		t.Fatalf("CartCount = %d, want 5", got)
	}
}

func TestEndToEndGuestToSignedIn(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi, linenShirt)
	remote.seedLine("u1", storefront.NewLineKey("ls002", "", "sand"), 1)
	local := localstore.NewMemoryStore()
	c := newController(t, local, remote)

	_ = c.AddToCart(ctx, silkMidi, "M", "", 1)
	_ = c.AddToCart(ctx, silkMidi, "M", "", 1)

	items := c.CartItems()
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("guest cart = %+v, want one line with quantity 2", items)
	}
	if got := c.CartCount(); got != 2 {
		t.Fatalf("CartCount = %d, want 2", got)
	}

	if err := c.SetAuthState(ctx, true, "u1"); err != nil {
		t.Fatalf("SetAuthState: %v", err)
	}
	if c.Mode() != storefront.ModeAuthenticated || c.UserID() != "u1" {
		t.Fatalf("mode = %v/%q, want authenticated/u1", c.Mode(), c.UserID())
	}
	if got := remote.quantity("u1", storefront.NewLineKey("sm001", "M", "")); got != 2 {
		t.Fatalf("remote sm001/M quantity = %d, want 2", got)
	}
	line, ok := c.CartLine("sm001", "M", "")
	if !ok || line.Quantity != 2 {
		t.Fatalf("cached sm001/M = %+v, %v, want quantity 2", line, ok)
	}
	want := silkMidi.Price.Mul(2) + linenShirt.Price
	if got := c.CartTotal(); got != want {
		t.Fatalf("CartTotal = %d, want %d", got, want)
	}

	persisted, err := local.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !persisted.IsEmpty() {
		t.Fatalf("persisted guest state = %+v, want empty after migration", persisted)
	}
}

func TestSignOutKeepsRemoteData(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi, linenShirt, cottonFabric)
	local := localstore.NewMemoryStore()
	c := newController(t, local, remote)
	if err := c.SetAuthState(ctx, true, "u1"); err != nil {
		t.Fatalf("SetAuthState: %v", err)
	}

	_ = c.AddToCart(ctx, silkMidi, "M", "", 1)
	_ = c.AddToCart(ctx, linenShirt, "", "white", 1)
	_ = c.AddToCart(ctx, cottonFabric, "", "", 1)
	if got := c.CartCount(); got != 3 {
		t.Fatalf("CartCount = %d, want 3", got)
	}

	if err := c.SetAuthState(ctx, false, ""); err != nil {
		t.Fatalf("SetAuthState sign out: %v", err)
	}
	if got := c.CartCount(); got != 0 {
		t.Fatalf("CartCount after sign-out = %d, want 0", got)
	}
	if c.Mode() != storefront.ModeGuest {
		t.Fatalf("Mode = %v, want guest", c.Mode())
	}
	if n := remote.callCount("DeleteCartLine") + remote.callCount("ClearCart"); n != 0 {
		t.Fatalf("remote deletes = %d, want 0", n)
	}
	if got := remote.quantity("u1", storefront.NewLineKey("sm001", "M", "")); got != 1 {
		t.Fatalf("remote quantity = %d, want 1", got)
	}
	persisted, _ := local.Load(ctx)
	if !persisted.IsEmpty() {
		t.Fatalf("persisted state = %+v, want empty", persisted)
	}
}

func TestRemoteFailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi, linenShirt)
	c := signedIn(t, remote, "u1")
	_ = c.AddToCart(ctx, silkMidi, "M", "", 1)
	_ = c.AddToFavorites(ctx, silkMidi)
	before := c.Snapshot()

	for _, op := range []string{"UpsertCartLine", "SetCartLineQuantity", "DeleteCartLine", "UpsertFavorite", "DeleteFavorite"} {
		remote.setFail(op, errBackendDown)
	}

	ops := map[string]func() error{
		"add":         func() error { return c.AddToCart(ctx, linenShirt, "", "", 1) },
		"update":      func() error { return c.UpdateQuantity(ctx, "sm001", 4, "M", "") },
		"remove":      func() error { return c.RemoveFromCart(ctx, "sm001", "M", "") },
		"favorite":    func() error { return c.AddToFavorites(ctx, linenShirt) },
		"un-favorite": func() error { return c.RemoveFromFavorites(ctx, "sm001") },
	}
	for name, op := range ops {
		err := op()
		if !errors.Is(err, storefront.ErrRemoteUnavailable) {
			t.Fatalf("%s error = %v, want ErrRemoteUnavailable", name, err)
		}
		if !errors.Is(err, errBackendDown) {
			t.Fatalf("%s error = %v, want cause preserved", name, err)
		}
	}

	after := c.Snapshot()
	if after.CartCount != before.CartCount || after.FavoritesCount != before.FavoritesCount || after.CartTotal != before.CartTotal {
		t.Fatalf("snapshot changed: before %+v, after %+v", before, after)
	}
}

func TestRefreshFailureAfterMutationIsSuccess(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi)
	c := signedIn(t, remote, "u1")

	remote.setFail("ListCartLines", errBackendDown)
	if err := c.AddToCart(ctx, silkMidi, "M", "", 2); err != nil {
		t.Fatalf("AddToCart = %v, want success with stale cache", err)
	}
	if got := c.CartCount(); got != 0 {
		t.Fatalf("CartCount = %d, want stale 0", got)
	}

	remote.setFail("ListCartLines", nil)
	if err := c.AddToCart(ctx, silkMidi, "M", "", 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if got := c.CartCount(); got != 3 {
		t.Fatalf("CartCount = %d, want 3", got)
	}
}

func TestClearCart(t *testing.T) {
	ctx := context.Background()

	t.Run("guest", func(t *testing.T) {
		local := localstore.NewMemoryStore()
		c := newController(t, local, newFakeRemote())
		_ = c.AddToCart(ctx, silkMidi, "M", "", 2)
		_ = c.AddToFavorites(ctx, silkMidi)
		if err := c.ClearCart(ctx); err != nil {
			t.Fatalf("ClearCart: %v", err)
		}
		if got := c.CartCount(); got != 0 {
			t.Fatalf("CartCount = %d, want 0", got)
		}
		if got := c.FavoritesCount(); got != 1 {
			t.Fatalf("FavoritesCount = %d, want 1", got)
		}
		persisted, _ := local.Load(ctx)
		if len(persisted.CartItems) != 0 || len(persisted.Favorites) != 1 {
			t.Fatalf("persisted = %+v, want empty cart with one favorite", persisted)
		}
	})

	t.Run("authenticated remote failure still clears cache", func(t *testing.T) {
		remote := newFakeRemote(silkMidi)
		c := signedIn(t, remote, "u1")
		_ = c.AddToCart(ctx, silkMidi, "M", "", 2)

		remote.setFail("ClearCart", errBackendDown)
		err := c.ClearCart(ctx)
		if !errors.Is(err, storefront.ErrRemoteUnavailable) {
			t.Fatalf("ClearCart = %v, want ErrRemoteUnavailable", err)
		}
		if got := c.CartCount(); got != 0 {
			t.Fatalf("CartCount = %d, want 0", got)
		}
	})
}

func TestGuestStateRestoredAndPersisted(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemoryStore()

	first := newController(t, local, newFakeRemote())
	_ = first.AddToCart(ctx, silkMidi, "M", "", 2)
	_ = first.AddToFavorites(ctx, linenShirt)

	second := newController(t, local, newFakeRemote())
	if got := second.CartCount(); got != 2 {
		t.Fatalf("restored CartCount = %d, want 2", got)
	}
	if !second.IsFavorite("ls002") {
		t.Fatal("restored favorites missing ls002")
	}
}

func TestGuestPersistFailureDoesNotFailMutation(t *testing.T) {
	c := newController(t, failingLocal{}, newFakeRemote())
	if err := c.AddToCart(context.Background(), silkMidi, "", "", 1); err != nil {
		t.Fatalf("AddToCart = %v, want nil", err)
	}
	if got := c.CartCount(); got != 1 {
		t.Fatalf("CartCount = %d, want 1", got)
	}
}

func TestPartialMigrationRetriesRemainder(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi, linenShirt)
	remote.failFav["ls002"] = errBackendDown
	local := localstore.NewMemoryStore()
	c := newController(t, local, remote)

	_ = c.AddToCart(ctx, silkMidi, "M", "", 2)
	_ = c.AddToFavorites(ctx, silkMidi)
	_ = c.AddToFavorites(ctx, linenShirt)

	err := c.SetAuthState(ctx, true, "u1")
	if !errors.Is(err, storefront.ErrMigrationPartial) {
		t.Fatalf("SetAuthState = %v, want ErrMigrationPartial", err)
	}
	if c.Mode() != storefront.ModeAuthenticated {
		t.Fatalf("Mode = %v, want authenticated after partial migration", c.Mode())
	}

	persisted, _ := local.Load(ctx)
	if len(persisted.CartItems) != 0 || len(persisted.Favorites) != 1 || persisted.Favorites[0].ID != "ls002" {
		t.Fatalf("persisted remainder = %+v, want only favorite ls002", persisted)
	}

	delete(remote.failFav, "ls002")
	if err := c.MigrateLocalData(ctx); err != nil {
		t.Fatalf("MigrateLocalData retry: %v", err)
	}
	if got := remote.quantity("u1", storefront.NewLineKey("sm001", "M", "")); got != 2 {
		t.Fatalf("remote quantity = %d, want 2 (no double add)", got)
	}
	if got := c.FavoritesCount(); got != 2 {
		t.Fatalf("FavoritesCount = %d, want 2", got)
	}
}

func TestMigrateLocalDataRequiresAuthentication(t *testing.T) {
	c := newController(t, localstore.NewMemoryStore(), newFakeRemote())
	if err := c.MigrateLocalData(context.Background()); !errors.Is(err, storefront.ErrNotAuthenticated) {
		t.Fatalf("MigrateLocalData = %v, want ErrNotAuthenticated", err)
	}
}

func TestSwitchUserDoesNotMigrate(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi)
	remote.seedLine("u2", storefront.NewLineKey("sm001", "", ""), 4)
	c := signedIn(t, remote, "u1")
	_ = c.AddToCart(ctx, silkMidi, "M", "", 1)

	if err := c.SetAuthState(ctx, true, "u2"); err != nil {
		t.Fatalf("SetAuthState u2: %v", err)
	}
	if got := c.CartCount(); got != 4 {
		t.Fatalf("CartCount = %d, want 4 from u2's cart", got)
	}
	if got := remote.quantity("u2", storefront.NewLineKey("sm001", "M", "")); got != 0 {
		t.Fatalf("u1's line leaked into u2: quantity %d", got)
	}
}

func TestMutationsWaitForMigration(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi, linenShirt)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	remote.hook = func(op string) {
		if op != "UpsertCartLine" {
			return
		}
		once.Do(func() {
			close(started)
			<-release
		})
	}

	c := newController(t, localstore.NewMemoryStore(), remote)
	_ = c.AddToCart(ctx, silkMidi, "M", "", 1)

	migrated := make(chan error, 1)
	go func() { migrated <- c.SetAuthState(ctx, true, "u1") }()
	<-started

	added := make(chan error, 1)
	go func() { added <- c.AddToCart(ctx, linenShirt, "", "", 1) }()

	time.Sleep(30 * time.Millisecond)
	if got := remote.callCount("UpsertCartLine"); got != 0 {
		t.Fatalf("UpsertCartLine calls during migration = %d, want 0", got)
	}
	if !c.Snapshot().Migrating {
		t.Fatal("Snapshot().Migrating = false during migration")
	}

	close(release)
	if err := <-migrated; err != nil {
		t.Fatalf("SetAuthState: %v", err)
	}
	if err := <-added; err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if got := c.CartCount(); got != 2 {
		t.Fatalf("CartCount = %d, want 2", got)
	}
	if got := remote.quantity("u1", storefront.NewLineKey("ls002", "", "")); got != 1 {
		t.Fatalf("remote ls002 quantity = %d, want 1", got)
	}
}

func TestSameKeyRemoteMutationsSerialized(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi)
	c := signedIn(t, remote, "u1")

	var (
		mu        sync.Mutex
		active    int
		maxActive int
	)
	remote.hook = func(op string) {
		if op != "UpsertCartLine" {
			return
		}
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.AddToCart(ctx, silkMidi, "M", "", 1); err != nil {
				t.Errorf("AddToCart: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("concurrent upserts on one key = %d, want 1", maxActive)
	}
	if got := remote.quantity("u1", storefront.NewLineKey("sm001", "M", "")); got != 5 {
		t.Fatalf("remote quantity = %d, want 5", got)
	}
	if got := c.CartCount(); got != 5 {
		t.Fatalf("CartCount = %d, want 5", got)
	}
}

func TestRefreshAfterSignOutIsDiscarded(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi)
	c := signedIn(t, remote, "u1")

	listing := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	remote.hook = func(op string) {
		if op != "ListCartLines" {
			return
		}
		once.Do(func() {
			close(listing)
			<-release
		})
	}

	done := make(chan error, 1)
	go func() { done <- c.AddToCart(ctx, silkMidi, "M", "", 2) }()
	<-listing

	if err := c.SetAuthState(ctx, false, ""); err != nil {
		t.Fatalf("SetAuthState: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if got := c.CartCount(); got != 0 {
		t.Fatalf("CartCount = %d, want 0 after sign-out", got)
	}
}

func TestWaitForMigrationHonoursContext(t *testing.T) {
	remote := newFakeRemote(silkMidi)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	remote.hook = func(op string) {
		if op == "UpsertCartLine" {
			once.Do(func() {
				close(started)
				<-release
			})
		}
	}

	c := newController(t, localstore.NewMemoryStore(), remote)
	_ = c.AddToCart(context.Background(), silkMidi, "", "", 1)
	go func() { _ = c.SetAuthState(context.Background(), true, "u1") }()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.ClearCart(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ClearCart = %v, want context.DeadlineExceeded", err)
	}
}

func TestRejectedCredentialsAreNotUnavailable(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(silkMidi)
	c := signedIn(t, remote, "u1")

	remote.setFail("UpsertCartLine", fmt.Errorf("cart service returned 401: %w", storefront.ErrRemoteUnauthorized))
	err := c.AddToCart(ctx, silkMidi, "M", "", 1)
	if !errors.Is(err, storefront.ErrRemoteUnauthorized) {
		t.Fatalf("AddToCart error = %v, want ErrRemoteUnauthorized", err)
	}
	if errors.Is(err, storefront.ErrRemoteUnavailable) {
		t.Fatalf("AddToCart error = %v, should not read as unavailable", err)
	}
}

// blockingLocal holds every Save until release is closed
type blockingLocal struct {
	*localstore.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingLocal) Save(ctx context.Context, state storefront.State) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.MemoryStore.Save(ctx, state)
}

func TestGuestPersistDoesNotBlockReads(t *testing.T) {
	ctx := context.Background()
	local := &blockingLocal{
		MemoryStore: localstore.NewMemoryStore(),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	c := newController(t, local, newFakeRemote())

	done := make(chan error, 1)
	go func() { done <- c.AddToCart(ctx, silkMidi, "M", "", 2) }()

	select {
	case <-local.entered:
	case <-time.After(time.Second):
		t.Fatal("Save was never called")
	}

	read := make(chan storefront.View, 1)
	go func() { read <- c.Snapshot() }()
	select {
	case v := <-read:
		if v.CartCount != 2 {
			t.Fatalf("CartCount = %d, want 2", v.CartCount)
		}
	case <-time.After(time.Second):
		t.Fatal("Snapshot blocked behind a pending Save")
	}

	close(local.release)
	if err := <-done; err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	state, err := local.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.CartItems) != 1 || state.CartItems[0].Quantity != 2 {
		t.Fatalf("persisted = %+v, want one line of 2", state.CartItems)
	}
}

func TestGuestSnapshotsPersistInOrder(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemoryStore()
	c := newController(t, local, newFakeRemote())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.AddToCart(ctx, silkMidi, "M", "", 1)
		}()
	}
	wg.Wait()

	state, err := local.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.CartItems) != 1 || state.CartItems[0].Quantity != 20 {
		t.Fatalf("persisted = %+v, want the final quantity 20", state.CartItems)
	}
}
