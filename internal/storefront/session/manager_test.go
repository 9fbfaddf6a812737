package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/pkg/logger"
)

func init() {
	logger.Nop()
}

// nopRemote is an empty remote store that records upserts
type nopRemote struct {
	mu      sync.Mutex
	upserts map[string]int
}

func (r *nopRemote) UpsertCartLine(_ context.Context, userID string, _ storefront.LineKey, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upserts == nil {
		r.upserts = make(map[string]int)
	}
	r.upserts[userID] += delta
	return nil
}
func (r *nopRemote) SetCartLineQuantity(context.Context, string, storefront.LineKey, int) error {
	return nil
}
func (r *nopRemote) DeleteCartLine(context.Context, string, storefront.LineKey) error { return nil }
func (r *nopRemote) ClearCart(context.Context, string) error                         { return nil }
func (r *nopRemote) ListCartLines(context.Context, string) ([]storefront.CartLine, error) {
	return nil, nil
}
func (r *nopRemote) UpsertFavorite(context.Context, string, string) error { return nil }
func (r *nopRemote) DeleteFavorite(context.Context, string, string) error { return nil }
func (r *nopRemote) ListFavorites(context.Context, string) ([]storefront.Product, error) {
	return nil, nil
}

var dress = storefront.Product{ID: "sm001", Name: "Silk Midi", Price: 12900}

func TestGetReturnsSameControllerPerSession(t *testing.T) {
	m := NewManager(&nopRemote{}, MemoryLocals(), time.Minute)
	ctx := context.Background()

	a1, err := m.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	a2, _ := m.Get(ctx, "a")
	b, _ := m.Get(ctx, "b")

	if a1 != a2 {
		t.Fatal("Get returned different controllers for one session")
	}
	if a1 == b {
		t.Fatal("Get returned the same controller for two sessions")
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
}

func TestConcurrentGetCreatesOneController(t *testing.T) {
	m := NewManager(&nopRemote{}, MemoryLocals(), time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]*storefront.Controller, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = m.Get(ctx, "shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Fatalf("controller %d differs from controller 0", i)
		}
	}
}

func TestSweepEvictsIdleSessionsAndGuestStateSurvives(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(&nopRemote{}, MemoryLocals(), 10*time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	c, _ := m.Get(ctx, "idle")
	if err := c.AddToCart(ctx, dress, "M", "", 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	now = now.Add(5 * time.Minute)
	_, _ = m.Get(ctx, "active")

	now = now.Add(6 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}

	restored, _ := m.Get(ctx, "idle")
	if restored == c {
		t.Fatal("evicted session reused its old controller")
	}
	if got := restored.CartCount(); got != 2 {
		t.Fatalf("restored CartCount = %d, want 2", got)
	}
}

func TestOnAuthChangeMigratesOnce(t *testing.T) {
	remote := &nopRemote{}
	m := NewManager(remote, MemoryLocals(), time.Minute)
	ctx := context.Background()

	c, _ := m.Get(ctx, "s1")
	_ = c.AddToCart(ctx, dress, "", "", 3)

	for i := 0; i < 3; i++ {
		if err := m.OnAuthChange(ctx, "s1", true, "u1"); err != nil {
			t.Fatalf("OnAuthChange: %v", err)
		}
	}
	if got := remote.upserts["u1"]; got != 3 {
		t.Fatalf("migrated quantity = %d, want 3", got)
	}
	if c.Mode() != storefront.ModeAuthenticated {
		t.Fatalf("Mode = %v, want authenticated", c.Mode())
	}

	if err := m.OnAuthChange(ctx, "s1", false, ""); err != nil {
		t.Fatalf("OnAuthChange sign out: %v", err)
	}
	if c.Mode() != storefront.ModeGuest {
		t.Fatalf("Mode = %v, want guest", c.Mode())
	}
}

func TestEndDropsSession(t *testing.T) {
	m := NewManager(&nopRemote{}, MemoryLocals(), time.Minute)
	_, _ = m.Get(context.Background(), "s1")
	m.End("s1")
	if m.Len() != 0 {
		t.Fatalf("Len = %d, want 0", m.Len())
	}
}

// listingRemote reports a fixed cart for every user
type listingRemote struct {
	nopRemote
	lines []storefront.CartLine
}

func (r *listingRemote) ListCartLines(context.Context, string) ([]storefront.CartLine, error) {
	return r.lines, nil
}

func TestSweptSessionRestoresSignIn(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	remote := &listingRemote{lines: []storefront.CartLine{{ProductID: "sm001", Size: "M", Quantity: 2, Price: 12900}}}
	m := NewManager(remote, MemoryLocals(), 10*time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.SignIn(ctx, "s1", "u1", "tok", now.Add(time.Hour)); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	first, _ := m.Get(ctx, "s1")

	now = now.Add(11 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if got := m.Bearer("s1"); got != "tok" {
		t.Fatalf("Bearer = %q, want tok kept across eviction", got)
	}

	restored, err := m.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if restored == first {
		t.Fatal("evicted session reused its old controller")
	}
	if restored.Mode() != storefront.ModeAuthenticated || restored.UserID() != "u1" {
		t.Fatalf("restored = %v/%q, want authenticated u1", restored.Mode(), restored.UserID())
	}
	if got := restored.CartCount(); got != 2 {
		t.Fatalf("restored CartCount = %d, want 2", got)
	}
}

func TestExpiredSignInIsForgotten(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(&nopRemote{}, MemoryLocals(), 10*time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.SignIn(ctx, "s1", "u1", "tok", now.Add(5*time.Minute))
	now = now.Add(11 * time.Minute)
	m.Sweep()

	if got := m.Bearer("s1"); got != "" {
		t.Fatalf("Bearer = %q, want expired token dropped", got)
	}
	m.mu.Lock()
	left := len(m.identities)
	m.mu.Unlock()
	if left != 0 {
		t.Fatalf("identities = %d, want 0", left)
	}

	c, _ := m.Get(ctx, "s1")
	if c.Mode() != storefront.ModeGuest {
		t.Fatalf("Mode = %v, want guest", c.Mode())
	}
}

func TestSignOutForgetsIdentity(t *testing.T) {
	m := NewManager(&nopRemote{}, MemoryLocals(), time.Minute)
	ctx := context.Background()

	_ = m.SignIn(ctx, "s1", "u1", "tok", time.Time{})
	if err := m.SignOut(ctx, "s1"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	m.End("s1")

	c, _ := m.Get(ctx, "s1")
	if c.Mode() != storefront.ModeGuest || m.Bearer("s1") != "" {
		t.Fatalf("after sign-out = %v bearer %q, want guest without token", c.Mode(), m.Bearer("s1"))
	}
}

func TestFileLocalsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	m := NewManager(&nopRemote{}, FileLocals(dir), time.Minute)
	c, _ := m.Get(ctx, "0f8fad5b-d9cb-469f-a165-70867728950e")
	if err := c.AddToCart(ctx, dress, "M", "", 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	restarted := NewManager(&nopRemote{}, FileLocals(dir), time.Minute)
	restored, _ := restarted.Get(ctx, "0f8fad5b-d9cb-469f-a165-70867728950e")
	if got := restored.CartCount(); got != 2 {
		t.Fatalf("restored CartCount = %d, want 2", got)
	}

	other, _ := restarted.Get(ctx, "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	if got := other.CartCount(); got != 0 {
		t.Fatalf("other session CartCount = %d, want 0", got)
	}
}
