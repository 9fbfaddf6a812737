package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tair/storefront/internal/storefront"
)

func sampleState() storefront.State {
	return storefront.State{
		CartItems: []storefront.CartLine{
			{ProductID: "sm001", Size: "M", Quantity: 2, Name: "Silk Midi", Price: 12900, Images: []string{"a.jpg"}},
			{ProductID: "fb010", Quantity: 1, Name: "Linen Fabric", Price: 2450},
		},
		Favorites: []storefront.Product{
			{ID: "sm001", Name: "Silk Midi", Price: 12900, Category: "women"},
		},
	}
}

func assertState(t *testing.T, got storefront.State) {
	t.Helper()
	want := sampleState()
	if len(got.CartItems) != len(want.CartItems) {
		t.Fatalf("cart items = %d, want %d", len(got.CartItems), len(want.CartItems))
	}
	for i := range want.CartItems {
		if got.CartItems[i].Key() != want.CartItems[i].Key() {
			t.Fatalf("line %d key = %v, want %v", i, got.CartItems[i].Key(), want.CartItems[i].Key())
		}
		if got.CartItems[i].Quantity != want.CartItems[i].Quantity {
			t.Fatalf("line %d quantity = %d, want %d", i, got.CartItems[i].Quantity, want.CartItems[i].Quantity)
		}
		if got.CartItems[i].Price != want.CartItems[i].Price {
			t.Fatalf("line %d price = %d, want %d", i, got.CartItems[i].Price, want.CartItems[i].Price)
		}
	}
	if len(got.Favorites) != 1 || got.Favorites[0].ID != "sm001" {
		t.Fatalf("favorites = %+v, want [sm001]", got.Favorites)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if !empty.IsEmpty() {
		t.Fatalf("Load empty = %+v, want empty state", empty)
	}

	if err := store.Save(ctx, sampleState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertState(t, got)
}

func TestFileStoreMissingFile(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	state, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !state.IsEmpty() {
		t.Fatalf("Load = %+v, want empty", state)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if filepath.Base(store.Path()) != "storefront-state.json" {
		t.Fatalf("Path = %q, want storefront-state.json", store.Path())
	}

	ctx := context.Background()
	if err := store.Save(ctx, sampleState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertState(t, got)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir entries = %d, want 1 (temp files cleaned up)", len(entries))
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	state, err := store.Load(context.Background())
	if err == nil {
		t.Fatal("Load corrupt file: expected error")
	}
	if !state.IsEmpty() {
		t.Fatalf("Load corrupt file = %+v, want empty state", state)
	}
}

func TestFileStoreEmptyPath(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatal("NewFileStore empty path: expected error")
	}
}

func TestRedisKey(t *testing.T) {
	if got := Key("abc"); got != "storefront-state:abc" {
		t.Fatalf("Key = %q, want %q", got, "storefront-state:abc")
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	id := "test-" + time.Now().Format("150405.000000")
	store := NewRedisStore(client, id, time.Minute)
	defer client.Del(ctx, Key(id))

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if !empty.IsEmpty() {
		t.Fatalf("Load empty = %+v, want empty", empty)
	}
	if err := store.Save(ctx, sampleState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertState(t, got)
}
