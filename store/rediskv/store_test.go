package rediskv

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func TestStoreSetGet(t *testing.T) {
	store, shutdown := newTestStore(t)
	defer shutdown()

	ctx := context.Background()
	blob := Blob{Data: []byte{1, 2, 3, 4}, Version: 3}

	if err := store.Set(ctx, "graph:1", blob); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := store.Get(ctx, "graph:1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got.Data) != string(blob.Data) {
		t.Fatalf("expected data %v, got %v", blob.Data, got.Data)
	}
	if got.Version != 3 {
		t.Fatalf("expected version 3, got %d", got.Version)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store, shutdown := newTestStore(t)
	defer shutdown()

	if _, err := store.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store, shutdown := newTestStore(t)
	defer shutdown()

	ctx := context.Background()
	if err := store.Set(ctx, "graph:2", Blob{Data: []byte{9}}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Delete(ctx, "graph:2"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Get(ctx, "graph:2"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStorePublishSubscribe(t *testing.T) {
	store, shutdown := newTestStore(t)
	defer shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := store.Subscribe(ctx, "graph:3")
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer sub.Close()

	msg := Message{Key: "graph:3", Type: MessageTypeUpdate, Version: 10}
	if err := store.Publish(ctx, "graph:3", msg); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case received := <-sub.Channel():
		if received.Key != msg.Key || received.Type != msg.Type || received.Version != msg.Version {
			t.Fatalf("unexpected message %#v", received)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for message")
	}
}

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	store, err := New(client)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	return store, func() {
		_ = client.Close()
		srv.Close()
	}
}
