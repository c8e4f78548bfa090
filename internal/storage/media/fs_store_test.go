package media_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/storage/media"
)

func TestStore_PutGetExists(t *testing.T) {
	store, err := media.New(t.TempDir())
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}

	name := "check_order-1_printer-1.pdf"
	if store.Exists(name) {
		t.Fatal("artifact must not exist yet")
	}

	if err := store.Put(name, []byte("%PDF-1.4")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if !store.Exists(name) {
		t.Fatal("artifact must exist after put")
	}

	data, err := store.Get(name)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store, err := media.New(t.TempDir())
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}

	if _, err := store.Get("missing.pdf"); !errors.Is(err, domain.ErrArtifactNotFound) {
		t.Fatalf("expected artifact not found, got %v", err)
	}
}

func TestStore_OverwriteIdempotent(t *testing.T) {
	store, err := media.New(t.TempDir())
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}

	name := "check.pdf"
	if err := store.Put(name, []byte("first")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := store.Put(name, []byte("second")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	data, err := store.Get(name)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected last write to win, got %q", data)
	}
}

func TestStore_RejectsTraversal(t *testing.T) {
	store, err := media.New(t.TempDir())
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}

	for _, name := range []string{"", "../escape.pdf", "sub/dir.pdf", ".hidden"} {
		if err := store.Put(name, []byte("x")); !errors.Is(err, domain.ErrArtifactNotFound) {
			t.Fatalf("expected rejection for %q, got %v", name, err)
		}
		if _, err := store.Get(name); !errors.Is(err, domain.ErrArtifactNotFound) {
			t.Fatalf("expected rejection for %q, got %v", name, err)
		}
		if store.Exists(name) {
			t.Fatalf("expected %q to not exist", name)
		}
	}
}
