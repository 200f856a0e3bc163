package asset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets")
	store, err := NewDirStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	payload := []byte{0x89, 'P', 'N', 'G'}
	ref, err := store.Save(context.Background(), payload, "image/png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(ref, ".png") {
		t.Errorf("ref %q should carry a .png extension", ref)
	}

	got, err := os.ReadFile(ref)
	if err != nil {
		t.Fatalf("reading stored asset: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("stored payload mismatch")
	}
}

func TestDirStoreUnknownContentType(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ref, err := store.Save(context.Background(), []byte("blob"), "application/octet-stream")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(ref, ".bin") {
		t.Errorf("ref %q should fall back to .bin", ref)
	}
}
