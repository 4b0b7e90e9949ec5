package upload

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalDiskRoundTrip(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalDisk(dir, "/uploads")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a}
	res, err := u.Upload(context.Background(), payload, "picture.PNG")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !strings.HasPrefix(res.URL, "/uploads/") {
		t.Fatalf("unexpected url %q", res.URL)
	}
	if !strings.HasSuffix(res.URL, ".png") {
		t.Fatalf("extension not preserved (lowercased): %q", res.URL)
	}
	if len(res.PublicID) != 32 {
		t.Fatalf("expected 16-byte hex id, got %q", res.PublicID)
	}

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(res.URL, "/uploads/")))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(stored, payload) {
		t.Fatalf("stored bytes differ from uploaded bytes")
	}
}

func TestLocalDiskNoExtension(t *testing.T) {
	u, err := NewLocalDisk(t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	res, err := u.Upload(context.Background(), []byte("data"), "blob")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if strings.Contains(filepath.Base(res.URL), ".") {
		t.Fatalf("unexpected extension in %q", res.URL)
	}
}
