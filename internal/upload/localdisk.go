package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// LocalDisk stores uploads under a fixed directory and serves them by path.
type LocalDisk struct {
	dir     string
	urlBase string
}

func NewLocalDisk(dir, urlBase string) (*LocalDisk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalDisk{dir: dir, urlBase: strings.TrimSuffix(urlBase, "/")}, nil
}

func (l *LocalDisk) Upload(ctx context.Context, data []byte, filename string) (Result, error) {
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return Result{}, err
	}
	id := hex.EncodeToString(idBytes)

	name := id + fileExtension(filename)
	if err := os.WriteFile(filepath.Join(l.dir, name), data, 0o644); err != nil {
		return Result{}, err
	}

	return Result{
		URL:      l.urlBase + "/" + name,
		PublicID: id,
	}, nil
}

// Dir exposes the storage directory for static file serving.
func (l *LocalDisk) Dir() string { return l.dir }

func fileExtension(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(ext)
}
