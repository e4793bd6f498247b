// Package artifacts stores generated media on local disk so it can be served
// from a static route.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidDevice = errors.New("device id cannot be used as a path segment")

type LocalStore struct {
	dir       string
	urlPrefix string
	ext       string
}

// NewLocalStore writes to dir/<device>/<uuid>.<ext>, served under
// urlPrefix/<device>/<uuid>.<ext>.
func NewLocalStore(dir, urlPrefix, ext string) *LocalStore {
	if ext == "" {
		ext = "mp3"
	}
	return &LocalStore{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		ext:       strings.TrimPrefix(ext, "."),
	}
}

// Save implements assistant.ArtifactStore.
func (s *LocalStore) Save(ctx context.Context, deviceID string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validSegment(deviceID) {
		return "", ErrInvalidDevice
	}

	deviceDir := filepath.Join(s.dir, deviceID)
	if err := os.MkdirAll(deviceDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}

	name := uuid.NewString() + "." + s.ext
	if err := os.WriteFile(filepath.Join(deviceDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path.Join(s.urlPrefix, deviceID, name), nil
}

func validSegment(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}
