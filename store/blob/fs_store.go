// Package blob holds the evidence payload stores: a filesystem store over
// afero and an S3 bucket store.
package blob

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/goliatone/go-integrations/core"
)

type FSStore struct {
	fs   afero.Fs
	root string
}

// NewFSStore writes objects under root. A nil fs uses the OS filesystem.
func NewFSStore(fs afero.Fs, root string) *FSStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FSStore{fs: fs, root: strings.TrimSpace(root)}
}

func (s *FSStore) Put(ctx context.Context, objectPath string, contentType string, data []byte) (core.BlobObject, error) {
	key, err := cleanKey(objectPath)
	if err != nil {
		return core.BlobObject{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.BlobObject{}, core.ExecutionError(err, "blob: write cancelled", map[string]any{"path": key})
	}
	target := s.resolve(key)
	if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return core.BlobObject{}, core.ExecutionError(err, "blob: create directory failed", map[string]any{"path": key})
	}
	if err := afero.WriteFile(s.fs, target, data, 0o644); err != nil {
		return core.BlobObject{}, core.ExecutionError(err, "blob: write failed", map[string]any{"path": key})
	}
	return core.BlobObject{Path: key, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *FSStore) Get(_ context.Context, objectPath string) ([]byte, error) {
	key, err := cleanKey(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.resolve(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NotFoundError("blob: object not found", map[string]any{"path": key})
		}
		return nil, core.ExecutionError(err, "blob: read failed", map[string]any{"path": key})
	}
	return data, nil
}

func (s *FSStore) resolve(key string) string {
	if s.root == "" {
		return key
	}
	return path.Join(s.root, key)
}

// cleanKey normalizes an object key and refuses keys that climb out of the
// store root.
func cleanKey(objectPath string) (string, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if trimmed == "" {
		return "", core.ValidationError("blob: object path is required")
	}
	cleaned := path.Clean(trimmed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", core.ValidationError("blob: object path escapes the store root")
	}
	return cleaned, nil
}

var _ core.BlobStore = (*FSStore)(nil)
