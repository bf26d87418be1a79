package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemStore writes images as files under a base directory
type FilesystemStore struct {
	basePath   string
	publicPath string
}

// NewFilesystemStore creates basePath if needed
func NewFilesystemStore(basePath, publicPath string) (*FilesystemStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if publicPath == "" {
		publicPath = "/api/previews/"
	}
	return &FilesystemStore{basePath: basePath, publicPath: publicPath}, nil
}

var (
	_ ImageStore  = (*FilesystemStore)(nil)
	_ ImageServer = (*FilesystemStore)(nil)
)

func (s *FilesystemStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := newKey(contentType)
	if err := os.WriteFile(filepath.Join(s.basePath, key), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.publicPath + key, nil
}

func (s *FilesystemStore) Delete(ctx context.Context, ref string) error {
	key, err := keyFromRef(s.publicPath, ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (s *FilesystemStore) Open(ctx context.Context, key string) ([]byte, string, error) {
	if !validKey(key) {
		return nil, "", ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	return data, contentTypeFor(key), nil
}
