// Package storage keeps the preview images that belong to submitted orders.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"mymerch/config"
	"mymerch/logger"
)

// ErrNotFound is returned when a stored image does not exist
var ErrNotFound = errors.New("image not found")

// ImageStore persists preview images and hands back a reference that is
// saved with the order.
type ImageStore interface {
	Save(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// ImageServer is implemented by stores whose images are served by this
// process under the public preview path.
type ImageServer interface {
	Open(ctx context.Context, key string) ([]byte, string, error)
}

// New builds the image store selected by cfg.Type
func New(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (ImageStore, error) {
	log = logger.OrNop(log)
	fields := []zap.Field{zap.String("storageType", cfg.Type)}

	var (
		store ImageStore
		err   error
	)
	switch cfg.Type {
	case "filesystem":
		fields = append(fields, zap.String("basePath", cfg.LocalPath))
		store, err = NewFilesystemStore(cfg.LocalPath, cfg.PublicPath)
	case "s3":
		fields = append(fields, zap.String("bucket", cfg.S3Bucket))
		store, err = NewS3Store(ctx, cfg, WithS3Logger(log))
	case "drive":
		fields = append(fields, zap.String("folderId", cfg.DriveFolderID))
		store, err = NewDriveStore(ctx, cfg, log)
	case "memory", "":
		store = NewMemoryStore(cfg.PublicPath)
		fields[0] = zap.String("storageType", "in-memory")
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Use image storage", fields...)
	return store, nil
}

// newKey returns a sortable unique object name for an image
func newKey(contentType string) string {
	return ulid.Make().String() + extensionFor(contentType)
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}

// validKey rejects anything that is not a bare object name
func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && path.Base(key) == key && !strings.ContainsAny(key, `\/`)
}

// keyFromRef strips the public prefix from a reference produced by a local store
func keyFromRef(publicPath, ref string) (string, error) {
	key := strings.TrimPrefix(ref, publicPath)
	if !validKey(key) {
		return "", fmt.Errorf("invalid image reference %q", ref)
	}
	return key, nil
}
