package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"mymerch/config"
)

const driveURLPrefix = "https://drive.google.com/uc?id="

// DriveStore uploads images into a Google Drive folder owned by a service account
type DriveStore struct {
	client   *drive.Service
	folderID string
	logger   *zap.Logger
}

// NewDriveStore creates a Drive client from a credentials file or inline JSON
func NewDriveStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger, opts ...option.ClientOption) (*DriveStore, error) {
	if cfg.DriveFolderID == "" {
		return nil, fmt.Errorf("drive folder id is required")
	}

	if len(opts) == 0 {
		switch {
		case cfg.DriveCredentialsJSON != "":
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.DriveCredentialsJSON)))
		case cfg.DriveCredentialsFile != "":
			opts = append(opts, option.WithCredentialsFile(cfg.DriveCredentialsFile))
		}
	}

	client, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriveStore{client: client, folderID: cfg.DriveFolderID, logger: logger}, nil
}

var _ ImageStore = (*DriveStore)(nil)

func (s *DriveStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	name := newKey(contentType)

	file, err := s.client.Files.Create(&drive.File{
		Name:     name,
		Parents:  []string{s.folderID},
		MimeType: contentTypeFor(name),
	}).Media(bytes.NewReader(data)).Fields("id").Context(ctx).Do()
	if err != nil {
		s.logger.Error("Failed to upload preview to drive", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return driveURLPrefix + file.Id, nil
}

func (s *DriveStore) Delete(ctx context.Context, ref string) error {
	fileID, ok := strings.CutPrefix(ref, driveURLPrefix)
	if !ok || fileID == "" {
		return fmt.Errorf("invalid image reference %q", ref)
	}
	if err := s.client.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
