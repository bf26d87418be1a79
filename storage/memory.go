package storage

import (
	"context"
	"sync"
)

type memoryImage struct {
	data        []byte
	contentType string
}

// MemoryStore keeps images in process memory
type MemoryStore struct {
	mu         sync.RWMutex
	images     map[string]memoryImage
	publicPath string
}

// NewMemoryStore creates an empty store whose references start with publicPath
func NewMemoryStore(publicPath string) *MemoryStore {
	if publicPath == "" {
		publicPath = "/api/previews/"
	}
	return &MemoryStore{images: make(map[string]memoryImage), publicPath: publicPath}
}

var (
	_ ImageStore  = (*MemoryStore)(nil)
	_ ImageServer = (*MemoryStore)(nil)
)

func (s *MemoryStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := newKey(contentType)

	s.mu.Lock()
	s.images[key] = memoryImage{data: append([]byte(nil), data...), contentType: contentTypeFor(key)}
	s.mu.Unlock()

	return s.publicPath + key, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ref string) error {
	key, err := keyFromRef(s.publicPath, ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.images, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Open(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	img, ok := s.images[key]
	s.mu.RUnlock()

	if !ok {
		return nil, "", ErrNotFound
	}
	return img.data, img.contentType, nil
}

// Len reports how many images are stored
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
