package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/abhinav-TB/Build-Trace/internal/logger"
	"github.com/abhinav-TB/Build-Trace/pkg/types"
)

// Store loads drawing snapshots and writes diff results. Paths are
// either local filesystem paths or gs://bucket/object URIs; the GCS
// client is created lazily on first remote access.
type Store struct {
	log       logger.Logger
	anonymous bool

	mu     sync.Mutex
	client *gcs.Client
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithAnonymousGCS reads public buckets without credentials.
func WithAnonymousGCS() StoreOption {
	return func(s *Store) { s.anonymous = true }
}

// WithStoreLogger sets the diagnostic logger.
func WithStoreLogger(l logger.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore creates a Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{log: logger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the GCS client if one was created.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// LoadObjects reads a drawing snapshot from path. Both a bare JSON
// array of objects and a wrapped {"objects": [...]} document are
// accepted.
func (s *Store) LoadObjects(ctx context.Context, path string) ([]types.DrawingObject, error) {
	data, err := s.read(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeObjects(data, path)
}

// WriteResult persists a change set as JSON at path.
func (s *Store) WriteResult(ctx context.Context, path string, cs *types.ChangeSet) error {
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return s.write(ctx, path, data)
}

func (s *Store) read(ctx context.Context, path string) ([]byte, error) {
	if bucket, object, ok := parseGSURI(path); ok {
		client, err := s.gcsClient(ctx)
		if err != nil {
			return nil, err
		}
		rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, path string, data []byte) error {
	if bucket, object, ok := parseGSURI(path); ok {
		client, err := s.gcsClient(ctx)
		if err != nil {
			return err
		}
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = "application/json"
		if _, err := w.Write(data); err != nil {
			w.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *Store) gcsClient(ctx context.Context) (*gcs.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []option.ClientOption
	if s.anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	s.log.WithField("anonymous", s.anonymous).Debug("creating GCS client")
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	s.client = client
	return client, nil
}

// parseGSURI splits gs://bucket/object, reporting whether path is a
// GCS URI at all.
func parseGSURI(path string) (bucket, object string, ok bool) {
	const prefix = "gs://"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		object = parts[1]
	}
	return bucket, object, true
}

func decodeObjects(data []byte, path string) ([]types.DrawingObject, error) {
	var objects []types.DrawingObject
	if err := json.Unmarshal(data, &objects); err == nil {
		return objects, nil
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%s is not a drawing snapshot: %w", path, err)
	}
	if snap.Objects == nil {
		return nil, fmt.Errorf("%s is not a drawing snapshot: no objects field", path)
	}
	return snap.Objects, nil
}
