package redis

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/banners/internal/staging"
)

// ErrObjectNotFound is returned for unknown object paths.
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored binary with its metadata.
type Object struct {
	Path        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// ObjectStore keeps uploaded binaries in Redis hashes and hands out
// download URLs under a public base URL.
type ObjectStore struct {
	client     *redis.Client
	publicURL  string
	publicRead bool
}

// NewObjectStore creates an object store. publicURL is the externally
// reachable base the /objects/ route is served under.
func NewObjectStore(client *redis.Client, publicURL string, publicRead bool) *ObjectStore {
	return &ObjectStore{
		client:     client,
		publicURL:  strings.TrimRight(publicURL, "/"),
		publicRead: publicRead,
	}
}

// PutObject stores data under path and returns the path as handle
func (s *ObjectStore) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("object path is required")
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, ObjectKey(path), map[string]interface{}{
		"content_type": contentType,
		"data":         data,
		"size":         len(data),
		"created_at":   time.Now().Unix(),
	})
	pipe.SAdd(ctx, AllObjectsKey(), path)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save object: %w", err)
	}
	return path, nil
}

// DownloadURL returns the public URL of a stored object.
func (s *ObjectStore) DownloadURL(ctx context.Context, handle string) (string, error) {
	if !s.publicRead {
		return "", fmt.Errorf("%s: %w", handle, staging.ErrReadDenied)
	}

	n, err := s.client.Exists(ctx, ObjectKey(handle)).Result()
	if err != nil {
		return "", fmt.Errorf("failed to check object: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, handle)
	}
	return s.publicURL + "/objects/" + escapePath(handle), nil
}

// Get loads an object for serving. Reads are refused when public read is off.
func (s *ObjectStore) Get(ctx context.Context, path string) (*Object, error) {
	if !s.publicRead {
		return nil, fmt.Errorf("%s: %w", path, staging.ErrReadDenied)
	}

	fields, err := s.client.HGetAll(ctx, ObjectKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, path)
	}

	obj := &Object{
		Path:        path,
		ContentType: fields["content_type"],
		Data:        []byte(fields["data"]),
	}
	if ts, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		obj.CreatedAt = time.Unix(ts, 0)
	}
	return obj, nil
}

// Count returns the number of stored objects
func (s *ObjectStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, AllObjectsKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to count objects: %w", err)
	}
	return n, nil
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
