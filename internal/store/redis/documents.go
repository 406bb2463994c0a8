package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/banners/internal/domain"
)

// DocumentStore keeps each collection in one Redis hash: id -> JSON record.
// A companion zset remembers when each id was first saved.
type DocumentStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewDocumentStore(client *redis.Client) *DocumentStore {
	return &DocumentStore{client: client, now: time.Now}
}

// ListDocuments returns the raw documents of a collection, most recently
// created first. Values that are not JSON objects come back with no fields
// so callers can skip them.
func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]domain.Document, error) {
	pipe := s.client.Pipeline()
	hget := pipe.HGetAll(ctx, CollectionKey(collection))
	order := pipe.ZRevRange(ctx, OrderKey(collection), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	entries := hget.Val()

	docs := make([]domain.Document, 0, len(entries))
	add := func(id string) {
		raw, ok := entries[id]
		if !ok {
			return
		}
		delete(entries, id)
		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			fields = nil
		}
		docs = append(docs, domain.Document{ID: id, Fields: fields})
	}
	for _, id := range order.Val() {
		add(id)
	}

	// Ids written without an order entry go last, by id.
	rest := make([]string, 0, len(entries))
	for id := range entries {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	for _, id := range rest {
		add(id)
	}
	return docs, nil
}

// UpsertDocument writes rec under its id, replacing any previous version.
// The first save fixes the id's place in listings.
func (s *DocumentStore) UpsertDocument(ctx context.Context, collection string, rec domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, CollectionKey(collection), rec.ID(), data)
	pipe.ZAddNX(ctx, OrderKey(collection), redis.Z{
		Score:  float64(s.now().UnixMicro()),
		Member: rec.ID(),
	})
	pipe.SAdd(ctx, KeyCollections, collection)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save document %s: %w", rec.ID(), err)
	}
	return nil
}
