package sqlstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MrSnakeDoc/banners/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "banners.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(t *testing.T, id, label string) domain.Record {
	t.Helper()
	rec, err := domain.ValidateRecord(domain.Draft{
		ID:             id,
		Label:          label,
		Link:           "https://shop.example.com/" + id,
		ImageReference: "https://cdn.example.com/" + id + ".png",
	}, "")
	require.NoError(t, err)
	return rec
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}

func TestUpsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDocument(ctx, "banners", record(t, "spring", "Spring")))
	require.NoError(t, s.UpsertDocument(ctx, "banners", record(t, "summer", "Summer")))
	require.NoError(t, s.UpsertDocument(ctx, "other", record(t, "winter", "Winter")))

	docs, err := s.ListDocuments(ctx, "banners")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byID := map[string]domain.Document{}
	for _, d := range docs {
		byID[d.ID] = d
	}
	assert.Equal(t, "Spring", byID["spring"].StringField("label"))
	assert.Equal(t, "https://shop.example.com/summer", byID["summer"].StringField("link"))
	assert.Equal(t, "https://cdn.example.com/summer.png", byID["summer"].StringField("imageReference"))
}

func TestUpsertReplacesById(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDocument(ctx, "banners", record(t, "spring", "Spring")))
	require.NoError(t, s.UpsertDocument(ctx, "banners", record(t, "spring", "Spring Sale")))

	docs, err := s.ListDocuments(ctx, "banners")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Spring Sale", docs[0].StringField("label"))
}

func TestListKeepsCreationOrderAcrossEdits(t *testing.T) {
	var (
		mu    sync.Mutex
		clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	)
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "banners.db")), &gorm.Config{NowFunc: tick})
	require.NoError(t, err)
	s, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	require.NoError(t, s.UpsertDocument(ctx, "banners", record(t, "a", "A")))
	require.NoError(t, s.UpsertDocument(ctx, "banners", record(t, "b", "B")))
	require.NoError(t, s.UpsertDocument(ctx, "banners", record(t, "a", "A edited")))

	docs, err := s.ListDocuments(ctx, "banners")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)
	assert.Equal(t, "A edited", docs[1].StringField("label"))
}

func TestListOmitsEmptyColumns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A partial row written by some other tool.
	require.NoError(t, s.db.Create(&RecordRow{Collection: "banners", ID: "partial", Label: "Partial"}).Error)

	docs, err := s.ListDocuments(ctx, "banners")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	_, hasLink := docs[0].Fields["link"]
	assert.False(t, hasLink)
	assert.Equal(t, "Partial", docs[0].StringField("label"))
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
