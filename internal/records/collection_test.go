package records

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/banners/internal/domain"
)

func rec(t testing.TB, id, label string) domain.Record {
	t.Helper()
	r, err := domain.ValidateRecord(domain.Draft{
		ID:             id,
		Label:          label,
		Link:           "https://example.com/" + id,
		ImageReference: "https://cdn.example.com/" + id + ".png",
	}, "")
	require.NoError(t, err)
	return r
}

func ids(recs []domain.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID()
	}
	return out
}

func TestCollectionUpsertPrependsNew(t *testing.T) {
	c := NewCollection()
	assert.True(t, c.Upsert(rec(t, "a", "A")))
	assert.True(t, c.Upsert(rec(t, "b", "B")))
	assert.True(t, c.Upsert(rec(t, "c", "C")))

	assert.Equal(t, []string{"c", "b", "a"}, ids(c.All()))
}

func TestCollectionUpsertReplacesInPlace(t *testing.T) {
	c := NewCollection()
	c.Replace([]domain.Record{rec(t, "a", "A"), rec(t, "b", "B"), rec(t, "c", "C")})

	assert.False(t, c.Upsert(rec(t, "b", "B2")))
	assert.Equal(t, []string{"a", "b", "c"}, ids(c.All()))

	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "B2", got.Label())
}

func TestCollectionDelete(t *testing.T) {
	c := NewCollection()
	c.Replace([]domain.Record{rec(t, "a", "A"), rec(t, "b", "B"), rec(t, "c", "C")})

	assert.True(t, c.Delete("b"))
	assert.False(t, c.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, ids(c.All()))

	// Positions stay consistent after a delete.
	assert.False(t, c.Upsert(rec(t, "c", "C2")))
	got, _ := c.Get("c")
	assert.Equal(t, "C2", got.Label())
	assert.Equal(t, 2, c.Count())
}

func TestCollectionReplaceDropsDuplicates(t *testing.T) {
	c := NewCollection()
	c.Replace([]domain.Record{rec(t, "a", "first"), rec(t, "a", "second"), rec(t, "b", "B")})

	assert.Equal(t, []string{"a", "b"}, ids(c.All()))
	got, _ := c.Get("a")
	assert.Equal(t, "first", got.Label())
	assert.False(t, c.GetLastReload().IsZero())
}

func TestCollectionAllReturnsSnapshot(t *testing.T) {
	c := NewCollection()
	c.Upsert(rec(t, "a", "A"))

	snap := c.All()
	c.Upsert(rec(t, "b", "B"))
	assert.Len(t, snap, 1)
}

func TestCollectionConcurrentAccess(t *testing.T) {
	c := NewCollection()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := rec(t, fmt.Sprintf("r%d", i%5), "label")
			c.Upsert(r)
			c.Get(r.ID())
			c.All()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, c.Count())
}
