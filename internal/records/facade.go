package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/banners/internal/domain"
	"github.com/MrSnakeDoc/banners/internal/logger"
)

// DocumentStore is the remote mirror of the record collection.
// ListDocuments returns newest-created first; an edit keeps a document's place.
type DocumentStore interface {
	ListDocuments(ctx context.Context, collection string) ([]domain.Document, error)
	UpsertDocument(ctx context.Context, collection string, rec domain.Record) error
}

// Options configures a Facade.
type Options struct {
	Collection string
	Ready      bool   // service descriptor readiness
	Reason     string // why the descriptor is not ready
	Seed       []domain.Record
}

// SaveResult reports both phases of a save. The local phase always succeeds.
type SaveResult struct {
	Record   domain.Record `json:"record"`
	Created  bool          `json:"created"`
	Mirrored bool          `json:"mirrored"`
	Status   string        `json:"status"`
	Err      error         `json:"-"`
}

// Facade keeps the in-memory collection authoritative and mirrors writes to
// the document store on a best-effort basis.
type Facade struct {
	store      DocumentStore
	collection string
	ready      bool
	reason     string
	seed       []domain.Record
	logger     logger.Logger

	records *Collection

	mu     sync.Mutex
	status string
}

// NewFacade creates a facade with an empty collection. store may be nil when
// the descriptor is not ready. An empty seed falls back to the built-in one.
func NewFacade(store DocumentStore, opts Options, log logger.Logger) *Facade {
	seed := opts.Seed
	if len(seed) == 0 {
		seed = domain.SeedRecords()
	}
	return &Facade{
		store:      store,
		collection: opts.Collection,
		ready:      opts.Ready && store != nil,
		reason:     opts.Reason,
		seed:       seed,
		logger:     log,
		records:    NewCollection(),
	}
}

// LoadAll replaces the collection with the remote documents. Documents
// missing label, link or imageReference are skipped. When the store is not
// ready, fails, or holds nothing usable, the seed set is loaded instead and
// the reason is kept in Status. LoadAll never fails.
func (f *Facade) LoadAll(ctx context.Context) []domain.Record {
	recs, status := f.fetch(ctx)
	if len(recs) == 0 {
		recs = f.seed
	}

	f.records.Replace(recs)
	f.setStatus(status)
	return f.records.All()
}

func (f *Facade) fetch(ctx context.Context) ([]domain.Record, string) {
	if !f.ready {
		msg := "showing demo data: " + f.reason
		f.logger.Warn("document store not ready, using seed set", logger.String("reason", f.reason))
		return nil, msg
	}

	docs, err := f.store.ListDocuments(ctx, f.collection)
	if err != nil {
		serr := &StoreError{Op: OpQuery, Err: err}
		f.logger.Error("failed to load records, using seed set",
			logger.String("collection", f.collection),
			logger.Error(serr))
		return nil, "showing demo data: " + serr.Error()
	}

	recs := make([]domain.Record, 0, len(docs))
	skipped := 0
	for _, doc := range docs {
		rec, ok := recordFromDocument(doc)
		if !ok {
			skipped++
			continue
		}
		recs = append(recs, rec)
	}
	if skipped > 0 {
		f.logger.Warn("skipped incomplete documents",
			logger.String("collection", f.collection),
			logger.Int("skipped", skipped))
	}

	if len(recs) == 0 {
		f.logger.Info("no stored records, using seed set", logger.String("collection", f.collection))
		return nil, "no records yet, showing demo data"
	}

	f.logger.Info("records loaded",
		logger.String("collection", f.collection),
		logger.Int("count", len(recs)))
	return recs, ""
}

func recordFromDocument(doc domain.Document) (domain.Record, bool) {
	d := domain.Draft{
		ID:             doc.ID,
		Label:          doc.StringField("label"),
		Link:           doc.StringField("link"),
		ImageReference: doc.StringField("imageReference"),
	}
	if d.Label == "" || d.Link == "" || d.ImageReference == "" {
		return domain.Record{}, false
	}
	rec, err := domain.ValidateRecord(d, doc.ID)
	if err != nil {
		return domain.Record{}, false
	}
	return rec, true
}

// Save commits rec locally, then mirrors it remotely. A failed mirror only
// changes the status text; the local change is never rolled back.
func (f *Facade) Save(ctx context.Context, rec domain.Record) SaveResult {
	// Phase 1: local, always succeeds.
	created := f.records.Upsert(rec)
	res := SaveResult{Record: rec, Created: created}

	// Phase 2: best-effort mirror.
	switch {
	case !f.ready:
		res.Err = fmt.Errorf("document store not ready: %s", f.reason)
		res.Status = "staged locally: " + res.Err.Error()
	default:
		if err := f.store.UpsertDocument(ctx, f.collection, rec); err != nil {
			res.Err = &StoreError{Op: OpWrite, Err: err}
			res.Status = "staged locally: " + res.Err.Error()
		} else {
			res.Mirrored = true
			res.Status = fmt.Sprintf("saved %s", rec.ID())
		}
	}

	if res.Err != nil {
		f.logger.Warn("record staged locally only",
			logger.String("record_id", rec.ID()),
			logger.Error(res.Err))
	} else {
		f.logger.Info("record saved",
			logger.String("record_id", rec.ID()),
			logger.Bool("created", created))
	}

	f.setStatus(res.Status)
	return res
}

// Delete removes a record from the local list only.
func (f *Facade) Delete(id string) bool {
	ok := f.records.Delete(id)
	if ok {
		f.logger.Info("record removed locally", logger.String("record_id", id))
		f.setStatus(fmt.Sprintf("removed %s from this session", id))
	}
	return ok
}

// Records returns the current list in display order.
func (f *Facade) Records() []domain.Record { return f.records.All() }

// Get returns one record by id.
func (f *Facade) Get(id string) (domain.Record, bool) { return f.records.Get(id) }

// Collection exposes the in-memory list.
func (f *Facade) Collection() *Collection { return f.records }

// Status returns the last status message, empty when all is well.
func (f *Facade) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Facade) setStatus(s string) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}
