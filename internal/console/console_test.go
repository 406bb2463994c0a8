package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrSnakeDoc/banners/internal/auth"
	"github.com/MrSnakeDoc/banners/internal/domain"
	"github.com/MrSnakeDoc/banners/internal/identity"
	"github.com/MrSnakeDoc/banners/internal/logger"
	"github.com/MrSnakeDoc/banners/internal/records"
	"github.com/MrSnakeDoc/banners/internal/staging"
)

type memStore struct {
	mu        sync.Mutex
	docs      map[string]domain.Record
	upsertErr error
}

func (s *memStore) ListDocuments(context.Context, string) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Document, 0, len(s.docs))
	for id, r := range s.docs {
		out = append(out, domain.Document{ID: id, Fields: map[string]any{
			"label": r.Label(), "link": r.Link(), "imageReference": r.ImageReference(),
		}})
	}
	return out, nil
}

func (s *memStore) UpsertDocument(_ context.Context, _ string, r domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.docs[r.ID()] = r
	return nil
}

type memObjects struct{}

func (memObjects) PutObject(_ context.Context, path, _ string, _ []byte) (string, error) {
	return path, nil
}

func (memObjects) DownloadURL(_ context.Context, handle string) (string, error) {
	return "https://objects.example.com/objects/" + handle, nil
}

type fixture struct {
	console  *Console
	provider *identity.Local
	store    *memStore
	previews *staging.PreviewRegistry
}

func newFixture(t *testing.T, allowlist []string) *fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	dir, err := identity.NewDirectory([]identity.Operator{
		{UID: "u1", Email: "admin@example.com", PasswordHash: string(hash)},
		{UID: "u2", Email: "intruder@example.com", PasswordHash: string(hash)},
	})
	require.NoError(t, err)

	log := logger.NewNop()
	provider := identity.NewLocal(dir, []byte("secret"), time.Hour, log)
	machine := auth.NewMachine(provider, auth.BuildPolicies(auth.PolicyOptions{Allowlist: allowlist}, provider), log, time.Second)
	require.NoError(t, machine.Start(context.Background()))
	t.Cleanup(machine.Stop)

	store := &memStore{docs: map[string]domain.Record{}}
	facade := records.NewFacade(store, records.Options{Collection: "banners", Ready: true}, log)
	previews := staging.NewPreviewRegistry()
	pipeline := staging.NewPipeline(memObjects{}, previews, staging.Options{Prefix: "banners", Ready: true}, log)

	c := New(provider, machine, facade, pipeline, log)
	t.Cleanup(func() { _ = c.Close() })
	return &fixture{console: c, provider: provider, store: store, previews: previews}
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	s, err := f.console.SignIn(context.Background(), "admin@example.com", "pw")
	require.NoError(t, err)
	require.True(t, s.Authorized)
}

func TestActionsRequireAuthorizedSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.console.Records(ctx)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = f.console.UpdateDraft(ctx, domain.Draft{Label: "x"})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = f.console.Save(ctx)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = f.console.SelectFile(ctx, staging.File{Name: "a.png", ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = f.console.Upload(ctx)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.ErrorIs(t, f.console.Delete(ctx, "spring-sale"), ErrNotAuthorized)

	v := f.console.View(ctx)
	assert.Equal(t, auth.StateSignedOut, v.Session.State)
	assert.Empty(t, v.Records)
}

func TestSignInLoadsSeedForEmptyStore(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	recs, status, err := f.console.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(domain.SeedRecords()), len(recs))
	assert.Contains(t, status, "demo data")
}

func TestSignInBadCredentials(t *testing.T) {
	f := newFixture(t, nil)
	s, err := f.console.SignIn(context.Background(), "admin@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
	assert.False(t, s.Authorized)
}

func TestSignInDeniedByAllowlist(t *testing.T) {
	f := newFixture(t, []string{"u1"})

	s, err := f.console.SignIn(context.Background(), "intruder@example.com", "pw")
	var authErr *auth.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, auth.KindDenied, authErr.Kind)
	assert.Contains(t, authErr.Message, "allowlist")
	assert.Equal(t, auth.StateSignedOut, s.State)

	v := f.console.View(context.Background())
	assert.Contains(t, v.Status, "allowlist")
	assert.Empty(t, v.Records)

	// The allowlisted operator still gets in afterwards.
	f.signIn(t)
}

func TestUploadAndSaveFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)
	ctx := context.Background()

	_, err := f.console.UpdateDraft(ctx, domain.Draft{Label: "Test Item", Link: "https://example.com/x"})
	require.NoError(t, err)

	// Saving without an image is rejected and keeps the draft.
	_, err = f.console.Save(ctx)
	require.ErrorIs(t, err, domain.ErrMissingImage)
	d, _, err := f.console.Draft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Test Item", d.Label)

	handle, err := f.console.SelectFile(ctx, staging.File{Name: "item.png", ContentType: "image/png", Data: []byte{1}})
	require.NoError(t, err)
	assert.NotEmpty(t, handle)

	d, err = f.console.Upload(ctx)
	require.NoError(t, err)
	assert.Contains(t, d.ImageReference, "https://objects.example.com/objects/banners/")
	assert.Equal(t, "Test Item", d.Label)

	res, err := f.console.Save(ctx)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.Mirrored)
	assert.Equal(t, "test-item", res.Record.ID())

	recs, _, err := f.console.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-item", recs[0].ID())

	// Draft and preview are reset after a successful save.
	d, _, err = f.console.Draft(ctx)
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())
	assert.Zero(t, f.previews.Len())
}

func TestSaveStagesLocallyWhenMirrorFails(t *testing.T) {
	f := newFixture(t, nil)
	f.store.upsertErr = errors.New("store down")
	f.signIn(t)
	ctx := context.Background()

	_, err := f.console.UpdateDraft(ctx, domain.Draft{Label: "Local", Link: "https://example.com", ImageReference: "https://img/1.png"})
	require.NoError(t, err)

	res, err := f.console.Save(ctx)
	require.NoError(t, err)
	assert.False(t, res.Mirrored)
	assert.Contains(t, res.Status, "staged locally")

	recs, _, err := f.console.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, "local", recs[0].ID())
}

func TestEditKeepsIdentity(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)
	ctx := context.Background()

	d, err := f.console.Edit(ctx, "new-arrivals")
	require.NoError(t, err)
	assert.Equal(t, "new-arrivals", d.ID)

	d.ID = "renamed"
	d.Label = "Fresh arrivals"
	d, err = f.console.UpdateDraft(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "new-arrivals", d.ID)

	res, err := f.console.Save(ctx)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "new-arrivals", res.Record.ID())
	assert.Equal(t, "Fresh arrivals", res.Record.Label())

	recs, _, _ := f.console.Records(ctx)
	seed := domain.SeedRecords()
	require.Len(t, recs, len(seed))
	for i := range seed {
		assert.Equal(t, seed[i].ID(), recs[i].ID())
	}

	_, err = f.console.Edit(ctx, "missing")
	var nf *records.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeleteAndCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)
	ctx := context.Background()

	require.NoError(t, f.console.Delete(ctx, "spring-sale"))
	var nf *records.NotFoundError
	assert.ErrorAs(t, f.console.Delete(ctx, "spring-sale"), &nf)

	_, err := f.console.UpdateDraft(ctx, domain.Draft{Label: "x"})
	require.NoError(t, err)
	require.NoError(t, f.console.Cancel(ctx))
	d, _, _ := f.console.Draft(ctx)
	assert.True(t, d.IsEmpty())
}

func TestSignOutDropsWork(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)
	ctx := context.Background()

	_, err := f.console.SelectFile(ctx, staging.File{Name: "a.png", ContentType: "image/png"})
	require.NoError(t, err)
	_, err = f.console.UpdateDraft(ctx, domain.Draft{Label: "wip"})
	require.NoError(t, err)

	s, err := f.console.SignOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.StateSignedOut, s.State)
	assert.Zero(t, f.previews.Len())

	_, _, err = f.console.Draft(ctx)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestOperatorRemovedFromDirectoryLosesAccess(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	empty, err := identity.NewDirectory(nil)
	require.NoError(t, err)
	f.provider.ReplaceDirectory(empty)

	assert.Eventually(t, func() bool {
		_, _, err := f.console.Records(context.Background())
		return errors.Is(err, ErrNotAuthorized)
	}, 2*time.Second, 10*time.Millisecond)
}
