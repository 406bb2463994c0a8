package console

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/banners/internal/auth"
	"github.com/MrSnakeDoc/banners/internal/domain"
	"github.com/MrSnakeDoc/banners/internal/logger"
	"github.com/MrSnakeDoc/banners/internal/records"
	"github.com/MrSnakeDoc/banners/internal/staging"
)

// ErrNotAuthorized is returned for record and upload actions outside an
// Authorized session.
var ErrNotAuthorized = &auth.AuthError{Kind: auth.KindDenied, Message: "sign in with an authorized account first"}

// View is everything an operator sees at once.
type View struct {
	Session   auth.Session    `json:"session"`
	Records   []domain.Record `json:"records"`
	Draft     domain.Draft    `json:"draft"`
	EditingID string          `json:"editingId,omitempty"`
	Upload    staging.Status  `json:"upload"`
	Status    string          `json:"status,omitempty"`
	Store     string          `json:"storeStatus,omitempty"`
}

// Console is the operator's single execution context. Every action runs
// under one lock; record and upload actions require an Authorized session.
type Console struct {
	provider auth.Provider
	machine  *auth.Machine
	facade   *records.Facade
	pipeline *staging.Pipeline
	logger   logger.Logger

	mu        sync.Mutex
	draft     domain.Draft
	editingID string
	loadedFor string // subject the record list was loaded for
	status    string
}

func New(provider auth.Provider, machine *auth.Machine, facade *records.Facade, pipeline *staging.Pipeline, log logger.Logger) *Console {
	return &Console{
		provider: provider,
		machine:  machine,
		facade:   facade,
		pipeline: pipeline,
		logger:   log,
	}
}

// SignIn authenticates and waits for the authorization decision. A denied
// identity comes back as an AuthError carrying the denial reason.
func (c *Console) SignIn(ctx context.Context, email, password string) (auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.provider.SignIn(ctx, email, password); err != nil {
		c.status = err.Error()
		return c.machine.Session(), err
	}
	if err := c.machine.Settle(ctx); err != nil {
		return c.machine.Session(), err
	}

	s := c.machine.Session()
	if !s.Authorized {
		c.resetDraft()
		c.status = s.DenialReason
		return s, &auth.AuthError{Kind: auth.KindDenied, Message: s.DenialReason}
	}

	c.ensureLoaded(ctx, s)
	who := s.Identity.Email
	if who == "" {
		who = s.Identity.Subject
	}
	c.status = "signed in as " + who
	return s, nil
}

// SignOut drops the identity and any work in progress.
func (c *Console) SignOut(ctx context.Context) (auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.provider.SignOut(ctx); err != nil {
		return c.machine.Session(), err
	}
	if err := c.machine.Settle(ctx); err != nil {
		return c.machine.Session(), err
	}
	c.resetDraft()
	c.loadedFor = ""
	c.status = "signed out"
	return c.machine.Session(), nil
}

// Session returns the current session.
func (c *Console) Session() auth.Session { return c.machine.Session() }

// View returns a snapshot. Records and draft are only shown to an
// Authorized session.
func (c *Console) View(ctx context.Context) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.machine.Session()
	v := View{Session: s, Status: c.status}
	if !s.Authorized {
		if s.DenialReason != "" {
			v.Status = s.DenialReason
		}
		return v
	}

	c.ensureLoaded(ctx, s)
	v.Records = c.facade.Records()
	v.Draft = c.draft
	v.EditingID = c.editingID
	v.Upload = c.pipeline.Status()
	v.Store = c.facade.Status()
	return v
}

// Records returns the record list and the store status.
func (c *Console) Records(ctx context.Context) ([]domain.Record, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return nil, "", err
	}
	return c.facade.Records(), c.facade.Status(), nil
}

// Reload reloads the record list from the document store.
func (c *Console) Reload(ctx context.Context) ([]domain.Record, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return nil, "", err
	}
	recs := c.facade.LoadAll(ctx)
	return recs, c.facade.Status(), nil
}

// Draft returns the form state and the id being edited, if any.
func (c *Console) Draft(ctx context.Context) (domain.Draft, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return domain.Draft{}, "", err
	}
	return c.draft, c.editingID, nil
}

// UpdateDraft replaces the draft fields. While editing, the id stays the
// edited record's id.
func (c *Console) UpdateDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return domain.Draft{}, err
	}
	if c.editingID != "" {
		d.ID = c.editingID
	}
	c.draft = d
	return c.draft, nil
}

// Edit loads a record into the draft.
func (c *Console) Edit(ctx context.Context, id string) (domain.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return domain.Draft{}, err
	}
	rec, ok := c.facade.Get(id)
	if !ok {
		return domain.Draft{}, &records.NotFoundError{ID: id}
	}
	c.pipeline.Reset()
	c.draft = rec.Draft()
	c.editingID = rec.ID()
	c.status = "editing " + rec.ID()
	return c.draft, nil
}

// Save validates the draft and commits it through the facade. The draft is
// only reset when validation passed; a failed remote mirror still counts as
// saved.
func (c *Console) Save(ctx context.Context) (records.SaveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return records.SaveResult{}, err
	}

	rec, err := domain.ValidateRecord(c.draft, c.editingID)
	if err != nil {
		c.status = err.Error()
		return records.SaveResult{}, err
	}

	res := c.facade.Save(ctx, rec)
	c.resetDraft()
	c.status = res.Status
	return res, nil
}

// Cancel discards the draft and the selected file.
func (c *Console) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return err
	}
	c.resetDraft()
	c.status = ""
	return nil
}

// Delete removes a record from the local list.
func (c *Console) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return err
	}
	if !c.facade.Delete(id) {
		return &records.NotFoundError{ID: id}
	}
	if c.editingID == id {
		c.resetDraft()
	}
	c.status = c.facade.Status()
	return nil
}

// SelectFile stages an image for upload and returns its preview handle.
func (c *Console) SelectFile(ctx context.Context, f staging.File) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return "", err
	}
	handle, err := c.pipeline.SelectFile(f)
	if err != nil {
		c.status = err.Error()
		return "", err
	}
	return handle, nil
}

// Upload sends the selected file and attaches its URL to the draft.
func (c *Console) Upload(ctx context.Context) (domain.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.authorize(ctx); err != nil {
		return domain.Draft{}, err
	}
	if err := c.pipeline.Upload(ctx, &c.draft); err != nil {
		c.status = err.Error()
		return c.draft, err
	}
	c.status = "image attached"
	return c.draft, nil
}

// Close releases local resources.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.Close()
}

// authorize checks the session and loads records for a newly authorized
// subject. Work in progress is dropped once the session is gone.
// Caller holds c.mu.
func (c *Console) authorize(ctx context.Context) error {
	s := c.machine.Session()
	if !s.Authorized {
		if !c.draft.IsEmpty() || c.editingID != "" {
			c.resetDraft()
		}
		c.loadedFor = ""
		return ErrNotAuthorized
	}
	c.ensureLoaded(ctx, s)
	return nil
}

// Caller holds c.mu.
func (c *Console) ensureLoaded(ctx context.Context, s auth.Session) {
	if s.Identity == nil || c.loadedFor == s.Identity.Subject {
		return
	}
	c.resetDraft()
	c.facade.LoadAll(ctx)
	c.loadedFor = s.Identity.Subject
	c.logger.Info("records loaded for session",
		logger.String("subject", s.Identity.Subject),
		logger.Int("count", c.facade.Collection().Count()))
}

// Caller holds c.mu.
func (c *Console) resetDraft() {
	c.draft = domain.Draft{}
	c.editingID = ""
	c.pipeline.Reset()
}
