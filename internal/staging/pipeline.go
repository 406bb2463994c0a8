package staging

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/banners/internal/domain"
	"github.com/MrSnakeDoc/banners/internal/logger"
)

// DefaultURLTimeout bounds download URL resolution.
const DefaultURLTimeout = 10 * time.Second

// ObjectStore is the binary store uploads go to.
type ObjectStore interface {
	// PutObject writes data at path and returns a handle for DownloadURL.
	PutObject(ctx context.Context, path, contentType string, data []byte) (string, error)
	// DownloadURL resolves a durable, readable URL for an uploaded object.
	DownloadURL(ctx context.Context, handle string) (string, error)
}

// State of the current upload attempt.
type State string

const (
	StateIdle         State = "Idle"
	StateFileSelected State = "FileSelected"
	StateUploading    State = "Uploading"
	StateAttached     State = "Attached"
	StateFailed       State = "Failed"
)

// File is a file picked by the operator.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Options configures a Pipeline.
type Options struct {
	Prefix     string        // object path prefix
	URLTimeout time.Duration // download URL budget, DefaultURLTimeout when zero
	Ready      bool          // service descriptor readiness
	Reason     string        // why the descriptor is not ready
}

// Status is a snapshot of the pipeline for display.
type Status struct {
	State         State  `json:"state"`
	FileName      string `json:"fileName,omitempty"`
	PreviewHandle string `json:"previewHandle,omitempty"`
	ObjectPath    string `json:"objectPath,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Pipeline stages one image at a time: select, upload, attach to the draft.
type Pipeline struct {
	objects  ObjectStore
	previews *PreviewRegistry
	opts     Options
	logger   logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     State
	file      *File
	preview   string
	path      string
	lastErr   string
	lastStamp int64
}

// NewPipeline creates an idle pipeline. objects may be nil when the
// descriptor is not ready.
func NewPipeline(objects ObjectStore, previews *PreviewRegistry, opts Options, log logger.Logger) *Pipeline {
	if opts.URLTimeout <= 0 {
		opts.URLTimeout = DefaultURLTimeout
	}
	opts.Prefix = strings.Trim(opts.Prefix, "/")
	p := &Pipeline{
		objects:  objects,
		previews: previews,
		opts:     opts,
		logger:   log,
		now:      time.Now,
		state:    StateIdle,
	}
	previews.OnExpire(p.forgetPreview)
	return p
}

// forgetPreview drops the preview handle once the registry expired it. The
// selected file stays and can still be uploaded.
func (p *Pipeline) forgetPreview(handle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.preview == handle {
		p.preview = ""
		p.logger.Debug("selected file preview expired", logger.String("handle", handle))
	}
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Status{State: p.state, PreviewHandle: p.preview, ObjectPath: p.path, Error: p.lastErr}
	if p.file != nil {
		s.FileName = p.file.Name
	}
	return s
}

// SelectFile accepts an image file and replaces the current preview. Non
// image types are rejected without touching any remote service.
func (p *Pipeline) SelectFile(f File) (string, error) {
	if f.ContentType == "" && len(f.Data) > 0 {
		f.ContentType = http.DetectContentType(f.Data)
	}
	if !isImage(f.ContentType) {
		return "", &UploadError{
			Kind:    KindUnsupportedFileType,
			Message: fmt.Sprintf("%q is not an image (%s)", f.Name, f.ContentType),
		}
	}

	handle := p.previews.Create(f)

	p.mu.Lock()
	prev := p.preview
	p.file = &f
	p.preview = handle
	p.path = ""
	p.lastErr = ""
	p.state = StateFileSelected
	p.mu.Unlock()

	p.previews.Release(prev)
	p.logger.Debug("file selected",
		logger.String("file", f.Name),
		logger.String("content_type", f.ContentType),
		logger.Int("size", len(f.Data)))
	return handle, nil
}

// Upload sends the selected file to the object store and, once a download
// URL is resolved, writes it into draft.ImageReference. Nothing else in the
// draft is touched.
func (p *Pipeline) Upload(ctx context.Context, draft *domain.Draft) error {
	p.mu.Lock()
	file := p.file
	p.mu.Unlock()

	if file == nil {
		return &UploadError{Kind: KindNoFile, Message: "select an image first"}
	}
	if !p.opts.Ready || p.objects == nil {
		return &UploadError{Kind: KindNotReady, Message: p.opts.Reason}
	}

	p.mu.Lock()
	path := p.objectPath(file.Name)
	p.state = StateUploading
	p.lastErr = ""
	p.mu.Unlock()

	url, err := p.transfer(ctx, path, file)
	if err != nil {
		p.fail(err)
		return err
	}

	draft.ImageReference = url

	p.mu.Lock()
	p.state = StateAttached
	p.path = path
	p.mu.Unlock()

	p.logger.Info("image attached", logger.String("path", path))
	return nil
}

func (p *Pipeline) transfer(ctx context.Context, path string, file *File) (string, error) {
	handle, err := p.objects.PutObject(ctx, path, file.ContentType, file.Data)
	if err != nil {
		return "", &UploadError{Kind: KindTransfer, Message: "upload failed", Err: err}
	}

	url, err := p.resolveURL(ctx, handle)
	switch {
	case err == nil:
		return url, nil
	case ctx.Err() != nil:
		// The caller gave up; the URL budget did not run out.
		return "", &UploadError{Kind: KindTransfer, Message: "upload abandoned before a download URL came back", Err: ctx.Err()}
	case errors.Is(err, context.DeadlineExceeded):
		return "", &UploadError{
			Kind:    KindDownloadURLTimeout,
			Message: fmt.Sprintf("no download URL after %s", p.opts.URLTimeout),
			Hint:    HintReadPermissions,
			Err:     err,
		}
	case errors.Is(err, ErrReadDenied):
		return "", &UploadError{Kind: KindTransfer, Message: "download URL refused", Hint: HintReadPermissions, Err: err}
	default:
		return "", &UploadError{Kind: KindTransfer, Message: "could not resolve download URL", Err: err}
	}
}

// resolveURL races DownloadURL against the timeout budget. A result that
// arrives after the deadline is dropped.
func (p *Pipeline) resolveURL(ctx context.Context, handle string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.URLTimeout)
	defer cancel()

	type result struct {
		url string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		u, err := p.objects.DownloadURL(ctx, handle)
		ch <- result{url: u, err: err}
	}()

	select {
	case r := <-ch:
		return r.url, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.state = StateFailed
	p.lastErr = err.Error()
	p.mu.Unlock()

	p.logger.Warn("upload failed", logger.Error(err))
}

// objectPath builds <prefix>/<stamp>-<name>. The stamp is a millisecond
// timestamp bumped to stay strictly increasing. Caller holds p.mu.
func (p *Pipeline) objectPath(name string) string {
	stamp := p.now().UnixMilli()
	if stamp <= p.lastStamp {
		stamp = p.lastStamp + 1
	}
	p.lastStamp = stamp

	base := fmt.Sprintf("%d-%s", stamp, SanitizeFilename(name))
	if p.opts.Prefix == "" {
		return base
	}
	return p.opts.Prefix + "/" + base
}

// Reset drops the selected file and its preview, back to Idle.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	prev := p.preview
	p.file = nil
	p.preview = ""
	p.path = ""
	p.lastErr = ""
	p.state = StateIdle
	p.mu.Unlock()

	p.previews.Release(prev)
}

// Close releases the last preview.
func (p *Pipeline) Close() error {
	p.Reset()
	return nil
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with
// '_'. An empty name becomes "file".
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "file"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// scriptableImageTypes are image types that can carry script. They are
// refused because objects are served from the API origin.
var scriptableImageTypes = map[string]struct{}{
	"image/svg+xml": {},
	"image/svg":     {},
}

func isImage(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if _, blocked := scriptableImageTypes[mt]; blocked {
		return false
	}
	return strings.HasPrefix(mt, "image/")
}
