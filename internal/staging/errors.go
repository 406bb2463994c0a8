package staging

import (
	"errors"
	"fmt"
)

// ErrReadDenied is returned by object stores that refuse to hand out a
// readable URL for a stored object.
var ErrReadDenied = errors.New("object is not publicly readable")

// ErrorKind classifies an UploadError.
type ErrorKind string

const (
	KindUnsupportedFileType ErrorKind = "UnsupportedFileType"
	KindNotReady            ErrorKind = "NotReady"
	KindNoFile              ErrorKind = "NoFileSelected"
	KindTransfer            ErrorKind = "Transfer"
	KindDownloadURLTimeout  ErrorKind = "DownloadUrlTimeout"
)

// HintReadPermissions points at the most common misconfiguration: the
// object was written but cannot be read back.
const HintReadPermissions = "the file was uploaded but no download URL came back; check that the object store allows public reads"

// UploadError blocks attaching an image to the draft. Retrying the upload
// is always allowed.
type UploadError struct {
	Kind    ErrorKind
	Message string
	Hint    string
	Err     error
}

func (e *UploadError) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UploadError) Unwrap() error { return e.Err }

// Is matches any UploadError of the same kind.
func (e *UploadError) Is(target error) bool {
	var t *UploadError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedFileType = &UploadError{Kind: KindUnsupportedFileType}
	ErrNotReady            = &UploadError{Kind: KindNotReady}
	ErrNoFile              = &UploadError{Kind: KindNoFile}
	ErrTransfer            = &UploadError{Kind: KindTransfer}
	ErrDownloadURLTimeout  = &UploadError{Kind: KindDownloadURLTimeout}
)
