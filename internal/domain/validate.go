package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// maxNormalizedID is the length cap of a derived identifier.
	maxNormalizedID = 60

	// FallbackID is used when neither the raw id nor the label yields a usable key.
	FallbackID = "banner"
)

// Reason identifies why a draft failed validation.
type Reason string

const (
	ReasonMissingID         Reason = "MissingId"
	ReasonMissingLabel      Reason = "MissingLabel"
	ReasonMissingImage      Reason = "MissingImage"
	ReasonInvalidLink       Reason = "InvalidLink"
	ReasonUnsupportedScheme Reason = "UnsupportedScheme"
)

// Sentinels usable with errors.Is against a *ValidationError.
var (
	ErrMissingID         = &ValidationError{Reason: ReasonMissingID}
	ErrMissingLabel      = &ValidationError{Reason: ReasonMissingLabel}
	ErrMissingImage      = &ValidationError{Reason: ReasonMissingImage}
	ErrInvalidLink       = &ValidationError{Reason: ReasonInvalidLink}
	ErrUnsupportedScheme = &ValidationError{Reason: ReasonUnsupportedScheme}
)

// ValidationError blocks a save. It is always recoverable by fixing the draft.
type ValidationError struct {
	Reason Reason
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	msg := e.message()
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *ValidationError) message() string {
	switch e.Reason {
	case ReasonMissingID:
		return "an id is required"
	case ReasonMissingLabel:
		return "a label is required"
	case ReasonMissingImage:
		return "upload an image before saving"
	case ReasonInvalidLink:
		return "the link must be an absolute URL"
	case ReasonUnsupportedScheme:
		return "the link must use http or https"
	default:
		return "invalid record"
	}
}

// Is matches any ValidationError carrying the same reason.
func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

// NormalizeID derives a collection-safe key from raw input.
//
// The raw value is trimmed, lower-cased, every run of characters outside
// [a-z0-9_-] collapses to a single '-', leading and trailing '-' are
// stripped and the result is capped at 60 characters. When raw yields
// nothing the same is applied to fallbackLabel, and when that is empty
// too FallbackID is returned. The result is never empty and
// NormalizeID(NormalizeID(x, ""), "") == NormalizeID(x, "").
func NormalizeID(raw, fallbackLabel string) string {
	if id := slugify(raw); id != "" {
		return id
	}
	if id := slugify(fallbackLabel); id != "" {
		return id
	}
	return FallbackID
}

func slugify(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range s {
		if isIDRune(r) {
			if pendingDash {
				b.WriteByte('-')
				pendingDash = false
			}
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	// A trailing run is dropped by not flushing pendingDash.

	out := strings.Trim(b.String(), "-")
	if len(out) > maxNormalizedID {
		out = strings.TrimRight(out[:maxNormalizedID], "-")
	}
	return out
}

func isIDRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

// ValidateLink checks that raw is an absolute http(s) URL and returns its
// canonical form (lower-case scheme and host, "/" for an empty path).
func ValidateLink(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ValidationError{Reason: ReasonInvalidLink, Field: "link"}
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", &ValidationError{Reason: ReasonInvalidLink, Field: "link", Detail: err.Error()}
	}
	if u.Scheme == "" {
		return "", &ValidationError{Reason: ReasonInvalidLink, Field: "link", Detail: "missing scheme"}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", &ValidationError{Reason: ReasonUnsupportedScheme, Field: "link", Detail: scheme}
	}
	if u.Host == "" {
		return "", &ValidationError{Reason: ReasonInvalidLink, Field: "link", Detail: "missing host"}
	}

	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.RawPath == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// ValidateRecord turns a draft into a Record.
//
// editingID, when non-empty, wins over anything in the draft: an edit never
// changes the identity of the record it targets.
func ValidateRecord(d Draft, editingID string) (Record, error) {
	d = clampDraft(d)

	id := truncateRunes(strings.TrimSpace(editingID), MaxIDLength)
	if id == "" {
		id = NormalizeID(d.ID, d.Label)
	}
	if id == "" {
		return Record{}, &ValidationError{Reason: ReasonMissingID, Field: "id"}
	}

	label := strings.TrimSpace(d.Label)
	if label == "" {
		return Record{}, &ValidationError{Reason: ReasonMissingLabel, Field: "label"}
	}

	image := strings.TrimSpace(d.ImageReference)
	if image == "" {
		return Record{}, &ValidationError{Reason: ReasonMissingImage, Field: "imageReference"}
	}

	link, err := ValidateLink(d.Link)
	if err != nil {
		return Record{}, err
	}

	return Record{
		id:             id,
		label:          truncateRunes(label, MaxLabelLength),
		link:           link,
		imageReference: image,
	}, nil
}

func clampDraft(d Draft) Draft {
	return Draft{
		ID:             truncateRunes(d.ID, MaxIDLength),
		Label:          truncateRunes(d.Label, MaxLabelLength),
		Link:           truncateRunes(d.Link, MaxLinkLength),
		ImageReference: truncateRunes(d.ImageReference, MaxImageLength),
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
