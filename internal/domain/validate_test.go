package domain

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^[a-z0-9_-]*$`)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback string
		expected string
	}{
		{name: "plain", raw: "summer", expected: "summer"},
		{name: "spaces and case", raw: "  Test Item ", expected: "test-item"},
		{name: "run of symbols", raw: "a !?* b", expected: "a-b"},
		{name: "leading and trailing junk", raw: "--Hello--", expected: "hello"},
		{name: "keeps underscore", raw: "promo_2024", expected: "promo_2024"},
		{name: "non ascii collapses", raw: "Crème brûlée", expected: "cr-me-br-l-e"},
		{name: "falls back to label", raw: "  ", fallback: "Test Item", expected: "test-item"},
		{name: "falls back to token", raw: "!!!", fallback: "???", expected: FallbackID},
		{name: "empty everything", expected: FallbackID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeID(tt.raw, tt.fallback))
		})
	}
}

func TestNormalizeIDProperties(t *testing.T) {
	inputs := []string{
		"",
		"-",
		"Hello World",
		"ÄÖÜ",
		"a/b/c?d=e",
		"UPPER_lower-123",
		strings.Repeat("ab ", 40),
		strings.Repeat("x", 59) + " y",
		strings.Repeat("-", 100),
		"\t\nemoji 🎉 banner\n",
	}

	for _, in := range inputs {
		id := NormalizeID(in, "")
		assert.NotEmpty(t, id, "input %q", in)
		assert.LessOrEqual(t, len(id), 60, "input %q", in)
		assert.Regexp(t, idPattern, id, "input %q", in)
		assert.Equal(t, id, NormalizeID(id, ""), "not idempotent for %q", in)
	}
}

func TestValidateLink(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		reason   Reason
	}{
		{name: "https", raw: "https://example.com/x", expected: "https://example.com/x"},
		{name: "http trimmed", raw: "  http://example.com/a?b=c  ", expected: "http://example.com/a?b=c"},
		{name: "host lowercased", raw: "HTTPS://Example.COM/Path", expected: "https://example.com/Path"},
		{name: "empty path gets slash", raw: "https://example.com", expected: "https://example.com/"},
		{name: "empty", raw: "   ", reason: ReasonInvalidLink},
		{name: "relative", raw: "example.com/x", reason: ReasonInvalidLink},
		{name: "unparsable", raw: "http://[::1", reason: ReasonInvalidLink},
		{name: "missing host", raw: "https://", reason: ReasonInvalidLink},
		{name: "ftp", raw: "ftp://x", reason: ReasonUnsupportedScheme},
		{name: "javascript", raw: "javascript:alert(1)", reason: ReasonUnsupportedScheme},
		{name: "mailto", raw: "mailto:ops@example.com", reason: ReasonUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateLink(tt.raw)
			if tt.reason != "" {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
				assert.Equal(t, tt.reason, verr.Reason)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			again, err := ValidateLink(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "canonical form must be stable")
		})
	}
}

func TestValidateRecord(t *testing.T) {
	t.Run("derives id from label", func(t *testing.T) {
		rec, err := ValidateRecord(Draft{
			Label:          "Test Item",
			Link:           "https://example.com/x",
			ImageReference: "https://img/1.png",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, "test-item", rec.ID())
		assert.Equal(t, "Test Item", rec.Label())
		assert.Equal(t, "https://example.com/x", rec.Link())
		assert.Equal(t, "https://img/1.png", rec.ImageReference())
	})

	t.Run("explicit id is normalized", func(t *testing.T) {
		rec, err := ValidateRecord(Draft{
			ID:             "Big Promo!",
			Label:          "Anything",
			Link:           "https://example.com",
			ImageReference: "https://img/2.png",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, "big-promo", rec.ID())
	})

	t.Run("editing id wins", func(t *testing.T) {
		rec, err := ValidateRecord(Draft{
			ID:             "something-else",
			Label:          "Renamed",
			Link:           "https://example.com",
			ImageReference: "https://img/3.png",
		}, "original-id")
		require.NoError(t, err)
		assert.Equal(t, "original-id", rec.ID())
	})

	t.Run("missing image", func(t *testing.T) {
		_, err := ValidateRecord(Draft{
			Label:          "Test Item",
			Link:           "https://example.com/x",
			ImageReference: "",
		}, "")
		assert.ErrorIs(t, err, ErrMissingImage)
	})

	t.Run("missing label", func(t *testing.T) {
		_, err := ValidateRecord(Draft{
			ID:             "x",
			Label:          "   ",
			Link:           "https://example.com/x",
			ImageReference: "https://img/1.png",
		}, "")
		assert.ErrorIs(t, err, ErrMissingLabel)
	})

	t.Run("bad scheme", func(t *testing.T) {
		_, err := ValidateRecord(Draft{
			Label:          "Test",
			Link:           "ftp://x",
			ImageReference: "https://img/1.png",
		}, "")
		assert.ErrorIs(t, err, ErrUnsupportedScheme)
		assert.NotErrorIs(t, err, ErrInvalidLink)
	})

	t.Run("label is clamped", func(t *testing.T) {
		rec, err := ValidateRecord(Draft{
			Label:          strings.Repeat("é", 300),
			Link:           "https://example.com",
			ImageReference: "https://img/1.png",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, MaxLabelLength, len([]rune(rec.Label())))
	})
}

func TestValidateRecordNeverReturnsEmptyFields(t *testing.T) {
	labels := []string{"", " ", "x", "Test Item", "!!!"}
	images := []string{"", " ", "https://img/1.png"}
	links := []string{"", "https://example.com", "ftp://x"}
	ids := []string{"", "   ", "id"}

	for _, id := range ids {
		for _, label := range labels {
			for _, image := range images {
				for _, link := range links {
					rec, err := ValidateRecord(Draft{ID: id, Label: label, Link: link, ImageReference: image}, "")
					if err != nil {
						continue
					}
					assert.NotEmpty(t, rec.ID())
					assert.NotEmpty(t, strings.TrimSpace(rec.Label()))
					assert.NotEmpty(t, rec.ImageReference())
				}
			}
		}
	}
}

func TestSeedRecords(t *testing.T) {
	seed := SeedRecords()
	require.NotEmpty(t, seed)
	for _, rec := range seed {
		assert.False(t, rec.IsZero())
	}
}

func TestRecordMarshalJSON(t *testing.T) {
	rec, err := ValidateRecord(Draft{Label: "Card", Link: "https://example.com/c", ImageReference: "https://img/c.png"}, "")
	require.NoError(t, err)

	data, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"card","label":"Card","link":"https://example.com/c","imageReference":"https://img/c.png"}`, string(data))
}
