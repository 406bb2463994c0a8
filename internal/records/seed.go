package records

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/banners/internal/domain"
)

// SeedLoader reads a YAML sequence of drafts (id, label, link,
// imageReference) used instead of the built-in seed.
type SeedLoader struct {
	filePath string
}

func NewSeedLoader(filePath string) *SeedLoader {
	return &SeedLoader{filePath: filePath}
}

// Load reads and validates the seed file. An empty file is an error: the
// seed set must never be blank.
func (l *SeedLoader) Load() ([]domain.Record, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var drafts []domain.Draft
	if err := yaml.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}

	recs, err := domain.RecordsFromDrafts(drafts)
	if err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", l.filePath, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("seed file %s has no records", l.filePath)
	}
	return recs, nil
}
