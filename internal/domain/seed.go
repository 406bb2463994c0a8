package domain

import "fmt"

// seedDrafts are shown when no remote data is available so the list is never blank.
var seedDrafts = []Draft{
	{
		ID:             "spring-sale",
		Label:          "Spring sale: up to 40% off",
		Link:           "https://example.com/sale/spring",
		ImageReference: "https://placehold.co/1200x400/png?text=Spring+Sale",
	},
	{
		ID:             "new-arrivals",
		Label:          "New arrivals",
		Link:           "https://example.com/new",
		ImageReference: "https://placehold.co/1200x400/png?text=New+Arrivals",
	},
	{
		ID:             "free-shipping",
		Label:          "Free shipping on orders over $50",
		Link:           "https://example.com/shipping",
		ImageReference: "https://placehold.co/1200x400/png?text=Free+Shipping",
	},
}

// SeedRecords returns the built-in demo records.
func SeedRecords() []Record {
	records, err := RecordsFromDrafts(seedDrafts)
	if err != nil {
		panic(fmt.Sprintf("built-in seed records are invalid: %v", err))
	}
	return records
}

// RecordsFromDrafts validates every draft, keeping the draft id as identity.
// Duplicate ids keep their first occurrence.
func RecordsFromDrafts(drafts []Draft) ([]Record, error) {
	out := make([]Record, 0, len(drafts))
	seen := make(map[string]bool, len(drafts))
	for i, d := range drafts {
		rec, err := ValidateRecord(d, "")
		if err != nil {
			return nil, fmt.Errorf("record %d (%q): %w", i, d.ID, err)
		}
		if seen[rec.ID()] {
			continue
		}
		seen[rec.ID()] = true
		out = append(out, rec)
	}
	return out, nil
}
