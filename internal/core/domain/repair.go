package domain

import "time"

// OrphanReport lists vector entries whose owning document no longer exists.
type OrphanReport struct {
	// Scanned is the number of vector entries inspected.
	Scanned int

	// OrphanIDs are vector record identifiers with no owning document.
	OrphanIDs []string

	// OrphanDocumentIDs are the distinct missing document ids.
	OrphanDocumentIDs []string
}

// PurgeReport summarises an orphan purge.
type PurgeReport struct {
	OrphanReport

	// Deleted is the number of vector entries removed.
	Deleted int

	// Batches is the number of delete calls issued.
	Batches int
}

// ContentMatch is the verification result for one document.
type ContentMatch struct {
	DocumentID string
	Title      string

	// Checked is the number of sampled chunks.
	Checked int

	// Matched is the number of chunks whose text equals content[start:end].
	Matched int

	// MismatchedIDs lists failing vector record identifiers.
	MismatchedIDs []string

	// Skipped explains why a document could not be verified.
	Skipped string
}

// Agreement returns the fraction of sampled chunks that matched.
func (m ContentMatch) Agreement() float64 {
	if m.Checked == 0 {
		return 0
	}
	return float64(m.Matched) / float64(m.Checked)
}

// VerifyReport is the result of a content verification run.
type VerifyReport struct {
	Documents []ContentMatch
	CheckedAt time.Time
}

// Totals returns the number of checked and matched chunks across documents.
func (r VerifyReport) Totals() (checked, matched int) {
	for _, d := range r.Documents {
		checked += d.Checked
		matched += d.Matched
	}
	return checked, matched
}

// StaleReport lists documents marked FAILED for lack of progress.
type StaleReport struct {
	DocumentIDs []string
	OlderThan   time.Duration
}
