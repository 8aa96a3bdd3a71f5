package driven

import (
	"io"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// ReportWriter renders repair reports to a file format.
type ReportWriter interface {
	// WriteVerify writes a content verification report.
	WriteVerify(w io.Writer, report *domain.VerifyReport) error

	// WriteOrphans writes an orphan report.
	WriteOrphans(w io.Writer, report *domain.OrphanReport) error
}
