package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"paperbase/features/document"
	"paperbase/features/job"
)

// identifierPages bounds the scan; a DOI that exists at all sits on the title
// page or right after it.
const identifierPages = 3

var doiPattern = regexp.MustCompile(`10\.\d{4,}/[^\s]+`)

// runExtractIdentifier scans the front matter for a DOI. Not finding one is a
// normal outcome, only reported through progress.
func (p *Processor) runExtractIdentifier(ctx context.Context, j *job.Job) error {
	doc, err := p.docs.Get(ctx, j.DocumentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return fmt.Errorf("%w: document %s", ErrNotFound, j.DocumentID)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	p.notify(ProgressEvent{JobID: j.ID, Status: "running", Progress: 0.2, Message: "scanning for identifier"})

	front, err := p.extract.PlainText(ctx, doc.PDFPath, identifierPages)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	doi := doiPattern.FindString(front)
	if doi == "" {
		p.notify(ProgressEvent{JobID: j.ID, Status: "running", Progress: 1.0, Message: "no identifier found"})
		return nil
	}

	// Matches routinely swallow the sentence's trailing punctuation.
	doi = strings.TrimRight(doi, ".,;)]")

	if err := p.docs.SetDOI(ctx, doc.ID, doi); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	p.notify(ProgressEvent{JobID: j.ID, Status: "running", Progress: 1.0, Message: "identifier " + doi})
	return nil
}
