package pipeline

import (
	"context"
	"errors"
	"fmt"

	"paperbase/features/document"
	"paperbase/features/job"
	"paperbase/internal/chunks"
	"paperbase/internal/text"
)

// runExtractText pulls positioned text blocks out of the document's PDF and
// replaces the document's chunk set with them. A PDF without an embedded text
// layer parks the document in needs_ocr and writes nothing.
func (p *Processor) runExtractText(ctx context.Context, j *job.Job) error {
	doc, err := p.docs.Get(ctx, j.DocumentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return fmt.Errorf("%w: document %s", ErrNotFound, j.DocumentID)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	p.notify(ProgressEvent{JobID: j.ID, Status: "running", Progress: 0.1, Message: "extracting text"})

	ext, err := p.extract.Extract(ctx, doc.PDFPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	if !ext.HasText {
		if err := p.docs.UpdateStatus(ctx, doc.ID, document.StatusNeedsOCR); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		p.notify(ProgressEvent{JobID: j.ID, Status: "running", Progress: 1.0, Message: "no text layer, document needs OCR"})
		return nil
	}

	p.notify(ProgressEvent{JobID: j.ID, Status: "running", Progress: 0.5, Message: fmt.Sprintf("storing %d blocks", len(ext.Blocks))})

	var cs []chunks.Chunk
	for _, b := range ext.Blocks {
		if !text.IsIndexable(b.Text) {
			continue
		}
		cs = append(cs, chunks.Chunk{
			Page:    b.Page,
			X:       b.X,
			Y:       b.Y,
			Width:   b.Width,
			Height:  b.Height,
			Content: text.Normalize(b.Text),
			Ordinal: len(cs),
		})
	}

	if err := p.chunks.ReplaceChunks(ctx, doc.ID, cs); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := p.docs.MarkIndexed(ctx, doc.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
