package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// JobEnqueuer creates the standard processing jobs for a freshly added document.
type JobEnqueuer interface {
	EnqueueStandardJobs(ctx context.Context, documentID string) error
}

// MetadataExtractor pulls best-effort title/author metadata out of a PDF.
type MetadataExtractor interface {
	Metadata(ctx context.Context, pdfPath string) (title, authors string, err error)
}

// CitationFetcher resolves a DOI into a BibTeX entry.
type CitationFetcher interface {
	BibTeX(ctx context.Context, doi string) (string, error)
}

// Rasterizer renders a single PDF page as a PNG image.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error)
}

type Service struct {
	repo       Repository
	jobs       JobEnqueuer
	extractor  MetadataExtractor
	citations  CitationFetcher
	rasterizer Rasterizer
	pdfDir     string
	downloader *http.Client
	logger     *slog.Logger
}

func NewService(repo Repository, jobs JobEnqueuer, extractor MetadataExtractor, citations CitationFetcher, rasterizer Rasterizer, pdfDir string, downloader *http.Client, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		jobs:       jobs,
		extractor:  extractor,
		citations:  citations,
		rasterizer: rasterizer,
		pdfDir:     pdfDir,
		downloader: downloader,
		logger:     logger,
	}
}

// AddFromUpload stores an uploaded PDF on disk, registers the document and
// enqueues its processing jobs.
func (s *Service) AddFromUpload(ctx context.Context, filename string, file io.Reader) (*Document, error) {
	path, err := s.storePDF(filename, file)
	if err != nil {
		return nil, err
	}
	return s.register(ctx, path, "")
}

// AddFromURL downloads a PDF and registers it like an upload, remembering the
// source URL.
func (s *Service) AddFromURL(ctx context.Context, rawURL string) (*Document, error) {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.downloader.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download document: status %d", resp.StatusCode)
	}

	filename := filepath.Base(parsed.Path)
	if filename == "." || filename == "/" || !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename = "document.pdf"
	}

	path, err := s.storePDF(filename, resp.Body)
	if err != nil {
		return nil, err
	}
	return s.register(ctx, path, rawURL)
}

func (s *Service) storePDF(filename string, file io.Reader) (string, error) {
	if err := os.MkdirAll(s.pdfDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create pdf directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(filename))
	path := filepath.Clean(filepath.Join(s.pdfDir, name))

	dst, err := os.Create(path) // #nosec G304 -- path is constructed from UUID + sanitized basename, not user-controlled
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

func (s *Service) register(ctx context.Context, path, sourceURL string) (*Document, error) {
	doc := &Document{
		Title:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourceURL: sourceURL,
		PDFPath:   path,
	}

	// Metadata extraction is best effort. A document with a blank title is
	// still processable.
	if title, authors, err := s.extractor.Metadata(ctx, path); err != nil {
		s.logger.WarnContext(ctx, "metadata extraction failed", "path", path, "error", err)
	} else {
		if title != "" {
			doc.Title = title
		}
		doc.Authors = authors
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up stored pdf", "path", path, "error", removeErr)
		}
		return nil, err
	}

	if err := s.jobs.EnqueueStandardJobs(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("document %s saved but jobs not enqueued: %w", doc.ID, err)
	}
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// Delete soft-deletes the document row and removes the stored PDF. Chunks and
// embeddings are dropped by the database cascade.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if doc.PDFPath != "" {
		if err := os.Remove(doc.PDFPath); err != nil && !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "failed to remove pdf", "path", doc.PDFPath, "error", err)
		}
	}
	return nil
}

// Bibtex resolves the document's DOI into a citation entry.
func (s *Service) Bibtex(ctx context.Context, id string) (string, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.DOI == "" {
		return "", ErrNoDOI
	}
	return s.citations.BibTeX(ctx, doc.DOI)
}

// PageImage renders one page of the document's PDF as PNG bytes.
func (s *Service) PageImage(ctx context.Context, id string, page int) ([]byte, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("invalid page number: %d", page)
	}
	return s.rasterizer.RenderPage(ctx, doc.PDFPath, page)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
