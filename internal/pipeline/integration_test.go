package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperbase/features/document"
	"paperbase/features/job"
	"paperbase/internal/adapter/extractor"
	"paperbase/internal/chunks"
	"paperbase/internal/pipeline"
	"paperbase/internal/testutils"
	"paperbase/internal/vector"
)

// integrationExtractor stands in for the PDF extractor sidecar so the test
// exercises the queue and stores against real Postgres without spawning it.
type integrationExtractor struct{}

func (e *integrationExtractor) Extract(ctx context.Context, pdfPath string) (*extractor.Extraction, error) {
	return &extractor.Extraction{
		HasText: true,
		Pages:   2,
		Blocks: []extractor.Block{
			{Page: 1, X: 10, Y: 20, Width: 100, Height: 12, Text: "Attention is all you need for sequence transduction."},
			{Page: 1, X: 10, Y: 40, Width: 100, Height: 12, Text: "We propose a new simple network architecture."},
			{Page: 2, X: 10, Y: 20, Width: 100, Height: 12, Text: "fig. 3"},
		},
	}, nil
}

func (e *integrationExtractor) PlainText(ctx context.Context, pdfPath string, maxPages int) (string, error) {
	return "Published under doi:10.5555/3295222.3295349, reprinted with permission.", nil
}

type integrationEmbedder struct{}

func (e *integrationEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (e *integrationEmbedder) Available(ctx context.Context) bool { return true }

func (e *integrationEmbedder) Model(ctx context.Context) string { return "test-embedding-001" }

type collectingNotifier struct {
	events []pipeline.ProgressEvent
}

func (n *collectingNotifier) Notify(event pipeline.ProgressEvent) {
	n.events = append(n.events, event)
}

func TestProcessor_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	docRepo := document.NewPostgresRepo(s.DB)
	jobRepo := job.NewPostgresRepo(s.DB)
	chunkStore := chunks.NewPostgresStore(s.DB)
	jobService := job.NewService(jobRepo, logger)

	doc := &document.Document{
		Title:   "Attention Is All You Need",
		PDFPath: "/tmp/attention.pdf",
	}
	require.NoError(t, docRepo.Save(ctx, doc))
	_, err := jobService.EnqueueStandardJobs(ctx, doc.ID)
	require.NoError(t, err)

	notifier := &collectingNotifier{}
	p := pipeline.NewProcessor(jobRepo, docRepo, chunkStore, &integrationExtractor{}, &integrationEmbedder{}, notifier, 30*time.Second, logger)

	summary := p.RunBatch(ctx)
	assert.False(t, summary.Busy)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 0, summary.Failed)

	// Queue fully drained.
	pending, err := jobRepo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Document picked up the results of all three stages.
	got, err := docRepo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusIndexed, got.Status)
	assert.Equal(t, "10.5555/3295222.3295349", got.DOI)
	assert.True(t, got.EmbeddingsReady)
	require.NotNil(t, got.IndexedAt)

	// The short "fig. 3" block is filtered out, the two sentences are kept in
	// reading order with page geometry intact.
	cs, err := chunkStore.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.NotEmpty(t, cs[0].ID, "chunk ids are generated by the database")
	assert.Equal(t, "Attention is all you need for sequence transduction.", cs[0].Content)
	assert.Equal(t, 1, cs[0].Page)
	assert.Equal(t, float64(20), cs[0].Y)
	assert.Equal(t, 0, cs[0].Ordinal)
	assert.Equal(t, 1, cs[1].Ordinal)

	// Every kept chunk got a unit-length vector.
	embedded, err := chunkStore.GetEmbedded(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, embedded, 2)
	for _, e := range embedded {
		assert.Equal(t, 2, e.Dim)
		assert.Equal(t, "test-embedding-001", e.Model)
		v, err := vector.Decode(e.Vector)
		require.NoError(t, err)
		var norm float32
		for _, x := range v {
			norm += x * x
		}
		assert.InDelta(t, 1.0, norm, 1e-5)
	}

	// A second run on the drained queue is a no-op.
	again := p.RunBatch(ctx)
	assert.Equal(t, 0, again.Processed)

	// Progress events cover every job from running to completed.
	statuses := map[string]int{}
	for _, ev := range notifier.events {
		statuses[ev.Status]++
	}
	assert.GreaterOrEqual(t, statuses["running"], 3)
	assert.Equal(t, 3, statuses["completed"])
	assert.Zero(t, statuses["failed"])
}
