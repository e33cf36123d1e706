package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docsage/docsage/internal/domain"
	"github.com/docsage/docsage/internal/telemetry"
)

// DefaultBatchSize is the number of chunks embedded and upserted per flush.
const DefaultBatchSize = 10

// batchPacing is slept between batch flushes. Rate-limit politeness toward
// the embedding gateway, not a correctness requirement.
const batchPacing = 200 * time.Millisecond

// EmbeddingGateway generates embeddings for batches of texts.
type EmbeddingGateway interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore is the vector store consumed by ingestion.
type ChunkStore interface {
	UpsertBatch(ctx context.Context, chunks []domain.Chunk) error
	DeleteBySource(ctx context.Context, source string) (int64, error)
	ListSources(ctx context.Context) ([]domain.SourceInfo, error)
	Preview(ctx context.Context, source string, limit int) ([]string, error)
}

// DocumentArchive optionally keeps the original uploaded file alongside its
// chunks. Implemented by the S3 storage client.
type DocumentArchive interface {
	PutDocument(ctx context.Context, name string, data []byte, contentType string) error
	DeleteDocument(ctx context.Context, name string) error
	GenerateDownloadURL(ctx context.Context, name string) (string, error)
}

// EventRecorder appends observability events. Recording never fails the
// calling operation.
type EventRecorder interface {
	Record(ctx context.Context, event domain.Event)
}

// Page is one unit of pre-extracted document text.
type Page struct {
	Number int
	Text   string
}

// PageSource yields pages one at a time, returning io.EOF when exhausted.
// A unit-level parse failure is reported as a domain ParseError; the pipeline
// skips that page and continues.
type PageSource interface {
	Next() (*Page, error)
}

// ProgressFunc receives human-readable ingestion status lines. Front-ends
// adapt it to a stream or print the lines directly. May be nil.
type ProgressFunc func(status string)

// IngestResult summarizes one completed ingestion run.
type IngestResult struct {
	Chunks int
	Pages  int
}

// IngestionService drives segmenter output through batched embedding and
// upload into the vector store.
type IngestionService struct {
	gateway   EmbeddingGateway
	store     ChunkStore
	archive   DocumentArchive
	events    EventRecorder
	segCfg    SegmentConfig
	batchSize int
	pacing    time.Duration
}

// NewIngestionService creates an IngestionService. archive and events may be
// nil; segCfg must already be validated.
func NewIngestionService(gateway EmbeddingGateway, store ChunkStore, archive DocumentArchive, events EventRecorder, segCfg SegmentConfig, batchSize int) *IngestionService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &IngestionService{
		gateway:   gateway,
		store:     store,
		archive:   archive,
		events:    events,
		segCfg:    segCfg,
		batchSize: batchSize,
		pacing:    batchPacing,
	}
}

// Ingest consumes pages for one document, producing persisted embedded chunks
// and reporting progress through report. A failed embedding call or upsert
// aborts the remaining work and propagates; chunks persisted before the
// failure remain, which is safe because re-running overwrites by chunk id.
func (s *IngestionService) Ingest(ctx context.Context, pages PageSource, filename string, report ProgressFunc) (*IngestResult, error) {
	if filename == "" {
		return nil, domain.ErrEmptySource
	}
	if report == nil {
		report = func(string) {}
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.ingest", telemetry.SpanAttributes{
		Source:    filename,
		Operation: "ingest",
	})
	defer span.End()

	start := time.Now()
	result, err := s.ingest(ctx, pages, filename, report)
	if err != nil {
		span.SetError(err)
		s.recordEvent(ctx, domain.Event{
			EventType:  domain.EventTypeIngest,
			Status:     domain.EventStatusFail,
			DurationMs: msSince(start),
			ErrorType:  domain.ErrorKind(err),
			Meta:       map[string]any{"source": filename, "error_msg": err.Error()},
		})
		return nil, err
	}

	s.recordEvent(ctx, domain.Event{
		EventType:  domain.EventTypeIngest,
		Status:     domain.EventStatusOK,
		DurationMs: msSince(start),
		Meta:       map[string]any{"source": filename, "chunks": result.Chunks, "pages": result.Pages},
	})
	return result, nil
}

func (s *IngestionService) ingest(ctx context.Context, pages PageSource, filename string, report ProgressFunc) (*IngestResult, error) {
	var buffer []domain.Chunk
	totalChunks := 0
	pagesProcessed := map[int]struct{}{}

	for {
		page, err := pages.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var de *domain.DomainError
			if errors.As(err, &de) && de.Code == domain.ErrCodeParse {
				report(fmt.Sprintf("skipping unreadable page: %v", err))
				continue
			}
			return nil, err
		}

		chunks := SegmentPage(page.Text, filename, page.Number, s.segCfg)
		if len(chunks) == 0 {
			continue
		}
		pagesProcessed[page.Number] = struct{}{}
		buffer = append(buffer, chunks...)

		for len(buffer) >= s.batchSize {
			batch := buffer[:s.batchSize]
			buffer = buffer[s.batchSize:]
			report(fmt.Sprintf("embedding batch (%d items)...", len(batch)))
			if err := s.flushBatch(ctx, batch); err != nil {
				return nil, err
			}
			totalChunks += len(batch)
		}
	}

	if len(buffer) > 0 {
		report(fmt.Sprintf("embedding final batch (%d items)...", len(buffer)))
		if err := s.flushBatch(ctx, buffer); err != nil {
			return nil, err
		}
		totalChunks += len(buffer)
	}

	report(fmt.Sprintf("finished: %d chunks from %d pages", totalChunks, len(pagesProcessed)))
	return &IngestResult{Chunks: totalChunks, Pages: len(pagesProcessed)}, nil
}

// flushBatch embeds all buffered texts in one gateway call, attaches each
// vector to its chunk, and upserts the batch. The pacing sleep also runs on
// the error path so a failing caller retry loop cannot hammer the gateway.
func (s *IngestionService) flushBatch(ctx context.Context, batch []domain.Chunk) error {
	defer s.sleep(ctx)

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := s.gateway.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed batch: %w", err)
	}

	for i := range batch {
		batch[i].Embedding = vectors[i]
	}

	if err := s.store.UpsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to upsert batch: %w", err)
	}

	return nil
}

func (s *IngestionService) sleep(ctx context.Context) {
	if s.pacing <= 0 {
		return
	}
	select {
	case <-time.After(s.pacing):
	case <-ctx.Done():
	}
}

// ArchiveOriginal stores the raw uploaded document when an archive is
// configured; a no-op otherwise.
func (s *IngestionService) ArchiveOriginal(ctx context.Context, filename string, data []byte, contentType string) error {
	if s.archive == nil || len(data) == 0 {
		return nil
	}
	return s.archive.PutDocument(ctx, filename, data, contentType)
}

// DeleteDocument removes every chunk whose source matches and the archived
// original, returning the number of chunks removed.
func (s *IngestionService) DeleteDocument(ctx context.Context, source string) (int64, error) {
	if source == "" {
		return 0, domain.ErrEmptySource
	}

	start := time.Now()
	count, err := s.store.DeleteBySource(ctx, source)
	if err != nil {
		s.recordEvent(ctx, domain.Event{
			EventType:  domain.EventTypeDelete,
			Status:     domain.EventStatusFail,
			DurationMs: msSince(start),
			ErrorType:  domain.ErrorKind(err),
			Meta:       map[string]any{"source": source, "error_msg": err.Error()},
		})
		return 0, err
	}

	if s.archive != nil {
		if err := s.archive.DeleteDocument(ctx, source); err != nil {
			// The chunks are gone; a stale archived file is not worth
			// failing the call over.
			report := domain.Event{
				EventType:  domain.EventTypeDelete,
				Status:     domain.EventStatusFail,
				DurationMs: msSince(start),
				ErrorType:  domain.ErrorKind(err),
				Meta:       map[string]any{"source": source, "error_msg": err.Error(), "stage": "archive"},
			}
			s.recordEvent(ctx, report)
			return count, nil
		}
	}

	s.recordEvent(ctx, domain.Event{
		EventType:  domain.EventTypeDelete,
		Status:     domain.EventStatusOK,
		DurationMs: msSince(start),
		Meta:       map[string]any{"source": source, "deleted": count},
	})
	return count, nil
}

// DownloadURL returns a presigned link to the archived original file.
func (s *IngestionService) DownloadURL(ctx context.Context, source string) (string, error) {
	if source == "" {
		return "", domain.ErrEmptySource
	}
	if s.archive == nil {
		return "", domain.ErrNoArchive
	}
	return s.archive.GenerateDownloadURL(ctx, source)
}

// ListDocuments returns every ingested source with its chunk count, sorted by
// name.
func (s *IngestionService) ListDocuments(ctx context.Context) ([]domain.SourceInfo, error) {
	return s.store.ListSources(ctx)
}

// PreviewDocument returns the first limit chunk texts for a source.
func (s *IngestionService) PreviewDocument(ctx context.Context, source string, limit int) ([]string, error) {
	if source == "" {
		return nil, domain.ErrEmptySource
	}
	if limit <= 0 {
		limit = 5
	}
	return s.store.Preview(ctx, source, limit)
}

func (s *IngestionService) recordEvent(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	s.events.Record(ctx, event)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// SlicePages adapts an in-memory page list to a PageSource.
type SlicePages struct {
	pages []Page
	next  int
}

func NewSlicePages(pages []Page) *SlicePages {
	return &SlicePages{pages: pages}
}

func (s *SlicePages) Next() (*Page, error) {
	if s.next >= len(s.pages) {
		return nil, io.EOF
	}
	p := s.pages[s.next]
	s.next++
	return &p, nil
}
