package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docsage/docsage/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) UpsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkStore) DeleteBySource(ctx context.Context, source string) (int64, error) {
	args := m.Called(ctx, source)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChunkStore) ListSources(ctx context.Context) ([]domain.SourceInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SourceInfo), args.Error(1)
}

func (m *MockChunkStore) Preview(ctx context.Context, source string, limit int) ([]string, error) {
	args := m.Called(ctx, source, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockDocumentArchive struct {
	mock.Mock
}

func (m *MockDocumentArchive) PutDocument(ctx context.Context, name string, data []byte, contentType string) error {
	args := m.Called(ctx, name, data, contentType)
	return args.Error(0)
}

func (m *MockDocumentArchive) DeleteDocument(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockDocumentArchive) GenerateDownloadURL(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

// brokenPages yields good pages interleaved with a parse failure.
type brokenPages struct {
	items []any // *Page or error
	next  int
}

func (b *brokenPages) Next() (*Page, error) {
	if b.next >= len(b.items) {
		return nil, io.EOF
	}
	item := b.items[b.next]
	b.next++
	if err, ok := item.(error); ok {
		return nil, err
	}
	return item.(*Page), nil
}

// echoEmbedder returns one fixed-size vector per input text.
type echoEmbedder struct {
	calls      int
	batchSizes []int
	fail       bool
}

func (e *echoEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.batchSizes = append(e.batchSizes, len(texts))
	if e.fail {
		return nil, domain.NewGatewayError("embedding request failed", errors.New("boom"))
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, 4)
	}
	return vectors, nil
}

func newTestIngestion(gateway EmbeddingGateway, store ChunkStore, archive DocumentArchive, events EventRecorder, batchSize int) *IngestionService {
	svc := NewIngestionService(gateway, store, archive, events, DefaultSegmentConfig(), batchSize)
	svc.pacing = 0
	return svc
}

func pagesOf(texts ...string) PageSource {
	pages := make([]Page, len(texts))
	for i, t := range texts {
		pages[i] = Page{Number: i + 1, Text: t}
	}
	return NewSlicePages(pages)
}

func TestIngestionService_Ingest_BatchesAtConfiguredSize(t *testing.T) {
	gateway := &echoEmbedder{}
	store := new(MockChunkStore)
	store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil)

	svc := newTestIngestion(gateway, store, nil, nil, 3)

	// 7 short pages, one chunk each: two full batches of 3 plus a final of 1.
	result, err := svc.Ingest(context.Background(), pagesOf(
		"one", "two", "three", "four", "five", "six", "seven"), "manual.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Chunks)
	assert.Equal(t, 7, result.Pages)
	assert.Equal(t, []int{3, 3, 1}, gateway.batchSizes)
	store.AssertNumberOfCalls(t, "UpsertBatch", 3)
}

func TestIngestionService_Ingest_AttachesEmbeddings(t *testing.T) {
	gateway := &echoEmbedder{}
	store := new(MockChunkStore)

	var upserted []domain.Chunk
	store.On("UpsertBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		upserted = append(upserted, args.Get(1).([]domain.Chunk)...)
	}).Return(nil)

	svc := newTestIngestion(gateway, store, nil, nil, 10)
	_, err := svc.Ingest(context.Background(), pagesOf("page one text", "page two text"), "manual.pdf", nil)
	require.NoError(t, err)

	require.Len(t, upserted, 2)
	assert.Equal(t, "manual.pdf:p001:c000", upserted[0].ChunkID)
	assert.Equal(t, "manual.pdf:p002:c000", upserted[1].ChunkID)
	for _, c := range upserted {
		assert.Len(t, c.Embedding, 4)
		assert.Equal(t, "manual.pdf", c.Source)
	}
}

func TestIngestionService_Ingest_ReportsProgress(t *testing.T) {
	gateway := &echoEmbedder{}
	store := new(MockChunkStore)
	store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil)

	var lines []string
	report := func(status string) { lines = append(lines, status) }

	svc := newTestIngestion(gateway, store, nil, nil, 2)
	_, err := svc.Ingest(context.Background(), pagesOf("one", "two", "three"), "manual.pdf", report)
	require.NoError(t, err)

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "embedding batch (2 items)")
	assert.Contains(t, joined, "embedding final batch (1 items)")
	assert.Contains(t, joined, "finished: 3 chunks from 3 pages")
}

func TestIngestionService_Ingest_SkipsUnreadablePages(t *testing.T) {
	gateway := &echoEmbedder{}
	store := new(MockChunkStore)
	store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil)

	pages := &brokenPages{items: []any{
		&Page{Number: 1, Text: "readable one"},
		domain.NewParseError("page 2 is garbled", nil),
		&Page{Number: 3, Text: "readable three"},
	}}

	var lines []string
	svc := newTestIngestion(gateway, store, nil, nil, 10)
	result, err := svc.Ingest(context.Background(), pages, "manual.pdf", func(s string) { lines = append(lines, s) })
	require.NoError(t, err)

	assert.Equal(t, 2, result.Chunks)
	assert.Equal(t, 2, result.Pages)
	assert.Contains(t, strings.Join(lines, "\n"), "skipping unreadable page")
}

func TestIngestionService_Ingest_NonParseErrorAborts(t *testing.T) {
	gateway := &echoEmbedder{}
	store := new(MockChunkStore)

	pages := &brokenPages{items: []any{
		&Page{Number: 1, Text: "readable"},
		errors.New("stream truncated"),
	}}

	svc := newTestIngestion(gateway, store, nil, nil, 10)
	_, err := svc.Ingest(context.Background(), pages, "manual.pdf", nil)
	assert.Error(t, err)
	store.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
}

func TestIngestionService_Ingest_SkipsBlankPages(t *testing.T) {
	gateway := &echoEmbedder{}
	store := new(MockChunkStore)
	store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil)

	svc := newTestIngestion(gateway, store, nil, nil, 10)
	result, err := svc.Ingest(context.Background(), pagesOf("text", "   \n\t  ", "more text"), "manual.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Chunks)
	assert.Equal(t, 2, result.Pages)
}

func TestIngestionService_Ingest_EmbedFailureAborts(t *testing.T) {
	gateway := &echoEmbedder{fail: true}
	store := new(MockChunkStore)
	events := new(MockEventRecorder)
	events.On("Record", mock.Anything, mock.Anything).Return()

	svc := newTestIngestion(gateway, store, nil, events, 10)
	_, err := svc.Ingest(context.Background(), pagesOf("some text"), "manual.pdf", nil)

	require.Error(t, err)
	store.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)

	events.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.EventType == domain.EventTypeIngest &&
			e.Status == domain.EventStatusFail &&
			e.ErrorType == domain.ErrCodeGateway
	}))
}

func TestIngestionService_Ingest_UpsertFailureAborts(t *testing.T) {
	gateway := &echoEmbedder{}
	store := new(MockChunkStore)
	store.On("UpsertBatch", mock.Anything, mock.Anything).Return(
		domain.NewStoreError("upsert failed", errors.New("connection reset")))

	svc := newTestIngestion(gateway, store, nil, nil, 10)
	_, err := svc.Ingest(context.Background(), pagesOf("some text"), "manual.pdf", nil)

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeStore, domain.ErrorKind(err))
}

func TestIngestionService_Ingest_EmptyFilename(t *testing.T) {
	svc := newTestIngestion(&echoEmbedder{}, new(MockChunkStore), nil, nil, 10)
	_, err := svc.Ingest(context.Background(), pagesOf("text"), "", nil)
	assert.ErrorIs(t, err, domain.ErrEmptySource)
}

func TestIngestionService_Ingest_RecordsSuccessEvent(t *testing.T) {
	gateway := &echoEmbedder{}
	store := new(MockChunkStore)
	store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil)
	events := new(MockEventRecorder)
	events.On("Record", mock.Anything, mock.Anything).Return()

	svc := newTestIngestion(gateway, store, nil, events, 10)
	_, err := svc.Ingest(context.Background(), pagesOf("one", "two"), "manual.pdf", nil)
	require.NoError(t, err)

	events.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.EventType == domain.EventTypeIngest &&
			e.Status == domain.EventStatusOK &&
			e.Meta["source"] == "manual.pdf" &&
			e.Meta["chunks"] == 2
	}))
}

func TestIngestionService_ArchiveOriginal(t *testing.T) {
	archive := new(MockDocumentArchive)
	archive.On("PutDocument", mock.Anything, "manual.pdf", []byte("raw"), "application/pdf").Return(nil)

	svc := newTestIngestion(&echoEmbedder{}, new(MockChunkStore), archive, nil, 10)

	require.NoError(t, svc.ArchiveOriginal(context.Background(), "manual.pdf", []byte("raw"), "application/pdf"))
	archive.AssertExpectations(t)

	// No archive configured or nothing to store: both are no-ops.
	noArchive := newTestIngestion(&echoEmbedder{}, new(MockChunkStore), nil, nil, 10)
	assert.NoError(t, noArchive.ArchiveOriginal(context.Background(), "manual.pdf", []byte("raw"), ""))
	assert.NoError(t, svc.ArchiveOriginal(context.Background(), "manual.pdf", nil, ""))
}

func TestIngestionService_DownloadURL(t *testing.T) {
	archive := new(MockDocumentArchive)
	archive.On("GenerateDownloadURL", mock.Anything, "manual.pdf").
		Return("https://archive.example/documents/manual.pdf?signed", nil)

	svc := newTestIngestion(&echoEmbedder{}, new(MockChunkStore), archive, nil, 10)
	url, err := svc.DownloadURL(context.Background(), "manual.pdf")

	require.NoError(t, err)
	assert.Equal(t, "https://archive.example/documents/manual.pdf?signed", url)
	archive.AssertExpectations(t)
}

func TestIngestionService_DownloadURL_NoArchive(t *testing.T) {
	svc := newTestIngestion(&echoEmbedder{}, new(MockChunkStore), nil, nil, 10)

	_, err := svc.DownloadURL(context.Background(), "manual.pdf")
	assert.ErrorIs(t, err, domain.ErrNoArchive)

	_, err = svc.DownloadURL(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrEmptySource)
}

func TestIngestionService_DeleteDocument(t *testing.T) {
	store := new(MockChunkStore)
	store.On("DeleteBySource", mock.Anything, "manual.pdf").Return(int64(12), nil)
	archive := new(MockDocumentArchive)
	archive.On("DeleteDocument", mock.Anything, "manual.pdf").Return(nil)

	svc := newTestIngestion(&echoEmbedder{}, store, archive, nil, 10)
	count, err := svc.DeleteDocument(context.Background(), "manual.pdf")

	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
	archive.AssertExpectations(t)
}

func TestIngestionService_DeleteDocument_ArchiveFailureIsNotFatal(t *testing.T) {
	store := new(MockChunkStore)
	store.On("DeleteBySource", mock.Anything, "manual.pdf").Return(int64(3), nil)
	archive := new(MockDocumentArchive)
	archive.On("DeleteDocument", mock.Anything, "manual.pdf").Return(errors.New("bucket gone"))
	events := new(MockEventRecorder)
	events.On("Record", mock.Anything, mock.Anything).Return()

	svc := newTestIngestion(&echoEmbedder{}, store, archive, events, 10)
	count, err := svc.DeleteDocument(context.Background(), "manual.pdf")

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestIngestionService_DeleteDocument_EmptySource(t *testing.T) {
	svc := newTestIngestion(&echoEmbedder{}, new(MockChunkStore), nil, nil, 10)
	_, err := svc.DeleteDocument(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrEmptySource)
}

func TestIngestionService_PreviewDocument_DefaultsLimit(t *testing.T) {
	store := new(MockChunkStore)
	store.On("Preview", mock.Anything, "manual.pdf", 5).Return([]string{"chunk text"}, nil)

	svc := newTestIngestion(&echoEmbedder{}, store, nil, nil, 10)
	chunks, err := svc.PreviewDocument(context.Background(), "manual.pdf", 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"chunk text"}, chunks)
	store.AssertCalled(t, "Preview", mock.Anything, "manual.pdf", 5)
}

func TestSlicePages(t *testing.T) {
	src := NewSlicePages([]Page{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}})

	p, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)

	p, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, p.Number)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}
