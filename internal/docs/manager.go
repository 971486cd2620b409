// Package docs manages the document lifecycle: extraction, chunking,
// embedding, indexing, and the metadata rows that tie it all together.
package docs

import (
	"context"
	"fmt"
	"log"
	nurl "net/url"
	"strings"
	"time"

	"github.com/docuchat/docuchat/internal/index"
	"github.com/docuchat/docuchat/internal/store"
	"github.com/docuchat/docuchat/models"
)

// Store is the metadata persistence the manager needs.
type Store interface {
	InsertDocument(ctx context.Context, filename string) (int64, error)
	GetDocument(ctx context.Context, id int64) (store.DocumentRecord, bool, error)
	DeleteDocument(ctx context.Context, id int64) (bool, error)
	ListDocuments(ctx context.Context) ([]models.DocumentInfo, error)
	InsertChunks(ctx context.Context, chunks []store.ChunkRecord) error
	ListChunks(ctx context.Context) ([]store.ChunkRecord, error)
	ListChunksByDocument(ctx context.Context, documentID int64) ([]store.ChunkRecord, error)
	DeleteChunksByDocument(ctx context.Context, documentID int64) error
}

// Index is the searchable side of the corpus.
type Index interface {
	Add(chunks []index.Chunk, vectors map[string][]float32) error
	Remove(chunkIDs []string) error
	Contains(chunkID string) bool
}

// Manager coordinates index and metadata so the two stay consistent. The
// index is written before metadata on ingest, and checked before metadata on
// delete, so a document listed in metadata is always searchable.
type Manager struct {
	store        Store
	index        Index
	embedder     index.Embedder // nil disables embeddings
	chunkSize    int
	chunkOverlap int
	fetchTimeout time.Duration
	logger       *log.Logger
}

func NewManager(st Store, ix Index, embedder index.Embedder, chunkSize, chunkOverlap int, logger *log.Logger) *Manager {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 200
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		store:        st,
		index:        ix,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		fetchTimeout: 45 * time.Second,
		logger:       logger,
	}
}

// Ingest indexes an uploaded file and records its metadata. The returned id
// identifies the document for listing and deletion.
func (m *Manager) Ingest(ctx context.Context, filename string, data []byte) (int64, error) {
	text, err := extractText(filename, data)
	if err != nil {
		return 0, err
	}
	return m.ingestText(ctx, filename, text)
}

// IngestURL renders the page, extracts the readable article, and ingests it
// under a filename derived from the page title or host.
func (m *Manager) IngestURL(ctx context.Context, rawURL string) (int64, error) {
	title, text, err := fetchURL(ctx, rawURL, m.fetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("fetch url: %w", err)
	}
	name := strings.TrimSpace(title)
	if name == "" {
		if u, err := nurl.Parse(rawURL); err == nil && u.Host != "" {
			name = u.Host + u.Path
		} else {
			name = rawURL
		}
	}
	return m.ingestText(ctx, name, text)
}

func (m *Manager) ingestText(ctx context.Context, filename, text string) (int64, error) {
	text = normalize(text)
	parts := makeChunks(text, m.chunkSize, m.chunkOverlap)
	if len(parts) == 0 {
		return 0, ErrEmptyDocument
	}

	hash := sha1Hex(filename + "\n" + text)[:12]
	chunks := make([]index.Chunk, len(parts))
	ids := make([]string, len(parts))
	for i, p := range parts {
		id := chunkID(hash, i)
		chunks[i] = index.Chunk{ID: id, Title: filename, Text: p, ChunkIndex: i}
		ids[i] = id
	}

	// Chunk ids are content-derived, so a hit here means this exact
	// document is already ingested. Rejecting before any write keeps the
	// existing document's chunks out of the rollback path.
	if m.index.Contains(ids[0]) {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateDocument, filename)
	}

	vectors := m.embed(ctx, filename, parts, ids)

	// Index first. A document row must never point at content the
	// retriever cannot see.
	if err := m.index.Add(chunks, vectors); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}

	docID, err := m.store.InsertDocument(ctx, filename)
	if err != nil {
		m.rollbackIndex(ids)
		return 0, fmt.Errorf("insert document: %w", err)
	}

	records := make([]store.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = store.ChunkRecord{
			ID:         c.ID,
			DocumentID: docID,
			ChunkIndex: c.ChunkIndex,
			Content:    c.Text,
			Embedding:  vectors[c.ID],
		}
	}
	if err := m.store.InsertChunks(ctx, records); err != nil {
		m.rollbackIndex(ids)
		if _, delErr := m.store.DeleteDocument(ctx, docID); delErr != nil {
			m.logger.Printf("[DOCS] rollback of document %d failed: %v", docID, delErr)
		}
		return 0, fmt.Errorf("insert chunks: %w", err)
	}

	m.logger.Printf("[DOCS] ingested %q as document %d (%d chunks, %d vectors)", filename, docID, len(chunks), len(vectors))
	return docID, nil
}

// Remove deletes a document from the index and then from metadata. Chunks
// already absent from the index do not fail the removal.
func (m *Manager) Remove(ctx context.Context, id int64) error {
	_, ok, err := m.store.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	records, err := m.store.ListChunksByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if err := m.index.Remove(ids); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}

	if err := m.store.DeleteChunksByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := m.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	m.logger.Printf("[DOCS] removed document %d (%d chunks)", id, len(ids))
	return nil
}

// List returns document metadata, newest upload first.
func (m *Manager) List(ctx context.Context) ([]models.DocumentInfo, error) {
	return m.store.ListDocuments(ctx)
}

// Rebuild reloads every stored chunk into the index. Called at startup when
// the index does not persist, or when it may have drifted from the store.
func (m *Manager) Rebuild(ctx context.Context) (int, error) {
	records, err := m.store.ListChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}
	docs := make(map[int64]string)
	if infos, err := m.store.ListDocuments(ctx); err == nil {
		for _, d := range infos {
			docs[d.ID] = d.Filename
		}
	}
	chunks := make([]index.Chunk, len(records))
	vectors := make(map[string][]float32)
	for i, r := range records {
		chunks[i] = index.Chunk{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			Title:      docs[r.DocumentID],
			Text:       r.Content,
			ChunkIndex: r.ChunkIndex,
		}
		if len(r.Embedding) > 0 {
			vectors[r.ID] = r.Embedding
		}
	}
	if err := m.index.Add(chunks, vectors); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return len(chunks), nil
}

// embed is best effort: retrieval degrades to BM25-only when the embedding
// endpoint is down, which beats rejecting the upload.
func (m *Manager) embed(ctx context.Context, filename string, parts, ids []string) map[string][]float32 {
	if m.embedder == nil {
		return nil
	}
	vecs, err := m.embedder.CreateEmbedding(ctx, parts)
	if err != nil || len(vecs) != len(parts) {
		m.logger.Printf("[DOCS] embedding %q failed, indexing without vectors: %v", filename, err)
		return nil
	}
	out := make(map[string][]float32, len(vecs))
	for i, v := range vecs {
		out[ids[i]] = v
	}
	return out
}

func (m *Manager) rollbackIndex(ids []string) {
	if err := m.index.Remove(ids); err != nil {
		m.logger.Printf("[DOCS] index rollback failed for %d chunks: %v", len(ids), err)
	}
}
