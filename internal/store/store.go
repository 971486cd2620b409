package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/docuchat/docuchat/models"
)

// Store wraps the Postgres connection pool. Every operation commits
// independently, so a single Store is safe for concurrent use from multiple
// goroutines and multiple processes may point at the same database.
type Store struct {
	DB *sql.DB
}

// LogEntry is one appended conversation turn, immutable once written.
type LogEntry struct {
	ID        int64
	SessionID string
	UserQuery string
	Response  string
	Model     models.ModelName
	CreatedAt time.Time
}

// DocumentRecord is the metadata row mirroring one document in the passage index.
type DocumentRecord struct {
	ID              int64
	Filename        string
	UploadTimestamp time.Time
}

// ChunkRecord is one indexed chunk of a document, with an optional embedding
// vector persisted as a bracketed literal.
type ChunkRecord struct {
	ID         string
	DocumentID int64
	ChunkIndex int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// UserRecord is a registered account.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// Log operations

// AppendLog inserts one conversation turn and returns its assigned id.
// Content is stored as supplied; only the session id is required.
func (s *Store) AppendLog(ctx context.Context, sessionID, userQuery, response string, model models.ModelName) (int64, error) {
	if strings.TrimSpace(sessionID) == "" {
		return 0, fmt.Errorf("session_id required")
	}
	var id int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO application_logs (session_id, user_query, gpt_response, model)
VALUES ($1,$2,$3,$4)
RETURNING id
`, sessionID, userQuery, response, string(model)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetHistory returns the session's turns as an alternating human/ai sequence
// in append order. Timestamp ties are broken by primary key so replaying the
// history always yields the insertion order. Unknown sessions yield an empty
// slice, not an error.
func (s *Store) GetHistory(ctx context.Context, sessionID string) ([]models.Message, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT user_query, gpt_response
FROM application_logs
WHERE session_id=$1
ORDER BY created_at, id
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var query, response string
		if err := rows.Scan(&query, &response); err != nil {
			return nil, err
		}
		out = append(out,
			models.Message{Role: models.RoleHuman, Content: query},
			models.Message{Role: models.RoleAI, Content: response},
		)
	}
	return out, rows.Err()
}

// PruneLogs deletes log entries older than the cutoff and reports how many
// rows were removed.
func (s *Store) PruneLogs(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM application_logs WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Document operations

// InsertDocument records metadata for a freshly indexed document.
func (s *Store) InsertDocument(ctx context.Context, filename string) (int64, error) {
	if strings.TrimSpace(filename) == "" {
		return 0, fmt.Errorf("filename required")
	}
	var id int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO document_store (filename)
VALUES ($1)
RETURNING id
`, filename).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetDocument fetches one document record by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (DocumentRecord, bool, error) {
	var rec DocumentRecord
	err := s.DB.QueryRowContext(ctx, `
SELECT id, filename, upload_timestamp
FROM document_store
WHERE id=$1
`, id).Scan(&rec.ID, &rec.Filename, &rec.UploadTimestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DocumentRecord{}, false, nil
		}
		return DocumentRecord{}, false, err
	}
	return rec, true, nil
}

// DeleteDocument removes a document record. Deleting an id that no longer
// exists is still a success: callers treat "already gone" as done.
func (s *Store) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM document_store WHERE id=$1`, id); err != nil {
		return false, err
	}
	return true, nil
}

// ListDocuments returns all document records, newest upload first.
func (s *Store) ListDocuments(ctx context.Context) ([]models.DocumentInfo, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, filename, upload_timestamp
FROM document_store
ORDER BY upload_timestamp DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentInfo
	for rows.Next() {
		var rec models.DocumentInfo
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.UploadTimestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Chunk operations

// InsertChunks stores the chunks of one document in a single transaction so a
// reader never observes a partially ingested document.
func (s *Store) InsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, c := range chunks {
		var embedding interface{}
		if len(c.Embedding) > 0 {
			embedding = encodeVectorLiteral(c.Embedding)
		}
		if _, err = tx.ExecContext(ctx, `
INSERT INTO document_chunks (id, document_id, chunk_index, content, embedding)
VALUES ($1,$2,$3,$4,$5)
`, c.ID, c.DocumentID, c.ChunkIndex, c.Content, embedding); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListChunks returns every stored chunk, used to rebuild the passage index at
// startup.
func (s *Store) ListChunks(ctx context.Context) ([]ChunkRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, document_id, chunk_index, content, embedding, created_at
FROM document_chunks
ORDER BY document_id, chunk_index
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ListChunksByDocument returns the chunks of one document in index order.
func (s *Store) ListChunksByDocument(ctx context.Context, documentID int64) ([]ChunkRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, document_id, chunk_index, content, embedding, created_at
FROM document_chunks
WHERE document_id=$1
ORDER BY chunk_index
`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// DeleteChunksByDocument removes all chunks of one document.
func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id=$1`, documentID)
	return err
}

func scanChunks(rows *sql.Rows) ([]ChunkRecord, error) {
	var out []ChunkRecord
	for rows.Next() {
		var rec ChunkRecord
		var embedding sql.NullString
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.ChunkIndex, &rec.Content, &embedding, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if embedding.Valid && embedding.String != "" {
			vec, err := decodeVectorLiteral(embedding.String)
			if err != nil {
				return nil, fmt.Errorf("chunk %s: %w", rec.ID, err)
			}
			rec.Embedding = vec
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// encodeVectorLiteral renders a vector as "[v1,v2,...]" for the embedding column.
func encodeVectorLiteral(vec []float32) string {
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String()
}

func decodeVectorLiteral(lit string) ([]float32, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return nil, fmt.Errorf("empty vector literal")
	}
	lit = strings.TrimPrefix(lit, "[")
	lit = strings.TrimSuffix(lit, "]")
	parts := strings.Split(lit, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector value %q: %w", value, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}
