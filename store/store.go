package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Document represents a row in the documents table. A document over the
// chunking budget is stored as several rows; rows after the first carry
// OriginalDocumentID pointing at the first chunk and a 1-based ChunkIndex.
type Document struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	Jurisdiction       string    `json:"jurisdiction"`
	DocumentType       string    `json:"documentType"`
	SourceURL          string    `json:"sourceUrl,omitempty"`
	Embedding          []float32 `json:"embedding,omitempty"`
	OriginalDocumentID *int64    `json:"originalDocumentId,omitempty"`
	ChunkIndex         int       `json:"chunkIndex,omitempty"`
	IsChunk            bool      `json:"isChunk"`
	CreatedAt          string    `json:"createdAt"`
}

// Conversation represents a row in the conversations table.
type Conversation struct {
	ID        string `json:"id"`
	UserID    string `json:"userId,omitempty"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

// Message represents a row in the append-only messages table.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Role           string `json:"role"` // user, assistant, system
	Content        string `json:"content"`
	AgentID        string `json:"agentId,omitempty"`
	Metadata       string `json:"metadata,omitempty"` // JSON blob
	CreatedAt      string `json:"createdAt"`
}

// AgentSession represents a row in the agent_sessions table. Counters are
// observational bookkeeping refreshed after corpus changes, not a
// correctness gate.
type AgentSession struct {
	AgentID         string `json:"agentId"`
	Status          string `json:"status"` // active, idle, updating
	DocumentsCount  int    `json:"documentsCount"`
	EmbeddingsCount int    `json:"embeddingsCount"`
	LastActive      string `json:"lastActive"`
}

// SearchResult holds a document with its full-text search score.
type SearchResult struct {
	Document
	Score float64 `json:"score"`
}

// Stats holds counts of key database objects.
type Stats struct {
	Documents     int `json:"documents"`
	Embeddings    int `json:"embeddings"`
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
}

// Store wraps the SQLite database for all regsage persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Document operations ---

const docColumns = `id, title, content, jurisdiction, document_type,
	source_url, original_document_id, chunk_index, is_chunk, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc rowScanner) (Document, error) {
	var d Document
	var sourceURL sql.NullString
	err := sc.Scan(&d.ID, &d.Title, &d.Content, &d.Jurisdiction, &d.DocumentType,
		&sourceURL, &d.OriginalDocumentID, &d.ChunkIndex, &d.IsChunk, &d.CreatedAt)
	if err != nil {
		return Document{}, err
	}
	d.SourceURL = sourceURL.String
	return d, nil
}

// CreateDocument inserts a single document together with its embedding in
// one transaction. Documents without an embedding are rejected so the
// table never holds an unembedded row.
func (s *Store) CreateDocument(ctx context.Context, doc Document) (int64, error) {
	if len(doc.Embedding) == 0 {
		return 0, fmt.Errorf("document %q has no embedding", doc.Title)
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertDocumentTx(ctx, tx, doc)
		return err
	})
	return id, err
}

// CreateDocumentGroup inserts all chunks of one source document in a single
// transaction. The first element becomes the group head; the remaining rows
// get their original_document_id pointed at it. Any chunk without an
// embedding aborts the whole group before a row is written.
func (s *Store) CreateDocumentGroup(ctx context.Context, docs []Document) ([]int64, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("empty document group")
	}
	for i, d := range docs {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %d (%q) has no embedding", i+1, d.Title)
		}
	}

	ids := make([]int64, len(docs))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		headID, err := insertDocumentTx(ctx, tx, docs[0])
		if err != nil {
			return err
		}
		ids[0] = headID

		for i := 1; i < len(docs); i++ {
			d := docs[i]
			d.OriginalDocumentID = &headID
			ids[i], err = insertDocumentTx(ctx, tx, d)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func insertDocumentTx(ctx context.Context, tx *sql.Tx, doc Document) (int64, error) {
	var sourceURL any
	if doc.SourceURL != "" {
		sourceURL = doc.SourceURL
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (title, content, jurisdiction, document_type,
			source_url, original_document_id, chunk_index, is_chunk)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.Title, doc.Content, doc.Jurisdiction, doc.DocumentType,
		sourceURL, doc.OriginalDocumentID, doc.ChunkIndex, doc.IsChunk)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_documents (document_id, embedding) VALUES (?, ?)",
		id, serializeFloat32(doc.Embedding))
	return id, err
}

// GetDocument retrieves a document by ID with its embedding hydrated.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+docColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var blob []byte
	err = s.db.QueryRowContext(ctx,
		"SELECT embedding FROM vec_documents WHERE document_id = ?", id).Scan(&blob)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	doc.Embedding = deserializeFloat32(blob)
	return &doc, nil
}

// GetDocumentsByJurisdiction returns every document for a jurisdiction,
// chunk rows included, without embeddings. This is the working set for
// lexical retrieval.
func (s *Store) GetDocumentsByJurisdiction(ctx context.Context, jurisdiction string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+docColumns+" FROM documents WHERE jurisdiction = ? ORDER BY id", jurisdiction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListDocuments returns documents ordered newest first. An empty
// jurisdiction matches all jurisdictions.
func (s *Store) ListDocuments(ctx context.Context, jurisdiction string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + docColumns + " FROM documents"
	args := []any{}
	if jurisdiction != "" {
		query += " WHERE jurisdiction = ?"
		args = append(args, jurisdiction)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// EmbeddedDocuments returns documents joined with their embeddings in
// stable ID order. Content is omitted; this feeds the in-memory index,
// which only keeps metadata and vectors.
func (s *Store) EmbeddedDocuments(ctx context.Context, limit, offset int) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.jurisdiction, d.document_type, v.embedding
		FROM documents d
		JOIN vec_documents v ON v.document_id = d.id
		ORDER BY d.id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Title, &d.Jurisdiction, &d.DocumentType, &blob); err != nil {
			return nil, err
		}
		d.Embedding = deserializeFloat32(blob)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SearchDocuments performs a full-text search using FTS5 BM25 ranking,
// optionally restricted to a set of jurisdictions.
func (s *Store) SearchDocuments(ctx context.Context, match string, jurisdictions []string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT f.rank, d.id, d.title, d.content, d.jurisdiction, d.document_type,
			d.source_url, d.original_document_id, d.chunk_index, d.is_chunk, d.created_at
		FROM documents_fts f
		JOIN documents d ON d.id = f.rowid
		WHERE documents_fts MATCH ?`
	args := []any{match}

	if len(jurisdictions) > 0 {
		query += " AND d.jurisdiction IN (?" + repeatPlaceholders(len(jurisdictions)-1) + ")"
		for _, j := range jurisdictions {
			args = append(args, j)
		}
	}
	query += " ORDER BY f.rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var rank float64
		var sourceURL sql.NullString
		if err := rows.Scan(&rank, &r.ID, &r.Title, &r.Content, &r.Jurisdiction,
			&r.DocumentType, &sourceURL, &r.OriginalDocumentID, &r.ChunkIndex,
			&r.IsChunk, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.SourceURL = sourceURL.String
		// FTS5 rank is negative (lower = better), convert to positive score
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// ReconstructContent rebuilds the full text of a chunked document by
// concatenating its chunks in chunk_index order. For unchunked documents
// it returns the content as stored. The id may reference any chunk of the
// group.
func (s *Store) ReconstructContent(ctx context.Context, id int64) (string, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if !doc.IsChunk {
		return doc.Content, nil
	}

	head := doc.ID
	if doc.OriginalDocumentID != nil {
		head = *doc.OriginalDocumentID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content FROM documents
		WHERE id = ? OR original_document_id = ?
		ORDER BY chunk_index
	`, head, head)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return "", err
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, " "), rows.Err()
}

// ChunkIDs returns the ids of the chunk rows attached to a group head, in
// chunk_index order. The head itself is not included.
func (s *Store) ChunkIDs(ctx context.Context, headID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM documents WHERE original_document_id = ? ORDER BY chunk_index", headID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteDocument removes a document, its embedding, and, when the target
// is a chunk group head, the rest of the group. FTS cleanup happens via
// triggers.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_documents WHERE document_id = ?
				OR document_id IN (SELECT id FROM documents WHERE original_document_id = ?)
		`, id, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteDocumentsByJurisdiction removes every document for a jurisdiction
// and returns the number of rows deleted.
func (s *Store) DeleteDocumentsByJurisdiction(ctx context.Context, jurisdiction string) (int, error) {
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_documents WHERE document_id IN
				(SELECT id FROM documents WHERE jurisdiction = ?)
		`, jurisdiction); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			"DELETE FROM documents WHERE jurisdiction = ?", jurisdiction)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}

// CountDocuments returns the number of document rows for a jurisdiction,
// or for the whole corpus when jurisdiction is empty.
func (s *Store) CountDocuments(ctx context.Context, jurisdiction string) (int, error) {
	var n int
	var err error
	if jurisdiction == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM documents WHERE jurisdiction = ?", jurisdiction).Scan(&n)
	}
	return n, err
}

// CountEmbeddings returns the number of stored embeddings for a
// jurisdiction, or for the whole corpus when jurisdiction is empty.
func (s *Store) CountEmbeddings(ctx context.Context, jurisdiction string) (int, error) {
	var n int
	var err error
	if jurisdiction == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vec_documents").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM vec_documents v
			JOIN documents d ON d.id = v.document_id
			WHERE d.jurisdiction = ?
		`, jurisdiction).Scan(&n)
	}
	return n, err
}

// VectorSearch performs a KNN search over stored embeddings returning the
// top-k nearest documents. Used as a persistence-backed fallback when the
// in-memory index is cold.
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.distance, d.id, d.title, d.content, d.jurisdiction, d.document_type,
			d.source_url, d.original_document_id, d.chunk_index, d.is_chunk, d.created_at
		FROM vec_documents v
		JOIN documents d ON d.id = v.document_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		var sourceURL sql.NullString
		if err := rows.Scan(&distance, &r.ID, &r.Title, &r.Content, &r.Jurisdiction,
			&r.DocumentType, &sourceURL, &r.OriginalDocumentID, &r.ChunkIndex,
			&r.IsChunk, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.SourceURL = sourceURL.String
		// Convert distance to similarity score (1 - distance for cosine)
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Conversation operations ---

// CreateConversation inserts a conversation row. The caller supplies the ID.
func (s *Store) CreateConversation(ctx context.Context, c Conversation) error {
	var userID any
	if c.UserID != "" {
		userID = c.UserID
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, user_id, title) VALUES (?, ?, ?)",
		c.ID, userID, c.Title)
	return err
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	c := &Conversation{}
	var userID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, created_at FROM conversations WHERE id = ?", id).
		Scan(&c.ID, &userID, &c.Title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.UserID = userID.String
	return c, nil
}

// AppendMessage adds a message to a conversation. Messages are never
// updated or deleted individually.
func (s *Store) AppendMessage(ctx context.Context, m Message) error {
	var agentID any
	if m.AgentID != "" {
		agentID = m.AgentID
	}
	var metadata any
	if m.Metadata != "" {
		metadata = m.Metadata
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, agent_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.ConversationID, m.Role, m.Content, agentID, metadata)
	return err
}

// GetMessages returns messages for a conversation in chronological order.
// A positive limit returns only the most recent limit messages.
func (s *Store) GetMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	query := `
		SELECT id, conversation_id, role, content, agent_id, metadata, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var agentID, metadata sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content,
			&agentID, &metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.AgentID = agentID.String
		m.Metadata = metadata.String
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fetched newest-first; flip to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// --- Agent session operations ---

// UpsertAgentSession writes the whole session record, refreshing last_active.
func (s *Store) UpsertAgentSession(ctx context.Context, as AgentSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_sessions (agent_id, status, documents_count, embeddings_count, last_active)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(agent_id) DO UPDATE SET
			status = excluded.status,
			documents_count = excluded.documents_count,
			embeddings_count = excluded.embeddings_count,
			last_active = CURRENT_TIMESTAMP
	`, as.AgentID, as.Status, as.DocumentsCount, as.EmbeddingsCount)
	return err
}

// GetAgentSession retrieves a session by agent ID.
func (s *Store) GetAgentSession(ctx context.Context, agentID string) (*AgentSession, error) {
	as := &AgentSession{}
	err := s.db.QueryRowContext(ctx, `
		SELECT agent_id, status, documents_count, embeddings_count, last_active
		FROM agent_sessions WHERE agent_id = ?
	`, agentID).Scan(&as.AgentID, &as.Status, &as.DocumentsCount, &as.EmbeddingsCount, &as.LastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return as, nil
}

// ListAgentSessions returns all sessions ordered by agent ID.
func (s *Store) ListAgentSessions(ctx context.Context) ([]AgentSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, status, documents_count, embeddings_count, last_active
		FROM agent_sessions ORDER BY agent_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []AgentSession
	for rows.Next() {
		var as AgentSession
		if err := rows.Scan(&as.AgentID, &as.Status, &as.DocumentsCount,
			&as.EmbeddingsCount, &as.LastActive); err != nil {
			return nil, err
		}
		sessions = append(sessions, as)
	}
	return sessions, rows.Err()
}

// --- Stats ---

// DBStats returns counts of documents, embeddings, conversations, and messages.
func (s *Store) DBStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM vec_documents", &stats.Embeddings},
		{"SELECT COUNT(*) FROM conversations", &stats.Conversations},
		{"SELECT COUNT(*) FROM messages", &stats.Messages},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func repeatPlaceholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts little-endian bytes from sqlite-vec back to
// a float32 slice. Returns nil for empty input.
func deserializeFloat32(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
