package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)
)

// SQLiteBM25Index implements BM25Index using SQLite FTS5 with the porter
// tokenizer (stemming + lowercase + accent strip via unicode61 remove_diacritics).
//
// The corpus table mirrors the chunk list: one row per chunk with the row id
// equal to the chunk's position in the list. The FTS index is rebuilt
// wholesale on every update; no incremental FTS updates are assumed.
type SQLiteBM25Index struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool

	// ftsAvailable is false when the FTS5 module is missing; searches then
	// degrade to a token-overlap count over the corpus table.
	ftsAvailable bool
}

var _ BM25Index = (*SQLiteBM25Index)(nil)

// NewSQLiteBM25Index opens (or creates) a BM25 index at path.
// An empty path creates an in-memory index for testing.
func NewSQLiteBM25Index(path string) (*SQLiteBM25Index, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: one writer, readers share the same snapshot.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	idx := &SQLiteBM25Index{db: db, path: path}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return idx, nil
}

func (s *SQLiteBM25Index) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS corpus (
			id INTEGER PRIMARY KEY,
			text TEXT NOT NULL,
			source TEXT NOT NULL
		)`); err != nil {
		return err
	}

	// FTS5 with porter stemming over unicode61. doc_id is stored but not
	// searchable. If the module is unavailable, fall back to degraded scoring.
	_, err := s.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS fts_corpus USING fts5(
			doc_id UNINDEXED,
			content,
			tokenize='porter unicode61 remove_diacritics 2'
		)`)
	if err != nil {
		slog.Warn("fts5_unavailable_degraded_scoring",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		s.ftsAvailable = false
		return nil
	}
	s.ftsAvailable = true
	return nil
}

// Rebuild replaces the whole corpus in one transaction.
func (s *SQLiteBM25Index) Rebuild(ctx context.Context, chunks []*Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus`); err != nil {
		return fmt.Errorf("clear corpus: %w", err)
	}
	if s.ftsAvailable {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fts_corpus`); err != nil {
			return fmt.Errorf("clear FTS index: %w", err)
		}
	}

	insertCorpus, err := tx.PrepareContext(ctx,
		`INSERT INTO corpus (id, text, source) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare corpus insert: %w", err)
	}
	defer insertCorpus.Close()

	var insertFTS *sql.Stmt
	if s.ftsAvailable {
		insertFTS, err = tx.PrepareContext(ctx,
			`INSERT INTO fts_corpus (doc_id, content) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare FTS insert: %w", err)
		}
		defer insertFTS.Close()
	}

	for i, chunk := range chunks {
		if _, err := insertCorpus.ExecContext(ctx, i, chunk.Text, chunk.Source); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
		if insertFTS != nil {
			if _, err := insertFTS.ExecContext(ctx, i, chunk.Text); err != nil {
				return fmt.Errorf("index chunk %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// Search returns up to limit chunk ids scored by BM25, best first.
func (s *SQLiteBM25Index) Search(ctx context.Context, queryStr string, limit int) ([]*BM25Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if limit <= 0 || strings.TrimSpace(queryStr) == "" {
		return []*BM25Result{}, nil
	}

	tokens := Tokenize(queryStr)
	if len(tokens) == 0 {
		return []*BM25Result{}, nil
	}

	if !s.ftsAvailable {
		return s.degradedSearch(ctx, tokens, limit)
	}

	// Quote each token so punctuation inside identifiers does not break the
	// MATCH grammar; OR matching mirrors Okapi BM25 over the query bag.
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	match := strings.Join(quoted, " OR ")

	// FTS5 bm25() returns negative values where lower is better.
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, bm25(fts_corpus) AS score
		FROM fts_corpus
		WHERE fts_corpus MATCH ?
		ORDER BY score
		LIMIT ?`, match, limit)
	if err != nil {
		// Invalid match queries score as no results, matching the lenient
		// behavior of the degraded path.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []*BM25Result{}, nil
		}
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []*BM25Result
	for rows.Next() {
		var id int
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, &BM25Result{ID: id, Score: -score})
	}
	return results, rows.Err()
}

// degradedSearch scores every chunk by the count of query tokens present.
func (s *SQLiteBM25Index) degradedSearch(ctx context.Context, tokens []string, limit int) ([]*BM25Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text FROM corpus`)
	if err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	defer rows.Close()

	var results []*BM25Result
	for rows.Next() {
		var id int
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		docTokens := make(map[string]struct{})
		for _, t := range Tokenize(text) {
			docTokens[t] = struct{}{}
		}
		score := 0
		for _, t := range tokens {
			if _, ok := docTokens[t]; ok {
				score++
			}
		}
		if score > 0 {
			results = append(results, &BM25Result{ID: id, Score: float64(score)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Insertion order is by id; sort by score descending, id ascending.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (s *SQLiteBM25Index) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("index is closed")
	}
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM corpus`).Scan(&count)
	return count, err
}

// Close checkpoints and closes the index. Idempotent.
func (s *SQLiteBM25Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
