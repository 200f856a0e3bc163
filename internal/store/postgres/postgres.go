// Package postgres implements revision.Store backed by PostgreSQL.
//
// Each revision is one row; the head of a document is the row with the
// highest sequence number. Sequence continuity is enforced in SQL so
// concurrent writers cannot fork a document's history.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/dshills/redline/internal/revision"
)

// Store is a PostgreSQL-backed revision store.
type Store struct {
	db *sql.DB
}

// New opens a connection and ensures the schema exists.
func New(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTable(); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS revisions (
		document_id VARCHAR(64) NOT NULL,
		seq         BIGINT NOT NULL,
		content     TEXT NOT NULL,
		word_count  INTEGER NOT NULL,
		char_count  INTEGER NOT NULL,
		asset_count INTEGER NOT NULL,
		created_at  TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (document_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_revisions_document ON revisions(document_id, seq DESC);
	`
	_, err := s.db.Exec(query)
	return err
}

// Head returns the current head revision of a document.
func (s *Store) Head(ctx context.Context, documentID string) (*revision.Revision, error) {
	query := `
		SELECT document_id, seq, content, word_count, char_count, asset_count, created_at
		FROM revisions
		WHERE document_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`

	rev, err := scanRevision(s.db.QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, revision.ErrNotFound
	}
	return rev, err
}

// Put stores a revision as the new document head. The insert only succeeds
// when seq is exactly one past the stored head (or 1 for a new document).
func (s *Store) Put(ctx context.Context, rev *revision.Revision) error {
	query := `
		INSERT INTO revisions (document_id, seq, content, word_count, char_count, asset_count, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE $2 = COALESCE(
			(SELECT MAX(seq) FROM revisions WHERE document_id = $1), 0
		) + 1
	`

	res, err := s.db.ExecContext(ctx, query,
		rev.DocumentID,
		rev.Seq,
		rev.Content,
		rev.Meta.WordCount,
		rev.Meta.CharCount,
		rev.Meta.AssetCount,
		rev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storing revision %s/%d: %w", rev.DocumentID, rev.Seq, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return revision.ErrSequenceConflict
	}
	return nil
}

// List returns all revisions of a document ordered by ascending seq.
func (s *Store) List(ctx context.Context, documentID string) ([]*revision.Revision, error) {
	query := `
		SELECT document_id, seq, content, word_count, char_count, asset_count, created_at
		FROM revisions
		WHERE document_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*revision.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, revision.ErrNotFound
	}
	return out, nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(sc scanner) (*revision.Revision, error) {
	rev := &revision.Revision{}
	err := sc.Scan(
		&rev.DocumentID,
		&rev.Seq,
		&rev.Content,
		&rev.Meta.WordCount,
		&rev.Meta.CharCount,
		&rev.Meta.AssetCount,
		&rev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rev, nil
}
