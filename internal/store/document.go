package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/blocktrigger/internal/ir"
)

// ErrNotFound is returned when a document or revision does not exist.
var ErrNotFound = errors.New("not found")

// Revision is one entry in a document's append-only history.
type Revision struct {
	DocID         string
	Seq           int64
	Hash          string
	RuleCount     int
	EngineVersion string
}

// SaveDocument validates doc and stores it as the current body for docID.
// A new revision is appended with seq one past the latest; when the
// canonical hash equals the latest revision nothing is written and
// inserted is false.
func (s *Store) SaveDocument(ctx context.Context, docID string, doc ir.RuleDocument) (rev Revision, inserted bool, err error) {
	if docID == "" {
		return Revision{}, false, errors.New("save document: doc id is required")
	}
	if err := doc.Validate(); err != nil {
		return Revision{}, false, fmt.Errorf("save document %q: %w", docID, err)
	}

	body, err := marshalDocument(doc)
	if err != nil {
		return Revision{}, false, fmt.Errorf("save document %q: %w", docID, err)
	}
	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return Revision{}, false, fmt.Errorf("save document %q: %w", docID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, false, fmt.Errorf("save document %q: begin tx: %w", docID, err)
	}
	defer tx.Rollback()

	var latest Revision
	err = tx.QueryRowContext(ctx, `
		SELECT doc_id, seq, hash, rule_count, engine_version
		FROM revisions
		WHERE doc_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, docID).Scan(&latest.DocID, &latest.Seq, &latest.Hash, &latest.RuleCount, &latest.EngineVersion)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Revision{}, false, fmt.Errorf("save document %q: latest revision: %w", docID, err)
	case latest.Hash == hash:
		return latest, false, nil
	}

	rev = Revision{
		DocID:         docID,
		Seq:           latest.Seq + 1,
		Hash:          hash,
		RuleCount:     len(doc.Rules),
		EngineVersion: ir.EngineVersion,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions (doc_id, seq, hash, body, rule_count, engine_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rev.DocID, rev.Seq, rev.Hash, body, rev.RuleCount, rev.EngineVersion)
	if err != nil {
		return Revision{}, false, fmt.Errorf("save document %q: insert revision: %w", docID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (doc_id, hash, seq, body, rule_count, engine_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			hash = excluded.hash,
			seq = excluded.seq,
			body = excluded.body,
			rule_count = excluded.rule_count,
			engine_version = excluded.engine_version
	`, rev.DocID, rev.Hash, rev.Seq, body, rev.RuleCount, rev.EngineVersion)
	if err != nil {
		return Revision{}, false, fmt.Errorf("save document %q: upsert document: %w", docID, err)
	}
	if err := indexDocument(ctx, tx, docID, doc); err != nil {
		return Revision{}, false, fmt.Errorf("save document %q: %w", docID, err)
	}

	if err := tx.Commit(); err != nil {
		return Revision{}, false, fmt.Errorf("save document %q: commit: %w", docID, err)
	}
	return rev, true, nil
}

// LoadDocument returns the current rule document for docID and the
// revision it corresponds to.
func (s *Store) LoadDocument(ctx context.Context, docID string) (ir.RuleDocument, Revision, error) {
	var (
		rev  Revision
		body string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, seq, hash, body, rule_count, engine_version
		FROM documents
		WHERE doc_id = ?
	`, docID).Scan(&rev.DocID, &rev.Seq, &rev.Hash, &body, &rev.RuleCount, &rev.EngineVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RuleDocument{}, Revision{}, fmt.Errorf("document %q: %w", docID, ErrNotFound)
	}
	if err != nil {
		return ir.RuleDocument{}, Revision{}, fmt.Errorf("load document %q: %w", docID, err)
	}

	doc, err := unmarshalDocument(body)
	if err != nil {
		return ir.RuleDocument{}, Revision{}, fmt.Errorf("load document %q: %w", docID, err)
	}
	return doc, rev, nil
}

// ListRevisions returns the history of docID ordered by seq ascending.
// Returns an empty slice (not nil) when the document has no revisions.
func (s *Store) ListRevisions(ctx context.Context, docID string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, seq, hash, rule_count, engine_version
		FROM revisions
		WHERE doc_id = ?
		ORDER BY seq ASC
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revs := []Revision{}
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.DocID, &rev.Seq, &rev.Hash, &rev.RuleCount, &rev.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revs, nil
}

// LoadRevision returns the rule document stored at a specific seq.
func (s *Store) LoadRevision(ctx context.Context, docID string, seq int64) (ir.RuleDocument, Revision, error) {
	return s.loadRevisionWhere(ctx, docID, "seq = ?", seq)
}

// RevisionByHash returns the most recent revision of docID with the given
// content hash.
func (s *Store) RevisionByHash(ctx context.Context, docID, hash string) (ir.RuleDocument, Revision, error) {
	return s.loadRevisionWhere(ctx, docID, "hash = ?", hash)
}

func (s *Store) loadRevisionWhere(ctx context.Context, docID, clause string, arg any) (ir.RuleDocument, Revision, error) {
	var (
		rev  Revision
		body string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, seq, hash, body, rule_count, engine_version
		FROM revisions
		WHERE doc_id = ? AND `+clause+`
		ORDER BY seq DESC
		LIMIT 1
	`, docID, arg).Scan(&rev.DocID, &rev.Seq, &rev.Hash, &body, &rev.RuleCount, &rev.EngineVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RuleDocument{}, Revision{}, fmt.Errorf("revision of %q (%v): %w", docID, arg, ErrNotFound)
	}
	if err != nil {
		return ir.RuleDocument{}, Revision{}, fmt.Errorf("load revision of %q: %w", docID, err)
	}

	doc, err := unmarshalDocument(body)
	if err != nil {
		return ir.RuleDocument{}, Revision{}, fmt.Errorf("load revision of %q: %w", docID, err)
	}
	return doc, rev, nil
}

// ListDocuments returns every stored document id in byte order.
func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id FROM documents ORDER BY doc_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return ids, nil
}

// DeleteDocument removes docID and its whole revision history.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete document %q: begin tx: %w", docID, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete document %q: %w", docID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %q: rows affected: %w", docID, err)
	}
	if n == 0 {
		return fmt.Errorf("document %q: %w", docID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete revisions of %q: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rule_index WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete rule index of %q: %w", docID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete document %q: commit: %w", docID, err)
	}
	return nil
}
