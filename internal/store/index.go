package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/blocktrigger/internal/ir"
	"github.com/roach88/blocktrigger/internal/rulequery"
)

// RuleRef is one row of the rule index: where a rule lives and the parts
// of it a search can filter on.
type RuleRef struct {
	DocID          string `json:"doc_id"`
	Position       int    `json:"position"`
	RuleID         string `json:"rule_id"`
	Name           string `json:"name,omitempty"`
	Enabled        bool   `json:"enabled"`
	SourceObjectID string `json:"source_object_id"`
	SourceEvent    string `json:"source_event"`
	TargetObjectID string `json:"target_object_id,omitempty"`
	TargetAction   string `json:"target_action"`
	Handler        string `json:"handler,omitempty"`
	Priority       int    `json:"priority"`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// indexDocument replaces the index rows of docID with the rules of doc.
// Only current documents are indexed, never older revisions.
func indexDocument(ctx context.Context, ex execer, docID string, doc ir.RuleDocument) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM rule_index WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("clear rule index: %w", err)
	}

	for i, r := range doc.Rules {
		var handler string
		if c, ok := r.TargetAction.(ir.Custom); ok {
			handler = c.Handler
		}
		_, err := ex.ExecContext(ctx, `
			INSERT INTO rule_index (
				doc_id, position, rule_id, name, enabled, source_object_id,
				source_event, target_object_id, target_action, handler, priority
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, docID, i, r.ID, r.Name, r.Enabled, r.SourceObjectID,
			string(r.SourceEvent.EventType()), r.TargetObjectID,
			string(r.TargetAction.ActionType()), handler, r.EffectivePriority())
		if err != nil {
			return fmt.Errorf("index rule %q: %w", r.ID, err)
		}
	}
	return nil
}

// FindRules returns the indexed rules of current documents matching q,
// ordered by document id then position in the document.
func (s *Store) FindRules(ctx context.Context, q rulequery.Query) ([]RuleRef, error) {
	query, args, err := rulequery.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("find rules: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find rules: %w", err)
	}
	defer rows.Close()

	refs := []RuleRef{}
	for rows.Next() {
		var ref RuleRef
		if err := rows.Scan(
			&ref.DocID, &ref.Position, &ref.RuleID, &ref.Name, &ref.Enabled,
			&ref.SourceObjectID, &ref.SourceEvent, &ref.TargetObjectID,
			&ref.TargetAction, &ref.Handler, &ref.Priority,
		); err != nil {
			return nil, fmt.Errorf("scan rule ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule refs: %w", err)
	}
	return refs, nil
}

// reindexAll rebuilds the index from every current document.
func reindexAll(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT doc_id, body FROM documents ORDER BY doc_id`)
	if err != nil {
		return fmt.Errorf("query documents: %w", err)
	}
	type stored struct{ id, body string }
	var docs []stored
	for rows.Next() {
		var d stored
		if err := rows.Scan(&d.id, &d.body); err != nil {
			rows.Close()
			return fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate documents: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, d := range docs {
		doc, err := unmarshalDocument(d.body)
		if err != nil {
			return fmt.Errorf("document %q: %w", d.id, err)
		}
		if err := indexDocument(ctx, tx, d.id, doc); err != nil {
			return fmt.Errorf("document %q: %w", d.id, err)
		}
	}
	return tx.Commit()
}
