package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/teranos/qntx-astro/errors"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
)

// SQLStore writes entries to the classification_audit table created by the
// db migrations.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const insertEntry = `
	INSERT INTO classification_audit (
		run_id, dataset, field, stage, source, rule, quantity, confidence, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Record inserts entries in a single transaction.
func (s *SQLStore) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin audit tx")
	}
	stmt, err := tx.PrepareContext(ctx, insertEntry)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare audit insert")
	}
	defer stmt.Close()

	for _, e := range entries {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			e.RunID, e.Dataset, e.Field, string(e.Stage), string(e.Source),
			nullable(e.Rule), string(e.Quantity), e.Confidence, ts,
		); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "insert audit entry for %s", e.Field)
		}
	}
	return errors.Wrap(tx.Commit(), "commit audit entries")
}

// List returns matching entries, oldest first.
func (s *SQLStore) List(ctx context.Context, query Query) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if query.Dataset != "" {
		where = append(where, "dataset = ?")
		args = append(args, query.Dataset)
	}
	if query.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, query.RunID)
	}
	if query.Field != "" {
		where = append(where, "field = ?")
		args = append(args, query.Field)
	}

	stmt := `SELECT run_id, dataset, field, stage, source, rule, quantity, confidence, created_at
		FROM classification_audit`
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY created_at, id"
	if query.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query audit entries")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                       Entry
			stage, source, quantity string
			rule                    sql.NullString
		)
		if err := rows.Scan(&e.RunID, &e.Dataset, &e.Field, &stage, &source, &rule, &quantity, &e.Confidence, &e.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan audit entry")
		}
		e.Stage = Stage(stage)
		e.Source = q.Provenance(source)
		e.Rule = rule.String
		e.Quantity = q.PhysicalQuantity(quantity)
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate audit entries")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const upsertSchema = `
	INSERT INTO dataset_schema (dataset, field, run_id, classification, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(dataset, field) DO UPDATE SET
		run_id = excluded.run_id,
		classification = excluded.classification,
		updated_at = excluded.updated_at`

// SaveSchema stores the resolved classifications of a run as the dataset's
// current schema, replacing earlier rows for the same fields.
func (s *SQLStore) SaveSchema(ctx context.Context, dataset, runID string, fields []schema.FieldClassification) error {
	if len(fields) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin schema tx")
	}
	now := time.Now().UTC()
	for _, fc := range fields {
		doc, err := json.Marshal(fc)
		if err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "encode classification for %s", fc.Field)
		}
		if _, err := tx.ExecContext(ctx, upsertSchema, dataset, fc.Field, runID, string(doc), now); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "store classification for %s", fc.Field)
		}
	}
	return errors.Wrap(tx.Commit(), "commit dataset schema")
}

// Schema returns the stored classifications for dataset ordered by field.
func (s *SQLStore) Schema(ctx context.Context, dataset string) ([]schema.FieldClassification, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT classification FROM dataset_schema WHERE dataset = ? ORDER BY field", dataset)
	if err != nil {
		return nil, errors.Wrap(err, "query dataset schema")
	}
	defer rows.Close()

	var out []schema.FieldClassification
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, "scan dataset schema")
		}
		var fc schema.FieldClassification
		if err := json.Unmarshal([]byte(doc), &fc); err != nil {
			return nil, errors.Wrap(err, "decode dataset schema row")
		}
		out = append(out, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate dataset schema")
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "dataset %s", dataset)
	}
	return out, nil
}
