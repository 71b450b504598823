package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/melee/internal/game/content"
)

// ErrDocumentNotFound is returned when a content document lookup yields no results.
var ErrDocumentNotFound = errors.New("content document not found")

// ErrDocumentExists is returned by Create when (kind, name) is taken.
var ErrDocumentExists = errors.New("content document already exists")

// ContentRepository stores content documents keyed by (kind, name).
type ContentRepository struct {
	db *pgxpool.Pool
}

// NewContentRepository creates a ContentRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewContentRepository(db *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a new document.
//
// Precondition: doc.Kind must be valid; doc.Name must be non-empty.
// Postcondition: Returns ErrDocumentExists if (kind, name) is taken.
func (r *ContentRepository) Create(ctx context.Context, doc content.Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO content_documents (kind, name, body) VALUES ($1, $2, $3)`,
		string(doc.Kind), doc.Name, string(doc.Data),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDocumentExists
		}
		return fmt.Errorf("inserting content document: %w", err)
	}
	return nil
}

// Put inserts or replaces a document.
//
// Precondition: doc.Kind must be valid; doc.Name must be non-empty.
func (r *ContentRepository) Put(ctx context.Context, doc content.Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	if err := putDocument(ctx, r.db, doc); err != nil {
		return fmt.Errorf("upserting content document: %w", err)
	}
	return nil
}

// Replace swaps the stored document set for docs in one transaction.
//
// Postcondition: on error the stored set is unchanged.
func (r *ContentRepository) Replace(ctx context.Context, docs []content.Document) error {
	for _, doc := range docs {
		if err := checkDocument(doc); err != nil {
			return err
		}
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM content_documents`); err != nil {
			return fmt.Errorf("clearing content documents: %w", err)
		}
		for _, doc := range docs {
			if err := putDocument(ctx, tx, doc); err != nil {
				return fmt.Errorf("storing %s/%s: %w", doc.Kind, doc.Name, err)
			}
		}
		return nil
	})
}

// Get retrieves one document.
//
// Postcondition: Returns the Document or ErrDocumentNotFound.
func (r *ContentRepository) Get(ctx context.Context, kind content.Kind, name string) (content.Document, error) {
	var body string
	err := r.db.QueryRow(ctx,
		`SELECT body FROM content_documents WHERE kind = $1 AND name = $2`,
		string(kind), name,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return content.Document{}, ErrDocumentNotFound
		}
		return content.Document{}, fmt.Errorf("querying content document: %w", err)
	}
	return content.Document{Kind: kind, Name: name, Data: []byte(body)}, nil
}

// Documents returns every stored document ordered by kind then name.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *ContentRepository) Documents(ctx context.Context) ([]content.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT kind, name, body FROM content_documents ORDER BY kind, name`)
	if err != nil {
		return nil, fmt.Errorf("listing content documents: %w", err)
	}
	defer rows.Close()

	docs := make([]content.Document, 0)
	for rows.Next() {
		var kind, name, body string
		if err := rows.Scan(&kind, &name, &body); err != nil {
			return nil, fmt.Errorf("scanning content document row: %w", err)
		}
		docs = append(docs, content.Document{Kind: content.Kind(kind), Name: name, Data: []byte(body)})
	}
	return docs, rows.Err()
}

// Delete removes one document.
//
// Postcondition: Returns ErrDocumentNotFound if no row was deleted.
func (r *ContentRepository) Delete(ctx context.Context, kind content.Kind, name string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM content_documents WHERE kind = $1 AND name = $2`,
		string(kind), name,
	)
	if err != nil {
		return fmt.Errorf("deleting content document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Load builds a cross-validated Content from every stored document.
//
// Postcondition: Returns the Content, or the joined load errors.
func (r *ContentRepository) Load(ctx context.Context) (*content.Content, error) {
	docs, err := r.Documents(ctx)
	if err != nil {
		return nil, err
	}
	return content.LoadDocuments(docs)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func putDocument(ctx context.Context, db execer, doc content.Document) error {
	_, err := db.Exec(ctx, `
		INSERT INTO content_documents (kind, name, body) VALUES ($1, $2, $3)
		ON CONFLICT (kind, name) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`,
		string(doc.Kind), doc.Name, string(doc.Data),
	)
	return err
}

func checkDocument(doc content.Document) error {
	if !doc.Kind.Valid() {
		return fmt.Errorf("content document %q: unknown kind %q", doc.Name, doc.Kind)
	}
	if doc.Name == "" {
		return fmt.Errorf("content document of kind %q: name must not be empty", doc.Kind)
	}
	return nil
}
