package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mathe-challenge-service/internal/docstore"
	"mathe-challenge-service/internal/domain"
)

// Store implements docstore.Store on a single JSONB documents table. Field
// filters use data->>field; ordering uses data->field so JSONB numbers
// compare numerically instead of lexically.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{pool: s.pool, name: name}
}

type collection struct {
	pool *pgxpool.Pool
	name string
}

func (c *collection) Get(ctx context.Context, id string) (docstore.Document, error) {
	doc := docstore.Document{ID: id}
	err := c.pool.QueryRow(ctx,
		`SELECT data, created_at, updated_at FROM documents WHERE collection=$1 AND id=$2`,
		c.name, id,
	).Scan(&doc.Data, &doc.CreateTime, &doc.UpdateTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", c.name, id, domain.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, classify(fmt.Errorf("get %s/%s: %w", c.name, id, err))
	}
	return doc, nil
}

func (c *collection) GetAll(ctx context.Context) ([]docstore.Document, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, data, created_at, updated_at FROM documents WHERE collection=$1 ORDER BY created_at, id`,
		c.name,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("get all %s: %w", c.name, err))
	}
	defer rows.Close()
	return scanDocuments(rows, c.name)
}

func (c *collection) Add(ctx context.Context, v any) (docstore.Document, error) {
	doc, err := encode(v)
	if err != nil {
		return docstore.Document{}, err
	}
	doc.ID = uuid.NewString()
	doc.CreateTime = time.Now().UTC()
	doc.UpdateTime = doc.CreateTime

	_, err = c.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		c.name, doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime,
	)
	if err != nil {
		return docstore.Document{}, classify(fmt.Errorf("add to %s: %w", c.name, err))
	}
	return doc, nil
}

func (c *collection) Set(ctx context.Context, id string, v any) (docstore.Document, error) {
	doc, err := encode(v)
	if err != nil {
		return docstore.Document{}, err
	}
	doc.ID = id
	doc.UpdateTime = time.Now().UTC()
	doc.CreateTime = doc.UpdateTime

	err = c.pool.QueryRow(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=EXCLUDED.updated_at
		 RETURNING created_at`,
		c.name, id, doc.Data, doc.UpdateTime,
	).Scan(&doc.CreateTime)
	if err != nil {
		return docstore.Document{}, classify(fmt.Errorf("set %s/%s: %w", c.name, id, err))
	}
	return doc, nil
}

func (c *collection) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data, created_at, updated_at FROM documents WHERE collection=$1`)
	args := []any{c.name}

	for _, f := range q.Filters {
		field, err := fieldName(f.Field)
		if err != nil {
			return nil, err
		}
		args = append(args, fmt.Sprint(f.Value))
		fmt.Fprintf(&sb, ` AND data->>'%s' = $%d`, field, len(args))
	}

	sb.WriteString(` ORDER BY`)
	for i, ord := range q.Orders {
		field, err := fieldName(ord.Field)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			sb.WriteString(`,`)
		}
		dir := "ASC"
		if ord.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` data->'%s' %s`, field, dir)
	}
	if len(q.Orders) > 0 {
		sb.WriteString(`,`)
	}
	// deterministic order on full ties
	sb.WriteString(` created_at, id`)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := c.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, classify(fmt.Errorf("query %s: %w", c.name, err))
	}
	defer rows.Close()
	return scanDocuments(rows, c.name)
}

func scanDocuments(rows pgx.Rows, name string) ([]docstore.Document, error) {
	var docs []docstore.Document
	for rows.Next() {
		var doc docstore.Document
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.CreateTime, &doc.UpdateTime); err != nil {
			return nil, classify(fmt.Errorf("scan %s: %w", name, err))
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("read %s: %w", name, err))
	}
	return docs, nil
}

func encode(v any) (docstore.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("encode document: %w", err)
	}
	return docstore.Document{Data: data}, nil
}

// fieldName guards the identifiers interpolated into JSONB path expressions.
// Fields come from internal callers, never from user input.
func fieldName(field string) (string, error) {
	if field == "" {
		return "", fmt.Errorf("empty query field")
	}
	for _, r := range field {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return "", fmt.Errorf("invalid query field %q", field)
	}
	return field, nil
}

// classify maps driver failures onto the challenge error taxonomy so callers
// can decide about retries without knowing postgres error codes.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501" || pgErr.Code == "28000":
			return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
		case pgErr.Code == "42P01":
			// schema not migrated yet; the backing table catches up like a
			// deploying index would
			return fmt.Errorf("%w: %v", domain.ErrIndexNotReady, err)
		case strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P03" || pgErr.Code == "53300":
			return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
	}
	return err
}
