package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/seedbed/internal/dataset"
	"github.com/roach88/seedbed/internal/loader"
)

// Store implements loader.Backend: transactions come from the wrapped
// database, and each dataset gets a medium writing into its resolved
// Table.

// CreateTransaction begins a new database transaction for one load or
// unload session.
func (s *Store) CreateTransaction(ctx context.Context) (loader.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// NewMedium adapts a resolved *Table as the storage medium for ds.
func (s *Store) NewMedium(storable any, ds *dataset.Dataset) (loader.Medium, error) {
	table, ok := storable.(*Table)
	if !ok {
		return nil, fmt.Errorf("sqlstore expects *sqlstore.Table storables, got %T", storable)
	}
	return &medium{table: table, ds: ds}, nil
}

// Tx wraps a database transaction as the session's transaction handle.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls the transaction back.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// medium persists one dataset's rows into one table.
type medium struct {
	table *Table
	ds    *dataset.Dataset
	eng   *loader.Engine
}

// VisitLoader keeps hold of the engine so Save and Clear can run inside
// the session's active transaction.
func (m *medium) VisitLoader(e *loader.Engine) {
	m.eng = e
}

func (m *medium) transaction() (*sql.Tx, error) {
	if m.eng == nil {
		return nil, fmt.Errorf("medium for %s was not visited by a loader", m.ds.Name())
	}
	handle, ok := m.eng.Transaction().(*Tx)
	if !ok || handle == nil {
		return nil, fmt.Errorf("no active sqlstore transaction for %s", m.ds.Name())
	}
	return handle.tx, nil
}

// Save inserts one resolved row and returns a StoredRow handle carrying
// the generated id and the saved column values.
func (m *medium) Save(ctx context.Context, row *dataset.Row) (any, error) {
	tx, err := m.transaction()
	if err != nil {
		return nil, err
	}

	cols := row.Columns()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, name := range cols {
		v, _ := row.Get(name)
		lit, ok := v.(dataset.Literal)
		if !ok {
			return nil, fmt.Errorf("unresolved reference reached medium: %v", v)
		}
		quoted[i] = quoteIdent(name)
		marks[i] = "?"
		args[i] = lit.V
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(m.table.Name), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", m.table.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert into %s: last insert id: %w", m.table.Name, err)
	}

	values := make(map[string]any, len(cols))
	for i, name := range cols {
		values[name] = args[i]
	}
	return &StoredRow{Table: m.table.Name, ID: id, Values: values}, nil
}

// Clear deletes one previously inserted row by id.
func (m *medium) Clear(ctx context.Context, obj any) error {
	stored, ok := obj.(*StoredRow)
	if !ok {
		return fmt.Errorf("sqlstore cannot clear %T", obj)
	}
	tx, err := m.transaction()
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE "id" = ?`, quoteIdent(stored.Table))
	res, err := tx.ExecContext(ctx, query, stored.ID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", stored.Table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: rows affected: %w", stored.Table, err)
	}
	if affected == 0 {
		return fmt.Errorf("row id=%d not found in %s", stored.ID, stored.Table)
	}
	return nil
}

// StoredRow is the persisted handle for one inserted row. References read
// column values off it; the generated primary key is exposed as "id".
type StoredRow struct {
	Table  string
	ID     int64
	Values map[string]any
}

// Column implements loader.ColumnReader.
func (r *StoredRow) Column(name string) (any, bool) {
	if name == "id" {
		return r.ID, true
	}
	v, ok := r.Values[name]
	return v, ok
}

// String formats the handle for unload error messages.
func (r *StoredRow) String() string {
	return fmt.Sprintf("%s[id=%d]", r.Table, r.ID)
}
