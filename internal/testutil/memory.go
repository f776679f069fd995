// Package testutil provides deterministic test doubles for the loader: an
// in-memory recording backend and a fixed session token generator.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/seedbed/internal/dataset"
	"github.com/roach88/seedbed/internal/loader"
)

// MemoryBackend is an in-memory loader.Backend that records every
// operation it performs, in order, so tests can assert on exact load and
// unload traces. Storables are plain table-name strings; persisted objects
// are maps carrying the saved column values plus a generated integer "id".
//
// Failure injection goes through the optional hooks: SaveHook and
// ClearHook run before the corresponding operation and abort it by
// returning an error; TxErr fails transaction creation; CommitErr fails
// the commit.
type MemoryBackend struct {
	Ops []string // chronological operation trace

	SaveHook  func(ds *dataset.Dataset, row *dataset.Row) error
	ClearHook func(ds *dataset.Dataset, obj any) error
	TxErr     error
	CommitErr error

	Txs           []*MemoryTx
	FinalizeCount int

	tables map[string][]map[string]any
	nextID int
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string][]map[string]any)}
}

func (b *MemoryBackend) op(format string, args ...any) {
	b.Ops = append(b.Ops, fmt.Sprintf(format, args...))
}

// CreateTransaction opens a recording transaction.
func (b *MemoryBackend) CreateTransaction(_ context.Context) (loader.Transaction, error) {
	if b.TxErr != nil {
		return nil, b.TxErr
	}
	tx := &MemoryTx{backend: b}
	b.Txs = append(b.Txs, tx)
	b.op("begin")
	return tx, nil
}

// NewMedium adapts a table-name storable for one dataset.
func (b *MemoryBackend) NewMedium(storable any, ds *dataset.Dataset) (loader.Medium, error) {
	table, ok := storable.(string)
	if !ok {
		return nil, fmt.Errorf("memory backend expects string storables, got %T", storable)
	}
	return &memoryMedium{backend: b, table: table, ds: ds}, nil
}

// ThenFinally implements loader.Finalizer.
func (b *MemoryBackend) ThenFinally(unloading bool) {
	b.FinalizeCount++
	b.op("finally unloading=%t", unloading)
}

// Rows returns the live objects persisted into a table, in save order.
func (b *MemoryBackend) Rows(table string) []map[string]any {
	return b.tables[table]
}

// MemoryTx is a recording transaction handle.
type MemoryTx struct {
	backend   *MemoryBackend
	Commits   int
	Rollbacks int
}

// Commit records the commit.
func (t *MemoryTx) Commit() error {
	t.Commits++
	if t.backend.CommitErr != nil {
		return t.backend.CommitErr
	}
	t.backend.op("commit")
	return nil
}

// Rollback records the rollback.
func (t *MemoryTx) Rollback() error {
	t.Rollbacks++
	t.backend.op("rollback")
	return nil
}

type memoryMedium struct {
	backend *MemoryBackend
	table   string
	ds      *dataset.Dataset

	// Visits counts VisitLoader calls; the loader promises exactly one
	// per dataset, before its first row.
	Visits int
}

func (m *memoryMedium) VisitLoader(*loader.Engine) {
	m.Visits++
	m.backend.op("visit %s", m.ds.Name())
}

func (m *memoryMedium) Save(_ context.Context, row *dataset.Row) (any, error) {
	if m.backend.SaveHook != nil {
		if err := m.backend.SaveHook(m.ds, row); err != nil {
			return nil, err
		}
	}

	m.backend.nextID++
	obj := map[string]any{"id": m.backend.nextID}
	for _, name := range row.Columns() {
		v, _ := row.Get(name)
		lit, ok := v.(dataset.Literal)
		if !ok {
			return nil, fmt.Errorf("unresolved reference reached medium: %v", v)
		}
		obj[name] = lit.V
	}

	m.backend.tables[m.table] = append(m.backend.tables[m.table], obj)
	m.backend.op("save %s id=%d", m.table, m.backend.nextID)
	return obj, nil
}

func (m *memoryMedium) Clear(_ context.Context, obj any) error {
	if m.backend.ClearHook != nil {
		if err := m.backend.ClearHook(m.ds, obj); err != nil {
			return err
		}
	}

	stored, ok := obj.(map[string]any)
	if !ok {
		return fmt.Errorf("memory backend cannot clear %T", obj)
	}
	id := stored["id"]

	rows := m.backend.tables[m.table]
	for i, r := range rows {
		if r["id"] == id {
			m.backend.tables[m.table] = append(rows[:i], rows[i+1:]...)
			m.backend.op("clear %s id=%d", m.table, id)
			return nil
		}
	}
	return fmt.Errorf("object id=%v not found in table %s", id, m.table)
}

// FixedTokenGenerator returns predetermined session tokens, enabling
// deterministic log and trace output. Panics when the tokens run out -
// fail fast on a test creating more sessions than it expected.
type FixedTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokenGenerator creates a generator that returns tokens in order.
func NewFixedTokenGenerator(tokens ...string) *FixedTokenGenerator {
	return &FixedTokenGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("FixedTokenGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
