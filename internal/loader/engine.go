package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/seedbed/internal/dataset"
	"github.com/roach88/seedbed/internal/queue"
	"github.com/roach88/seedbed/internal/style"
)

// Style maps a dataset's declared name to its expected storable name.
// Concrete strategies live in internal/style.
type Style interface {
	StorableName(name string) string
}

// Engine loads dataset definitions into a backend and unloads them again
// in reverse-safe order.
//
// One engine runs at most one load or unload at a time; the load queue and
// per-dataset session state carry over from a load to the matching unload
// and are cleared when the unload completes. Engines are not safe for
// concurrent use.
type Engine struct {
	backend Backend
	env     Environment
	style   Style
	logger  *slog.Logger
	tokens  TokenGenerator

	// Session state. loaded tracks what has been persisted and at what
	// level; attachments holds the per-dataset medium and stored objects;
	// resolved indexes attachments by dataset name for reference lookup.
	loaded      *queue.Queue
	attachments map[*dataset.Dataset]*attachment
	resolved    map[string]*attachment
	tx          Transaction
	sessionID   string
}

// attachment is the session-scoped state for one dataset: its resolved
// storable target, the adapted medium, and the objects persisted for it,
// in row order.
type attachment struct {
	ds      *dataset.Dataset
	medium  Medium
	keys    []string
	objects map[string]any
}

func (a *attachment) store(key string, obj any) {
	a.keys = append(a.keys, key)
	a.objects[key] = obj
}

func (a *attachment) object(key string) (any, bool) {
	obj, ok := a.objects[key]
	return obj, ok
}

// clearAll removes every object this dataset caused to be persisted, in
// persistence order. The first failure aborts the remaining clears and
// propagates as an UnloadError.
func (a *attachment) clearAll(ctx context.Context) error {
	for _, key := range a.keys {
		obj := a.objects[key]
		if err := a.medium.Clear(ctx, obj); err != nil {
			return &UnloadError{Dataset: a.ds.Name(), Object: obj, Err: err}
		}
	}
	return nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnvironment sets the environment searched during storable target
// resolution.
func WithEnvironment(env Environment) Option {
	return func(e *Engine) { e.env = env }
}

// WithStyle sets the naming strategy for style-derived storable names.
// Default: style.Original (dataset names used verbatim).
func WithStyle(s Style) Option {
	return func(e *Engine) { e.style = s }
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTokenGenerator sets the session token source. Default: UUIDv7.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// New creates an engine on top of a backend.
func New(backend Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:     backend,
		style:       style.Original{},
		logger:      slog.Default(),
		tokens:      UUIDv7Generator{},
		loaded:      queue.New(),
		attachments: make(map[*dataset.Dataset]*attachment),
		resolved:    make(map[string]*attachment),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transaction returns the transaction of the active session, for media
// that need it (see Medium.VisitLoader). Nil outside a load or unload.
func (e *Engine) Transaction() Transaction {
	return e.tx
}

// SessionID returns the token of the current load session.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Load persists the given top-level datasets and everything they depend
// on, inside a single transaction. Dependencies are persisted strictly
// before dependents; a dataset shared by multiple parents is persisted
// exactly once.
func (e *Engine) Load(ctx context.Context, datasets ...*dataset.Dataset) error {
	return e.wrapInTransaction(ctx, func(ctx context.Context) error {
		for _, ds := range datasets {
			if err := e.loadDataset(ctx, ds, 1); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Unload clears everything the previous Load persisted, dependents before
// the dependencies they point to, inside its own transaction. Afterwards
// the queue and session registry are empty.
func (e *Engine) Unload(ctx context.Context) error {
	return e.wrapInTransaction(ctx, func(ctx context.Context) error {
		for ds := range e.loaded.ToUnload() {
			att, ok := e.attachments[ds]
			if !ok {
				return fmt.Errorf("invariant violation: queued dataset %s has no attachment", ds.Name())
			}
			e.logger.Debug("clearing stored objects",
				"dataset", ds.Name(), "objects", len(att.keys), "session", e.sessionID)
			if err := att.clearAll(ctx); err != nil {
				return err
			}
		}
		e.loaded.Clear()
		e.attachments = make(map[*dataset.Dataset]*attachment)
		e.resolved = make(map[string]*attachment)
		return nil
	}, true)
}

// loadDataset loads ds and all datasets it depends on. Dependencies are
// visited at level+1 before any of ds's own rows are touched, so their
// persisted identities are known to reference resolution.
func (e *Engine) loadDataset(ctx context.Context, ds *dataset.Dataset, level int) error {
	for _, dep := range ds.Deps() {
		if err := e.loadDataset(ctx, dep, level+1); err != nil {
			return err
		}
	}

	att, err := e.attachStorageMedium(ds)
	if err != nil {
		return err
	}

	if e.loaded.Contains(ds) {
		// Already persisted via another parent: keep track of its order
		// but don't load it again.
		e.loaded.Referenced(ds, level)
		return nil
	}

	e.logger.Debug("loading rows",
		"dataset", ds.Name(), "level", level, "rows", len(ds.Rows()), "session", e.sessionID)

	att.medium.VisitLoader(e)
	for _, entry := range ds.Rows() {
		resolved, err := e.resolveRow(entry.Row)
		if err != nil {
			return &LoadError{Dataset: ds.Name(), Key: entry.Key, Err: err}
		}
		obj, err := att.medium.Save(ctx, resolved)
		if err != nil {
			return &LoadError{Dataset: ds.Name(), Key: entry.Key, Err: err}
		}
		att.store(entry.Key, obj)
	}

	e.loaded.Register(ds, level)
	return nil
}

// attachStorageMedium resolves the storable target for ds and adapts it
// through the backend. Idempotent: a dataset is resolved at most once per
// session.
func (e *Engine) attachStorageMedium(ds *dataset.Dataset) (*attachment, error) {
	if att, ok := e.attachments[ds]; ok {
		return att, nil
	}

	storable, err := e.resolveStorable(ds)
	if err != nil {
		return nil, err
	}

	medium, err := e.backend.NewMedium(storable, ds)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: new medium: %w", ds.Name(), err)
	}

	att := &attachment{ds: ds, medium: medium, objects: make(map[string]any)}
	e.attachments[ds] = att
	e.resolved[ds.Name()] = att
	return att, nil
}

// resolveStorable finds the storable target for ds: the explicit storable
// name if the dataset pins one, otherwise the style-derived name, looked
// up in the environment.
func (e *Engine) resolveStorable(ds *dataset.Dataset) (any, error) {
	name := ds.StorableName()
	if name == "" {
		name = e.style.StorableName(ds.Name())
	}

	envDesc := "nil environment"
	var storable any
	var ok bool
	if e.env != nil {
		envDesc = e.env.Describe()
		storable, ok = e.env.Lookup(name)
	}
	if !ok {
		return nil, &StorableNotFoundError{Dataset: ds.Name(), Expected: name, Env: envDesc}
	}

	if other, isDS := storable.(*dataset.Dataset); isDS && other.Name() == ds.Name() {
		return nil, &ConfigError{
			Dataset: ds.Name(),
			Message: fmt.Sprintf("cannot use dataset %s as a storable object of itself"+
				" (perhaps the style is not configured right?)", other.Name()),
		}
	}

	return storable, nil
}

// resolveRow substitutes every Ref in row with the persisted value of its
// target column. The recursion order guarantees every referenced dataset
// has already been loaded; a miss here is an invariant violation, not a
// user error.
func (e *Engine) resolveRow(row *dataset.Row) (*dataset.Row, error) {
	refs := row.Refs()
	if len(refs) == 0 {
		return row, nil
	}

	cols := make([]dataset.Column, 0, row.Len())
	for _, name := range row.Columns() {
		v, _ := row.Get(name)
		ref, isRef := v.(dataset.Ref)
		if !isRef {
			cols = append(cols, dataset.Col(name, v))
			continue
		}

		att, ok := e.resolved[ref.Dataset]
		if !ok || !e.loaded.Contains(att.ds) {
			return nil, fmt.Errorf("invariant violation: reference %s targets a dataset that has not finished loading", ref)
		}
		obj, ok := att.object(ref.Key)
		if !ok {
			return nil, fmt.Errorf("invariant violation: reference %s targets an unknown row key", ref)
		}
		resolved, err := columnValue(obj, ref.Column)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ref, err)
		}
		cols = append(cols, dataset.Col(name, dataset.Lit(resolved)))
	}
	return dataset.NewRow(cols...), nil
}

// wrapInTransaction runs routine inside a fresh backend transaction.
// For a load the session begins anew (fresh queue, fresh registry); an
// unload reuses the session the load built. On success the transaction
// commits; on error it rolls back and the routine's error propagates
// unchanged. The backend's finalizer, if any, runs exactly once on both
// paths.
func (e *Engine) wrapInTransaction(ctx context.Context, routine func(context.Context) error, unloading bool) error {
	e.begin(unloading)
	defer func() {
		e.tx = nil
		if f, ok := e.backend.(Finalizer); ok {
			f.ThenFinally(unloading)
		}
	}()

	tx, err := e.backend.CreateTransaction(ctx)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	e.tx = tx

	if err := routine(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("rollback failed", "error", rbErr, "session", e.sessionID)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// begin resets session state. A load allocates a fresh queue and registry;
// an unload keeps the ones its load built.
func (e *Engine) begin(unloading bool) {
	if unloading {
		return
	}
	e.loaded = queue.New()
	e.attachments = make(map[*dataset.Dataset]*attachment)
	e.resolved = make(map[string]*attachment)
	e.sessionID = e.tokens.Generate()
}
