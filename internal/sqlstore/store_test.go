package sqlstore_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedbed/internal/dataset"
	"github.com/roach88/seedbed/internal/loader"
	"github.com/roach88/seedbed/internal/sqlstore"
	"github.com/roach88/seedbed/internal/style"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// bookshop creates the fixture tables and dataset definitions used by the
// round-trip tests.
func bookshop(t *testing.T, s *sqlstore.Store) (env loader.Environment, author, book *dataset.Dataset) {
	t.Helper()
	ctx := context.Background()

	authors, err := s.CreateTable(ctx, "authors", "first_name", "last_name")
	require.NoError(t, err)
	books, err := s.CreateTable(ctx, "books", "title", "author_id")
	require.NoError(t, err)

	author = dataset.New("AuthorData")
	author.AddRow("frank", dataset.NewRow(
		dataset.Col("first_name", dataset.Lit("Frank")),
		dataset.Col("last_name", dataset.Lit("Herbert")),
	))

	book = dataset.New("BookData")
	book.AddRow("dune", dataset.NewRow(
		dataset.Col("title", dataset.Lit("Dune")),
		dataset.Col("author_id", dataset.RefTo("AuthorData", "frank", "id")),
	))
	book.DependsOn(author)

	env = loader.MapEnv{"Author": authors, "Book": books}
	return env, author, book
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.db")

	s, err := sqlstore.Open(path)
	require.NoError(t, err)
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := sqlstore.Open("/nonexistent/dir/fixtures.db")
	assert.Error(t, err)
}

func TestCreateTable_Idempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.CreateTable(ctx, "authors", "first_name")
		require.NoError(t, err)
	}
}

func TestLoadUnload_RoundTrip(t *testing.T) {
	s := openStore(t)
	env, _, book := bookshop(t, s)
	ctx := context.Background()

	eng := loader.New(s,
		loader.WithEnvironment(env),
		loader.WithStyle(style.NamedData()),
		loader.WithLogger(quietLogger()),
	)

	require.NoError(t, eng.Load(ctx, book))

	var authorCount, bookCount int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM authors").Scan(&authorCount))
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM books").Scan(&bookCount))
	assert.Equal(t, 1, authorCount)
	assert.Equal(t, 1, bookCount)

	// The book's author_id resolved to the author's generated primary key.
	var authorID, refID int64
	require.NoError(t, s.DB().QueryRow("SELECT id FROM authors").Scan(&authorID))
	require.NoError(t, s.DB().QueryRow("SELECT author_id FROM books").Scan(&refID))
	assert.Equal(t, authorID, refID)

	require.NoError(t, eng.Unload(ctx))

	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM authors").Scan(&authorCount))
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM books").Scan(&bookCount))
	assert.Equal(t, 0, authorCount)
	assert.Equal(t, 0, bookCount)
}

func TestLoad_RollbackLeavesNothingBehind(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	authors, err := s.CreateTable(ctx, "authors", "first_name")
	require.NoError(t, err)
	books, err := s.CreateTable(ctx, "books", "title")
	require.NoError(t, err)

	author := dataset.New("AuthorData")
	author.AddRow("frank", dataset.NewRow(
		dataset.Col("first_name", dataset.Lit("Frank")),
	))

	// The book row names a column the table does not have: the insert
	// fails, the load aborts, and the already-inserted author rolls back.
	book := dataset.New("BookData")
	book.AddRow("dune", dataset.NewRow(
		dataset.Col("title", dataset.Lit("Dune")),
		dataset.Col("no_such_column", dataset.Lit(1)),
	))
	book.DependsOn(author)

	eng := loader.New(s,
		loader.WithEnvironment(loader.MapEnv{"Author": authors, "Book": books}),
		loader.WithStyle(style.NamedData()),
		loader.WithLogger(quietLogger()),
	)

	err = eng.Load(ctx, book)
	require.Error(t, err)

	var le *loader.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "BookData", le.Dataset)
	assert.Equal(t, "dune", le.Key)

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM authors").Scan(&count))
	assert.Equal(t, 0, count, "rollback must undo the author insert")
}

func TestLoad_SharedDatasetAcrossParents(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	categories, err := s.CreateTable(ctx, "categories", "name")
	require.NoError(t, err)
	shelves, err := s.CreateTable(ctx, "shelves", "label", "category_id")
	require.NoError(t, err)
	posters, err := s.CreateTable(ctx, "posters", "label", "category_id")
	require.NoError(t, err)

	category := dataset.New("CategoryData")
	category.AddRow("scifi", dataset.NewRow(dataset.Col("name", dataset.Lit("SF"))))

	shelf := dataset.New("ShelfData")
	shelf.AddRow("a", dataset.NewRow(
		dataset.Col("label", dataset.Lit("A")),
		dataset.Col("category_id", dataset.RefTo("CategoryData", "scifi", "id")),
	))
	shelf.DependsOn(category)

	poster := dataset.New("PosterData")
	poster.AddRow("p", dataset.NewRow(
		dataset.Col("label", dataset.Lit("P")),
		dataset.Col("category_id", dataset.RefTo("CategoryData", "scifi", "id")),
	))
	poster.DependsOn(category)

	eng := loader.New(s,
		loader.WithEnvironment(loader.MapEnv{
			"Category": categories, "Shelf": shelves, "Poster": posters,
		}),
		loader.WithStyle(style.NamedData()),
		loader.WithLogger(quietLogger()),
	)

	require.NoError(t, eng.Load(ctx, shelf, poster))

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM categories").Scan(&count))
	assert.Equal(t, 1, count, "shared dependency persists exactly once")

	require.NoError(t, eng.Unload(ctx))
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM categories").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestStoredRow_Column(t *testing.T) {
	r := &sqlstore.StoredRow{
		Table:  "authors",
		ID:     7,
		Values: map[string]any{"first_name": "Frank"},
	}

	id, ok := r.Column("id")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	v, ok := r.Column("first_name")
	require.True(t, ok)
	assert.Equal(t, "Frank", v)

	_, ok = r.Column("missing")
	assert.False(t, ok)
	assert.Equal(t, "authors[id=7]", r.String())
}
