package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedbed/internal/sqlstore"
)

func TestLoadSeedsDatabase(t *testing.T) {
	defs := writeDefs(t, "bookstore.yaml", bookstoreYAML)
	dbPath := filepath.Join(t.TempDir(), "seed.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewLoadCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{defs, "--db", dbPath, "--create-tables"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ loaded 2 row(s) from 2 dataset(s)")

	store, err := sqlstore.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	var authors, books int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM authors").Scan(&authors))
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM book").Scan(&books))
	assert.Equal(t, 1, authors)
	assert.Equal(t, 1, books)

	// The book row's author_id points at the inserted author.
	var authorID, refID int64
	require.NoError(t, store.DB().QueryRow("SELECT id FROM authors").Scan(&authorID))
	require.NoError(t, store.DB().QueryRow("SELECT author_id FROM book").Scan(&refID))
	assert.Equal(t, authorID, refID)
}

func TestLoadJSONOutput(t *testing.T) {
	defs := writeDefs(t, "bookstore.yaml", bookstoreYAML)
	dbPath := filepath.Join(t.TempDir(), "seed.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewLoadCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{defs, "--db", dbPath, "--create-tables"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   LoadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Rows)
	assert.Equal(t, []string{"AuthorData", "BookData"}, resp.Data.Datasets)
}

func TestLoadMissingTablesFails(t *testing.T) {
	defs := writeDefs(t, "bookstore.yaml", bookstoreYAML)
	dbPath := filepath.Join(t.TempDir(), "seed.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewLoadCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{defs, "--db", dbPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeLoad)

	// The failed load left nothing behind.
	store, err := sqlstore.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	var tables int
	require.NoError(t, store.DB().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('authors', 'book')").Scan(&tables))
	assert.Equal(t, 0, tables)
}

func TestLoadRequiresDBFlag(t *testing.T) {
	defs := writeDefs(t, "bookstore.yaml", bookstoreYAML)

	cmd := NewLoadCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{defs})

	assert.Error(t, cmd.Execute())
}
