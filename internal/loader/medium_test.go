package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedAuthor struct {
	ID        int64
	FirstName string
	secret    string
}

type readerObj map[string]any

func (r readerObj) Column(name string) (any, bool) {
	v, ok := r["col:"+name]
	return v, ok
}

func TestColumnValue_ColumnReader(t *testing.T) {
	obj := readerObj{"col:id": int64(7)}

	v, err := columnValue(obj, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = columnValue(obj, "missing")
	assert.ErrorContains(t, err, `no column "missing"`)
}

func TestColumnValue_Map(t *testing.T) {
	obj := map[string]any{"id": 3}

	v, err := columnValue(obj, "id")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = columnValue(obj, "nope")
	assert.Error(t, err)
}

func TestColumnValue_StructField(t *testing.T) {
	obj := &storedAuthor{ID: 42, FirstName: "Frank", secret: "x"}

	v, err := columnValue(obj, "ID")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	// Snake-case columns match exported fields case-insensitively.
	v, err = columnValue(obj, "first_name")
	require.NoError(t, err)
	assert.Equal(t, "Frank", v)

	_, err = columnValue(obj, "secret")
	assert.Error(t, err, "unexported fields are not columns")

	_, err = columnValue(obj, "missing")
	assert.Error(t, err)
}

func TestColumnValue_NilPointer(t *testing.T) {
	var obj *storedAuthor
	_, err := columnValue(obj, "ID")
	assert.ErrorContains(t, err, "nil")
}

func TestColumnValue_Unreadable(t *testing.T) {
	_, err := columnValue(42, "id")
	assert.ErrorContains(t, err, "cannot read column")
}

func TestMapEnv(t *testing.T) {
	env := MapEnv{"Author": "authors"}

	v, ok := env.Lookup("Author")
	require.True(t, ok)
	assert.Equal(t, "authors", v)

	_, ok = env.Lookup("Book")
	assert.False(t, ok)
	assert.Equal(t, "map environment (1 entries)", env.Describe())
}

type model struct {
	Author string
	Book   string
	hidden string
}

func TestFieldEnv(t *testing.T) {
	env := Fields(&model{Author: "authors", Book: "books", hidden: "x"})

	v, ok := env.Lookup("Author")
	require.True(t, ok)
	assert.Equal(t, "authors", v)

	_, ok = env.Lookup("hidden")
	assert.False(t, ok, "unexported fields are not storables")

	_, ok = env.Lookup("Missing")
	assert.False(t, ok)

	assert.Contains(t, env.Describe(), "model")
}

func TestFieldEnv_RequiresStruct(t *testing.T) {
	assert.Panics(t, func() { Fields(42) })
}
