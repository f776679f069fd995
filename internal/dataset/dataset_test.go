package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_PreservesColumnOrder(t *testing.T) {
	row := NewRow(
		Col("zeta", Lit(1)),
		Col("alpha", Lit(2)),
		Col("mid", Lit(3)),
	)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, row.Columns())
}

func TestRow_Get(t *testing.T) {
	row := NewRow(
		Col("title", Lit("Dune")),
		Col("author_id", RefTo("AuthorData", "frank", "id")),
	)

	v, ok := row.Get("title")
	require.True(t, ok)
	assert.Equal(t, Literal{V: "Dune"}, v)

	// Every declared column reports found, whatever its value kind.
	for _, name := range row.Columns() {
		v, ok := row.Get(name)
		assert.True(t, ok, name)
		assert.NotNil(t, v, name)
	}

	_, ok = row.Get("missing")
	assert.False(t, ok)
}

func TestRow_DuplicateColumnPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewRow(Col("a", Lit(1)), Col("a", Lit(2)))
	})
}

func TestRow_Refs(t *testing.T) {
	row := NewRow(
		Col("title", Lit("Dune")),
		Col("author_id", RefTo("AuthorData", "frank", "id")),
		Col("editor_id", RefTo("AuthorData", "beverly", "id")),
	)

	refs := row.Refs()
	require.Len(t, refs, 2)
	assert.Equal(t, Ref{Dataset: "AuthorData", Key: "frank", Column: "id"}, refs[0])
	assert.Equal(t, "AuthorData.beverly.id", refs[1].String())
}

func TestDataset_RowOrder(t *testing.T) {
	ds := New("BookData")
	ds.AddRow("dune", NewRow(Col("title", Lit("Dune"))))
	ds.AddRow("emperor", NewRow(Col("title", Lit("God Emperor"))))

	rows := ds.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "dune", rows[0].Key)
	assert.Equal(t, "emperor", rows[1].Key)
}

func TestDataset_DuplicateRowKeyPanics(t *testing.T) {
	ds := New("BookData")
	ds.AddRow("dune", NewRow())

	assert.Panics(t, func() {
		ds.AddRow("dune", NewRow())
	})
}

func TestDataset_DependsOnCollapsesDuplicates(t *testing.T) {
	author := New("AuthorData")
	book := New("BookData")

	book.DependsOn(author)
	book.DependsOn(author, nil)

	assert.Equal(t, []*Dataset{author}, book.Deps())
}

func TestDataset_StorableName(t *testing.T) {
	ds := New("AuthorData")
	assert.Equal(t, "", ds.StorableName())

	ds.SetStorableName("authors")
	assert.Equal(t, "authors", ds.StorableName())
}

func TestValidateGraph_AcceptsDiamond(t *testing.T) {
	c := New("C")
	b := New("B").DependsOn(c)
	d := New("D").DependsOn(c)
	a := New("A").DependsOn(b, d)

	assert.NoError(t, ValidateGraph(a))
}

func TestValidateGraph_RejectsCycle(t *testing.T) {
	a := New("A")
	b := New("B").DependsOn(a)
	a.DependsOn(b)

	err := ValidateGraph(a)
	require.Error(t, err)

	var cerr *CycleError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{"A", "B", "A"}, cerr.Path)
	assert.Contains(t, err.Error(), "A -> B -> A")
}

func TestValidateGraph_RejectsSelfCycle(t *testing.T) {
	a := New("A")
	a.DependsOn(a)

	var cerr *CycleError
	require.ErrorAs(t, ValidateGraph(a), &cerr)
	assert.Equal(t, []string{"A", "A"}, cerr.Path)
}
