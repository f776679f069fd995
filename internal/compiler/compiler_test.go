package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedbed/internal/dataset"
)

const bookstoreCUE = `
datasets: {
	CategoryData: {
		storable: "categories"
		rows: scifi: name: "Science Fiction"
	}
	AuthorData: {
		rows: frank: {
			first_name: "Frank"
			last_name:  "Herbert"
		}
	}
	BookData: {
		depends: ["AuthorData"]
		rows: dune: {
			title:       "Dune"
			pages:       412
			in_print:    true
			author_id:   {"$ref": "AuthorData.frank.id"}
			category_id: {"$ref": "CategoryData.scifi.id"}
		}
	}
}
`

func TestCompile_Bookstore(t *testing.T) {
	sets, err := CompileBytes("bookstore.cue", []byte(bookstoreCUE))
	require.NoError(t, err)
	require.Len(t, sets, 3)

	assert.Equal(t, "CategoryData", sets[0].Name())
	assert.Equal(t, "AuthorData", sets[1].Name())
	assert.Equal(t, "BookData", sets[2].Name())

	assert.Equal(t, "categories", sets[0].StorableName())
	assert.Equal(t, "", sets[1].StorableName())
}

func TestCompile_ScalarTypes(t *testing.T) {
	sets, err := CompileBytes("bookstore.cue", []byte(bookstoreCUE))
	require.NoError(t, err)

	book := sets[2]
	row, ok := book.Row("dune")
	require.True(t, ok)

	title, _ := row.Get("title")
	assert.Equal(t, dataset.Lit("Dune"), title)

	pages, _ := row.Get("pages")
	assert.Equal(t, dataset.Lit(int64(412)), pages)

	inPrint, _ := row.Get("in_print")
	assert.Equal(t, dataset.Lit(true), inPrint)
}

func TestCompile_ReferenceImpliesDependency(t *testing.T) {
	sets, err := CompileBytes("bookstore.cue", []byte(bookstoreCUE))
	require.NoError(t, err)

	book := sets[2]
	depNames := []string{}
	for _, dep := range book.Deps() {
		depNames = append(depNames, dep.Name())
	}
	// Explicit depends plus the dependency implied by the category ref.
	assert.Equal(t, []string{"AuthorData", "CategoryData"}, depNames)

	row, _ := book.Row("dune")
	authorID, _ := row.Get("author_id")
	assert.Equal(t, dataset.RefTo("AuthorData", "frank", "id"), authorID)
}

func TestCompile_ForwardReference(t *testing.T) {
	src := `
datasets: {
	BookData: {
		rows: dune: author_id: {"$ref": "AuthorData.frank.id"}
	}
	AuthorData: {
		rows: frank: first_name: "Frank"
	}
}
`
	sets, err := CompileBytes("forward.cue", []byte(src))
	require.NoError(t, err)
	require.Len(t, sets, 2)
	require.Len(t, sets[0].Deps(), 1)
	assert.Equal(t, "AuthorData", sets[0].Deps()[0].Name())
}

func TestCompile_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing datasets struct",
			src:  `rows: {}`,
			want: "datasets struct is required",
		},
		{
			name: "missing rows",
			src:  `datasets: AuthorData: storable: "authors"`,
			want: "rows struct is required",
		},
		{
			name: "unknown field",
			src:  `datasets: AuthorData: {rows: {}, table: "authors"}`,
			want: `unknown field "table"`,
		},
		{
			name: "unknown dependency",
			src:  `datasets: AuthorData: {depends: ["GhostData"], rows: {}}`,
			want: `depends on unknown dataset "GhostData"`,
		},
		{
			name: "malformed reference",
			src:  `datasets: AuthorData: rows: frank: boss: {"$ref": "OwnerData.bill"}`,
			want: "malformed reference",
		},
		{
			name: "struct column without ref",
			src:  `datasets: AuthorData: rows: frank: name: {first: "Frank"}`,
			want: "must be a $ref",
		},
		{
			name: "unsupported column value",
			src:  `datasets: AuthorData: rows: frank: tags: ["a", "b"]`,
			want: "unsupported column value kind",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompileBytes("bad.cue", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCompile_RejectsCycle(t *testing.T) {
	src := `
datasets: {
	AData: {
		depends: ["BData"]
		rows: a: n: 1
	}
	BData: {
		depends: ["AData"]
		rows: b: n: 2
	}
}
`
	_, err := CompileBytes("cycle.cue", []byte(src))
	var cerr *dataset.CycleError
	require.ErrorAs(t, err, &cerr)
}

func TestCompile_SyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileBytes("broken.cue", []byte("datasets: {\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookstore.cue")
	require.NoError(t, os.WriteFile(path, []byte(bookstoreCUE), 0o644))

	sets, err := CompileFile(path)
	require.NoError(t, err)
	assert.Len(t, sets, 3)

	_, err = CompileFile(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
