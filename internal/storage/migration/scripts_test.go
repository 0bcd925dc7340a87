package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScripts_OrderedUpOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_add_marks.up.sql":   {Data: []byte("ALTER TABLE Card ADD COLUMN regulationMark TEXT;")},
		"migrations/0001_create.up.sql":      {Data: []byte("CREATE TABLE Card (id INTEGER);")},
		"migrations/0001_create.down.sql":    {Data: []byte("DROP TABLE Card;")},
		"migrations/0003_only_down.down.sql": {Data: []byte("SELECT 1;")},
	}

	scripts, err := LoadScripts(fsys, "migrations")
	require.NoError(t, err)
	require.Len(t, scripts, 2)

	assert.Equal(t, 1, scripts[0].Version)
	assert.Equal(t, "create", scripts[0].Name)
	assert.Equal(t, []string{"CREATE TABLE Card (id INTEGER)"}, scripts[0].Statements())

	assert.Equal(t, 2, scripts[1].Version)
	assert.Equal(t, "add_marks", scripts[1].Name)
}

func TestLoadScripts_EmptyDirectory(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/README.md": {Data: []byte("nothing here")},
	}

	scripts, err := LoadScripts(fsys, "migrations")
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "single",
			sql:  "CREATE TABLE A (x INTEGER);",
			want: []string{"CREATE TABLE A (x INTEGER)"},
		},
		{
			name: "missing trailing semicolon",
			sql:  "CREATE TABLE A (x INTEGER);\nCREATE TABLE B (y INTEGER)",
			want: []string{"CREATE TABLE A (x INTEGER)", "CREATE TABLE B (y INTEGER)"},
		},
		{
			name: "semicolon inside string",
			sql:  "INSERT INTO A (s) VALUES ('a;b');",
			want: []string{"INSERT INTO A (s) VALUES ('a;b')"},
		},
		{
			name: "comments dropped",
			sql:  "-- header; with semicolon\nCREATE TABLE A (x INTEGER); -- trailing\n",
			want: []string{"CREATE TABLE A (x INTEGER)"},
		},
		{
			name: "blank",
			sql:  " ;\n ; ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.sql))
		})
	}
}
