package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	registry, err := NewRegistry([]RecordType{
		{Name: "post", Table: "posts"},
		{Name: "page", Table: "pages", Key: "slug", UpdatedColumn: "modified_on"},
	})
	require.NoError(t, err)

	store, err := OpenSQLStore(context.Background(), "sqlite", ":memory:", registry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	store.db.MustExec(`CREATE TABLE posts (
		id INTEGER PRIMARY KEY,
		slug TEXT NOT NULL,
		updated_at DATETIME NULL,
		created_at DATETIME NULL
	)`)
	store.db.MustExec(`CREATE TABLE pages (slug TEXT PRIMARY KEY, modified_on TEXT NULL)`)

	store.db.MustExec(`INSERT INTO posts (id, slug, updated_at, created_at) VALUES (?, ?, ?, ?)`,
		1, "hello-world", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	store.db.MustExec(`INSERT INTO pages (slug, modified_on) VALUES (?, ?)`, "about", "2024-02-03 10:00:00")

	return store
}

func TestNewRegistry_Defaults(t *testing.T) {
	registry, err := NewRegistry([]RecordType{{Name: "post"}})
	require.NoError(t, err)

	rt, ok := registry.Lookup("post")
	require.True(t, ok)
	assert.Equal(t, "post", rt.Table)
	assert.Equal(t, DefaultKeyColumn, rt.Key)
	assert.Equal(t, DefaultUpdatedColumn, rt.UpdatedColumn)
	assert.Equal(t, DefaultCreatedColumn, rt.CreatedColumn)
	assert.Equal(t, []string{"post"}, registry.Names())
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name  string
		types []RecordType
	}{
		{"缺少名称", []RecordType{{Table: "posts"}}},
		{"名称重复", []RecordType{{Name: "post"}, {Name: "post"}}},
		{"非法表名", []RecordType{{Name: "post", Table: "posts; DROP TABLE x"}}},
		{"非法列名", []RecordType{{Name: "post", Key: "id OR 1=1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.types)
			assert.Error(t, err)
		})
	}
}

func TestSQLStore_Find(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("按默认键查找", func(t *testing.T) {
		record, err := store.Find(ctx, "post", "", "1")
		require.NoError(t, err)
		assert.Equal(t, "post", record.Type)
		assert.Equal(t, "1", record.Key)

		slug, ok := record.Value("slug")
		require.True(t, ok)
		assert.Equal(t, "hello-world", slug)
	})

	t.Run("按指定列查找", func(t *testing.T) {
		record, err := store.Find(ctx, "post", "slug", "hello-world")
		require.NoError(t, err)
		_, ok := record.Value("updated_at")
		assert.True(t, ok)
	})

	t.Run("自定义默认键", func(t *testing.T) {
		record, err := store.Find(ctx, "page", "", "about")
		require.NoError(t, err)
		modified, ok := record.Value("modified_on")
		require.True(t, ok)
		assert.Equal(t, "2024-02-03 10:00:00", modified)
	})

	t.Run("记录不存在", func(t *testing.T) {
		_, err := store.Find(ctx, "post", "", "999")
		assert.True(t, errors.Is(err, ErrRecordNotFound))
	})

	t.Run("未注册的记录类型", func(t *testing.T) {
		_, err := store.Find(ctx, "comment", "", "1")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrRecordNotFound))
	})

	t.Run("非法列名", func(t *testing.T) {
		_, err := store.Find(ctx, "post", "slug = slug --", "x")
		assert.Error(t, err)
	})
}

func TestRecord_Value(t *testing.T) {
	record := &Record{Values: map[string]interface{}{"updated_at": nil, "created_at": "2024-01-01"}}

	_, ok := record.Value("updated_at")
	assert.False(t, ok, "NULL 列视为不存在")

	_, ok = record.Value("missing")
	assert.False(t, ok)

	v, ok := record.Value("created_at")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01", v)
}

func TestNormalizeDriver(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"sqlite", "sqlite3", false},
		{"SQLite3", "sqlite3", false},
		{"pgsql", "postgres", false},
		{"postgresql", "postgres", false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeDriver(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
