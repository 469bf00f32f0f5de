package jsonl_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard"
	"github.com/mergeguard/mergeguard/jsonl"
)

func TestStore_Recent(t *testing.T) {
	t.Parallel()

	t.Run("returns newest first", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "decisions.jsonl")
		content := `{"kind":"removal","entity":"legacy_auth","module":"auth","proposal":3,"merged_at":"2026-07-01T10:00:00Z"}
{"kind":"addition","entity":"rate_limiter","module":"api","proposal":5,"merged_at":"2026-07-10T10:00:00Z"}
{"kind":"migration","entity":"raw sql","file":"db/queries.py","pattern":"cursor.execute(","proposal":8,"merged_at":"2026-07-20T10:00:00Z"}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		store := jsonl.NewStore(path)
		decisions, err := store.Recent(context.Background(), 10)

		require.NoError(t, err)
		require.Len(t, decisions, 3)
		assert.Equal(t, 8, decisions[0].Proposal)
		assert.Equal(t, 5, decisions[1].Proposal)
		assert.Equal(t, 3, decisions[2].Proposal)
		assert.Equal(t, mergeguard.DecisionMigration, decisions[0].Kind)
		assert.Equal(t, "cursor.execute(", decisions[0].Pattern)
	})

	t.Run("limit truncates to the newest entries", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "decisions.jsonl")
		store := jsonl.NewStore(path)
		for i := 1; i <= 5; i++ {
			require.NoError(t, store.Append(mergeguard.Decision{
				Kind:     mergeguard.DecisionRemoval,
				Entity:   "e",
				Proposal: i,
				MergedAt: time.Date(2026, 7, i, 0, 0, 0, 0, time.UTC),
			}))
		}

		decisions, err := store.Recent(context.Background(), 2)
		require.NoError(t, err)
		require.Len(t, decisions, 2)
		assert.Equal(t, 5, decisions[0].Proposal)
		assert.Equal(t, 4, decisions[1].Proposal)
	})

	t.Run("missing file reads as empty log", func(t *testing.T) {
		t.Parallel()

		store := jsonl.NewStore(filepath.Join(t.TempDir(), "absent.jsonl"))
		decisions, err := store.Recent(context.Background(), 10)

		require.NoError(t, err)
		assert.Empty(t, decisions)
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "decisions.jsonl")
		content := `{"kind":"removal","entity":"a","proposal":1,"merged_at":"2026-07-01T10:00:00Z"}

{"kind":"removal","entity":"b","proposal":2,"merged_at":"2026-07-02T10:00:00Z"}
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		decisions, err := jsonl.NewStore(path).Recent(context.Background(), 0)
		require.NoError(t, err)
		assert.Len(t, decisions, 2)
	})

	t.Run("malformed line reports its number", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "bad.jsonl")
		content := `{"kind":"removal","entity":"a","proposal":1,"merged_at":"2026-07-01T10:00:00Z"}
not valid json`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := jsonl.NewStore(path).Recent(context.Background(), 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})
}

func TestStore_Append(t *testing.T) {
	t.Parallel()

	t.Run("appends without truncating", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "decisions.jsonl")
		store := jsonl.NewStore(path)

		require.NoError(t, store.Append(mergeguard.Decision{
			Kind: mergeguard.DecisionRemoval, Entity: "a", Proposal: 1,
			MergedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		}))
		require.NoError(t, store.Append(mergeguard.Decision{
			Kind: mergeguard.DecisionAddition, Entity: "b", Proposal: 2,
			MergedAt: time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC),
		}))

		decisions, err := store.Recent(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, decisions, 2)
		assert.Equal(t, "b", decisions[0].Entity)
		assert.Equal(t, "a", decisions[1].Entity)
	})

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".mergeguard", "nested", "decisions.jsonl")
		store := jsonl.NewStore(path)

		require.NoError(t, store.Append(mergeguard.Decision{
			Kind: mergeguard.DecisionRemoval, Entity: "a", Proposal: 1, MergedAt: time.Now(),
		}))

		decisions, err := store.Recent(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, decisions, 1)
	})
}
