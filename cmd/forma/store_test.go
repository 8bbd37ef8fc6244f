package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/forma/internal/config"
	"github.com/yanizio/forma/internal/storage"
)

func TestOpenStore_Memory(t *testing.T) {
	kv, closeFn, err := openStore(context.Background(), config.Storage{Driver: "memory"})
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, kv.Set(context.Background(), storage.KeyIsAuthenticated, "true"))
	assert.Equal(t, "true", kv.Get(context.Background(), storage.KeyIsAuthenticated, false))
}

func TestOpenStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "forma.db")

	kv, closeFn, err := openStore(ctx, config.Storage{Driver: "sqlite", DSN: dsn, Table: "kv"})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, storage.KeyHabits, []string{"read", "run"}))
	require.NoError(t, kv.Set(ctx, storage.KeyUserEmail, "dev@example.com"))
	require.NoError(t, kv.RemoveMany(ctx, storage.KeyUserEmail, storage.KeyIsPro))
	closeFn()

	// Reopen: data survives and Migrate is idempotent.
	kv, closeFn, err = openStore(ctx, config.Storage{Driver: "sqlite", DSN: dsn, Table: "kv"})
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, []any{"read", "run"}, kv.Get(ctx, storage.KeyHabits, true))
	assert.Nil(t, kv.Get(ctx, storage.KeyUserEmail, false))
}

func TestOpenStore_Unsupported(t *testing.T) {
	_, _, err := openStore(context.Background(), config.Storage{Driver: "redis"})
	assert.Error(t, err)
}
