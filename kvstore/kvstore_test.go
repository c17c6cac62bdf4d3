package kvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/danthegoodman1/icetable/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKVStore runs the behavior every backend must share.
func testKVStore(t *testing.T, kv KVStore) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "table_pageSize_users")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, kv.Set(ctx, "table_pageSize_users", "25"))
	v, err := kv.Get(ctx, "table_pageSize_users")
	require.NoError(t, err)
	assert.Equal(t, "25", v)

	require.NoError(t, kv.Set(ctx, "table_pageSize_users", "50"))
	v, err = kv.Get(ctx, "table_pageSize_users")
	require.NoError(t, err)
	assert.Equal(t, "50", v)

	require.NoError(t, kv.Set(ctx, "table_visibility_a/b c", `{"email":false}`))
	v, err = kv.Get(ctx, "table_visibility_a/b c")
	require.NoError(t, err)
	assert.Equal(t, `{"email":false}`, v)

	require.NoError(t, kv.Set(ctx, "empty", ""))
	v, err = kv.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, kv.Set(ctx, "concurrent", "x"))
		}()
	}
	wg.Wait()
	v, err = kv.Get(ctx, "concurrent")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	require.NoError(t, kv.Shutdown(ctx))
}

func TestMemoryKVStore(t *testing.T) {
	kv := NewMemoryKVStore()
	testKVStore(t, kv)
	assert.Equal(t, 4, kv.Len())
}

func TestDiskKVStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	kv, err := NewDiskKVStore(dir)
	require.NoError(t, err)
	testKVStore(t, kv)

	// values survive a new store over the same directory
	reopened, err := NewDiskKVStore(dir)
	require.NoError(t, err)
	v, err := reopened.Get(context.Background(), "table_pageSize_users")
	require.NoError(t, err)
	assert.Equal(t, "50", v)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ".val", filepath.Ext(e.Name()), "no temp files left behind")
	}
}

func TestRedisKVStore(t *testing.T) {
	mr := miniredis.RunT(t)
	kv, err := NewRedisKVStore(context.Background(), mr.Addr(), "")
	require.NoError(t, err)
	testKVStore(t, kv)
	assert.True(t, mr.Exists("table_pageSize_users"))
}

func TestS3ObjectKey(t *testing.T) {
	kv, err := NewS3KVStore(S3Config{Bucket: "b", Region: "us-east-1", KeyPrefix: "table_state/"})
	require.NoError(t, err)
	assert.Equal(t, "table_state/table_pageSize_users", kv.objectKey("table_pageSize_users"))
}

func TestNewFromEnv(t *testing.T) {
	prevBackend, prevPath := utils.KV_BACKEND, utils.KV_DISK_PATH
	t.Cleanup(func() {
		utils.KV_BACKEND, utils.KV_DISK_PATH = prevBackend, prevPath
	})
	ctx := context.Background()

	utils.KV_BACKEND = "memory"
	kv, err := NewFromEnv(ctx)
	require.NoError(t, err)
	assert.IsType(t, &MemoryKVStore{}, kv)

	utils.KV_BACKEND = "disk"
	utils.KV_DISK_PATH = t.TempDir()
	kv, err = NewFromEnv(ctx)
	require.NoError(t, err)
	assert.IsType(t, &DiskKVStore{}, kv)

	utils.KV_BACKEND = "etcd"
	_, err = NewFromEnv(ctx)
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}
