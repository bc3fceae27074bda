package queue

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/txq/internal/domain"
)

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "data")
	backend := NewFileBackend(dir)

	_, err := backend.Read(ctx, RecordKey)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	require.NoError(t, backend.Write(ctx, RecordKey, []byte(`{"v":1}`)))
	assert.NoFileExists(t, filepath.Join(dir, "queue.json.bak"), "first write has nothing to back up")

	require.NoError(t, backend.Write(ctx, RecordKey, []byte(`{"v":2}`)))

	data, err := backend.Read(ctx, RecordKey)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	bak, err := os.ReadFile(filepath.Join(dir, "queue.json.bak"))
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(bak))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".txq-tmp-", "temp files are cleaned up")
	}

	require.NoError(t, backend.Delete(ctx, RecordKey))
	_, err = backend.Read(ctx, RecordKey)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	assert.NoFileExists(t, filepath.Join(dir, "queue.json.bak"))

	// Deleting again is fine
	assert.NoError(t, backend.Delete(ctx, RecordKey))
	assert.NoError(t, backend.Close())
}
