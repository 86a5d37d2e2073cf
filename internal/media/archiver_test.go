package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lexvia/case-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_Put(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/media")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "carta documento.pdf", []byte("pdf-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/media/"))
	assert.True(t, strings.HasSuffix(url, ".pdf"))
	assert.NotContains(t, url, "carta") // original name never reaches disk

	name := strings.TrimPrefix(url, "/media/")
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), data)
}

func TestDiskStore_UniqueNames(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	first, err := store.Put(context.Background(), "a.jpg", []byte("1"))
	require.NoError(t, err)
	second, err := store.Put(context.Background(), "a.jpg", []byte("2"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestArchiver_DropsUnfetchableAttachments(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	archiver, err := NewArchiver(&Config{Timeout: 200 * time.Millisecond}, store)
	require.NoError(t, err)

	got := archiver.Archive(context.Background(), []model.InboundAttachment{
		{URL: "http://127.0.0.1:1/gone.jpg", MimeType: "image/jpeg", Filename: "gone.jpg"},
	})
	assert.Nil(t, got)
}

func TestArchiver_EmptyInput(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	archiver, err := NewArchiver(nil, store)
	require.NoError(t, err)

	assert.Nil(t, archiver.Archive(context.Background(), nil))
}
