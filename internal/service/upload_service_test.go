package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func pngOf(size int) []byte {
	return append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, size-len(pngHeader))...)
}

func TestUpload_StoresImage(t *testing.T) {
	env := newTestEnv(t)
	store := storage.NewMemoryStore()
	svc := NewUploadService(env.uploads, store, 1<<20, "https://api.example.com/")
	owner := env.user(t, models.RoleLandlord)
	ctx := context.Background()

	body := pngOf(5000)
	up, err := svc.Upload(ctx, owner, "../photos/front.png", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "image/png", up.ContentType)
	assert.Equal(t, "front.png", up.Filename)
	assert.Equal(t, int64(len(body)), up.Size)
	assert.True(t, strings.HasSuffix(up.ObjectID, ".png"))
	assert.Equal(t, "https://api.example.com/api/v1/uploads/1", svc.URL(up))

	_, rc, err := svc.Open(ctx, up.ID)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, body, got)
}

func TestUpload_Rejects(t *testing.T) {
	env := newTestEnv(t)
	store := storage.NewMemoryStore()
	svc := NewUploadService(env.uploads, store, 4096, "")
	owner := env.user(t, models.RoleLandlord)
	ctx := context.Background()

	_, err := svc.Upload(ctx, owner, "notes.txt", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = svc.Upload(ctx, owner, "empty.png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = svc.Upload(ctx, owner, "big.png", bytes.NewReader(pngOf(8192)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	var count int64
	require.NoError(t, env.db.Model(&models.Upload{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpload_Delete(t *testing.T) {
	env := newTestEnv(t)
	store := storage.NewMemoryStore()
	svc := NewUploadService(env.uploads, store, 1<<20, "")
	owner := env.user(t, models.RoleLandlord)
	other := env.user(t, models.RoleLandlord)
	ctx := context.Background()

	up, err := svc.Upload(ctx, owner, "a.png", bytes.NewReader(pngOf(100)))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, other, up.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, owner, up.ID))

	_, _, err = svc.Open(ctx, up.ID)
	assert.ErrorIs(t, err, ErrUploadNotFound)
	_, err = store.Open(ctx, up.ObjectID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
