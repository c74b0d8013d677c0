//go:build integration

package storage_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/cloo-solutions/vsearch/internal/storage"
	"github.com/cloo-solutions/vsearch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_ArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := storage.NewS3Client(ctx, rc.ClientConfig("vsearch-queries"))
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	require.NoError(t, client.EnsureBucket(ctx))

	key := storage.ArchiveKey("abc123", "chair.jpg")
	data := []byte("\xff\xd8\xff\xe0fake-jpeg")
	require.NoError(t, client.PutObject(ctx, key, "image/jpeg", data))

	meta, err := client.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), meta.ContentLength)
	assert.Equal(t, "image/jpeg", meta.ContentType)

	url, err := client.GenerateDownloadURL(ctx, key)
	require.NoError(t, err)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, body)

	require.NoError(t, client.DeleteObject(ctx, key))
	_, err = client.HeadObject(ctx, key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}
